package recovery

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"duralog/pkg/codec"
	"duralog/pkg/dberrors"
	"duralog/pkg/journal"
	"duralog/pkg/mutation"
	"duralog/pkg/snapshot"
)

type counter struct {
	Count int `cbor:"count"`

	loads int
}

func (c *counter) StateLoaded() {
	c.loads++
}

type increment struct {
	By int `cbor:"by"`
}

func (increment) MutationID() uint32 { return 1 }

func (m increment) Apply(c *counter) any {
	c.Count += m.By
	return c.Count
}

func newCounter() *counter {
	return &counter{}
}

func newRegistry() *mutation.Registry[*counter] {
	reg := mutation.NewRegistry[*counter]()
	reg.Register(increment{})
	return reg
}

// writeState puts a fully-written snapshot at the state file path.
func writeState(t *testing.T, dir string, c *counter) {
	t.Helper()
	s := snapshot.New(dir)
	if err := s.WriteTransitional(c); err != nil {
		t.Fatalf("WriteTransitional failed: %v", err)
	}
	if err := s.Promote(); err != nil {
		t.Fatalf("Promote failed: %v", err)
	}
}

// writeJournal appends framed increment records to the journal file.
func writeJournal(t *testing.T, dir string, typeID uint32, increments ...int) {
	t.Helper()
	var buf bytes.Buffer
	for _, by := range increments {
		payload, err := codec.Marshal(increment{By: by})
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		if err := journal.WriteRecord(&buf, typeID, payload); err != nil {
			t.Fatalf("WriteRecord failed: %v", err)
		}
	}
	if err := os.WriteFile(journal.Path(dir), buf.Bytes(), 0600); err != nil {
		t.Fatalf("write journal failed: %v", err)
	}
}

func TestLoad_FreshDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	data, found, err := Load(dir, newRegistry(), newCounter)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if found {
		t.Fatal("expected no prior persistence in a fresh directory")
	}
	if data.Count != 0 {
		t.Fatalf("expected default data, got count %d", data.Count)
	}
	if data.loads != 1 {
		t.Fatalf("expected StateLoaded once on default data, got %d", data.loads)
	}

	// The directory itself must have been created recursively.
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("expected persistence directory to exist: %v", err)
	}
}

func TestLoad_StrayJournalWithoutStateIsDeleted(t *testing.T) {
	dir := t.TempDir()
	writeJournal(t, dir, 1, 5)

	data, found, err := Load(dir, newRegistry(), newCounter)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if found {
		t.Fatal("a journal without a snapshot reconstructs nothing")
	}
	if data.Count != 0 {
		t.Fatalf("expected default data, got count %d", data.Count)
	}
	if _, err := os.Stat(journal.Path(dir)); !os.IsNotExist(err) {
		t.Fatal("expected the stray journal to be deleted")
	}
}

func TestLoad_TransitionalOnlyIsPromoted(t *testing.T) {
	dir := t.TempDir()
	s := snapshot.New(dir)
	if err := s.WriteTransitional(&counter{Count: 42}); err != nil {
		t.Fatalf("WriteTransitional failed: %v", err)
	}

	data, found, err := Load(dir, newRegistry(), newCounter)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !found {
		t.Fatal("expected the promoted transitional snapshot to be found")
	}
	if data.Count != 42 {
		t.Fatalf("expected count 42 from promoted snapshot, got %d", data.Count)
	}
	if _, err := os.Stat(s.TransitionalPath()); !os.IsNotExist(err) {
		t.Fatal("expected transitional file to be gone after promotion")
	}
	if _, err := os.Stat(s.StatePath()); err != nil {
		t.Fatalf("expected state file after promotion: %v", err)
	}
}

func TestLoad_JournalAndTransitionalWithoutState(t *testing.T) {
	// Crash window inside compaction: old state deleted, journal not yet
	// cleared, rename not yet done. The journal must be discarded and the
	// transitional image promoted.
	dir := t.TempDir()
	writeJournal(t, dir, 1, 99)
	s := snapshot.New(dir)
	if err := s.WriteTransitional(&counter{Count: 7}); err != nil {
		t.Fatalf("WriteTransitional failed: %v", err)
	}

	data, found, err := Load(dir, newRegistry(), newCounter)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !found {
		t.Fatal("expected recovered data")
	}
	if data.Count != 7 {
		t.Fatalf("expected count 7 (journal discarded), got %d", data.Count)
	}
}

func TestLoad_AbandonedTransitionalIsRemoved(t *testing.T) {
	dir := t.TempDir()
	writeState(t, dir, &counter{Count: 10})
	s := snapshot.New(dir)
	if err := s.WriteTransitional(&counter{Count: 999}); err != nil {
		t.Fatalf("WriteTransitional failed: %v", err)
	}

	data, found, err := Load(dir, newRegistry(), newCounter)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !found {
		t.Fatal("expected recovered data")
	}
	if data.Count != 10 {
		t.Fatalf("the existing state file stays authoritative, got count %d", data.Count)
	}
	if _, err := os.Stat(s.TransitionalPath()); !os.IsNotExist(err) {
		t.Fatal("expected the abandoned transitional file to be removed")
	}
}

func TestLoad_ReplaysJournalOverSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeState(t, dir, &counter{Count: 1})
	writeJournal(t, dir, 1, 2, 3)

	data, found, err := Load(dir, newRegistry(), newCounter)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !found {
		t.Fatal("expected recovered data")
	}
	if data.Count != 6 {
		t.Fatalf("expected 1+2+3=6, got %d", data.Count)
	}
	if data.loads != 1 {
		t.Fatalf("StateLoaded must run once, before replay; got %d", data.loads)
	}
}

func TestLoad_TornJournalTailIsSkipped(t *testing.T) {
	dir := t.TempDir()
	writeState(t, dir, &counter{Count: 0})
	writeJournal(t, dir, 1, 2, 3)

	// Tear the last record in half.
	stat, err := os.Stat(journal.Path(dir))
	if err != nil {
		t.Fatalf("stat journal failed: %v", err)
	}
	if err := os.Truncate(journal.Path(dir), stat.Size()-3); err != nil {
		t.Fatalf("truncate journal failed: %v", err)
	}

	data, _, err := Load(dir, newRegistry(), newCounter)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if data.Count != 2 {
		t.Fatalf("expected only the whole record applied, got %d", data.Count)
	}
}

func TestLoad_UnregisteredMutationIsFatal(t *testing.T) {
	dir := t.TempDir()
	writeState(t, dir, &counter{Count: 0})
	writeJournal(t, dir, 77, 1)

	_, _, err := Load(dir, newRegistry(), newCounter)
	if err == nil {
		t.Fatal("expected replay of an unknown mutation id to fail")
	}

	var unreg *dberrors.UnregisteredMutationError
	if !errors.As(err, &unreg) {
		t.Fatalf("expected UnregisteredMutationError, got %v", err)
	}
	if unreg.ID != 77 {
		t.Fatalf("expected id 77, got %d", unreg.ID)
	}
}

func TestLoad_CorruptSnapshotIsFatal(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(snapshot.New(dir).StatePath(), []byte{0xff, 0xff, 0xff}, 0600); err != nil {
		t.Fatalf("write corrupt state failed: %v", err)
	}

	if _, _, err := Load(dir, newRegistry(), newCounter); err == nil {
		t.Fatal("expected a corrupt snapshot to surface an error")
	}
}
