package snapshot

import (
	"os"
	"testing"
)

type testState struct {
	Name  string `cbor:"name"`
	Count int    `cbor:"count"`
}

func TestStore_WritePromoteRead(t *testing.T) {
	s := New(t.TempDir())

	want := testState{Name: "alpha", Count: 3}
	if err := s.WriteTransitional(&want); err != nil {
		t.Fatalf("WriteTransitional failed: %v", err)
	}
	if err := s.Promote(); err != nil {
		t.Fatalf("Promote failed: %v", err)
	}

	if _, err := os.Stat(s.TransitionalPath()); !os.IsNotExist(err) {
		t.Fatal("expected transitional file to be gone after promote")
	}

	var got testState
	if err := s.Read(&got); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestStore_WriteTransitionalOverwritesPreviousAttempt(t *testing.T) {
	s := New(t.TempDir())

	if err := s.WriteTransitional(&testState{Name: "stale", Count: 1}); err != nil {
		t.Fatalf("WriteTransitional failed: %v", err)
	}
	if err := s.WriteTransitional(&testState{Name: "fresh", Count: 2}); err != nil {
		t.Fatalf("WriteTransitional overwrite failed: %v", err)
	}
	if err := s.Promote(); err != nil {
		t.Fatalf("Promote failed: %v", err)
	}

	var got testState
	if err := s.Read(&got); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.Name != "fresh" || got.Count != 2 {
		t.Fatalf("expected the fresh image, got %+v", got)
	}
}

func TestStore_RemoveMissingFilesIsNotAnError(t *testing.T) {
	s := New(t.TempDir())

	if err := s.Remove(); err != nil {
		t.Fatalf("Remove of missing state file failed: %v", err)
	}
	if err := s.RemoveTransitional(); err != nil {
		t.Fatalf("RemoveTransitional of missing file failed: %v", err)
	}
}

func TestStore_ReadMissingStateFails(t *testing.T) {
	s := New(t.TempDir())

	var got testState
	if err := s.Read(&got); err == nil {
		t.Fatal("expected error reading a missing state file")
	}
}

func TestStore_ReadCorruptStateFails(t *testing.T) {
	s := New(t.TempDir())

	if err := os.WriteFile(s.StatePath(), []byte("not cbor at all \xff\xff"), 0600); err != nil {
		t.Fatalf("write corrupt state failed: %v", err)
	}

	var got testState
	if err := s.Read(&got); err == nil {
		t.Fatal("expected decode error for a corrupt state file")
	}
}
