// Package snapshot persists complete serialized images of the live data.
// The state file is never edited in place: a new image is written to a
// transitional file and promoted onto the state path by an atomic rename.
package snapshot

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"duralog/pkg/codec"
)

const (
	// StateFileName is the current snapshot inside the persistence directory.
	StateFileName = "state"
	// TransitionalFileName is a snapshot being written; it exists only during
	// compaction, until promoted or discarded.
	TransitionalFileName = "state~"
)

// Store reads and writes snapshots in one persistence directory.
//
// It offers the raw file steps rather than a single atomic write because the
// compaction protocol interleaves the journal truncation between Remove and
// Promote. Interruption tolerance lives entirely in the recovery loader;
// this component propagates every error verbatim.
type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

// StatePath returns the snapshot file path.
func (s *Store) StatePath() string {
	return filepath.Join(s.dir, StateFileName)
}

// TransitionalPath returns the transitional snapshot file path.
func (s *Store) TransitionalPath() string {
	return filepath.Join(s.dir, TransitionalFileName)
}

// WriteTransitional serializes data wholesale to the transitional file,
// overwriting any previous attempt, and syncs it to disk before returning.
func (s *Store) WriteTransitional(data any) error {
	file, err := os.OpenFile(s.TransitionalPath(), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("duralog: create transitional state file: %w", err)
	}

	writer := bufio.NewWriter(file)
	if err := codec.Encode(writer, data); err != nil {
		_ = file.Close()
		return err
	}

	if err := writer.Flush(); err != nil {
		_ = file.Close()
		return fmt.Errorf("duralog: flush transitional state file: %w", err)
	}

	if err := file.Sync(); err != nil {
		_ = file.Close()
		return fmt.Errorf("duralog: sync transitional state file: %w", err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("duralog: close transitional state file: %w", err)
	}

	return nil
}

// Remove deletes the current state file. A missing file is not an error.
func (s *Store) Remove() error {
	if err := os.Remove(s.StatePath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("duralog: remove state file: %w", err)
	}
	return nil
}

// RemoveTransitional deletes an abandoned transitional file. A missing file
// is not an error.
func (s *Store) RemoveTransitional() error {
	if err := os.Remove(s.TransitionalPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("duralog: remove transitional state file: %w", err)
	}
	return nil
}

// Promote renames the transitional file onto the state file path.
func (s *Store) Promote() error {
	if err := os.Rename(s.TransitionalPath(), s.StatePath()); err != nil {
		return fmt.Errorf("duralog: promote transitional state file: %w", err)
	}
	return nil
}

// Read deserializes the state file into the value pointed to by into.
func (s *Store) Read(into any) error {
	file, err := os.Open(s.StatePath())
	if err != nil {
		return fmt.Errorf("duralog: open state file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			slog.Warn("failed to close state file", "error", cerr)
		}
	}()

	return codec.Decode(bufio.NewReader(file), into)
}
