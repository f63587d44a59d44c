// Package recovery reconstructs the latest consistent data when a store
// opens, tolerating interruption at any prior file-operation boundary.
//
// The crash scenarios form a decision table over three existence flags
// (state, journal, transitional state). Every reachable combination maps to
// one deterministic corrective action, applied here before any other
// component's invariants are assumed.
package recovery

import (
	"fmt"
	"log/slog"
	"os"

	"duralog/pkg/journal"
	"duralog/pkg/mutation"
	"duralog/pkg/snapshot"
)

// StateLoader is optionally implemented by the persisted data type. It is
// called after the snapshot is decoded, or after default construction when
// no snapshot exists, and before journal replay, so the type can rebuild
// derived in-memory state.
type StateLoader interface {
	StateLoaded()
}

// Load computes the data reconstructed from dir. The type parameter T is the
// caller's root state and must be a pointer type; newData supplies its
// default value. The second return reports whether a prior persistence
// existed.
//
// Expected crash leftovers are repaired silently. A snapshot that fails to
// decode and a journal record with an unregistered type id are both fatal.
func Load[T any](dir string, reg *mutation.Registry[T], newData func() T) (T, bool, error) {
	var zero T

	if err := os.MkdirAll(dir, 0750); err != nil {
		return zero, false, fmt.Errorf("duralog: create persistence directory: %w", err)
	}

	snaps := snapshot.New(dir)

	if !exists(snaps.StatePath()) {
		if exists(journal.Path(dir)) {
			// A previous compaction crashed after deleting the state file but
			// before clearing the journal. The journal presupposes a snapshot
			// that was already consumed, so it cannot be replayed.
			slog.Warn("discarding journal without a state file", "dir", dir)
			if err := os.Remove(journal.Path(dir)); err != nil {
				return zero, false, fmt.Errorf("duralog: remove stale journal: %w", err)
			}
		}

		if exists(snaps.TransitionalPath()) {
			// Crash after the transitional snapshot was fully written and the
			// old state file deleted, before the finalizing rename. The
			// transitional image is complete and becomes authoritative.
			slog.Warn("promoting transitional state file left by interrupted compaction", "dir", dir)
			if err := snaps.Promote(); err != nil {
				return zero, false, err
			}
		} else {
			// No prior persisted data.
			data := newData()
			stateLoaded(data)
			return data, false, nil
		}
	}

	if exists(snaps.TransitionalPath()) {
		// Abandoned compaction attempt whose promotion never happened; the
		// existing state file remains authoritative.
		slog.Warn("removing abandoned transitional state file", "dir", dir)
		if err := snaps.RemoveTransitional(); err != nil {
			return zero, false, err
		}
	}

	data := newData()
	if err := snaps.Read(data); err != nil {
		return zero, false, err
	}
	stateLoaded(data)

	err := journal.Replay(dir, func(rec journal.Record) error {
		return reg.Dispatch(rec.TypeID, rec.Payload, data)
	})
	if err != nil {
		return zero, false, err
	}

	return data, true, nil
}

func stateLoaded(data any) {
	if sl, ok := data.(StateLoader); ok {
		sl.StateLoaded()
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
