// Package store composes the journal, snapshot store, recovery loader and
// mutation registry into the durable store: an in-memory data structure kept
// consistent with disk through event-sourcing.
package store

import (
	"log/slog"
	"sync"
	"time"

	"duralog/pkg/codec"
	"duralog/pkg/dberrors"
	"duralog/pkg/journal"
	"duralog/pkg/metrics"
	"duralog/pkg/mutation"
	"duralog/pkg/snapshot"
)

// Store owns the live data instance and the open journal for one
// persistence directory. Exactly one live instance may hold a directory at a
// time; within the process, operations are serialized by an internal mutex.
//
// All I/O is synchronous on the calling goroutine. No operation spawns
// background work.
type Store[T any] struct {
	mu         sync.Mutex
	dir        string
	data       T
	jr         *journal.Journal
	snaps      *snapshot.Store
	maxJournal int
	collector  metrics.Collector
	closed     bool
}

// Get returns the live data. Callers must treat it as read-only: Mutate is
// the sole path that also records the change in the journal, and changes
// made behind its back are lost on replay.
func (s *Store[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// Mutate durably records m and applies it to the live data, returning the
// mutation's declared result.
//
// The record is appended to the journal first. If the append or flush fails
// the journal is treated as possibly corrupt and a compaction is forced
// immediately; if the journal grows past the configured maximum, a
// compaction is triggered. Either way, m is then applied in memory and is
// not rolled back on journal failure: after a crash, recovery only needs the
// journal to be a prefix of the applied mutations, never a superset.
func (s *Store[T]) Mutate(m mutation.Mutation[T]) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, dberrors.ErrClosed
	}

	payload, err := codec.Marshal(m)
	if err != nil {
		return nil, err
	}

	if _, werr := s.jr.Append(m.MutationID(), payload); werr != nil {
		// The journal may now end in an unreadable tail. Fold the current
		// state into a fresh snapshot and discard the suspect journal.
		slog.Warn("journal append failed, forcing compaction", "dir", s.dir, "error", werr)
		if cerr := s.compact("forced"); cerr != nil {
			return nil, cerr
		}
	} else if s.maxJournal >= 0 && s.jr.Length() > s.maxJournal {
		if cerr := s.compact("auto"); cerr != nil {
			return nil, cerr
		}
	}

	s.collector.IncCounter(metrics.MetricMutations, nil, 1)
	s.collector.SetGauge(metrics.MetricJournalLength, nil, float64(s.jr.Length()))

	return m.Apply(s.data), nil
}

// Compact folds the live data into a fresh snapshot and clears the journal.
func (s *Store[T]) Compact() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return dberrors.ErrClosed
	}

	return s.compact("manual")
}

func (s *Store[T]) compact(trigger string) error {
	start := time.Now()

	if err := s.snaps.WriteTransitional(s.data); err != nil {
		return err
	}

	if err := s.snaps.Remove(); err != nil {
		return err
	}

	// The truncation must sit between the state-file removal and the rename.
	// Earlier, and journaled mutations would vanish while the old snapshot is
	// still authoritative; later, and a crash could leave stale records to
	// replay on top of the new snapshot.
	if err := s.jr.Truncate(); err != nil {
		return err
	}

	if err := s.snaps.Promote(); err != nil {
		return err
	}

	s.collector.IncCounter(metrics.MetricCompactions, map[string]string{"trigger": trigger}, 1)
	s.collector.ObserveHistogram(metrics.MetricSnapshotWrite, nil, time.Since(start).Seconds())
	s.collector.SetGauge(metrics.MetricJournalLength, nil, 0)

	return nil
}

// JournalFileLength reports the tracked cumulative byte length appended
// since the last compaction. In buffered mode this counts records that have
// not necessarily reached the file yet.
func (s *Store[T]) JournalFileLength() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0
	}

	return s.jr.Length()
}

// Close flushes and closes the journal handle. Further operations return
// ErrClosed. The directory can be reopened afterward.
func (s *Store[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	return s.jr.Close()
}
