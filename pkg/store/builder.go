package store

import (
	"log/slog"

	"duralog/pkg/dberrors"
	"duralog/pkg/journal"
	"duralog/pkg/metrics"
	"duralog/pkg/mutation"
	"duralog/pkg/recovery"
	"duralog/pkg/snapshot"
)

// DefaultMaxJournalFileLength is the journal size, in bytes, past which a
// mutation triggers automatic compaction unless configured otherwise.
const DefaultMaxJournalFileLength = 10 << 20

// Builder configures and opens a Store. The type parameter T is the caller's
// root state and must be a pointer type; it must round-trip through the
// snapshot codec and have a well-defined default produced by newData.
type Builder[T any] struct {
	registry   *mutation.Registry[T]
	newData    func() T
	maxJournal int // negative disables auto-compaction
	buffered   bool
	collector  metrics.Collector
}

// New begins construction of a Store whose default data newData supplies.
func New[T any](newData func() T) *Builder[T] {
	return &Builder[T]{
		registry:   mutation.NewRegistry[T](),
		newData:    newData,
		maxJournal: DefaultMaxJournalFileLength,
		buffered:   true,
		collector:  metrics.Noop{},
	}
}

// Register adds a mutation type to be used when replaying the journal.
// Registration happens only here, before Open; the registry is immutable
// afterward. Panics if the prototype's id is already taken.
func (b *Builder[T]) Register(prototype mutation.Mutation[T]) *Builder[T] {
	b.registry.Register(prototype)
	return b
}

// MaxJournalFileLength sets the journal byte length past which a mutation
// triggers compaction. Zero compacts after every mutation.
func (b *Builder[T]) MaxJournalFileLength(n int) *Builder[T] {
	b.maxJournal = n
	return b
}

// NoAutoCompaction disables length-triggered compaction. The journal then
// grows until Compact is called explicitly or the store is reopened.
func (b *Builder[T]) NoAutoCompaction() *Builder[T] {
	b.maxJournal = -1
	return b
}

// UseJournalBuffer toggles buffered journal writes. Buffering improves
// mutation throughput considerably, but records sitting in the buffer are
// lost if the process dies before a flush. Disable it to block every Mutate
// until its record has been written through to the file.
func (b *Builder[T]) UseJournalBuffer(use bool) *Builder[T] {
	b.buffered = use
	return b
}

// Metrics installs a collector for store telemetry. The default discards
// every observation.
func (b *Builder[T]) Metrics(c metrics.Collector) *Builder[T] {
	if c != nil {
		b.collector = c
	}
	return b
}

// Open reconstructs the latest consistent state from dir (creating the
// directory recursively if absent), opens the journal for appending and
// performs an unconditional compaction, so every successful open leaves the
// directory with a fresh snapshot and an empty journal. Any torn journal
// tail skipped during replay is discarded permanently by that compaction.
func (b *Builder[T]) Open(dir string) (*Store[T], error) {
	if b.newData == nil || dir == "" {
		return nil, dberrors.ErrInvalidArgument
	}

	data, found, err := recovery.Load(dir, b.registry, b.newData)
	if err != nil {
		return nil, err
	}

	jr, err := journal.Open(dir, b.buffered)
	if err != nil {
		return nil, err
	}

	s := &Store[T]{
		dir:        dir,
		data:       data,
		jr:         jr,
		snaps:      snapshot.New(dir),
		maxJournal: b.maxJournal,
		collector:  b.collector,
	}

	if err := s.compact("open"); err != nil {
		_ = jr.Close()
		return nil, err
	}

	slog.Info("durable store opened", "dir", dir, "recovered", found)
	return s, nil
}
