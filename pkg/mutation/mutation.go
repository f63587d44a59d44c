// Package mutation defines the command contract for durable data changes
// and the registry that maps stable numeric type ids to decode-and-apply
// functions for journal replay.
package mutation

import (
	"fmt"
	"reflect"

	"duralog/pkg/codec"
	"duralog/pkg/dberrors"
)

// Mutation is a deterministic, serializable change to the data type T.
//
// Apply must be side-effect free: no clocks, no randomness, no external
// resources. Replaying the journal re-executes Apply, and a non-deterministic
// implementation desynchronizes the reconstructed state from the original.
type Mutation[T any] interface {
	// MutationID is the stable identifier recorded with every journal frame.
	// It must be unique per mutation type and must not change across builds
	// that share a persistence directory.
	MutationID() uint32

	// Apply commits the change to data and returns the mutation's result.
	Apply(data T) any
}

type decodeApply[T any] func(payload []byte, data T) error

// Registry maps mutation type ids to decode-and-apply functions. It is
// populated once, before the store opens, and read-only afterward.
type Registry[T any] struct {
	types map[uint32]decodeApply[T]
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{types: make(map[uint32]decodeApply[T])}
}

// Register adds a mutation type, identified by the prototype's MutationID.
// Replay decodes payloads into a fresh value of the prototype's type, like
// gob.Register. Registering two types with the same id is a programmer
// error and panics.
func (r *Registry[T]) Register(prototype Mutation[T]) {
	id := prototype.MutationID()
	if _, dup := r.types[id]; dup {
		panic(fmt.Sprintf("duralog: mutation type already registered with id %d", id))
	}

	rt := reflect.TypeOf(prototype)
	if rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}

	r.types[id] = func(payload []byte, data T) error {
		pv := reflect.New(rt)
		if err := codec.Unmarshal(payload, pv.Interface()); err != nil {
			return fmt.Errorf("duralog: decode mutation id %d: %w", id, err)
		}
		// The pointer's method set includes value receivers, so this holds
		// whether the prototype was registered by value or by pointer.
		m := pv.Interface().(Mutation[T])
		m.Apply(data)
		return nil
	}
}

// Dispatch decodes payload with the function registered for id and applies
// it to data.
func (r *Registry[T]) Dispatch(id uint32, payload []byte, data T) error {
	fn, ok := r.types[id]
	if !ok {
		return &dberrors.UnregisteredMutationError{ID: id}
	}
	return fn(payload, data)
}
