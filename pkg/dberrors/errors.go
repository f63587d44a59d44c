package dberrors

import (
	"errors"
	"fmt"
)

var (
	ErrClosed          = errors.New("duralog: closed")
	ErrInvalidArgument = errors.New("duralog: invalid argument")
)

// UnregisteredMutationError is returned when a journal record carries a
// mutation type id that no registered type matches. During replay it is
// fatal: skipping the record would silently lose a committed mutation.
type UnregisteredMutationError struct {
	ID uint32
}

func (e *UnregisteredMutationError) Error() string {
	return fmt.Sprintf("duralog: no mutation type registered with id %d", e.ID)
}
