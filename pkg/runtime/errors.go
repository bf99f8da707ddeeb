package runtime

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned when an operation needs a bound schema.
	ErrNotReady = errors.New("runtime: form is not bound to a schema")
	// ErrInvalidState is matched by every *StateError.
	ErrInvalidState = errors.New("runtime: operation not allowed in current state")
	// ErrSuperseded is returned by Bind when a later Bind replaced it before
	// the schema arrived. The late result is discarded.
	ErrSuperseded = errors.New("runtime: bind superseded")
	// ErrUnknownField is returned by SetField for paths outside the definition.
	ErrUnknownField = errors.New("runtime: unknown field")
)

// StateError reports an operation attempted from the wrong state.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("runtime: %s not allowed while %s", e.Op, e.State)
}

// Is lets errors.Is match ErrInvalidState.
func (e *StateError) Is(target error) bool {
	return target == ErrInvalidState
}
