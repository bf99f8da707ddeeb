package values

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for unknown value ids.
	ErrNotFound = errors.New("values: entity value not found")
	// ErrInvalidInput flags malformed requests.
	ErrInvalidInput = errors.New("values: invalid input")
	// ErrDuplicate is returned when an entity already has a value for the
	// schema.
	ErrDuplicate = errors.New("values: entity already has a value for schema")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
