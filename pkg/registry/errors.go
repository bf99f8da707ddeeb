package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a schema id is unknown.
	ErrNotFound = errors.New("registry: schema not found")
	// ErrForbidden is matched by every *AuthorityError.
	ErrForbidden = errors.New("registry: forbidden")
	// ErrConflict is matched by every *ReferentialConflictError.
	ErrConflict = errors.New("registry: conflict")
	// ErrInvalidInput flags malformed request fields other than the definition.
	ErrInvalidInput = errors.New("registry: invalid input")
)

// AuthorityError reports a caller acting outside its rights.
type AuthorityError struct {
	SchemaID string
	Op       string
	Reason   string
}

func (e *AuthorityError) Error() string {
	if e.SchemaID == "" {
		return fmt.Sprintf("%s: %s: %s", ErrForbidden.Error(), e.Op, e.Reason)
	}
	return fmt.Sprintf("%s: %s %s: %s", ErrForbidden.Error(), e.Op, e.SchemaID, e.Reason)
}

// Is lets errors.Is match ErrForbidden.
func (e *AuthorityError) Is(target error) bool {
	return target == ErrForbidden
}

// ReferentialConflictError reports a delete blocked by entity values still
// pinned to the schema.
type ReferentialConflictError struct {
	SchemaID   string
	References int
}

func (e *ReferentialConflictError) Error() string {
	return fmt.Sprintf("%s: schema %s is referenced by %d entity value(s)", ErrConflict.Error(), e.SchemaID, e.References)
}

// Is lets errors.Is match ErrConflict.
func (e *ReferentialConflictError) Is(target error) bool {
	return target == ErrConflict
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}
