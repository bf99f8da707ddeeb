package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("validation: value does not satisfy definition")

// Result is the outcome of a Check. FieldErrors is nil when OK is true.
type Result struct {
	OK          bool              `json:"ok"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
}

func newResult(errs map[string]string) Result {
	if len(errs) == 0 {
		return Result{OK: true}
	}
	return Result{FieldErrors: errs}
}

// Paths returns the failing paths in sorted order.
func (r Result) Paths() []string {
	if len(r.FieldErrors) == 0 {
		return nil
	}
	paths := make([]string, 0, len(r.FieldErrors))
	for path := range r.FieldErrors {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Err converts a failed result into a *ValidationError.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	return &ValidationError{FieldErrors: r.FieldErrors}
}

// ValidationError reports per-path failures of a candidate value.
type ValidationError struct {
	FieldErrors map[string]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.FieldErrors) == 0 {
		return ErrValidation.Error()
	}
	paths := Result{FieldErrors: e.FieldErrors}.Paths()
	parts := make([]string, 0, len(paths))
	for _, path := range paths {
		parts = append(parts, fmt.Sprintf("%s %s", path, e.FieldErrors[path]))
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(parts, "; "))
}

// Is lets errors.Is match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
