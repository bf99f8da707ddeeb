package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/goliatone/go-customfields/pkg/envelope"
	"github.com/goliatone/go-customfields/pkg/fieldspec"
	"github.com/goliatone/go-customfields/pkg/registry"
	"github.com/goliatone/go-customfields/pkg/validation"
	"github.com/goliatone/go-customfields/pkg/values"
)

// ErrTransport is matched by every *TransportError.
var ErrTransport = errors.New("client: transport failure")

// TransportError reports an unreachable server, a malformed envelope or a
// server-side failure. The client never retries on its own unless
// configured with WithRetry.
type TransportError struct {
	Op         string
	StatusCode int
	Code       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("client: %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("client: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is lets errors.Is match ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// Retryable reports whether repeating the call may succeed.
func (e *TransportError) Retryable() bool {
	switch {
	case e.StatusCode == 0:
		return true
	case e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return e.StatusCode != http.StatusNotImplemented
	default:
		return false
	}
}

// APIError is a well-formed rejection returned by the server. It matches
// the domain sentinels of its code so callers can use errors.Is the same way
// they would against the in-process services.
type APIError struct {
	Op         string
	StatusCode int
	Code       string
	Message    string
	Fields     map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("client: %s: %s (%s)", e.Op, e.Message, e.Code)
}

// Is maps the envelope code onto domain sentinels.
func (e *APIError) Is(target error) bool {
	switch e.Code {
	case envelope.CodeNotFound:
		return target == registry.ErrNotFound || target == values.ErrNotFound
	case envelope.CodeForbidden:
		return target == registry.ErrForbidden
	case envelope.CodeConflict:
		return target == registry.ErrConflict || target == values.ErrDuplicate
	case envelope.CodeInvalidDefinition:
		return target == fieldspec.ErrInvalidDefinition
	case envelope.CodeValidationFailed:
		return target == validation.ErrValidation
	case envelope.CodeBadRequest:
		return target == registry.ErrInvalidInput || target == values.ErrInvalidInput
	default:
		return false
	}
}

// ValidationError converts a validation_failed rejection into the error the
// in-process validator would have produced.
func (e *APIError) ValidationError() (*validation.ValidationError, bool) {
	if e.Code != envelope.CodeValidationFailed {
		return nil, false
	}
	return &validation.ValidationError{FieldErrors: e.Fields}, true
}
