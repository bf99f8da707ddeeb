package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/goliatone/go-customfields/pkg/envelope"
	"github.com/goliatone/go-customfields/pkg/fieldspec"
	"github.com/goliatone/go-customfields/pkg/registry"
	"github.com/goliatone/go-customfields/pkg/validation"
	"github.com/goliatone/go-customfields/pkg/values"
)

// requestError is a rejection raised by the HTTP layer itself.
type requestError struct {
	status  int
	message string
}

func (e *requestError) Error() string { return e.message }

func badRequest(format string, args ...any) error {
	return &requestError{status: http.StatusBadRequest, message: fmt.Sprintf(format, args...)}
}

func errRoute(status int, message string) error {
	return &requestError{status: status, message: message}
}

func (s *Server) ok(c *gin.Context, data any) {
	resp := envelope.OK(data)
	resp.Context.RequestID = c.GetString(requestIDKey)
	c.JSON(http.StatusOK, resp)
}

// fail maps err onto an envelope status and code.
func (s *Server) fail(c *gin.Context, err error) {
	status, code, message, fields := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request error",
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Error(err),
		)
		message = "internal error"
	}
	resp := envelope.Fail(status, code, message)
	resp.Context.RequestID = c.GetString(requestIDKey)
	resp.Context.Fields = fields
	c.JSON(status, resp)
}

func classify(err error) (status int, code, message string, fields map[string]string) {
	var (
		reqErr *requestError
		valErr *validation.ValidationError
		defErr *fieldspec.DefinitionError
	)
	switch {
	case errors.As(err, &reqErr):
		code := envelope.CodeBadRequest
		if reqErr.status == http.StatusNotFound {
			code = envelope.CodeNotFound
		}
		return reqErr.status, code, reqErr.message, nil
	case errors.As(err, &valErr):
		return http.StatusUnprocessableEntity, envelope.CodeValidationFailed, "value does not match schema", valErr.FieldErrors
	case errors.As(err, &defErr):
		return http.StatusUnprocessableEntity, envelope.CodeInvalidDefinition, "definition is invalid", defErr.Fields()
	case errors.Is(err, validation.ErrValidation):
		return http.StatusUnprocessableEntity, envelope.CodeValidationFailed, err.Error(), nil
	case errors.Is(err, fieldspec.ErrInvalidDefinition):
		return http.StatusUnprocessableEntity, envelope.CodeInvalidDefinition, err.Error(), nil
	case errors.Is(err, registry.ErrNotFound), errors.Is(err, values.ErrNotFound):
		return http.StatusNotFound, envelope.CodeNotFound, err.Error(), nil
	case errors.Is(err, registry.ErrForbidden):
		return http.StatusForbidden, envelope.CodeForbidden, err.Error(), nil
	case errors.Is(err, registry.ErrConflict), errors.Is(err, values.ErrDuplicate):
		return http.StatusConflict, envelope.CodeConflict, err.Error(), nil
	case errors.Is(err, registry.ErrInvalidInput), errors.Is(err, values.ErrInvalidInput):
		return http.StatusBadRequest, envelope.CodeBadRequest, err.Error(), nil
	default:
		return http.StatusInternalServerError, envelope.CodeInternal, err.Error(), nil
	}
}

// bindJSON decodes the request body into out. Definition errors raised
// while decoding keep their own classification.
func bindJSON(c *gin.Context, out any) error {
	if err := c.ShouldBindJSON(out); err != nil {
		if errors.Is(err, fieldspec.ErrInvalidDefinition) {
			return err
		}
		return badRequest("malformed request body: %v", err)
	}
	return nil
}
