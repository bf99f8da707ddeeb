// Package envelope defines the response wrapper shared by the HTTP server
// and the REST client: every payload travels under "data" next to a
// "context" block carrying status, error code and message.
package envelope

import (
	"encoding/json"
	"net/http"
	"time"
)

// Error codes carried in Context.Code.
const (
	CodeOK                = "ok"
	CodeBadRequest        = "bad_request"
	CodeNotFound          = "not_found"
	CodeForbidden         = "forbidden"
	CodeConflict          = "conflict"
	CodeInvalidDefinition = "invalid_definition"
	CodeValidationFailed  = "validation_failed"
	CodeInternal          = "internal"
)

// Context describes the outcome of a request. Fields carries per-path
// messages for invalid_definition and validation_failed.
type Context struct {
	Status    int               `json:"status"`
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	ServerAt  int64             `json:"server_at"`
	RequestID string            `json:"request_id,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// OK reports whether the context describes a successful call.
func (c Context) OK() bool {
	return c.Status >= 200 && c.Status < 300
}

// Response is the wire shape of every endpoint.
type Response[T any] struct {
	Data    T       `json:"data"`
	Context Context `json:"context"`
}

// Raw is a Response whose payload is decoded lazily.
type Raw = Response[json.RawMessage]

// Page is the wire shape of paged listings.
type Page[T any] struct {
	TotalPage int `json:"total_page"`
	CurPage   int `json:"cur_page"`
	PageSize  int `json:"page_size"`
	Total     int `json:"total"`
	Data      []T `json:"data"`
}

// NewPage builds a Page and derives TotalPage from total and size.
func NewPage[T any](items []T, total, page, size int) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if size > 0 {
		pages = (total + size - 1) / size
	}
	return Page[T]{TotalPage: pages, CurPage: page, PageSize: size, Total: total, Data: items}
}

// Now is the clock used for ServerAt.
var Now = time.Now

// OK wraps data in a 200 response.
func OK[T any](data T) Response[T] {
	return Response[T]{Data: data, Context: Context{Status: http.StatusOK, Code: CodeOK, ServerAt: Now().UnixMilli()}}
}

// Fail builds an error response without payload.
func Fail(status int, code, message string) Response[any] {
	return Response[any]{Context: Context{Status: status, Code: code, Message: message, ServerAt: Now().UnixMilli()}}
}
