package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/goliatone/go-customfields/pkg/envelope"
	"github.com/goliatone/go-customfields/pkg/registry"
	"github.com/goliatone/go-customfields/pkg/validation"
)

// ListOptions filters ListSchemas.
type ListOptions struct {
	Page          int
	Limit         int
	CompanyID     *int64
	IncludeSystem bool
}

func (o ListOptions) values() url.Values {
	q := url.Values{}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.CompanyID != nil {
		q.Set("company_id", strconv.FormatInt(*o.CompanyID, 10))
	}
	if o.IncludeSystem {
		q.Set("include_system", "true")
	}
	return q
}

// ListSchemas calls GET schema/list/{entityType}.
func (c *Client) ListSchemas(ctx context.Context, entityType registry.EntityType, opts ListOptions) (envelope.Page[registry.Schema], error) {
	var page envelope.Page[registry.Schema]
	err := c.do(ctx, call{op: "list schemas", method: http.MethodGet, path: "/schema/list/" + escape(string(entityType)), query: opts.values()}, &page)
	return page, err
}

// GetSchema calls GET schema/get/{id}.
func (c *Client) GetSchema(ctx context.Context, id string) (registry.Schema, error) {
	var schema registry.Schema
	err := c.do(ctx, call{op: "get schema", method: http.MethodGet, path: "/schema/get/" + escape(id)}, &schema)
	return schema, err
}

// CreateSchema calls POST schema/create.
func (c *Client) CreateSchema(ctx context.Context, input registry.CreateInput) (registry.Schema, error) {
	var schema registry.Schema
	err := c.do(ctx, call{op: "create schema", method: http.MethodPost, path: "/schema/create", body: input}, &schema)
	return schema, err
}

// UpdateSchema calls POST schema/update/{id}.
func (c *Client) UpdateSchema(ctx context.Context, id string, patch registry.Patch) (registry.Schema, error) {
	var schema registry.Schema
	err := c.do(ctx, call{op: "update schema", method: http.MethodPost, path: "/schema/update/" + escape(id), body: patch}, &schema)
	return schema, err
}

// DeleteSchema calls POST schema/delete/{id}.
func (c *Client) DeleteSchema(ctx context.Context, id string) error {
	return c.do(ctx, call{op: "delete schema", method: http.MethodPost, path: "/schema/delete/" + escape(id)}, nil)
}

// CloneSchema calls POST schema/clone.
func (c *Client) CloneSchema(ctx context.Context, input registry.CloneInput) (registry.Schema, error) {
	var schema registry.Schema
	err := c.do(ctx, call{op: "clone schema", method: http.MethodPost, path: "/schema/clone", body: input}, &schema)
	return schema, err
}

// SchemaHistory calls GET schema/history/{id}.
func (c *Client) SchemaHistory(ctx context.Context, id string) ([]registry.Schema, error) {
	var history []registry.Schema
	err := c.do(ctx, call{op: "schema history", method: http.MethodGet, path: "/schema/history/" + escape(id)}, &history)
	return history, err
}

// ValidateDefinition calls POST schema/validate with a raw definition.
func (c *Client) ValidateDefinition(ctx context.Context, definition []byte) (validation.SchemaValidationResult, error) {
	var result validation.SchemaValidationResult
	err := c.do(ctx, call{op: "validate definition", method: http.MethodPost, path: "/schema/validate", body: rawJSON(definition)}, &result)
	return result, err
}

type rawJSON []byte

func (r rawJSON) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}
