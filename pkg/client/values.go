package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-customfields/pkg/registry"
	"github.com/goliatone/go-customfields/pkg/validation"
	"github.com/goliatone/go-customfields/pkg/values"
)

// EntityValues calls GET value/entity/{entityType}/{entityId}.
func (c *Client) EntityValues(ctx context.Context, entityType registry.EntityType, entityID int64, schemaID string) ([]values.EntityValue, error) {
	q := url.Values{}
	if schemaID != "" {
		q.Set("schema_id", schemaID)
	}
	var items []values.EntityValue
	path := "/value/entity/" + escape(string(entityType)) + "/" + strconv.FormatInt(entityID, 10)
	err := c.do(ctx, call{op: "entity values", method: http.MethodGet, path: path, query: q}, &items)
	return items, err
}

// BatchValues calls GET value/batch/{entityType}.
func (c *Client) BatchValues(ctx context.Context, entityType registry.EntityType, entityIDs []int64, schemaID string) (map[int64][]values.EntityValue, error) {
	ids := make([]string, 0, len(entityIDs))
	for _, id := range entityIDs {
		ids = append(ids, strconv.FormatInt(id, 10))
	}
	q := url.Values{"entity_ids": {strings.Join(ids, ",")}}
	if schemaID != "" {
		q.Set("schema_id", schemaID)
	}
	out := map[int64][]values.EntityValue{}
	err := c.do(ctx, call{op: "batch values", method: http.MethodGet, path: "/value/batch/" + escape(string(entityType)), query: q}, &out)
	return out, err
}

// CreateValue calls POST value/create.
func (c *Client) CreateValue(ctx context.Context, input values.CreateInput) (values.EntityValue, error) {
	var value values.EntityValue
	err := c.do(ctx, call{op: "create value", method: http.MethodPost, path: "/value/create", body: input}, &value)
	return value, err
}

// UpdateValue calls POST value/update/{id}.
func (c *Client) UpdateValue(ctx context.Context, id string, input values.UpdateInput) (values.EntityValue, error) {
	var value values.EntityValue
	err := c.do(ctx, call{op: "update value", method: http.MethodPost, path: "/value/update/" + escape(id), body: input}, &value)
	return value, err
}

// DeleteValue calls POST value/delete/{id}.
func (c *Client) DeleteValue(ctx context.Context, id string) error {
	return c.do(ctx, call{op: "delete value", method: http.MethodPost, path: "/value/delete/" + escape(id)}, nil)
}

// CheckValue calls POST value/check/{schemaId}.
func (c *Client) CheckValue(ctx context.Context, schemaID string, payload map[string]any) (validation.Result, error) {
	var result validation.Result
	err := c.do(ctx, call{op: "check value", method: http.MethodPost, path: "/value/check/" + escape(schemaID), body: payload}, &result)
	return result, err
}

// SearchEntities calls POST value/search/{entityType}.
func (c *Client) SearchEntities(ctx context.Context, entityType registry.EntityType, query values.SearchQuery) (values.SearchResult, error) {
	var result values.SearchResult
	err := c.do(ctx, call{op: "search entities", method: http.MethodPost, path: "/value/search/" + escape(string(entityType)), body: query}, &result)
	return result, err
}

// MigrateValues calls POST value/migrate.
func (c *Client) MigrateValues(ctx context.Context, input values.MigrateInput) (values.MigrationReport, error) {
	var report values.MigrationReport
	err := c.do(ctx, call{op: "migrate values", method: http.MethodPost, path: "/value/migrate", body: input}, &report)
	return report, err
}
