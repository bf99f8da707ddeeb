package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-customfields/pkg/registry"
)

// DefaultKeyPrefix namespaces schema entries in a shared KV.
const DefaultKeyPrefix = "customfields:schema:"

// SchemaCache adapts a KV to registry.Cache. Entries are JSON so every Get
// returns a fresh copy.
type SchemaCache struct {
	kv     KV
	ttl    time.Duration
	prefix string
}

// SchemaOption customises a SchemaCache.
type SchemaOption func(*SchemaCache)

// WithTTL sets the entry lifetime. Zero keeps entries until invalidated.
func WithTTL(ttl time.Duration) SchemaOption {
	return func(c *SchemaCache) {
		c.ttl = ttl
	}
}

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(prefix string) SchemaOption {
	return func(c *SchemaCache) {
		c.prefix = prefix
	}
}

// NewSchemaCache wraps kv.
func NewSchemaCache(kv KV, options ...SchemaOption) *SchemaCache {
	c := &SchemaCache{kv: kv, prefix: DefaultKeyPrefix}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// NewMemory returns a SchemaCache over a fresh MemoryKV.
func NewMemory(options ...SchemaOption) *SchemaCache {
	return NewSchemaCache(NewMemoryKV(), options...)
}

var _ registry.Cache = (*SchemaCache)(nil)

func (c *SchemaCache) Get(ctx context.Context, id string) (registry.Schema, bool, error) {
	raw, err := c.kv.Get(ctx, c.key(id))
	if err != nil {
		if errors.Is(err, ErrMiss) {
			return registry.Schema{}, false, nil
		}
		return registry.Schema{}, false, err
	}
	var schema registry.Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		// A corrupt entry behaves as a miss and is dropped.
		_ = c.kv.Delete(ctx, c.key(id))
		return registry.Schema{}, false, fmt.Errorf("cache: decode schema %s: %w", id, err)
	}
	return schema, true, nil
}

func (c *SchemaCache) Set(ctx context.Context, schema registry.Schema) error {
	raw, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("cache: encode schema %s: %w", schema.ID, err)
	}
	return c.kv.Set(ctx, c.key(schema.ID), raw, c.ttl)
}

func (c *SchemaCache) Invalidate(ctx context.Context, id string) error {
	return c.kv.Delete(ctx, c.key(id))
}

func (c *SchemaCache) key(id string) string {
	return c.prefix + id
}
