// Package customfields wires the schema registry, entity value service and
// schema cache into one Engine. Callers that only need a piece can use the
// packages under pkg/ directly.
package customfields

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/goliatone/go-customfields/pkg/cache"
	"github.com/goliatone/go-customfields/pkg/fieldspec"
	"github.com/goliatone/go-customfields/pkg/model"
	"github.com/goliatone/go-customfields/pkg/registry"
	"github.com/goliatone/go-customfields/pkg/runtime"
	"github.com/goliatone/go-customfields/pkg/store/memory"
	"github.com/goliatone/go-customfields/pkg/store/postgres"
	"github.com/goliatone/go-customfields/pkg/values"
)

// Schema is a versioned custom-field definition.
type Schema = registry.Schema

// Caller identifies who performs an operation.
type Caller = registry.Caller

// EntityValue is the data one entity stores against a schema.
type EntityValue = values.EntityValue

// Descriptor is one renderable field.
type Descriptor = model.Descriptor

// Definition is the root object of a schema definition.
type Definition = fieldspec.ObjectSpec

type valueStore interface {
	values.Store
	registry.ReferenceCounter
}

// Engine holds the services backing one deployment.
type Engine struct {
	Registry *registry.Registry
	Values   *values.Service
	Builder  model.Builder
	Cache    *cache.SchemaCache

	logger *zap.Logger
}

// Option configures New.
type Option func(*settings)

type settings struct {
	logger       *zap.Logger
	db           *sql.DB
	kv           cache.KV
	noCache      bool
	ttl          time.Duration
	defaultLimit int
	maxLimit     int
	builder      model.Builder
}

// WithLogger sets the logger shared by every service.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPostgres stores schemas and values in db. The tables must exist; see
// postgres.Migrate.
func WithPostgres(db *sql.DB) Option {
	return func(s *settings) { s.db = db }
}

// WithRedisCache caches schema records in Redis.
func WithRedisCache(client *redis.Client) Option {
	return func(s *settings) {
		if client != nil {
			s.kv = cache.NewRedisKV(client)
		}
	}
}

// WithoutCache disables the schema read cache.
func WithoutCache() Option {
	return func(s *settings) { s.noCache = true }
}

// WithCacheTTL bounds how long cached schema records live.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *settings) { s.ttl = ttl }
}

// WithPagination sets the default and maximum page size of schema listings.
func WithPagination(defaultLimit, maxLimit int) Option {
	return func(s *settings) {
		s.defaultLimit = defaultLimit
		s.maxLimit = maxLimit
	}
}

// WithBuilder replaces the descriptor builder.
func WithBuilder(builder model.Builder) Option {
	return func(s *settings) {
		if builder != nil {
			s.builder = builder
		}
	}
}

// New assembles an Engine. Without WithPostgres everything lives in memory;
// without a cache option schema records are cached in process.
func New(options ...Option) *Engine {
	cfg := settings{logger: zap.NewNop()}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.builder == nil {
		cfg.builder = model.NewBuilder()
	}

	var (
		schemas registry.Store
		vals    valueStore
	)
	if cfg.db != nil {
		schemas = postgres.NewSchemaStore(cfg.db, cfg.logger)
		vals = postgres.NewValueStore(cfg.db, cfg.logger)
	} else {
		schemas = memory.NewSchemaStore()
		vals = memory.NewValueStore()
	}

	regOptions := []registry.Option{
		registry.WithLogger(cfg.logger),
		registry.WithReferenceCounter(vals),
	}
	if cfg.defaultLimit > 0 {
		regOptions = append(regOptions, registry.WithPagination(cfg.defaultLimit, cfg.maxLimit))
	}

	engine := &Engine{Builder: cfg.builder, logger: cfg.logger}
	if !cfg.noCache {
		var cacheOptions []cache.SchemaOption
		if cfg.ttl > 0 {
			cacheOptions = append(cacheOptions, cache.WithTTL(cfg.ttl))
		}
		if cfg.kv != nil {
			engine.Cache = cache.NewSchemaCache(cfg.kv, cacheOptions...)
		} else {
			engine.Cache = cache.NewMemory(cacheOptions...)
		}
		regOptions = append(regOptions, registry.WithCache(engine.Cache))
	}

	engine.Registry = registry.New(schemas, regOptions...)
	engine.Values = values.NewService(vals, engine.Registry, values.WithLogger(cfg.logger))
	return engine
}

// NewForm returns a runtime form that resolves schemas through the
// engine's registry.
func (e *Engine) NewForm() *runtime.Form {
	return runtime.New(e.Registry,
		runtime.WithBuilder(e.Builder),
		runtime.WithLogger(e.logger),
	)
}

// Describe builds descriptors for the schema stored under id.
func (e *Engine) Describe(ctx context.Context, id string) ([]Descriptor, error) {
	schema, err := e.Registry.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("customfields: describe %s: %w", id, err)
	}
	return e.Builder.Build(schema.Definition, schema.UIHints), nil
}
