package registry

import "context"

// Store persists schema records. Implementations return an error matching
// ErrNotFound for unknown ids and must hand out copies the registry may
// mutate freely.
type Store interface {
	Insert(ctx context.Context, schema Schema) error
	Get(ctx context.Context, id string) (Schema, error)
	Update(ctx context.Context, schema Schema) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, query Query) ([]Schema, int, error)
}

// ReferenceCounter reports how many entity values are pinned to a schema.
type ReferenceCounter interface {
	CountBySchema(ctx context.Context, schemaID string) (int, error)
}

// Cache is the read cache consulted by Get. Misses are reported with
// found=false and a nil error.
type Cache interface {
	Get(ctx context.Context, id string) (schema Schema, found bool, err error)
	Set(ctx context.Context, schema Schema) error
	Invalidate(ctx context.Context, id string) error
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (Schema, bool, error) { return Schema{}, false, nil }
func (noopCache) Set(context.Context, Schema) error                 { return nil }
func (noopCache) Invalidate(context.Context, string) error          { return nil }

type noReferences struct{}

func (noReferences) CountBySchema(context.Context, string) (int, error) { return 0, nil }
