package values

import (
	"context"

	"github.com/goliatone/go-customfields/pkg/registry"
)

// Store persists entity values. Get returns an error matching ErrNotFound
// for unknown ids and Insert one matching ErrDuplicate when the
// (entity type, entity id, schema id) triple already exists.
type Store interface {
	Insert(ctx context.Context, value EntityValue) error
	Get(ctx context.Context, id string) (EntityValue, error)
	Update(ctx context.Context, value EntityValue) error
	Delete(ctx context.Context, id string) error
	ListByEntities(ctx context.Context, entityType registry.EntityType, entityIDs []int64, schemaID string) ([]EntityValue, error)
	ListBySchema(ctx context.Context, schemaID string) ([]EntityValue, error)
	EntityIDs(ctx context.Context, entityType registry.EntityType) ([]int64, error)
	CountBySchema(ctx context.Context, schemaID string) (int, error)
}

// SchemaSource resolves schema records. *registry.Registry satisfies it.
type SchemaSource interface {
	Get(ctx context.Context, id string) (registry.Schema, error)
}
