package values

import (
	"time"

	"github.com/goliatone/go-customfields/pkg/registry"
)

// EntityValue is the custom-field payload of one entity for one schema.
type EntityValue struct {
	ID         string              `json:"id"`
	SchemaID   string              `json:"schema_id"`
	EntityType registry.EntityType `json:"entity_type"`
	EntityID   int64               `json:"entity_id"`
	Value      map[string]any      `json:"value"`
	Remark     string              `json:"remark,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// CreateInput carries the fields accepted by Create.
type CreateInput struct {
	SchemaID   string              `json:"schema_id"`
	EntityType registry.EntityType `json:"entity_type"`
	EntityID   int64               `json:"entity_id"`
	Value      map[string]any      `json:"value"`
	Remark     string              `json:"remark,omitempty"`
}

// UpdateInput replaces the payload of an existing value. A nil Remark keeps
// the stored remark.
type UpdateInput struct {
	Value  map[string]any `json:"value"`
	Remark *string        `json:"remark,omitempty"`
}

// Operator is a search comparison.
type Operator string

const (
	OpEq   Operator = "eq"
	OpNeq  Operator = "neq"
	OpGt   Operator = "gt"
	OpGte  Operator = "gte"
	OpLt   Operator = "lt"
	OpLte  Operator = "lte"
	OpLike Operator = "like"
	OpIn   Operator = "in"
)

// Valid reports whether op is a supported operator.
func (op Operator) Valid() bool {
	switch op {
	case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpLike, OpIn:
		return true
	default:
		return false
	}
}

// Condition matches entities whose value for SchemaID satisfies
// Path Operator Value.
type Condition struct {
	SchemaID string   `json:"schema_id"`
	Path     string   `json:"path"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

// SearchQuery is the input of Search. Conditions are AND-ed.
type SearchQuery struct {
	Conditions []Condition `json:"conditions"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
}

// SearchResult lists one page of matching entity ids in ascending order.
type SearchResult struct {
	EntityIDs  []int64 `json:"entity_ids"`
	Total      int     `json:"total"`
	TotalPages int     `json:"total_pages"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
}

// MigrateInput describes an explicit move of values between schemas.
// FieldMap maps old paths to new paths. When empty, every top-level
// property present in both schemas with the same shape is carried.
type MigrateInput struct {
	OldSchemaID string            `json:"old_schema_id"`
	NewSchemaID string            `json:"new_schema_id"`
	FieldMap    map[string]string `json:"field_map,omitempty"`
}

// MigrationReport summarises a Migrate call. Failed maps entity ids to the
// reason their value could not be carried.
type MigrationReport struct {
	Migrated int              `json:"migrated"`
	Failed   map[int64]string `json:"failed,omitempty"`
}
