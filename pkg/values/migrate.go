package values

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/goliatone/go-customfields/pkg/fieldspec"
	"github.com/goliatone/go-customfields/pkg/registry"
	"github.com/goliatone/go-customfields/pkg/valuepath"
)

// Migrate copies the values pinned to OldSchemaID onto NewSchemaID. Each
// copied payload is validated against the new schema; failures are reported
// per entity and never abort the batch. Old values are left untouched.
func (s *Service) Migrate(ctx context.Context, caller registry.Caller, input MigrateInput) (MigrationReport, error) {
	if input.OldSchemaID == "" || input.NewSchemaID == "" {
		return MigrationReport{}, invalid("old_schema_id and new_schema_id are required")
	}
	if input.OldSchemaID == input.NewSchemaID {
		return MigrationReport{}, invalid("cannot migrate a schema onto itself")
	}
	oldSchema, err := s.schemas.Get(ctx, input.OldSchemaID)
	if err != nil {
		return MigrationReport{}, err
	}
	newSchema, err := s.schemas.Get(ctx, input.NewSchemaID)
	if err != nil {
		return MigrationReport{}, err
	}
	if err := authorizeUse(caller, oldSchema, "migrate values"); err != nil {
		return MigrationReport{}, err
	}
	if err := authorizeUse(caller, newSchema, "migrate values"); err != nil {
		return MigrationReport{}, err
	}
	if oldSchema.EntityType != newSchema.EntityType {
		return MigrationReport{}, invalid("schemas extend different entity types: %s and %s", oldSchema.EntityType, newSchema.EntityType)
	}

	fieldMap := input.FieldMap
	if len(fieldMap) == 0 {
		fieldMap = SharedFields(oldSchema.Definition, newSchema.Definition)
	}
	for from, to := range fieldMap {
		if err := migrationTarget(newSchema.Definition, to); err != nil {
			return MigrationReport{}, invalid("field_map %s: %v", from, err)
		}
	}
	sources := make([]string, 0, len(fieldMap))
	for from := range fieldMap {
		sources = append(sources, from)
	}
	sort.Strings(sources)

	olds, err := s.store.ListBySchema(ctx, oldSchema.ID)
	if err != nil {
		return MigrationReport{}, fmt.Errorf("values: migrate: %w", err)
	}

	report := MigrationReport{Failed: map[int64]string{}}
	for _, old := range olds {
		payload := map[string]any{}
		var mapErr error
		for _, from := range sources {
			field, ok := valuepath.Get(old.Value, from)
			if !ok || field == nil {
				continue
			}
			if err := valuepath.Set(payload, fieldMap[from], valuepath.CloneValue(field)); err != nil {
				mapErr = err
				break
			}
		}
		if mapErr == nil {
			mapErr = s.check(newSchema, payload)
		}
		if mapErr == nil {
			now := s.now().UTC()
			mapErr = s.store.Insert(ctx, EntityValue{
				ID:         s.newID(),
				SchemaID:   newSchema.ID,
				EntityType: old.EntityType,
				EntityID:   old.EntityID,
				Value:      payload,
				Remark:     fmt.Sprintf("migrated from schema %s", oldSchema.ID),
				CreatedAt:  now,
				UpdatedAt:  now,
			})
		}
		if mapErr != nil {
			report.Failed[old.EntityID] = failureReason(mapErr)
			continue
		}
		report.Migrated++
	}
	if len(report.Failed) == 0 {
		report.Failed = nil
	}

	s.logger.Info("entity values migrated",
		zap.String("old_schema_id", oldSchema.ID),
		zap.String("new_schema_id", newSchema.ID),
		zap.Int("migrated", report.Migrated),
		zap.Int("failed", len(report.Failed)),
	)
	return report, nil
}

// SharedFields maps every leaf path that exists in both definitions with the
// same shape onto itself. Objects are matched property by property; arrays
// only when their element shapes are identical.
func SharedFields(from, to *fieldspec.ObjectSpec) map[string]string {
	out := map[string]string{}
	if from == nil || to == nil {
		return out
	}
	fieldspec.Walk(to, func(path string, spec fieldspec.FieldSpec, _ bool) bool {
		old, ok := fieldspec.Lookup(from, path)
		if !ok || !fieldspec.SameShape(old, spec) {
			return false
		}
		if spec.Kind() == fieldspec.KindObject {
			return true
		}
		out[path] = path
		return false
	})
	return out
}

// migrationTarget accepts field paths of def. Array elements cannot be
// addressed; arrays move as a whole.
func migrationTarget(def *fieldspec.ObjectSpec, path string) error {
	for _, segment := range valuepath.Split(path) {
		if valuepath.IsIndex(segment) {
			return fmt.Errorf("target %q addresses an array element", path)
		}
	}
	if _, ok := fieldspec.Lookup(def, path); !ok {
		return fmt.Errorf("target %q is not a field of the new schema", path)
	}
	return nil
}

func failureReason(err error) string {
	if errors.Is(err, ErrDuplicate) {
		return "entity already has a value for the target schema"
	}
	return err.Error()
}
