package values

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/goliatone/go-customfields/pkg/registry"
)

// ListBySchema returns every value pinned to schemaID ordered by entity id.
func (s *Service) ListBySchema(ctx context.Context, caller registry.Caller, schemaID string) (registry.Schema, []EntityValue, error) {
	schema, err := s.schemas.Get(ctx, schemaID)
	if err != nil {
		return registry.Schema{}, nil, err
	}
	if !caller.CanRead(schema) {
		return registry.Schema{}, nil, &registry.AuthorityError{SchemaID: schema.ID, Op: "list values", Reason: "schema belongs to another company"}
	}
	items, err := s.store.ListBySchema(ctx, schema.ID)
	if err != nil {
		return registry.Schema{}, nil, fmt.Errorf("values: list schema %s: %w", schema.ID, err)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].EntityID < items[j].EntityID })
	return schema, items, nil
}

// ImportRow is one candidate value of a bulk import. A row with ValueID
// replaces that value; otherwise a new value is created for EntityID.
type ImportRow struct {
	Line     int            `json:"line"`
	EntityID int64          `json:"entity_id"`
	ValueID  string         `json:"value_id,omitempty"`
	Value    map[string]any `json:"value"`
}

// ImportReport summarises an Import call. Failed maps row lines to the
// reason the row was rejected.
type ImportReport struct {
	Created int            `json:"created"`
	Updated int            `json:"updated"`
	Failed  map[int]string `json:"failed,omitempty"`
}

// Import creates or replaces values of schemaID row by row. Each row goes
// through the same validation as Create and Update; a failing row never
// aborts the batch.
func (s *Service) Import(ctx context.Context, caller registry.Caller, schemaID string, rows []ImportRow) (ImportReport, error) {
	schema, err := s.schemas.Get(ctx, schemaID)
	if err != nil {
		return ImportReport{}, err
	}
	if err := authorizeUse(caller, schema, "import values"); err != nil {
		return ImportReport{}, err
	}

	report := ImportReport{Failed: map[int]string{}}
	for _, row := range rows {
		if row.ValueID == "" {
			_, err = s.Create(ctx, caller, CreateInput{SchemaID: schema.ID, EntityType: schema.EntityType, EntityID: row.EntityID, Value: row.Value})
			if err == nil {
				report.Created++
			}
		} else {
			err = s.replace(ctx, caller, schema.ID, row)
			if err == nil {
				report.Updated++
			}
		}
		if err != nil {
			report.Failed[row.Line] = failureReason(err)
		}
	}
	if len(report.Failed) == 0 {
		report.Failed = nil
	}

	s.logger.Info("entity values imported",
		zap.String("schema_id", schema.ID),
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("failed", len(report.Failed)),
	)
	return report, nil
}

func (s *Service) replace(ctx context.Context, caller registry.Caller, schemaID string, row ImportRow) error {
	current, err := s.Get(ctx, row.ValueID)
	if err != nil {
		return err
	}
	if current.SchemaID != schemaID || current.EntityID != row.EntityID {
		return invalid("value %s belongs to entity %d of schema %s", current.ID, current.EntityID, current.SchemaID)
	}
	_, err = s.Update(ctx, caller, row.ValueID, UpdateInput{Value: row.Value})
	return err
}
