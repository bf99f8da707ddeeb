package values

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-customfields/pkg/registry"
	"github.com/goliatone/go-customfields/pkg/validation"
	"github.com/goliatone/go-customfields/pkg/valuepath"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 200
)

// Service validates and persists entity values.
type Service struct {
	store   Store
	schemas SchemaSource
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string

	mu         sync.Mutex
	validators map[string]*validation.Validator
}

// Option customises a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides how value ids are minted.
func WithIDGenerator(next func() string) Option {
	return func(s *Service) {
		if next != nil {
			s.newID = next
		}
	}
}

// NewService wires a Service over store, resolving schemas through schemas.
func NewService(store Store, schemas SchemaSource, options ...Option) *Service {
	s := &Service{
		store:      store,
		schemas:    schemas,
		logger:     zap.NewNop(),
		now:        time.Now,
		newID:      registry.NewULIDGenerator(),
		validators: make(map[string]*validation.Validator),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Create validates input against its schema and stores it.
func (s *Service) Create(ctx context.Context, caller registry.Caller, input CreateInput) (EntityValue, error) {
	if input.EntityID <= 0 {
		return EntityValue{}, invalid("entity_id must be positive")
	}
	schema, err := s.schemas.Get(ctx, input.SchemaID)
	if err != nil {
		return EntityValue{}, err
	}
	if err := authorizeUse(caller, schema, "create value"); err != nil {
		return EntityValue{}, err
	}
	if input.EntityType == "" {
		input.EntityType = schema.EntityType
	}
	if input.EntityType != schema.EntityType {
		return EntityValue{}, invalid("entity type %s does not match schema entity type %s", input.EntityType, schema.EntityType)
	}
	payload := normalizePayload(input.Value)
	if err := s.check(schema, payload); err != nil {
		return EntityValue{}, err
	}

	now := s.now().UTC()
	value := EntityValue{
		ID:         s.newID(),
		SchemaID:   schema.ID,
		EntityType: schema.EntityType,
		EntityID:   input.EntityID,
		Value:      payload,
		Remark:     input.Remark,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.Insert(ctx, value); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return EntityValue{}, err
		}
		return EntityValue{}, fmt.Errorf("values: create: %w", err)
	}
	s.logger.Debug("entity value created",
		zap.String("value_id", value.ID),
		zap.String("schema_id", value.SchemaID),
		zap.Int64("entity_id", value.EntityID),
	)
	return value, nil
}

// Get returns the value stored under id.
func (s *Service) Get(ctx context.Context, id string) (EntityValue, error) {
	value, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return EntityValue{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return EntityValue{}, fmt.Errorf("values: get %s: %w", id, err)
	}
	return value, nil
}

// Update replaces the payload of id after validating it against the schema
// the value is pinned to.
func (s *Service) Update(ctx context.Context, caller registry.Caller, id string, input UpdateInput) (EntityValue, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return EntityValue{}, err
	}
	schema, err := s.schemas.Get(ctx, current.SchemaID)
	if err != nil {
		return EntityValue{}, err
	}
	if err := authorizeUse(caller, schema, "update value"); err != nil {
		return EntityValue{}, err
	}
	payload := normalizePayload(input.Value)
	if err := s.check(schema, payload); err != nil {
		return EntityValue{}, err
	}

	current.Value = payload
	if input.Remark != nil {
		current.Remark = *input.Remark
	}
	current.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, current); err != nil {
		return EntityValue{}, fmt.Errorf("values: update %s: %w", id, err)
	}
	return current, nil
}

// Delete removes the value stored under id.
func (s *Service) Delete(ctx context.Context, caller registry.Caller, id string) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	schema, err := s.schemas.Get(ctx, current.SchemaID)
	switch {
	case err == nil:
		if err := authorizeUse(caller, schema, "delete value"); err != nil {
			return err
		}
	case errors.Is(err, registry.ErrNotFound):
		// Orphans left behind by an out-of-band schema removal can only be
		// cleaned up by privileged callers.
		if !caller.Privileged {
			return &registry.AuthorityError{SchemaID: current.SchemaID, Op: "delete value", Reason: "schema is gone"}
		}
	default:
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("values: delete %s: %w", id, err)
	}
	return nil
}

// ListByEntity returns the values of one entity, optionally limited to a
// single schema id.
func (s *Service) ListByEntity(ctx context.Context, entityType registry.EntityType, entityID int64, schemaID string) ([]EntityValue, error) {
	if !entityType.Valid() {
		return nil, invalid("unknown entity type %q", entityType)
	}
	items, err := s.store.ListByEntities(ctx, entityType, []int64{entityID}, schemaID)
	if err != nil {
		return nil, fmt.Errorf("values: list entity %s/%d: %w", entityType, entityID, err)
	}
	return items, nil
}

// BatchByEntities groups the values of several entities by entity id.
// Entities without values are absent from the result.
func (s *Service) BatchByEntities(ctx context.Context, entityType registry.EntityType, entityIDs []int64, schemaID string) (map[int64][]EntityValue, error) {
	if !entityType.Valid() {
		return nil, invalid("unknown entity type %q", entityType)
	}
	out := make(map[int64][]EntityValue)
	if len(entityIDs) == 0 {
		return out, nil
	}
	items, err := s.store.ListByEntities(ctx, entityType, entityIDs, schemaID)
	if err != nil {
		return nil, fmt.Errorf("values: batch %s: %w", entityType, err)
	}
	for _, item := range items {
		out[item.EntityID] = append(out[item.EntityID], item)
	}
	return out, nil
}

// CountBySchema reports how many values are pinned to schemaID. It backs
// the registry's referential check on delete.
func (s *Service) CountBySchema(ctx context.Context, schemaID string) (int, error) {
	return s.store.CountBySchema(ctx, schemaID)
}

// Check validates payload against schemaID without storing anything.
func (s *Service) Check(ctx context.Context, schemaID string, payload map[string]any) (validation.Result, error) {
	schema, err := s.schemas.Get(ctx, schemaID)
	if err != nil {
		return validation.Result{}, err
	}
	validator, err := s.validator(schema)
	if err != nil {
		return validation.Result{}, err
	}
	return validator.Check(normalizePayload(payload)), nil
}

func (s *Service) check(schema registry.Schema, payload map[string]any) error {
	validator, err := s.validator(schema)
	if err != nil {
		return err
	}
	return validator.Check(payload).Err()
}

// validator memoises compiled validators per schema id. Definitions are
// immutable per id so entries never go stale.
func (s *Service) validator(schema registry.Schema) (*validation.Validator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.validators[schema.ID]; ok {
		return v, nil
	}
	v, err := validation.Build(schema.Definition)
	if err != nil {
		return nil, fmt.Errorf("values: schema %s: %w", schema.ID, err)
	}
	s.validators[schema.ID] = v
	return v, nil
}

func authorizeUse(caller registry.Caller, schema registry.Schema, op string) error {
	if caller.Privileged || schema.IsSystem || schema.CompanyID == nil {
		return nil
	}
	if !schema.OwnedBy(caller.CompanyID) {
		return &registry.AuthorityError{SchemaID: schema.ID, Op: op, Reason: "schema belongs to another company"}
	}
	return nil
}

func normalizePayload(payload map[string]any) map[string]any {
	if payload == nil {
		return map[string]any{}
	}
	return valuepath.Clone(payload)
}
