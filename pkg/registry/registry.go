package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-customfields/pkg/fieldspec"
	"github.com/goliatone/go-customfields/pkg/uischema"
	"go.uber.org/zap"
)

// Registry implements the schema lifecycle on top of a Store.
type Registry struct {
	store        Store
	refs         ReferenceCounter
	cache        Cache
	logger       *zap.Logger
	now          func() time.Time
	newID        func() string
	defaultLimit int
	maxLimit     int
}

// New constructs a Registry backed by store.
func New(store Store, options ...Option) *Registry {
	r := &Registry{
		store:        store,
		refs:         noReferences{},
		cache:        noopCache{},
		logger:       zap.NewNop(),
		now:          time.Now,
		newID:        NewULIDGenerator(),
		defaultLimit: defaultPageLimit,
		maxLimit:     maxPageLimit,
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Create stores a new schema at version 1.
func (r *Registry) Create(ctx context.Context, caller Caller, input CreateInput) (Schema, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Schema{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !input.EntityType.Valid() {
		return Schema{}, fmt.Errorf("%w: unknown entity type %q", ErrInvalidInput, input.EntityType)
	}
	if err := fieldspec.Check(input.Definition); err != nil {
		return Schema{}, err
	}

	companyID := input.CompanyID
	if !caller.Privileged {
		if input.IsSystem {
			return Schema{}, &AuthorityError{Op: "create", Reason: "system schemas require a privileged caller"}
		}
		if caller.CompanyID == nil {
			return Schema{}, &AuthorityError{Op: "create", Reason: "caller has no company"}
		}
		if companyID != nil && *companyID != *caller.CompanyID {
			return Schema{}, &AuthorityError{Op: "create", Reason: "cannot create schemas for another company"}
		}
		companyID = caller.CompanyID
	}
	if input.IsSystem {
		companyID = nil
	}

	now := r.now().UTC()
	schema := Schema{
		ID:         r.newID(),
		Name:       name,
		EntityType: input.EntityType,
		Definition: fieldspec.Clone(input.Definition),
		UIHints:    input.UIHints.Clone(),
		CompanyID:  copyInt64(companyID),
		IsSystem:   input.IsSystem,
		Version:    1,
		Remark:     input.Remark,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := r.store.Insert(ctx, schema); err != nil {
		return Schema{}, fmt.Errorf("registry: create schema: %w", err)
	}
	r.logMutation("schema created", schema)
	return schema.Clone(), nil
}

// Get returns the schema stored under id, reading through the cache.
func (r *Registry) Get(ctx context.Context, id string) (Schema, error) {
	if cached, found, err := r.cache.Get(ctx, id); err != nil {
		r.logger.Warn("schema cache read failed", zap.String("schema_id", id), zap.Error(err))
	} else if found {
		return cached, nil
	}

	schema, err := r.load(ctx, id)
	if err != nil {
		return Schema{}, err
	}
	if err := r.cache.Set(ctx, schema); err != nil {
		r.logger.Warn("schema cache write failed", zap.String("schema_id", id), zap.Error(err))
	}
	return schema, nil
}

// ListByEntityType returns one page of schemas visible to caller.
func (r *Registry) ListByEntityType(ctx context.Context, caller Caller, query Query) (Page, error) {
	if !query.EntityType.Valid() {
		return Page{}, fmt.Errorf("%w: unknown entity type %q", ErrInvalidInput, query.EntityType)
	}
	if !caller.Privileged {
		switch {
		case query.CompanyID != nil && !sameCompany(query.CompanyID, caller.CompanyID):
			return Page{}, &AuthorityError{Op: "list", Reason: "cannot list schemas of another company"}
		case caller.CompanyID == nil:
			query.CompanyID = nil
			query.SystemOnly = true
		default:
			query.CompanyID = caller.CompanyID
		}
	}
	query.Page, query.Limit = r.normalizePage(query.Page, query.Limit)

	items, total, err := r.store.List(ctx, query)
	if err != nil {
		return Page{}, fmt.Errorf("registry: list schemas: %w", err)
	}
	return newPage(items, total, query), nil
}

// Update applies patch to the schema at id. Definition or hint changes
// create a new version whose parent is id; the record at id is left intact.
// Name or remark changes alone are applied in place.
func (r *Registry) Update(ctx context.Context, caller Caller, id string, patch Patch) (Schema, error) {
	current, err := r.load(ctx, id)
	if err != nil {
		return Schema{}, err
	}
	if err := authorizeMutation(caller, current, "update"); err != nil {
		return Schema{}, err
	}
	if patch.IsEmpty() {
		return current, nil
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return Schema{}, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
	}
	if patch.Definition != nil {
		if err := fieldspec.Check(patch.Definition); err != nil {
			return Schema{}, err
		}
	}

	definitionChanged, err := definitionDiffers(current.Definition, patch.Definition)
	if err != nil {
		return Schema{}, fmt.Errorf("registry: compare definitions: %w", err)
	}
	hintsChanged := patch.UIHints != nil && !uischema.Equal(current.UIHints, *patch.UIHints)

	if !definitionChanged && !hintsChanged {
		return r.updateInPlace(ctx, current, patch)
	}

	now := r.now().UTC()
	next := current.Clone()
	next.ID = r.newID()
	next.Version = current.Version + 1
	parent := current.ID
	next.ParentSchemaID = &parent
	next.CreatedAt = now
	next.UpdatedAt = now
	applyPatch(&next, patch)

	if err := r.store.Insert(ctx, next); err != nil {
		return Schema{}, fmt.Errorf("registry: insert version %d of %s: %w", next.Version, id, err)
	}
	r.invalidate(ctx, id)
	r.logMutation("schema versioned", next)
	return next.Clone(), nil
}

func (r *Registry) updateInPlace(ctx context.Context, current Schema, patch Patch) (Schema, error) {
	changed := (patch.Name != nil && strings.TrimSpace(*patch.Name) != current.Name) ||
		(patch.Remark != nil && *patch.Remark != current.Remark)
	if !changed {
		return current, nil
	}
	applyPatch(&current, patch)
	current.UpdatedAt = r.now().UTC()
	if err := r.store.Update(ctx, current); err != nil {
		return Schema{}, fmt.Errorf("registry: update schema %s: %w", current.ID, err)
	}
	r.invalidate(ctx, current.ID)
	r.logMutation("schema renamed", current)
	return current.Clone(), nil
}

// Delete removes the schema at id once no entity value references it.
func (r *Registry) Delete(ctx context.Context, caller Caller, id string) error {
	current, err := r.load(ctx, id)
	if err != nil {
		return err
	}
	if err := authorizeMutation(caller, current, "delete"); err != nil {
		return err
	}
	refs, err := r.refs.CountBySchema(ctx, id)
	if err != nil {
		return fmt.Errorf("registry: count references of %s: %w", id, err)
	}
	if refs > 0 {
		return &ReferentialConflictError{SchemaID: id, References: refs}
	}
	if err := r.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("registry: delete schema %s: %w", id, err)
	}
	r.invalidate(ctx, id)
	r.logMutation("schema deleted", current)
	return nil
}

// Clone copies the current definition and hints of a schema into a new,
// independent tenant-owned schema at version 1.
func (r *Registry) Clone(ctx context.Context, caller Caller, input CloneInput) (Schema, error) {
	source, err := r.load(ctx, input.SourceSchemaID)
	if err != nil {
		return Schema{}, err
	}
	if !caller.CanRead(source) {
		return Schema{}, &AuthorityError{SchemaID: source.ID, Op: "clone", Reason: "source schema belongs to another company"}
	}
	target := input.TargetCompanyID
	if !caller.Privileged && !sameCompany(&target, caller.CompanyID) {
		return Schema{}, &AuthorityError{SchemaID: source.ID, Op: "clone", Reason: "cannot clone into another company"}
	}

	name := source.Name + " (clone)"
	if input.Name != nil {
		name = strings.TrimSpace(*input.Name)
		if name == "" {
			return Schema{}, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
		}
	}

	now := r.now().UTC()
	clone := Schema{
		ID:         r.newID(),
		Name:       name,
		EntityType: source.EntityType,
		Definition: fieldspec.Clone(source.Definition),
		UIHints:    source.UIHints.Clone(),
		CompanyID:  &target,
		IsSystem:   false,
		Version:    1,
		Remark:     source.Remark,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := r.store.Insert(ctx, clone); err != nil {
		return Schema{}, fmt.Errorf("registry: clone schema %s: %w", source.ID, err)
	}
	r.invalidate(ctx, source.ID)
	r.logger.Info("schema cloned",
		zap.String("schema_id", clone.ID),
		zap.String("source_schema_id", source.ID),
		zap.Int64("company_id", target),
		zap.String("entity_type", string(clone.EntityType)),
	)
	return clone.Clone(), nil
}

// History returns the version chain ending at id, newest first.
func (r *Registry) History(ctx context.Context, id string) ([]Schema, error) {
	var chain []Schema
	seen := map[string]bool{}
	next := id
	for next != "" {
		if seen[next] {
			return nil, fmt.Errorf("registry: version chain of %s loops at %s", id, next)
		}
		seen[next] = true
		schema, err := r.load(ctx, next)
		if err != nil {
			if len(chain) > 0 && errors.Is(err, ErrNotFound) {
				break
			}
			return nil, err
		}
		chain = append(chain, schema)
		next = ""
		if schema.ParentSchemaID != nil {
			next = *schema.ParentSchemaID
		}
	}
	return chain, nil
}

// Invalidate drops id from the read cache.
func (r *Registry) Invalidate(ctx context.Context, id string) {
	r.invalidate(ctx, id)
}

func (r *Registry) load(ctx context.Context, id string) (Schema, error) {
	if strings.TrimSpace(id) == "" {
		return Schema{}, notFound(id)
	}
	schema, err := r.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Schema{}, notFound(id)
		}
		return Schema{}, fmt.Errorf("registry: load schema %s: %w", id, err)
	}
	return schema, nil
}

func (r *Registry) invalidate(ctx context.Context, id string) {
	if err := r.cache.Invalidate(ctx, id); err != nil {
		r.logger.Warn("schema cache invalidation failed", zap.String("schema_id", id), zap.Error(err))
	}
}

func (r *Registry) normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = r.defaultLimit
	}
	if limit > r.maxLimit {
		limit = r.maxLimit
	}
	return page, limit
}

func (r *Registry) logMutation(msg string, schema Schema) {
	fields := []zap.Field{
		zap.String("schema_id", schema.ID),
		zap.Int("version", schema.Version),
		zap.String("entity_type", string(schema.EntityType)),
	}
	if schema.ParentSchemaID != nil {
		fields = append(fields, zap.String("parent_schema_id", *schema.ParentSchemaID))
	}
	r.logger.Info(msg, fields...)
}

func authorizeMutation(caller Caller, schema Schema, op string) error {
	if caller.Privileged {
		return nil
	}
	if schema.IsSystem || schema.CompanyID == nil {
		return &AuthorityError{SchemaID: schema.ID, Op: op, Reason: "system schemas require a privileged caller"}
	}
	if !schema.OwnedBy(caller.CompanyID) {
		return &AuthorityError{SchemaID: schema.ID, Op: op, Reason: "schema belongs to another company"}
	}
	return nil
}

func applyPatch(schema *Schema, patch Patch) {
	if patch.Name != nil {
		schema.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Definition != nil {
		schema.Definition = fieldspec.Clone(patch.Definition)
	}
	if patch.UIHints != nil {
		schema.UIHints = patch.UIHints.Clone()
	}
	if patch.Remark != nil {
		schema.Remark = *patch.Remark
	}
}

func definitionDiffers(current, next *fieldspec.ObjectSpec) (bool, error) {
	if next == nil {
		return false, nil
	}
	a, err := current.MarshalJSON()
	if err != nil {
		return false, err
	}
	b, err := next.MarshalJSON()
	if err != nil {
		return false, err
	}
	return !bytes.Equal(a, b), nil
}

func sameCompany(a, b *int64) bool {
	return a != nil && b != nil && *a == *b
}

func copyInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
