package values_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-customfields/pkg/fieldspec"
	"github.com/goliatone/go-customfields/pkg/registry"
	"github.com/goliatone/go-customfields/pkg/store/memory"
	"github.com/goliatone/go-customfields/pkg/testsupport"
	"github.com/goliatone/go-customfields/pkg/validation"
	"github.com/goliatone/go-customfields/pkg/values"
)

type env struct {
	registry *registry.Registry
	values   *values.Service
	store    *memory.ValueStore
}

func newEnv(t *testing.T) env {
	t.Helper()
	valueStore := memory.NewValueStore()
	clock := testsupport.StepClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), time.Second)
	reg := registry.New(memory.NewSchemaStore(),
		registry.WithReferenceCounter(valueStore),
		registry.WithClock(clock),
		registry.WithIDGenerator(testsupport.SequentialIDs("schema")),
	)
	svc := values.NewService(valueStore, reg,
		values.WithClock(clock),
		values.WithIDGenerator(testsupport.SequentialIDs("value")),
	)
	return env{registry: reg, values: svc, store: valueStore}
}

func definition(t *testing.T, raw string) *fieldspec.ObjectSpec {
	t.Helper()
	def, err := fieldspec.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("parse definition: %v", err)
	}
	return def
}

func createSchema(t *testing.T, e env, caller registry.Caller, entity registry.EntityType, raw string) registry.Schema {
	t.Helper()
	schema, err := e.registry.Create(context.Background(), caller, registry.CreateInput{
		Name:       "Extras",
		EntityType: entity,
		Definition: definition(t, raw),
	})
	if err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return schema
}

func createValue(t *testing.T, e env, schemaID string, entityID int64, payload map[string]any) values.EntityValue {
	t.Helper()
	value, err := e.values.Create(context.Background(), registry.Admin(), values.CreateInput{
		SchemaID: schemaID,
		EntityID: entityID,
		Value:    payload,
	})
	if err != nil {
		t.Fatalf("create value for entity %d: %v", entityID, err)
	}
	return value
}

const ageV1 = `{"type":"object","properties":{"age":{"type":"integer","minimum":0,"maximum":120}},"required":["age"]}`
const ageV2 = `{"type":"object","properties":{"age":{"type":"integer","minimum":0,"maximum":60}},"required":["age"]}`

func TestValuesStayPinnedToTheirSchemaVersion(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	v1 := createSchema(t, e, registry.Tenant(7), registry.EntityEmployee, ageV1)
	value := createValue(t, e, v1.ID, 42, map[string]any{"age": 90})

	v2, err := e.registry.Update(ctx, registry.Tenant(7), v1.ID, registry.Patch{Definition: definition(t, ageV2)})
	if err != nil {
		t.Fatalf("update schema: %v", err)
	}

	updated, err := e.values.Update(ctx, registry.Tenant(7), value.ID, values.UpdateInput{Value: map[string]any{"age": 100}})
	if err != nil {
		t.Fatalf("value pinned to v1 must accept v1-valid data: %v", err)
	}
	if updated.SchemaID != v1.ID {
		t.Fatalf("value moved to schema %s", updated.SchemaID)
	}

	_, err = e.values.Create(ctx, registry.Tenant(7), values.CreateInput{SchemaID: v2.ID, EntityID: 43, Value: map[string]any{"age": 100}})
	var verr *validation.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected v2 to reject age 100, got %v", err)
	}
	if diff := cmp.Diff(map[string]string{"age": "must be less than or equal to 60"}, verr.FieldErrors); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateRejections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	schema := createSchema(t, e, registry.Tenant(7), registry.EntityEmployee, ageV1)
	createValue(t, e, schema.ID, 1, map[string]any{"age": 30})

	tests := []struct {
		name   string
		caller registry.Caller
		input  values.CreateInput
		target error
	}{
		{"missing required", registry.Tenant(7), values.CreateInput{SchemaID: schema.ID, EntityID: 2}, validation.ErrValidation},
		{"wrong entity type", registry.Tenant(7), values.CreateInput{SchemaID: schema.ID, EntityID: 2, EntityType: registry.EntityCandidate, Value: map[string]any{"age": 1}}, values.ErrInvalidInput},
		{"bad entity id", registry.Tenant(7), values.CreateInput{SchemaID: schema.ID, Value: map[string]any{"age": 1}}, values.ErrInvalidInput},
		{"duplicate", registry.Tenant(7), values.CreateInput{SchemaID: schema.ID, EntityID: 1, Value: map[string]any{"age": 1}}, values.ErrDuplicate},
		{"other tenant", registry.Tenant(8), values.CreateInput{SchemaID: schema.ID, EntityID: 3, Value: map[string]any{"age": 1}}, registry.ErrForbidden},
		{"unknown schema", registry.Tenant(7), values.CreateInput{SchemaID: "nope", EntityID: 3, Value: map[string]any{"age": 1}}, registry.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.values.Create(ctx, tt.caller, tt.input); !errors.Is(err, tt.target) {
				t.Fatalf("expected %v, got %v", tt.target, err)
			}
		})
	}
}

func TestRegistryDeleteSeesValueReferences(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	schema := createSchema(t, e, registry.Tenant(7), registry.EntityEmployee, ageV1)
	value := createValue(t, e, schema.ID, 1, map[string]any{"age": 30})

	if err := e.registry.Delete(ctx, registry.Tenant(7), schema.ID); !errors.Is(err, registry.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := e.values.Delete(ctx, registry.Tenant(7), value.ID); err != nil {
		t.Fatalf("delete value: %v", err)
	}
	if err := e.registry.Delete(ctx, registry.Tenant(7), schema.ID); err != nil {
		t.Fatalf("delete schema: %v", err)
	}
}

func TestListAndBatch(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	first := createSchema(t, e, registry.Tenant(7), registry.EntityEmployee, ageV1)
	second := createSchema(t, e, registry.Tenant(7), registry.EntityEmployee, `{"type":"object","properties":{"nickname":{"type":"string"}}}`)
	createValue(t, e, first.ID, 1, map[string]any{"age": 30})
	createValue(t, e, second.ID, 1, map[string]any{"nickname": "Jo"})
	createValue(t, e, first.ID, 2, map[string]any{"age": 31})

	all, err := e.values.ListByEntity(ctx, registry.EntityEmployee, 1, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected two values for entity 1, got %d", len(all))
	}
	scoped, err := e.values.ListByEntity(ctx, registry.EntityEmployee, 1, second.ID)
	if err != nil {
		t.Fatalf("scoped list: %v", err)
	}
	if len(scoped) != 1 || scoped[0].Value["nickname"] != "Jo" {
		t.Fatalf("unexpected scoped values %+v", scoped)
	}

	batch, err := e.values.BatchByEntities(ctx, registry.EntityEmployee, []int64{1, 2, 3}, first.ID)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	got := map[int64]int{}
	for id, items := range batch {
		got[id] = len(items)
	}
	if diff := cmp.Diff(map[int64]int{1: 1, 2: 1}, got); diff != "" {
		t.Fatalf("batch mismatch (-want +got):\n%s", diff)
	}
}

func TestSearch(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	schema := createSchema(t, e, registry.Tenant(7), registry.EntityEmployee, `{
		"type": "object",
		"properties": {
			"age": {"type": "integer"},
			"city": {"type": "string"},
			"address": {"type": "object", "properties": {"zip": {"type": "string"}}}
		}
	}`)
	createValue(t, e, schema.ID, 3, map[string]any{"age": 25, "city": "Lisbon", "address": map[string]any{"zip": "1000"}})
	createValue(t, e, schema.ID, 1, map[string]any{"age": 40, "city": "Porto"})
	createValue(t, e, schema.ID, 2, map[string]any{"age": 33, "city": "Lisboa"})

	tests := []struct {
		name       string
		conditions []values.Condition
		want       []int64
	}{
		{"no conditions", nil, []int64{1, 2, 3}},
		{"gte", []values.Condition{{SchemaID: schema.ID, Path: "age", Operator: values.OpGte, Value: 33}}, []int64{1, 2}},
		{"like is case insensitive", []values.Condition{{SchemaID: schema.ID, Path: "city", Operator: values.OpLike, Value: "LIS"}}, []int64{2, 3}},
		{"and", []values.Condition{
			{SchemaID: schema.ID, Path: "city", Operator: values.OpLike, Value: "lis"},
			{SchemaID: schema.ID, Path: "age", Operator: values.OpLt, Value: 30},
		}, []int64{3}},
		{"nested path", []values.Condition{{SchemaID: schema.ID, Path: "address.zip", Operator: values.OpEq, Value: "1000"}}, []int64{3}},
		{"missing field neq", []values.Condition{{SchemaID: schema.ID, Path: "address.zip", Operator: values.OpNeq, Value: "1000"}}, []int64{1, 2}},
		{"in", []values.Condition{{SchemaID: schema.ID, Path: "city", Operator: values.OpIn, Value: []any{"Porto", "Faro"}}}, []int64{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := e.values.Search(ctx, registry.Tenant(7), registry.EntityEmployee, values.SearchQuery{Conditions: tt.conditions})
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if diff := cmp.Diff(tt.want, result.EntityIDs); diff != "" {
				t.Fatalf("ids mismatch (-want +got):\n%s", diff)
			}
		})
	}

	paged, err := e.values.Search(ctx, registry.Tenant(7), registry.EntityEmployee, values.SearchQuery{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("paged search: %v", err)
	}
	if diff := cmp.Diff([]int64{3}, paged.EntityIDs); diff != "" || paged.Total != 3 || paged.TotalPages != 2 {
		t.Fatalf("unexpected page %+v", paged)
	}

	_, err = e.values.Search(ctx, registry.Tenant(8), registry.EntityEmployee, values.SearchQuery{
		Conditions: []values.Condition{{SchemaID: schema.ID, Path: "age", Operator: values.OpEq, Value: 25}},
	})
	if !errors.Is(err, registry.ErrForbidden) {
		t.Fatalf("expected forbidden for another tenant, got %v", err)
	}
	_, err = e.values.Search(ctx, registry.Tenant(7), registry.EntityEmployee, values.SearchQuery{
		Conditions: []values.Condition{{SchemaID: schema.ID, Path: "age", Operator: "between", Value: 25}},
	})
	if !errors.Is(err, values.ErrInvalidInput) {
		t.Fatalf("expected invalid operator error, got %v", err)
	}
}

func TestCompare(t *testing.T) {
	t.Parallel()
	tests := []struct {
		field   any
		op      values.Operator
		operand any
		want    bool
	}{
		{30.0, values.OpEq, 30, true},
		{"a", values.OpEq, "a", true},
		{"a", values.OpNeq, "b", true},
		{nil, values.OpEq, nil, true},
		{nil, values.OpNeq, "x", true},
		{nil, values.OpGt, 1, false},
		{"10", values.OpGt, 1, false},
		{5, values.OpLte, 5.0, true},
		{"Engineering", values.OpLike, "GIN", true},
		{3, values.OpIn, []int{1, 2, 3}, true},
		{3, values.OpIn, "3", false},
	}
	for _, tt := range tests {
		if got := values.Compare(tt.field, tt.op, tt.operand); got != tt.want {
			t.Errorf("Compare(%v, %s, %v) = %v, want %v", tt.field, tt.op, tt.operand, got, tt.want)
		}
	}
}

func TestMigrate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	oldSchema := createSchema(t, e, registry.Tenant(7), registry.EntityEmployee, `{
		"type": "object",
		"properties": {
			"age": {"type": "integer"},
			"city": {"type": "string"}
		}
	}`)
	newSchema := createSchema(t, e, registry.Tenant(7), registry.EntityEmployee, `{
		"type": "object",
		"properties": {
			"age": {"type": "integer", "maximum": 60},
			"address": {"type": "object", "properties": {"city": {"type": "string"}}}
		}
	}`)
	createValue(t, e, oldSchema.ID, 1, map[string]any{"age": 30, "city": "Porto"})
	createValue(t, e, oldSchema.ID, 2, map[string]any{"age": 70, "city": "Faro"})

	report, err := e.values.Migrate(ctx, registry.Tenant(7), values.MigrateInput{
		OldSchemaID: oldSchema.ID,
		NewSchemaID: newSchema.ID,
		FieldMap:    map[string]string{"age": "age", "city": "address.city"},
	})
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if report.Migrated != 1 {
		t.Fatalf("expected one migrated value, got %+v", report)
	}
	if _, failed := report.Failed[2]; !failed || len(report.Failed) != 1 {
		t.Fatalf("expected entity 2 to fail validation, got %+v", report.Failed)
	}

	migrated, err := e.values.ListByEntity(ctx, registry.EntityEmployee, 1, newSchema.ID)
	if err != nil || len(migrated) != 1 {
		t.Fatalf("expected migrated value, got %v (%v)", migrated, err)
	}
	want := map[string]any{"age": 30, "address": map[string]any{"city": "Porto"}}
	if diff := cmp.Diff(want, migrated[0].Value); diff != "" {
		t.Fatalf("migrated payload mismatch (-want +got):\n%s", diff)
	}

	originals, err := e.values.ListByEntity(ctx, registry.EntityEmployee, 1, oldSchema.ID)
	if err != nil || len(originals) != 1 {
		t.Fatalf("old values must be kept, got %v (%v)", originals, err)
	}

	again, err := e.values.Migrate(ctx, registry.Tenant(7), values.MigrateInput{OldSchemaID: oldSchema.ID, NewSchemaID: newSchema.ID})
	if err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if again.Migrated != 0 || len(again.Failed) != 2 {
		t.Fatalf("expected duplicate and validation failures, got %+v", again)
	}
}

func TestMigrateRejectsMismatchedEntityTypes(t *testing.T) {
	e := newEnv(t)
	a := createSchema(t, e, registry.Tenant(7), registry.EntityEmployee, ageV1)
	b := createSchema(t, e, registry.Tenant(7), registry.EntityCandidate, ageV1)
	_, err := e.values.Migrate(context.Background(), registry.Tenant(7), values.MigrateInput{OldSchemaID: a.ID, NewSchemaID: b.ID})
	if !errors.Is(err, values.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestMigrateRejectsUnusableTargets(t *testing.T) {
	e := newEnv(t)
	oldSchema := createSchema(t, e, registry.Tenant(7), registry.EntityEmployee, `{"type":"object","properties":{"tag":{"type":"string"}}}`)
	newSchema := createSchema(t, e, registry.Tenant(7), registry.EntityEmployee, `{"type":"object","properties":{"tags":{"type":"array","items":{"type":"string"}}}}`)
	createValue(t, e, oldSchema.ID, 1, map[string]any{"tag": "remote"})

	for _, target := range []string{"ghost", "tags.20000000", "tags.items.x"} {
		t.Run(target, func(t *testing.T) {
			_, err := e.values.Migrate(context.Background(), registry.Tenant(7), values.MigrateInput{
				OldSchemaID: oldSchema.ID,
				NewSchemaID: newSchema.ID,
				FieldMap:    map[string]string{"tag": target},
			})
			if !errors.Is(err, values.ErrInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
	migrated, err := e.values.ListByEntity(context.Background(), registry.EntityEmployee, 1, newSchema.ID)
	if err != nil || len(migrated) != 0 {
		t.Fatalf("rejected migrations must not write values, got %v (%v)", migrated, err)
	}
}

func TestSharedFields(t *testing.T) {
	from := definition(t, `{"type":"object","properties":{
		"a":{"type":"string"},
		"b":{"type":"integer"},
		"c":{"type":"array","items":{"type":"string"}},
		"address":{"type":"object","properties":{"city":{"type":"string"},"zip":{"type":"string"}}},
		"contacts":{"type":"array","items":{"type":"object","properties":{"phone":{"type":"string"}}}},
		"skills":{"type":"array","items":{"type":"object","properties":{"name":{"type":"string"}}}}
	}}`)
	to := definition(t, `{"type":"object","properties":{
		"a":{"type":"string"},
		"b":{"type":"string"},
		"c":{"type":"array","items":{"type":"string"}},
		"address":{"type":"object","properties":{"city":{"type":"string"},"zip":{"type":"integer"}}},
		"contacts":{"type":"array","items":{"type":"object","properties":{"phone":{"type":"integer"}}}},
		"skills":{"type":"array","items":{"type":"object","properties":{"name":{"type":"string"}}}}
	}}`)
	want := map[string]string{"a": "a", "c": "c", "address.city": "address.city", "skills": "skills"}
	if diff := cmp.Diff(want, values.SharedFields(from, to)); diff != "" {
		t.Fatalf("shared fields mismatch (-want +got):\n%s", diff)
	}
}
