package values_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-customfields/pkg/registry"
	"github.com/goliatone/go-customfields/pkg/values"
)

func TestListBySchema(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := registry.Tenant(1)
	schema := createSchema(t, e, owner, registry.EntityEmployee, ageV1)
	createValue(t, e, schema.ID, 9, map[string]any{"age": 30})
	createValue(t, e, schema.ID, 4, map[string]any{"age": 50})

	got, items, err := e.values.ListBySchema(ctx, owner, schema.ID)
	if err != nil {
		t.Fatalf("ListBySchema: %v", err)
	}
	if got.ID != schema.ID {
		t.Fatalf("schema = %s, want %s", got.ID, schema.ID)
	}
	var ids []int64
	for _, item := range items {
		ids = append(ids, item.EntityID)
	}
	if diff := cmp.Diff([]int64{4, 9}, ids); diff != "" {
		t.Fatalf("entity order mismatch (-want +got):\n%s", diff)
	}

	_, _, err = e.values.ListBySchema(ctx, registry.Tenant(2), schema.ID)
	if !errors.Is(err, registry.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for another tenant, got %v", err)
	}
}

func TestImport(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	schema := createSchema(t, e, registry.Admin(), registry.EntityEmployee, ageV1)
	existing := createValue(t, e, schema.ID, 1, map[string]any{"age": 20})
	other := createSchema(t, e, registry.Admin(), registry.EntityEmployee, ageV2)
	foreign := createValue(t, e, other.ID, 5, map[string]any{"age": 20})

	report, err := e.values.Import(ctx, registry.Admin(), schema.ID, []values.ImportRow{
		{Line: 2, EntityID: 1, ValueID: existing.ID, Value: map[string]any{"age": 21}},
		{Line: 3, EntityID: 2, Value: map[string]any{"age": 40}},
		{Line: 4, EntityID: 3, Value: map[string]any{"age": 400}},
		{Line: 5, EntityID: 1, Value: map[string]any{"age": 22}},
		{Line: 6, EntityID: 5, ValueID: foreign.ID, Value: map[string]any{"age": 30}},
	})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report.Created != 1 || report.Updated != 1 {
		t.Fatalf("created/updated = %d/%d, want 1/1", report.Created, report.Updated)
	}
	if len(report.Failed) != 3 {
		t.Fatalf("failed = %v, want lines 4, 5 and 6", report.Failed)
	}
	if !strings.Contains(report.Failed[4], "age") {
		t.Fatalf("line 4 reason %q should name the field", report.Failed[4])
	}
	if !strings.Contains(report.Failed[5], "already has a value") {
		t.Fatalf("line 5 reason = %q", report.Failed[5])
	}

	updated, err := e.values.Get(ctx, existing.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if updated.Value["age"] != float64(21) && updated.Value["age"] != 21 {
		t.Fatalf("age = %v, want 21", updated.Value["age"])
	}
	untouched, _ := e.values.Get(ctx, foreign.ID)
	if untouched.Value["age"] != 20 && untouched.Value["age"] != float64(20) {
		t.Fatalf("foreign value changed: %v", untouched.Value)
	}
}

func TestImportRequiresAuthority(t *testing.T) {
	e := newEnv(t)
	schema := createSchema(t, e, registry.Tenant(1), registry.EntityEmployee, ageV1)
	_, err := e.values.Import(context.Background(), registry.Tenant(2), schema.ID, nil)
	if !errors.Is(err, registry.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}
