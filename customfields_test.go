package customfields_test

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	customfields "github.com/goliatone/go-customfields"
	"github.com/goliatone/go-customfields/pkg/registry"
	"github.com/goliatone/go-customfields/pkg/runtime"
	"github.com/goliatone/go-customfields/pkg/testsupport"
	"github.com/goliatone/go-customfields/pkg/values"
)

func fixturePath(name string) string {
	return filepath.Join("pkg", "testsupport", "testdata", name)
}

func TestEngineEndToEnd(t *testing.T) {
	ctx := context.Background()
	engine := customfields.New(customfields.WithPagination(5, 50))

	def := testsupport.Definition(t, "employee.json")
	schema, err := engine.Registry.Create(ctx, registry.Tenant(3), registry.CreateInput{
		Name:       "Employee extras",
		EntityType: registry.EntityEmployee,
		Definition: def,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	descriptors, err := engine.Describe(ctx, schema.ID)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if len(descriptors) != len(def.Properties) {
		t.Fatalf("descriptors = %d, want %d", len(descriptors), len(def.Properties))
	}

	form := engine.NewForm()
	if err := form.Bind(ctx, schema.ID, runtime.BindOptions{Initial: testsupport.ValidSample(def)}); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	submission, err := form.Submit()
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	stored, err := engine.Values.Create(ctx, registry.Tenant(3), values.CreateInput{
		SchemaID: submission.SchemaID,
		EntityID: 42,
		Value:    submission.Value,
	})
	if err != nil {
		t.Fatalf("store submission: %v", err)
	}
	if stored.SchemaID != schema.ID {
		t.Fatalf("value pinned to %s, want %s", stored.SchemaID, schema.ID)
	}

	if err := engine.Registry.Delete(ctx, registry.Tenant(3), schema.ID); !errors.Is(err, registry.ErrConflict) {
		t.Fatalf("delete with values: expected ErrConflict, got %v", err)
	}
}

func TestEngineWithoutCache(t *testing.T) {
	engine := customfields.New(customfields.WithoutCache())
	if engine.Cache != nil {
		t.Fatal("cache should be disabled")
	}
	if _, err := engine.Describe(context.Background(), "missing"); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLocalSchemaAndStaticFetcher(t *testing.T) {
	schema, err := customfields.LocalSchema(context.Background(), fixturePath("employee.json"), fixturePath("employee_hints.yaml"))
	if err != nil {
		t.Fatalf("LocalSchema: %v", err)
	}
	if schema.Name != "Employee extras" {
		t.Fatalf("name = %q", schema.Name)
	}
	if len(schema.UIHints) == 0 {
		t.Fatal("expected hints to load")
	}

	fetcher := customfields.StaticFetcher(schema)
	got, err := fetcher.Get(context.Background(), schema.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if diff := cmp.Diff(schema.ID, got.ID); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if _, err := fetcher.Get(context.Background(), "other"); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, err := customfields.LoadDefinition(context.Background(), fixturePath("missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
	hints, err := customfields.LoadHints(context.Background(), "")
	if err != nil || hints != nil {
		t.Fatalf("empty hints path = %v, %v", hints, err)
	}
}

func TestPreviewTemplates(t *testing.T) {
	if _, err := fs.Stat(customfields.PreviewTemplates(), "preview.tpl"); err != nil {
		t.Fatalf("preview template missing: %v", err)
	}
}
