package testsupport

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-customfields/pkg/fieldspec"
)

//go:embed testdata/*
var fixtures embed.FS

// Fixture returns the raw bytes of an embedded fixture such as
// "employee.json".
func Fixture(t *testing.T, name string) []byte {
	t.Helper()

	data, err := fixtures.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return data
}

// Definition parses an embedded definition fixture.
func Definition(t *testing.T, name string) *fieldspec.ObjectSpec {
	t.Helper()

	def, err := fieldspec.Parse(Fixture(t, name))
	if err != nil {
		t.Fatalf("parse fixture %s: %v", name, err)
	}
	return def
}

// LoadDefinitionFromPath reads and parses a definition without requiring
// testing.T, allowing callers to wire fixtures in setup functions.
func LoadDefinitionFromPath(path string) (*fieldspec.ObjectSpec, error) {
	if path == "" {
		return nil, errors.New("testsupport: definition path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("testsupport: read definition: %w", err)
	}
	def, err := fieldspec.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("testsupport: parse definition: %w", err)
	}
	return def, nil
}

// MustJSON decodes a JSON literal into the generic value shape used by
// validators.
func MustJSON(t *testing.T, raw string) map[string]any {
	t.Helper()

	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	return out
}

// WriteGolden writes arbitrary data to a golden file when UPDATE_GOLDENS is set.
func WriteGolden(t *testing.T, path string, value any) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}
