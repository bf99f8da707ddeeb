package customfields

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/goliatone/go-customfields/internal/source"
	"github.com/goliatone/go-customfields/pkg/fieldspec"
	"github.com/goliatone/go-customfields/pkg/registry"
	"github.com/goliatone/go-customfields/pkg/runtime"
	"github.com/goliatone/go-customfields/pkg/uischema"
)

var documents = source.New()

// LoadDefinition reads a JSON or YAML definition from a file path or an
// http(s) URL.
func LoadDefinition(ctx context.Context, location string) (*Definition, error) {
	data, err := documents.Read(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("customfields: read definition: %w", err)
	}
	def, err := fieldspec.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("customfields: %s: %w", location, err)
	}
	return def, nil
}

// LoadHints reads a JSON or YAML UI-hint document. An empty location yields
// no hints.
func LoadHints(ctx context.Context, location string) (uischema.Hints, error) {
	if strings.TrimSpace(location) == "" {
		return nil, nil
	}
	data, err := documents.Read(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("customfields: read hints: %w", err)
	}
	hints, err := uischema.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("customfields: %s: %w", location, err)
	}
	return hints, nil
}

// LocalSchema wraps a loaded definition as an unsaved system schema named
// after its title or, failing that, its file.
func LocalSchema(ctx context.Context, definitionLocation, hintsLocation string) (Schema, error) {
	def, err := LoadDefinition(ctx, definitionLocation)
	if err != nil {
		return Schema{}, err
	}
	hints, err := LoadHints(ctx, hintsLocation)
	if err != nil {
		return Schema{}, err
	}
	base := source.Base(definitionLocation)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if def.Title != "" {
		name = def.Title
	}
	now := time.Now().UTC()
	return Schema{
		ID:         "local:" + base,
		Name:       name,
		EntityType: registry.EntityEmployee,
		Definition: def,
		UIHints:    hints,
		IsSystem:   true,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// StaticFetcher serves a fixed set of schemas to a runtime form.
func StaticFetcher(schemas ...Schema) runtime.Fetcher {
	byID := make(map[string]Schema, len(schemas))
	for _, schema := range schemas {
		byID[schema.ID] = schema
	}
	return runtime.FetcherFunc(func(_ context.Context, id string) (Schema, error) {
		schema, ok := byID[id]
		if !ok {
			return Schema{}, fmt.Errorf("%w: %s", registry.ErrNotFound, id)
		}
		return schema.Clone(), nil
	})
}
