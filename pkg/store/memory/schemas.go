package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/goliatone/go-customfields/pkg/registry"
)

// SchemaStore keeps schema records in a map.
type SchemaStore struct {
	mu      sync.RWMutex
	records map[string]registry.Schema
}

// NewSchemaStore returns an empty SchemaStore.
func NewSchemaStore() *SchemaStore {
	return &SchemaStore{records: make(map[string]registry.Schema)}
}

var _ registry.Store = (*SchemaStore)(nil)

func (s *SchemaStore) Insert(_ context.Context, schema registry.Schema) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[schema.ID]; exists {
		return fmt.Errorf("memory: schema %s already exists", schema.ID)
	}
	s.records[schema.ID] = schema.Clone()
	return nil
}

func (s *SchemaStore) Get(_ context.Context, id string) (registry.Schema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	schema, ok := s.records[id]
	if !ok {
		return registry.Schema{}, registry.ErrNotFound
	}
	return schema.Clone(), nil
}

func (s *SchemaStore) Update(_ context.Context, schema registry.Schema) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[schema.ID]; !ok {
		return registry.ErrNotFound
	}
	s.records[schema.ID] = schema.Clone()
	return nil
}

func (s *SchemaStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return registry.ErrNotFound
	}
	delete(s.records, id)
	return nil
}

// List filters with Query.Matches and orders by UpdatedAt desc, then id desc.
func (s *SchemaStore) List(_ context.Context, query registry.Query) ([]registry.Schema, int, error) {
	s.mu.RLock()
	matched := make([]registry.Schema, 0)
	for _, schema := range s.records {
		if query.Matches(schema) {
			matched = append(matched, schema)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].UpdatedAt.Equal(matched[j].UpdatedAt) {
			return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	start := query.Offset()
	if start > total {
		start = total
	}
	end := total
	if query.Limit > 0 && start+query.Limit < total {
		end = start + query.Limit
	}
	page := make([]registry.Schema, 0, end-start)
	for _, schema := range matched[start:end] {
		page = append(page, schema.Clone())
	}
	return page, total, nil
}

// Len reports the number of stored schemas.
func (s *SchemaStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
