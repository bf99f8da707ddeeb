package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/goliatone/go-customfields/pkg/registry"
	"github.com/goliatone/go-customfields/pkg/values"
	"github.com/goliatone/go-customfields/pkg/valuepath"
)

// ValueStore keeps entity values in a map.
type ValueStore struct {
	mu      sync.RWMutex
	records map[string]values.EntityValue
}

// NewValueStore returns an empty ValueStore.
func NewValueStore() *ValueStore {
	return &ValueStore{records: make(map[string]values.EntityValue)}
}

var _ values.Store = (*ValueStore)(nil)
var _ registry.ReferenceCounter = (*ValueStore)(nil)

func (s *ValueStore) Insert(_ context.Context, value values.EntityValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[value.ID]; exists {
		return fmt.Errorf("memory: entity value %s already exists", value.ID)
	}
	for _, existing := range s.records {
		if existing.SchemaID == value.SchemaID && existing.EntityType == value.EntityType && existing.EntityID == value.EntityID {
			return values.ErrDuplicate
		}
	}
	s.records[value.ID] = cloneValue(value)
	return nil
}

func (s *ValueStore) Get(_ context.Context, id string) (values.EntityValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.records[id]
	if !ok {
		return values.EntityValue{}, values.ErrNotFound
	}
	return cloneValue(value), nil
}

func (s *ValueStore) Update(_ context.Context, value values.EntityValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[value.ID]; !ok {
		return values.ErrNotFound
	}
	s.records[value.ID] = cloneValue(value)
	return nil
}

func (s *ValueStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return values.ErrNotFound
	}
	delete(s.records, id)
	return nil
}

func (s *ValueStore) ListByEntities(_ context.Context, entityType registry.EntityType, entityIDs []int64, schemaID string) ([]values.EntityValue, error) {
	wanted := make(map[int64]struct{}, len(entityIDs))
	for _, id := range entityIDs {
		wanted[id] = struct{}{}
	}
	return s.filter(func(v values.EntityValue) bool {
		if v.EntityType != entityType {
			return false
		}
		if _, ok := wanted[v.EntityID]; !ok {
			return false
		}
		return schemaID == "" || v.SchemaID == schemaID
	}), nil
}

func (s *ValueStore) ListBySchema(_ context.Context, schemaID string) ([]values.EntityValue, error) {
	return s.filter(func(v values.EntityValue) bool { return v.SchemaID == schemaID }), nil
}

func (s *ValueStore) EntityIDs(_ context.Context, entityType registry.EntityType) ([]int64, error) {
	s.mu.RLock()
	seen := make(map[int64]struct{})
	for _, v := range s.records {
		if v.EntityType == entityType {
			seen[v.EntityID] = struct{}{}
		}
	}
	s.mu.RUnlock()

	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *ValueStore) CountBySchema(_ context.Context, schemaID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, v := range s.records {
		if v.SchemaID == schemaID {
			count++
		}
	}
	return count, nil
}

// filter returns matching values ordered by entity id, then creation time.
func (s *ValueStore) filter(keep func(values.EntityValue) bool) []values.EntityValue {
	s.mu.RLock()
	out := make([]values.EntityValue, 0)
	for _, v := range s.records {
		if keep(v) {
			out = append(out, cloneValue(v))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].EntityID != out[j].EntityID {
			return out[i].EntityID < out[j].EntityID
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func cloneValue(v values.EntityValue) values.EntityValue {
	v.Value = valuepath.Clone(v.Value)
	return v
}
