package values

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/goliatone/go-customfields/pkg/registry"
	"github.com/goliatone/go-customfields/pkg/valuepath"
)

// Search returns the ids of entities whose values satisfy every condition.
// Without conditions every entity of the type that has a value matches.
func (s *Service) Search(ctx context.Context, caller registry.Caller, entityType registry.EntityType, query SearchQuery) (SearchResult, error) {
	if !entityType.Valid() {
		return SearchResult{}, invalid("unknown entity type %q", entityType)
	}
	page, limit := normalizeSearchPage(query.Page, query.Limit)

	var matched map[int64]struct{}
	if len(query.Conditions) == 0 {
		ids, err := s.store.EntityIDs(ctx, entityType)
		if err != nil {
			return SearchResult{}, fmt.Errorf("values: search %s: %w", entityType, err)
		}
		matched = make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			matched[id] = struct{}{}
		}
	}

	for i, cond := range query.Conditions {
		if !cond.Operator.Valid() {
			return SearchResult{}, invalid("condition %d: unsupported operator %q", i, cond.Operator)
		}
		if strings.TrimSpace(cond.Path) == "" {
			return SearchResult{}, invalid("condition %d: path is required", i)
		}
		schema, err := s.schemas.Get(ctx, cond.SchemaID)
		if err != nil {
			return SearchResult{}, err
		}
		if !caller.CanRead(schema) {
			return SearchResult{}, &registry.AuthorityError{SchemaID: schema.ID, Op: "search", Reason: "schema belongs to another company"}
		}
		if schema.EntityType != entityType {
			return SearchResult{}, invalid("condition %d: schema %s extends %s, not %s", i, schema.ID, schema.EntityType, entityType)
		}

		items, err := s.store.ListBySchema(ctx, schema.ID)
		if err != nil {
			return SearchResult{}, fmt.Errorf("values: search %s: %w", entityType, err)
		}
		hits := make(map[int64]struct{})
		for _, item := range items {
			if item.EntityType != entityType {
				continue
			}
			field, _ := valuepath.Get(item.Value, cond.Path)
			if Compare(field, cond.Operator, cond.Value) {
				hits[item.EntityID] = struct{}{}
			}
		}
		if matched == nil {
			matched = hits
		} else {
			for id := range matched {
				if _, ok := hits[id]; !ok {
					delete(matched, id)
				}
			}
		}
		if len(matched) == 0 {
			break
		}
	}

	ids := make([]int64, 0, len(matched))
	for id := range matched {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	total := len(ids)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return SearchResult{
		EntityIDs:  ids[start:end],
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
		Page:       page,
		Limit:      limit,
	}, nil
}

// Compare applies op to a stored field value and the condition operand.
// A missing field only matches eq nil and neq non-nil.
func Compare(field any, op Operator, operand any) bool {
	if field == nil {
		switch op {
		case OpEq:
			return operand == nil
		case OpNeq:
			return operand != nil
		default:
			return false
		}
	}

	switch op {
	case OpEq:
		return equalValues(field, operand)
	case OpNeq:
		return !equalValues(field, operand)
	case OpGt, OpGte, OpLt, OpLte:
		a, okA := asNumber(field)
		b, okB := asNumber(operand)
		if !okA || !okB {
			return false
		}
		switch op {
		case OpGt:
			return a > b
		case OpGte:
			return a >= b
		case OpLt:
			return a < b
		default:
			return a <= b
		}
	case OpLike:
		text, okA := field.(string)
		needle, okB := operand.(string)
		return okA && okB && strings.Contains(strings.ToLower(text), strings.ToLower(needle))
	case OpIn:
		list := reflect.ValueOf(operand)
		if operand == nil || list.Kind() != reflect.Slice {
			return false
		}
		for i := 0; i < list.Len(); i++ {
			if equalValues(field, list.Index(i).Interface()) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func equalValues(a, b any) bool {
	if x, ok := asNumber(a); ok {
		if y, ok := asNumber(b); ok {
			return x == y
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func asNumber(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case uint:
		return float64(typed), true
	case uint32:
		return float64(typed), true
	case uint64:
		return float64(typed), true
	case interface{ Float64() (float64, error) }:
		f, err := typed.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func normalizeSearchPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	return page, limit
}
