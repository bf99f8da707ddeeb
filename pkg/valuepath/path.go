// Package valuepath reads and writes entity values addressed by dotted paths
// such as "address.city" or "contacts.0.name".
package valuepath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNilRoot is returned when writing into a nil map.
var ErrNilRoot = errors.New("valuepath: root map is nil")

// Split breaks a dotted path into segments, dropping empty ones.
func Split(path string) []string {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	raw := strings.Split(path, ".")
	out := raw[:0]
	for _, segment := range raw {
		if segment = strings.TrimSpace(segment); segment != "" {
			out = append(out, segment)
		}
	}
	return out
}

// Join appends segment to base.
func Join(base, segment string) string {
	if base == "" {
		return segment
	}
	return base + "." + segment
}

// IsIndex reports whether segment addresses an array element.
func IsIndex(segment string) bool {
	idx, err := strconv.Atoi(segment)
	return err == nil && idx >= 0
}

// Get resolves path inside root. Numeric segments index into slices.
func Get(root map[string]any, path string) (any, bool) {
	segments := Split(path)
	if root == nil || len(segments) == 0 {
		return nil, false
	}
	var current any = root
	for _, segment := range segments {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// Set writes value at path, creating missing intermediate maps and slices.
// A numeric segment addresses an existing element or appends one at the end
// of the slice. Descending into a scalar is an error.
func Set(root map[string]any, path string, value any) error {
	if root == nil {
		return ErrNilRoot
	}
	segments := Split(path)
	if len(segments) == 0 {
		return fmt.Errorf("valuepath: empty path")
	}
	_, err := setIn(root, segments, value, path)
	return err
}

func setIn(node any, segments []string, value any, path string) (any, error) {
	segment, rest := segments[0], segments[1:]
	switch typed := node.(type) {
	case map[string]any:
		if len(rest) == 0 {
			typed[segment] = value
			return typed, nil
		}
		next, err := container(typed[segment], rest[0], path)
		if err != nil {
			return nil, err
		}
		child, err := setIn(next, rest, value, path)
		if err != nil {
			return nil, err
		}
		typed[segment] = child
		return typed, nil
	case []any:
		idx, err := strconv.Atoi(segment)
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("valuepath: %q: expected index, got %q", path, segment)
		}
		if idx > len(typed) {
			return nil, fmt.Errorf("valuepath: %q: index %d is past the end of a list of %d", path, idx, len(typed))
		}
		if idx == len(typed) {
			typed = append(typed, nil)
		}
		if len(rest) == 0 {
			typed[idx] = value
			return typed, nil
		}
		next, err := container(typed[idx], rest[0], path)
		if err != nil {
			return nil, err
		}
		child, err := setIn(next, rest, value, path)
		if err != nil {
			return nil, err
		}
		typed[idx] = child
		return typed, nil
	default:
		return nil, fmt.Errorf("valuepath: %q: cannot descend into %T at %q", path, node, segment)
	}
}

// container returns the node to descend into for the next segment. Missing
// nodes are created; an existing node of the wrong kind is an error.
func container(existing any, next, path string) (any, error) {
	wantList := IsIndex(next)
	switch typed := existing.(type) {
	case nil:
		if wantList {
			return []any{}, nil
		}
		return map[string]any{}, nil
	case []any:
		if wantList {
			return typed, nil
		}
	case map[string]any:
		if !wantList {
			return typed, nil
		}
	}
	return nil, fmt.Errorf("valuepath: %q: cannot descend into %T at %q", path, existing, next)
}

// Delete removes the entry at path. Slice elements are set to nil rather
// than removed so sibling indices stay stable.
func Delete(root map[string]any, path string) bool {
	segments := Split(path)
	if root == nil || len(segments) == 0 {
		return false
	}
	parentPath := strings.Join(segments[:len(segments)-1], ".")
	last := segments[len(segments)-1]

	var parent any = root
	if parentPath != "" {
		var ok bool
		if parent, ok = Get(root, parentPath); !ok {
			return false
		}
	}
	switch node := parent.(type) {
	case map[string]any:
		if _, ok := node[last]; !ok {
			return false
		}
		delete(node, last)
		return true
	case []any:
		idx, err := strconv.Atoi(last)
		if err != nil || idx < 0 || idx >= len(node) {
			return false
		}
		node[idx] = nil
		return true
	default:
		return false
	}
}

// Clone deep-copies a value map.
func Clone(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	return CloneValue(src).(map[string]any)
}

// CloneValue deep-copies maps and slices and returns scalars as-is.
func CloneValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[k] = CloneValue(v)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, v := range typed {
			out[i] = CloneValue(v)
		}
		return out
	default:
		return typed
	}
}
