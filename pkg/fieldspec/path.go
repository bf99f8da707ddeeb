package fieldspec

import "strings"

// Visitor is called for every node reached by Walk. Returning false skips
// the node's children.
type Visitor func(path string, spec FieldSpec, required bool) bool

// Walk visits every property of def depth-first in declared order. Array
// element shapes are reported under the ".items" segment.
func Walk(def *ObjectSpec, visit Visitor) {
	if def == nil || visit == nil {
		return
	}
	walkObject(def, "", visit)
}

func walkObject(obj *ObjectSpec, path string, visit Visitor) {
	for _, prop := range obj.Properties {
		walkSpec(prop.Spec, joinPath(path, prop.Name), obj.IsRequired(prop.Name), visit)
	}
}

func walkSpec(spec FieldSpec, path string, required bool, visit Visitor) {
	if !visit(path, spec, required) {
		return
	}
	switch typed := spec.(type) {
	case *ObjectSpec:
		walkObject(typed, path, visit)
	case *ArraySpec:
		if typed.Items != nil {
			walkSpec(typed.Items, joinPath(path, "items"), false, visit)
		}
	}
}

// Lookup resolves a dotted path such as "address.city" or "contacts.items.name"
// against def. Numeric segments after an array are accepted in place of
// "items" so value paths resolve too.
func Lookup(def *ObjectSpec, path string) (FieldSpec, bool) {
	if def == nil || strings.TrimSpace(path) == "" {
		return nil, false
	}
	var current FieldSpec = def
	for _, segment := range strings.Split(path, ".") {
		switch typed := current.(type) {
		case *ObjectSpec:
			next, ok := typed.Property(segment)
			if !ok {
				return nil, false
			}
			current = next
		case *ArraySpec:
			if segment != "items" && !isIndex(segment) {
				return nil, false
			}
			if typed.Items == nil {
				return nil, false
			}
			current = typed.Items
		default:
			return nil, false
		}
	}
	return current, true
}

// SameShape reports whether two specs have the same kind. Arrays also need
// identical element shapes down to every nested property, since array values
// move as a whole. Values may be carried between fields of the same shape.
func SameShape(a, b FieldSpec) bool {
	if a == nil || b == nil || a.Kind() != b.Kind() {
		return false
	}
	left, ok := a.(*ArraySpec)
	if !ok {
		return true
	}
	return sameElement(left.Items, b.(*ArraySpec).Items)
}

func sameElement(a, b FieldSpec) bool {
	if a == nil || b == nil || a.Kind() != b.Kind() {
		return false
	}
	switch left := a.(type) {
	case *ArraySpec:
		return sameElement(left.Items, b.(*ArraySpec).Items)
	case *ObjectSpec:
		right := b.(*ObjectSpec)
		if len(left.Properties) != len(right.Properties) {
			return false
		}
		for _, prop := range left.Properties {
			other, ok := right.Property(prop.Name)
			if !ok || !sameElement(prop.Spec, other) {
				return false
			}
		}
	}
	return true
}

func isIndex(segment string) bool {
	if segment == "" {
		return false
	}
	for _, r := range segment {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of def sharing no mutable state with it.
func Clone(def *ObjectSpec) *ObjectSpec {
	if def == nil {
		return nil
	}
	return cloneSpec(def).(*ObjectSpec)
}

func cloneSpec(spec FieldSpec) FieldSpec {
	switch typed := spec.(type) {
	case *StringSpec:
		out := *typed
		out.Common = cloneCommon(typed.Common)
		out.MinLength = cloneInt(typed.MinLength)
		out.MaxLength = cloneInt(typed.MaxLength)
		out.Enum = append([]EnumOption(nil), typed.Enum...)
		return &out
	case *NumberSpec:
		out := *typed
		out.Common = cloneCommon(typed.Common)
		out.Minimum = cloneFloat(typed.Minimum)
		out.Maximum = cloneFloat(typed.Maximum)
		return &out
	case *BooleanSpec:
		out := *typed
		out.Common = cloneCommon(typed.Common)
		return &out
	case *ArraySpec:
		out := *typed
		out.Common = cloneCommon(typed.Common)
		out.Items = cloneSpec(typed.Items)
		return &out
	case *ObjectSpec:
		out := *typed
		out.Common = cloneCommon(typed.Common)
		out.Required = append([]string(nil), typed.Required...)
		out.Properties = make([]Property, len(typed.Properties))
		for i, prop := range typed.Properties {
			out.Properties[i] = Property{Name: prop.Name, Spec: cloneSpec(prop.Spec)}
		}
		return &out
	case *UnknownSpec:
		out := *typed
		out.Common = cloneCommon(typed.Common)
		return &out
	default:
		return nil
	}
}

func cloneCommon(c Common) Common {
	out := c
	out.Default = cloneValue(c.Default)
	if c.Extensions != nil {
		out.Extensions = cloneValue(c.Extensions).(map[string]any)
	}
	return out
}

func cloneValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return value
	}
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
