package fieldspec

import "strings"

// Kind enumerates the supported field types.
type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindInteger Kind = "integer"
	KindBoolean Kind = "boolean"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
)

// Format narrows a string field to a well-known shape.
type Format string

const (
	FormatNone  Format = ""
	FormatEmail Format = "email"
	FormatDate  Format = "date"
	FormatTel   Format = "tel"
	FormatFree  Format = "free"
)

// Valid reports whether the format belongs to the supported set.
func (f Format) Valid() bool {
	switch f {
	case FormatNone, FormatEmail, FormatDate, FormatTel, FormatFree:
		return true
	default:
		return false
	}
}

// Specialized reports whether the format maps onto a dedicated input.
func (f Format) Specialized() bool {
	return f == FormatEmail || f == FormatDate || f == FormatTel
}

// MaxNestingDepth is the deepest container level accepted below the root
// object. An array of objects with primitive properties sits exactly at the
// limit.
const MaxNestingDepth = 2

// FieldSpec is implemented by every node type in this package and nowhere
// else.
type FieldSpec interface {
	Kind() Kind
	Meta() Common
	fieldSpec()
}

// Common carries the attributes shared by every field kind.
type Common struct {
	Title       string
	Description string
	Default     any
	Extensions  map[string]any
}

// Meta returns the shared attributes.
func (c Common) Meta() Common { return c }

// EnumOption is one allowed literal with an optional display label.
type EnumOption struct {
	Value string `json:"value"`
	Label string `json:"label,omitempty"`
}

// DisplayLabel returns the label or the literal when no label was given.
func (o EnumOption) DisplayLabel() string {
	if strings.TrimSpace(o.Label) != "" {
		return o.Label
	}
	return o.Value
}

// StringSpec describes a text field.
type StringSpec struct {
	Common
	MinLength *int
	MaxLength *int
	Pattern   string
	Format    Format
	Enum      []EnumOption
}

func (*StringSpec) Kind() Kind { return KindString }
func (*StringSpec) fieldSpec() {}

// EnumValues returns the allowed literals in declared order.
func (s *StringSpec) EnumValues() []string {
	if s == nil || len(s.Enum) == 0 {
		return nil
	}
	out := make([]string, len(s.Enum))
	for i, opt := range s.Enum {
		out[i] = opt.Value
	}
	return out
}

// NumberSpec describes a numeric field. Integer fields reject fractional
// values.
type NumberSpec struct {
	Common
	Integer bool
	Minimum *float64
	Maximum *float64
}

func (s *NumberSpec) Kind() Kind {
	if s != nil && s.Integer {
		return KindInteger
	}
	return KindNumber
}
func (*NumberSpec) fieldSpec() {}

// BooleanSpec describes a true/false field.
type BooleanSpec struct {
	Common
}

func (*BooleanSpec) Kind() Kind { return KindBoolean }
func (*BooleanSpec) fieldSpec() {}

// ArraySpec describes an ordered list whose elements share one shape.
type ArraySpec struct {
	Common
	Items       FieldSpec
	UniqueItems bool
}

func (*ArraySpec) Kind() Kind { return KindArray }
func (*ArraySpec) fieldSpec() {}

// Property binds a field name to its spec inside an object.
type Property struct {
	Name string
	Spec FieldSpec
}

// ObjectSpec describes a group of named fields. The root of every definition
// is an ObjectSpec.
type ObjectSpec struct {
	Common
	Properties []Property
	Required   []string
}

func (*ObjectSpec) Kind() Kind { return KindObject }
func (*ObjectSpec) fieldSpec() {}

// Property returns the named property spec.
func (s *ObjectSpec) Property(name string) (FieldSpec, bool) {
	if s == nil {
		return nil, false
	}
	for _, prop := range s.Properties {
		if prop.Name == name {
			return prop.Spec, true
		}
	}
	return nil, false
}

// IsRequired reports whether name appears in the required set.
func (s *ObjectSpec) IsRequired(name string) bool {
	if s == nil {
		return false
	}
	for _, item := range s.Required {
		if item == name {
			return true
		}
	}
	return false
}

// UnknownSpec stands in for a field whose type is outside the vocabulary. It
// is only produced when parsing with WithUnknownTypes; Check always reports
// it.
type UnknownSpec struct {
	Common
	Type string
}

func (s *UnknownSpec) Kind() Kind { return Kind(s.Type) }
func (*UnknownSpec) fieldSpec() {}
