package model

import (
	"maps"
	"slices"

	"github.com/goliatone/go-customfields/pkg/valuepath"
	"github.com/goliatone/go-customfields/pkg/widgets"
)

const (
	ValidationRuleMin         = "min"
	ValidationRuleMax         = "max"
	ValidationRuleMinLength   = "minLength"
	ValidationRuleMaxLength   = "maxLength"
	ValidationRulePattern     = "pattern"
	ValidationRuleUniqueItems = "uniqueItems"
)

// ValidationRule echoes a single constraint of the underlying field spec.
// Numeric bounds and length limits encode their threshold in Params["value"]
// while pattern rules preserve the original expression in Params["pattern"].
type ValidationRule struct {
	Kind   string            `json:"kind"`
	Params map[string]string `json:"params,omitempty"`
}

// Option is one selectable literal with its display label.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Descriptor is the render-ready description of one field. Nested carries
// the children of fieldsets and the element fields of repeaters; Items
// describes the element of a primitive list. Error is set instead of Widget
// when the field cannot be rendered.
type Descriptor struct {
	Path        string           `json:"path"`
	Name        string           `json:"name"`
	Type        string           `json:"type"`
	Widget      widgets.Kind     `json:"widget,omitempty"`
	Format      string           `json:"format,omitempty"`
	Label       string           `json:"label"`
	Description string           `json:"description,omitempty"`
	Placeholder string           `json:"placeholder,omitempty"`
	HelpText    string           `json:"helpText,omitempty"`
	CSSClass    string           `json:"cssClass,omitempty"`
	VisibleIf   string           `json:"visibleIf,omitempty"`
	Required    bool             `json:"required"`
	Default     any              `json:"default,omitempty"`
	Validations []ValidationRule `json:"validations,omitempty"`
	Options     []Option         `json:"options,omitempty"`
	Nested      []Descriptor     `json:"nested,omitempty"`
	Items       *Descriptor      `json:"items,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// Rule returns the first validation rule of the given kind.
func (d Descriptor) Rule(kind string) (ValidationRule, bool) {
	for _, rule := range d.Validations {
		if rule.Kind == kind {
			return rule, true
		}
	}
	return ValidationRule{}, false
}

// CloneAll returns a deep copy of fields sharing no mutable state with them.
func CloneAll(fields []Descriptor) []Descriptor {
	if fields == nil {
		return nil
	}
	out := make([]Descriptor, len(fields))
	for i, field := range fields {
		out[i] = field.clone()
	}
	return out
}

func (d Descriptor) clone() Descriptor {
	out := d
	out.Default = valuepath.CloneValue(d.Default)
	if d.Validations != nil {
		out.Validations = make([]ValidationRule, len(d.Validations))
		for i, rule := range d.Validations {
			out.Validations[i] = ValidationRule{Kind: rule.Kind, Params: maps.Clone(rule.Params)}
		}
	}
	out.Options = slices.Clone(d.Options)
	out.Nested = CloneAll(d.Nested)
	if d.Items != nil {
		items := d.Items.clone()
		out.Items = &items
	}
	return out
}
