package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-customfields/pkg/fieldspec"
	"github.com/goliatone/go-customfields/pkg/uischema"
	"github.com/goliatone/go-customfields/pkg/widgets"
)

// Builder converts field definitions plus UI hints into descriptors.
type Builder struct {
	opts Options
}

// New creates a Builder with the supplied options.
func New(options Options) *Builder {
	opts := defaultOptions()
	if options.Labeler != nil {
		opts.Labeler = options.Labeler
	}
	if options.Widgets != nil {
		opts.Widgets = options.Widgets
	}
	return &Builder{opts: opts}
}

// Build returns one descriptor per top-level property in declared order.
// Problems with individual fields are reported on that field's descriptor so
// the rest of the form stays renderable.
func (b *Builder) Build(def *fieldspec.ObjectSpec, hints uischema.Hints) []Descriptor {
	if def == nil {
		return nil
	}
	return b.fieldsFromObject(def, "", hints)
}

func (b *Builder) fieldsFromObject(obj *fieldspec.ObjectSpec, base string, hints uischema.Hints) []Descriptor {
	if len(obj.Properties) == 0 {
		return nil
	}
	fields := make([]Descriptor, 0, len(obj.Properties))
	seen := make(map[string]struct{}, len(obj.Properties))
	for _, prop := range obj.Properties {
		path := joinPath(base, prop.Name)
		if _, dup := seen[prop.Name]; dup {
			fields = append(fields, Descriptor{
				Path:  path,
				Name:  prop.Name,
				Label: b.opts.Labeler(prop.Name),
				Error: fmt.Sprintf("duplicate property %q", prop.Name),
			})
			continue
		}
		seen[prop.Name] = struct{}{}
		fields = append(fields, b.fieldFromSpec(prop.Name, path, prop.Spec, obj.IsRequired(prop.Name), hints))
	}
	return fields
}

func (b *Builder) fieldFromSpec(name, path string, spec fieldspec.FieldSpec, required bool, hints uischema.Hints) Descriptor {
	hint, _ := hints.For(path)
	field := Descriptor{
		Path:     path,
		Name:     name,
		Label:    b.opts.Labeler(name),
		Required: required,
	}
	if spec == nil {
		field.Error = "field spec is missing"
		return field
	}

	meta := spec.Meta()
	field.Type = string(spec.Kind())
	if meta.Title != "" {
		field.Label = meta.Title
	}
	field.Description = meta.Description
	field.Default = meta.Default
	applyUIHintAttributes(&field, hint)

	switch typed := spec.(type) {
	case *fieldspec.StringSpec:
		field.Format = string(typed.Format)
		field.Options = optionsFromEnum(typed.Enum)
		applyStringValidations(&field, typed)
	case *fieldspec.NumberSpec:
		applyNumberValidations(&field, typed)
	case *fieldspec.BooleanSpec:
	case *fieldspec.ArraySpec:
		if typed.Items == nil {
			field.Error = "array field requires items"
			return field
		}
		if typed.UniqueItems {
			field.Validations = append(field.Validations, ValidationRule{Kind: ValidationRuleUniqueItems})
		}
		itemPath := joinPath(path, "items")
		switch items := typed.Items.(type) {
		case *fieldspec.ObjectSpec:
			field.Nested = b.fieldsFromObject(items, itemPath, hints)
		case *fieldspec.StringSpec:
			field.Options = optionsFromEnum(items.Enum)
			item := b.fieldFromSpec("items", itemPath, items, true, hints)
			field.Items = &item
		default:
			item := b.fieldFromSpec("items", itemPath, items, true, hints)
			if item.Error != "" {
				field.Error = item.Error
				return field
			}
			field.Items = &item
		}
	case *fieldspec.ObjectSpec:
		field.Nested = b.fieldsFromObject(typed, path, hints)
	case *fieldspec.UnknownSpec:
		field.Error = fmt.Sprintf("unsupported field type %q", typed.Type)
		return field
	default:
		field.Error = fmt.Sprintf("unsupported field spec %T", spec)
		return field
	}

	widget, ok := b.opts.Widgets.Resolve(widgets.Field{Path: path, Spec: spec, Hint: hint})
	if !ok {
		field.Error = fmt.Sprintf("no widget available for %s field", fieldspec.String(spec))
		return field
	}
	field.Widget = widget
	return field
}

func applyUIHintAttributes(field *Descriptor, hint uischema.Hint) {
	if hint.Label != "" {
		field.Label = hint.Label
	}
	if hint.Description != "" {
		field.Description = hint.Description
	}
	field.Placeholder = hint.Placeholder
	field.HelpText = hint.HelpText
	field.CSSClass = hint.CSSClass
	field.VisibleIf = hint.VisibleIf
}

func applyStringValidations(field *Descriptor, spec *fieldspec.StringSpec) {
	if spec.MinLength != nil {
		field.Validations = append(field.Validations, ValidationRule{
			Kind:   ValidationRuleMinLength,
			Params: map[string]string{"value": strconv.Itoa(*spec.MinLength)},
		})
	}
	if spec.MaxLength != nil {
		field.Validations = append(field.Validations, ValidationRule{
			Kind:   ValidationRuleMaxLength,
			Params: map[string]string{"value": strconv.Itoa(*spec.MaxLength)},
		})
	}
	if spec.Pattern != "" && len(spec.Enum) == 0 {
		field.Validations = append(field.Validations, ValidationRule{
			Kind:   ValidationRulePattern,
			Params: map[string]string{"pattern": spec.Pattern},
		})
	}
}

func applyNumberValidations(field *Descriptor, spec *fieldspec.NumberSpec) {
	if spec.Minimum != nil {
		field.Validations = append(field.Validations, ValidationRule{
			Kind:   ValidationRuleMin,
			Params: map[string]string{"value": formatFloat(*spec.Minimum)},
		})
	}
	if spec.Maximum != nil {
		field.Validations = append(field.Validations, ValidationRule{
			Kind:   ValidationRuleMax,
			Params: map[string]string{"value": formatFloat(*spec.Maximum)},
		})
	}
}

func optionsFromEnum(enum []fieldspec.EnumOption) []Option {
	if len(enum) == 0 {
		return nil
	}
	out := make([]Option, len(enum))
	for i, opt := range enum {
		out[i] = Option{Value: opt.Value, Label: opt.DisplayLabel()}
	}
	return out
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func joinPath(base, segment string) string {
	if base == "" {
		return segment
	}
	return base + "." + segment
}

// Errors collects descriptor-level errors keyed by path, walking nested
// descriptors. It returns nil when every field is renderable.
func Errors(fields []Descriptor) map[string]string {
	var out map[string]string
	var walk func([]Descriptor)
	walk = func(list []Descriptor) {
		for _, field := range list {
			if strings.TrimSpace(field.Error) != "" {
				if out == nil {
					out = make(map[string]string)
				}
				out[field.Path] = field.Error
			}
			walk(field.Nested)
			if field.Items != nil {
				walk([]Descriptor{*field.Items})
			}
		}
	}
	walk(fields)
	return out
}

// Find returns the descriptor at path, accepting numeric array indices in
// place of the ".items" segment.
func Find(fields []Descriptor, path string) (Descriptor, bool) {
	target := normalizeIndexPath(path)
	var found Descriptor
	var ok bool
	var walk func([]Descriptor) bool
	walk = func(list []Descriptor) bool {
		for _, field := range list {
			if field.Path == target {
				found, ok = field, true
				return true
			}
			if walk(field.Nested) {
				return true
			}
			if field.Items != nil && walk([]Descriptor{*field.Items}) {
				return true
			}
		}
		return false
	}
	walk(fields)
	return found, ok
}

func normalizeIndexPath(path string) string {
	segments := strings.Split(uischema.NormalizeFieldPath(path), ".")
	for i, segment := range segments {
		if _, err := strconv.Atoi(segment); err == nil && segment != "" {
			segments[i] = "items"
		}
	}
	return strings.Join(segments, ".")
}
