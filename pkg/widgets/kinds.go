package widgets

import "github.com/goliatone/go-customfields/pkg/fieldspec"

// Kind identifies the control a renderer should draw for a field.
type Kind string

// Built-in widget kinds.
const (
	KindText        Kind = "text"
	KindTextarea    Kind = "textarea"
	KindEmail       Kind = "email"
	KindTel         Kind = "tel"
	KindDate        Kind = "date"
	KindSelect      Kind = "select"
	KindRadio       Kind = "radio"
	KindNumber      Kind = "number"
	KindRange       Kind = "range"
	KindCheckbox    Kind = "checkbox"
	KindToggle      Kind = "toggle"
	KindMultiSelect Kind = "multiselect"
	KindCheckboxes  Kind = "checkboxes"
	KindList        Kind = "list"
	KindRepeater    Kind = "repeater"
	KindFieldset    Kind = "fieldset"
)

// Compatible reports whether kind can edit values described by spec. Hint
// overrides that fail this check are ignored.
func Compatible(kind Kind, spec fieldspec.FieldSpec) bool {
	switch typed := spec.(type) {
	case *fieldspec.StringSpec:
		switch kind {
		case KindText, KindTextarea, KindEmail, KindTel, KindDate:
			return true
		case KindSelect, KindRadio:
			return len(typed.Enum) > 0
		}
	case *fieldspec.NumberSpec:
		switch kind {
		case KindNumber:
			return true
		case KindRange:
			return typed.Minimum != nil && typed.Maximum != nil
		}
	case *fieldspec.BooleanSpec:
		return kind == KindCheckbox || kind == KindToggle
	case *fieldspec.ArraySpec:
		switch kind {
		case KindMultiSelect, KindCheckboxes:
			return isEnumString(typed.Items)
		case KindRepeater:
			_, ok := typed.Items.(*fieldspec.ObjectSpec)
			return ok
		case KindList:
			return isPrimitive(typed.Items)
		}
	case *fieldspec.ObjectSpec:
		return kind == KindFieldset
	}
	return false
}

func isEnumString(spec fieldspec.FieldSpec) bool {
	str, ok := spec.(*fieldspec.StringSpec)
	return ok && len(str.Enum) > 0
}

func isPrimitive(spec fieldspec.FieldSpec) bool {
	switch spec.(type) {
	case *fieldspec.StringSpec, *fieldspec.NumberSpec, *fieldspec.BooleanSpec:
		return true
	default:
		return false
	}
}
