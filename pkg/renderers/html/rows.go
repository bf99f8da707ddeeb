package html

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-customfields/pkg/model"
	"github.com/goliatone/go-customfields/pkg/valuepath"
	"github.com/goliatone/go-customfields/pkg/visibility"
	"github.com/goliatone/go-customfields/pkg/widgets"
)

// Row kinds emitted by flatten.
const (
	rowField  = "field"
	rowOpen   = "open"
	rowClose  = "close"
	rowBroken = "broken"
)

type attr struct {
	Name  string
	Value string
}

type option struct {
	Value    string
	Label    string
	Selected bool
}

// row is one line of the preview. Groups are emitted as open/close pairs
// so the template needs no recursion.
type row struct {
	Kind        string
	ID          string
	Path        string
	Label       string
	Widget      string
	InputType   string
	Required    bool
	Help        string
	Placeholder string
	Value       string
	Checked     bool
	Options     []option
	Attrs       []attr
	Error       string
	VisibleIf   string
	Hidden      bool
}

// flatten turns descriptors into rows. base is the value path of the
// enclosing repeater element, empty at the root.
func flatten(fields []model.Descriptor, base string, values map[string]any, errs map[string]string) []row {
	var rows []row
	for _, field := range fields {
		path := field.Path
		if base != "" {
			path = valuepath.Join(base, field.Name)
		}
		if field.Error != "" {
			rows = append(rows, row{Kind: rowBroken, Path: path, Label: field.Label, Error: field.Error})
			continue
		}
		start := len(rows)
		switch field.Widget {
		case widgets.KindFieldset:
			rows = append(rows, group(field, path, errs))
			rows = append(rows, flatten(field.Nested, path, values, errs)...)
			rows = append(rows, row{Kind: rowClose})
		case widgets.KindRepeater:
			rows = append(rows, group(field, path, errs))
			count := max(1, length(values, path))
			for i := 0; i < count; i++ {
				element := fmt.Sprintf("%s.%d", path, i)
				rows = append(rows, row{Kind: rowOpen, Path: element, Label: fmt.Sprintf("%s #%d", field.Label, i+1), Widget: string(widgets.KindFieldset)})
				rows = append(rows, flatten(field.Nested, element, values, errs)...)
				rows = append(rows, row{Kind: rowClose})
			}
			rows = append(rows, row{Kind: rowClose})
		case widgets.KindList:
			rows = append(rows, group(field, path, errs))
			count := max(1, length(values, path))
			for i := 0; i < count; i++ {
				item := *field.Items
				item.Label = fmt.Sprintf("%s #%d", field.Label, i+1)
				item.Required = false
				rows = append(rows, leaf(item, fmt.Sprintf("%s.%d", path, i), values, errs))
			}
			rows = append(rows, row{Kind: rowClose})
		default:
			rows = append(rows, leaf(field, path, values, errs))
		}
		if field.VisibleIf != "" {
			rows[start].VisibleIf = field.VisibleIf
			rows[start].Hidden = !visibility.Visible(field.VisibleIf, values)
		}
	}
	return rows
}

func group(field model.Descriptor, path string, errs map[string]string) row {
	return row{Kind: rowOpen, Path: path, Label: field.Label, Widget: string(field.Widget), Required: field.Required, Error: errs[path]}
}

func leaf(field model.Descriptor, path string, values map[string]any, errs map[string]string) row {
	current, _ := valuepath.Get(values, path)
	if current == nil {
		current = field.Default
	}
	r := row{
		Kind:        rowField,
		ID:          "cf-" + strings.NewReplacer(".", "-").Replace(path),
		Path:        path,
		Label:       field.Label,
		Widget:      string(field.Widget),
		InputType:   inputType(field.Widget),
		Required:    field.Required,
		Help:        firstNonEmpty(field.HelpText, field.Description),
		Placeholder: field.Placeholder,
		Attrs:       attrs(field),
		Error:       errs[path],
	}
	switch field.Widget {
	case widgets.KindCheckbox, widgets.KindToggle:
		r.Checked, _ = current.(bool)
	case widgets.KindSelect, widgets.KindRadio, widgets.KindMultiSelect, widgets.KindCheckboxes:
		selected := selectedSet(current)
		for _, opt := range field.Options {
			_, ok := selected[opt.Value]
			r.Options = append(r.Options, option{Value: opt.Value, Label: opt.Label, Selected: ok})
		}
	default:
		if current != nil {
			r.Value = fmt.Sprint(current)
		}
	}
	return r
}

func inputType(kind widgets.Kind) string {
	switch kind {
	case widgets.KindEmail, widgets.KindTel, widgets.KindDate, widgets.KindNumber, widgets.KindRange:
		return string(kind)
	default:
		return "text"
	}
}

// attrs echoes validation rules as native input constraints.
func attrs(field model.Descriptor) []attr {
	var out []attr
	for _, rule := range field.Validations {
		switch rule.Kind {
		case model.ValidationRuleMin:
			out = append(out, attr{Name: "min", Value: rule.Params["value"]})
		case model.ValidationRuleMax:
			out = append(out, attr{Name: "max", Value: rule.Params["value"]})
		case model.ValidationRuleMinLength:
			out = append(out, attr{Name: "minlength", Value: rule.Params["value"]})
		case model.ValidationRuleMaxLength:
			out = append(out, attr{Name: "maxlength", Value: rule.Params["value"]})
		case model.ValidationRulePattern:
			out = append(out, attr{Name: "pattern", Value: rule.Params["pattern"]})
		}
	}
	if field.Type == "integer" {
		out = append(out, attr{Name: "step", Value: "1"})
	}
	return out
}

func selectedSet(value any) map[string]struct{} {
	out := map[string]struct{}{}
	switch v := value.(type) {
	case string:
		out[v] = struct{}{}
	case []any:
		for _, item := range v {
			out[fmt.Sprint(item)] = struct{}{}
		}
	case []string:
		for _, item := range v {
			out[item] = struct{}{}
		}
	}
	return out
}

func length(values map[string]any, path string) int {
	v, ok := valuepath.Get(values, path)
	if !ok {
		return 0
	}
	if list, ok := v.([]any); ok {
		return len(list)
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
