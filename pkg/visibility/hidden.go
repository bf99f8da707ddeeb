package visibility

import (
	"sort"

	"github.com/goliatone/go-customfields/pkg/model"
)

// Hidden returns the descriptor paths whose visibleIf rule does not hold for
// value. Children of a hidden field are not listed separately.
func Hidden(fields []model.Descriptor, value map[string]any) []string {
	var out []string
	collectHidden(fields, value, &out)
	sort.Strings(out)
	return out
}

func collectHidden(fields []model.Descriptor, value map[string]any, out *[]string) {
	for _, field := range fields {
		if !Visible(field.VisibleIf, value) {
			*out = append(*out, field.Path)
			continue
		}
		collectHidden(field.Nested, value, out)
	}
}

// Rules collects the visibleIf rules declared on fields, keyed by path.
func Rules(fields []model.Descriptor) map[string]string {
	out := map[string]string{}
	var walk func([]model.Descriptor)
	walk = func(fields []model.Descriptor) {
		for _, field := range fields {
			if field.VisibleIf != "" {
				out[field.Path] = field.VisibleIf
			}
			walk(field.Nested)
			if field.Items != nil {
				walk([]model.Descriptor{*field.Items})
			}
		}
	}
	walk(fields)
	return out
}
