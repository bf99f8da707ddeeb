package export

import (
	"github.com/goliatone/go-customfields/pkg/fieldspec"
	"github.com/goliatone/go-customfields/pkg/model"
)

// Column is one exported field.
type Column struct {
	Path     string
	Label    string
	Kind     fieldspec.Kind
	Required bool
	Spec     fieldspec.FieldSpec
}

// Columns lists the exported fields of def in declared order. Objects are
// flattened into their children; arrays are one column each.
func Columns(def *fieldspec.ObjectSpec) []Column {
	var out []Column
	fieldspec.Walk(def, func(path string, spec fieldspec.FieldSpec, required bool) bool {
		if spec.Kind() == fieldspec.KindObject {
			return true
		}
		label := spec.Meta().Title
		if label == "" {
			label = model.HumanLabel(lastSegment(path))
		}
		out = append(out, Column{Path: path, Label: label, Kind: spec.Kind(), Required: required, Spec: spec})
		return false
	})
	return out
}

func lastSegment(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i+1:]
		}
	}
	return path
}
