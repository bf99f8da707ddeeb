package widgets

import (
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-customfields/pkg/fieldspec"
	"github.com/goliatone/go-customfields/pkg/uischema"
)

// Field is the input to widget resolution.
type Field struct {
	Path string
	Spec fieldspec.FieldSpec
	Hint uischema.Hint
}

// Matcher decides whether a widget kind should handle the supplied field.
type Matcher func(field Field) bool

type rule struct {
	kind     Kind
	priority int
	match    Matcher
	order    int
}

// Registry selects widget kinds for fields based on explicit hints or
// registered matchers. Higher priority wins; ties fall back to registration
// order. An empty registry only resolves compatible explicit hints.
type Registry struct {
	mu    sync.RWMutex
	rules []rule
}

// NewRegistry constructs a registry with the built-in matchers registered.
func NewRegistry() *Registry {
	reg := &Registry{}
	reg.registerBuiltins()
	return reg
}

// Register adds a matcher for kind with the provided priority. Built-ins use
// priorities 10 through 90.
func (r *Registry) Register(kind Kind, priority int, matcher Matcher) {
	if r == nil || matcher == nil {
		return
	}
	trimmed := Kind(strings.TrimSpace(string(kind)))
	if trimmed == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules = append(r.rules, rule{
		kind:     trimmed,
		priority: priority,
		match:    matcher,
		order:    len(r.rules),
	})
}

// Resolve returns the widget kind for a field. A hinted widget is honoured
// first when it is compatible with the field type.
func (r *Registry) Resolve(field Field) (Kind, bool) {
	if explicit := Kind(strings.TrimSpace(field.Hint.Widget)); explicit != "" && Compatible(explicit, field.Spec) {
		return explicit, true
	}
	if r == nil {
		return "", false
	}
	r.mu.RLock()
	if len(r.rules) == 0 {
		r.mu.RUnlock()
		return "", false
	}
	rules := append([]rule(nil), r.rules...)
	r.mu.RUnlock()
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].priority == rules[j].priority {
			return rules[i].order < rules[j].order
		}
		return rules[i].priority > rules[j].priority
	})
	for _, entry := range rules {
		if entry.match(field) {
			return entry.kind, true
		}
	}
	return "", false
}

func (r *Registry) registerBuiltins() {
	r.Register(KindSelect, 90, func(field Field) bool {
		return isEnumString(field.Spec)
	})

	r.Register(KindEmail, 80, stringFormat(fieldspec.FormatEmail))
	r.Register(KindTel, 80, stringFormat(fieldspec.FormatTel))
	r.Register(KindDate, 80, stringFormat(fieldspec.FormatDate))

	r.Register(KindTextarea, 70, func(field Field) bool {
		_, ok := field.Spec.(*fieldspec.StringSpec)
		return ok && Kind(field.Hint.Widget) == KindTextarea
	})

	r.Register(KindText, 60, func(field Field) bool {
		_, ok := field.Spec.(*fieldspec.StringSpec)
		return ok
	})

	r.Register(KindNumber, 50, func(field Field) bool {
		_, ok := field.Spec.(*fieldspec.NumberSpec)
		return ok
	})

	r.Register(KindCheckbox, 40, func(field Field) bool {
		_, ok := field.Spec.(*fieldspec.BooleanSpec)
		return ok
	})

	r.Register(KindMultiSelect, 30, func(field Field) bool {
		arr, ok := field.Spec.(*fieldspec.ArraySpec)
		return ok && isEnumString(arr.Items)
	})

	r.Register(KindRepeater, 20, func(field Field) bool {
		arr, ok := field.Spec.(*fieldspec.ArraySpec)
		if !ok {
			return false
		}
		_, isObject := arr.Items.(*fieldspec.ObjectSpec)
		return isObject
	})

	r.Register(KindFieldset, 10, func(field Field) bool {
		_, ok := field.Spec.(*fieldspec.ObjectSpec)
		return ok
	})

	r.Register(KindList, 5, func(field Field) bool {
		arr, ok := field.Spec.(*fieldspec.ArraySpec)
		return ok && isPrimitive(arr.Items)
	})
}

func stringFormat(format fieldspec.Format) Matcher {
	return func(field Field) bool {
		str, ok := field.Spec.(*fieldspec.StringSpec)
		return ok && str.Format == format
	}
}
