package uischema

import (
	"maps"
	"sort"
	"strings"
)

// Hint customises how one field is rendered.
type Hint struct {
	Widget      string `json:"widget,omitempty" yaml:"widget,omitempty"`
	Label       string `json:"label,omitempty" yaml:"label,omitempty"`
	Placeholder string `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	HelpText    string `json:"helpText,omitempty" yaml:"helpText,omitempty"`
	CSSClass    string `json:"cssClass,omitempty" yaml:"cssClass,omitempty"`
	VisibleIf   string `json:"visibleIf,omitempty" yaml:"visibleIf,omitempty"`
}

// IsZero reports whether the hint carries no attributes.
func (h Hint) IsZero() bool {
	return h == Hint{}
}

// Hints maps normalised field paths onto their hint.
type Hints map[string]Hint

// For returns the hint registered for path. Paths are normalised first so
// "contacts[].name" and "contacts.items.name" resolve to the same entry.
func (h Hints) For(path string) (Hint, bool) {
	if len(h) == 0 {
		return Hint{}, false
	}
	hint, ok := h[NormalizeFieldPath(path)]
	return hint, ok
}

// Paths returns the hinted paths in sorted order.
func (h Hints) Paths() []string {
	if len(h) == 0 {
		return nil
	}
	out := make([]string, 0, len(h))
	for path := range h {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy.
func (h Hints) Clone() Hints {
	if h == nil {
		return nil
	}
	return maps.Clone(h)
}

// Equal reports whether two hint sets carry the same attributes. Nil and
// empty sets are equal.
func Equal(a, b Hints) bool {
	return maps.Equal(a, b)
}

// NormalizeFieldPath converts hint keys into dot/".items" notation.
func NormalizeFieldPath(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return ""
	}
	replacer := strings.NewReplacer(
		"[].", ".items.",
		"[]", ".items",
		"[", ".",
		"]", "",
	)
	normalised := replacer.Replace(trimmed)
	normalised = strings.TrimPrefix(normalised, ".")
	for strings.Contains(normalised, "..") {
		normalised = strings.ReplaceAll(normalised, "..", ".")
	}
	return strings.Trim(normalised, ".")
}
