package uischema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const rjsfPrefix = "ui:"

var attributeAliases = map[string]string{
	"widget":      "widget",
	"label":       "label",
	"title":       "label",
	"placeholder": "placeholder",
	"description": "description",
	"help":        "helpText",
	"helpText":    "helpText",
	"cssClass":    "cssClass",
	"classNames":  "cssClass",
	"className":   "cssClass",
	"visibleIf":   "visibleIf",
	"visible_if":  "visibleIf",
}

// Parse decodes a JSON or YAML hint document.
func Parse(data []byte) (Hints, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		if yamlErr := yaml.Unmarshal(data, &raw); yamlErr != nil {
			return nil, fmt.Errorf("uischema: parse hints: invalid JSON or YAML")
		}
	}
	return FromMap(raw)
}

// FromMap normalises an already decoded hint document.
func FromMap(raw map[string]any) (Hints, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(Hints)
	if err := collect(out, "", raw); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// UnmarshalJSON accepts both flat and nested hint documents.
func (h *Hints) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

func collect(out Hints, base string, node map[string]any) error {
	var hint Hint
	keys := make([]string, 0, len(node))
	for key := range node {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := node[key]
		attr, isAttr := attributeName(key)
		if isAttr {
			text, ok := value.(string)
			if !ok {
				return fmt.Errorf("uischema: %s attribute %q must be a string", displayPath(base), key)
			}
			applyAttribute(&hint, attr, text)
			continue
		}
		if strings.HasPrefix(key, rjsfPrefix) {
			continue
		}
		child, ok := toStringMap(value)
		if !ok {
			return fmt.Errorf("uischema: %s attribute %q is not supported", displayPath(base), key)
		}
		path := NormalizeFieldPath(joinPath(base, key))
		if path == "" {
			return fmt.Errorf("uischema: hint key %q normalises to an empty path", key)
		}
		if err := collect(out, path, child); err != nil {
			return err
		}
	}

	if base != "" && !hint.IsZero() {
		if existing, ok := out[base]; ok {
			hint = merge(existing, hint)
		}
		out[base] = hint
	}
	return nil
}

func attributeName(key string) (string, bool) {
	name := strings.TrimPrefix(key, rjsfPrefix)
	attr, ok := attributeAliases[name]
	return attr, ok
}

func applyAttribute(hint *Hint, attr, value string) {
	switch attr {
	case "widget":
		hint.Widget = strings.ToLower(strings.TrimSpace(value))
	case "label":
		hint.Label = sanitizeText(value)
	case "placeholder":
		hint.Placeholder = sanitizeText(value)
	case "description":
		hint.Description = sanitizeText(value)
	case "helpText":
		hint.HelpText = sanitizeText(value)
	case "cssClass":
		hint.CSSClass = sanitizeClass(value)
	case "visibleIf":
		hint.VisibleIf = strings.TrimSpace(value)
	}
}

func merge(base, overlay Hint) Hint {
	out := base
	if overlay.Widget != "" {
		out.Widget = overlay.Widget
	}
	if overlay.Label != "" {
		out.Label = overlay.Label
	}
	if overlay.Placeholder != "" {
		out.Placeholder = overlay.Placeholder
	}
	if overlay.Description != "" {
		out.Description = overlay.Description
	}
	if overlay.HelpText != "" {
		out.HelpText = overlay.HelpText
	}
	if overlay.CSSClass != "" {
		out.CSSClass = overlay.CSSClass
	}
	if overlay.VisibleIf != "" {
		out.VisibleIf = overlay.VisibleIf
	}
	return out
}

func toStringMap(value any) (map[string]any, bool) {
	switch typed := value.(type) {
	case map[string]any:
		return typed, true
	case map[any]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			str, ok := key.(string)
			if !ok {
				return nil, false
			}
			out[str] = item
		}
		return out, true
	default:
		return nil, false
	}
}

func joinPath(base, segment string) string {
	if base == "" {
		return segment
	}
	return base + "." + segment
}

func displayPath(path string) string {
	if path == "" {
		return "hint document"
	}
	return "hint " + path
}
