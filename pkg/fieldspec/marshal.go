package fieldspec

import (
	"bytes"
	"encoding/json"
	"sort"
)

// MarshalJSON encodes the definition with properties in declared order.
func (s *ObjectSpec) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	if err := writeSpec(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a definition, keeping property order and rejecting
// structurally invalid input.
func (s *ObjectSpec) UnmarshalJSON(data []byte) error {
	def, err := Parse(data)
	if err != nil {
		return err
	}
	*s = *def
	return nil
}

// Encode returns the JSON encoding of any spec node.
func Encode(spec FieldSpec) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeSpec(&buf, spec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type member struct {
	key   string
	value any
}

func writeSpec(buf *bytes.Buffer, spec FieldSpec) error {
	if spec == nil {
		buf.WriteString("null")
		return nil
	}
	members := []member{{"type", string(spec.Kind())}}
	meta := spec.Meta()
	if meta.Title != "" {
		members = append(members, member{"title", meta.Title})
	}
	if meta.Description != "" {
		members = append(members, member{"description", meta.Description})
	}
	if meta.Default != nil {
		members = append(members, member{"default", meta.Default})
	}

	switch typed := spec.(type) {
	case *StringSpec:
		if typed.MinLength != nil {
			members = append(members, member{"minLength", *typed.MinLength})
		}
		if typed.MaxLength != nil {
			members = append(members, member{"maxLength", *typed.MaxLength})
		}
		if typed.Pattern != "" {
			members = append(members, member{"pattern", typed.Pattern})
		}
		if typed.Format != FormatNone {
			members = append(members, member{"format", string(typed.Format)})
		}
		if len(typed.Enum) > 0 {
			members = append(members, member{"enum", typed.EnumValues()})
			if labels := enumLabels(typed.Enum); labels != nil {
				members = append(members, member{"enumNames", labels})
			}
		}
	case *NumberSpec:
		if typed.Minimum != nil {
			members = append(members, member{"minimum", *typed.Minimum})
		}
		if typed.Maximum != nil {
			members = append(members, member{"maximum", *typed.Maximum})
		}
	case *BooleanSpec, *UnknownSpec:
	case *ArraySpec:
		items, err := Encode(typed.Items)
		if err != nil {
			return err
		}
		members = append(members, member{"items", json.RawMessage(items)})
		if typed.UniqueItems {
			members = append(members, member{"uniqueItems", true})
		}
	case *ObjectSpec:
		var props bytes.Buffer
		props.WriteByte('{')
		for i, prop := range typed.Properties {
			if i > 0 {
				props.WriteByte(',')
			}
			key, err := json.Marshal(prop.Name)
			if err != nil {
				return err
			}
			props.Write(key)
			props.WriteByte(':')
			if err := writeSpec(&props, prop.Spec); err != nil {
				return err
			}
		}
		props.WriteByte('}')
		members = append(members, member{"properties", json.RawMessage(props.Bytes())})
		if len(typed.Required) > 0 {
			members = append(members, member{"required", typed.Required})
		}
	}

	if len(meta.Extensions) > 0 {
		keys := make([]string, 0, len(meta.Extensions))
		for key := range meta.Extensions {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			members = append(members, member{key, meta.Extensions[key]})
		}
	}

	buf.WriteByte('{')
	for i, m := range members {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.key)
		if err != nil {
			return err
		}
		value, err := json.Marshal(m.value)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return nil
}

func enumLabels(options []EnumOption) []string {
	var labels []string
	for i, opt := range options {
		if opt.Label == "" {
			continue
		}
		if labels == nil {
			labels = make([]string, len(options))
			for j := 0; j < i; j++ {
				labels[j] = options[j].Value
			}
		}
		labels[i] = opt.Label
	}
	if labels == nil {
		return nil
	}
	for i, opt := range options {
		if labels[i] == "" {
			labels[i] = opt.Value
		}
	}
	return labels
}
