package openapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-customfields/pkg/fieldspec"
)

// ErrComponentNotFound is returned when a document lacks the requested
// schema component.
var ErrComponentNotFound = errors.New("openapi: component not found")

// Load reads an OpenAPI document from a file path or an http(s) URL and
// resolves its references.
func Load(ctx context.Context, location string) (*openapi3.T, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, errors.New("openapi: location is required")
	}
	loader := openapi3.NewLoader()
	loader.Context = ctx
	loader.IsExternalRefsAllowed = true

	var (
		doc *openapi3.T
		err error
	)
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		var u *url.URL
		if u, err = url.Parse(location); err == nil {
			doc, err = loader.LoadFromURI(u)
		}
	} else {
		doc, err = loader.LoadFromFile(location)
	}
	if err != nil {
		return nil, fmt.Errorf("openapi: load %s: %w", location, err)
	}
	return doc, nil
}

// Parse decodes an in-memory JSON or YAML document.
func Parse(ctx context.Context, data []byte) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("openapi: parse document: %w", err)
	}
	return doc, nil
}

// Components lists the schema component names of doc in sorted order.
func Components(doc *openapi3.T) []string {
	if doc == nil || doc.Components == nil {
		return nil
	}
	names := make([]string, 0, len(doc.Components.Schemas))
	for name := range doc.Components.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Import converts the named component into a definition. Keywords without a
// counterpart (oneOf, additionalProperties, unknown formats) are dropped;
// the result goes through the same structural checks as any definition.
func Import(doc *openapi3.T, component string) (*fieldspec.ObjectSpec, error) {
	if doc == nil || doc.Components == nil {
		return nil, fmt.Errorf("%w: %s", ErrComponentNotFound, component)
	}
	ref, ok := doc.Components.Schemas[component]
	if !ok || ref == nil || ref.Value == nil {
		return nil, fmt.Errorf("%w: %s", ErrComponentNotFound, component)
	}
	raw, err := json.Marshal(definitionFrom(ref.Value, 0))
	if err != nil {
		return nil, fmt.Errorf("openapi: encode %s: %w", component, err)
	}
	def, err := fieldspec.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi: import %s: %w", component, err)
	}
	return def, nil
}

// orderedObject marshals members in insertion order.
type orderedObject []member

type member struct {
	key   string
	value any
}

func (o orderedObject) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(m.key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(m.value)
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(value)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

const maxImportDepth = 8

func definitionFrom(schema *openapi3.Schema, depth int) orderedObject {
	typ := schemaType(schema)
	out := orderedObject{{"type", typ}}
	if schema.Title != "" {
		out = append(out, member{"title", schema.Title})
	}
	if schema.Description != "" {
		out = append(out, member{"description", schema.Description})
	}
	if schema.Default != nil {
		out = append(out, member{"default", schema.Default})
	}

	switch typ {
	case openapi3.TypeString:
		if schema.MinLength > 0 {
			out = append(out, member{"minLength", schema.MinLength})
		}
		if schema.MaxLength != nil {
			out = append(out, member{"maxLength", *schema.MaxLength})
		}
		if schema.Pattern != "" {
			out = append(out, member{"pattern", schema.Pattern})
		}
		if format := fieldspec.Format(schema.Format); format != fieldspec.FormatNone && format.Valid() {
			out = append(out, member{"format", schema.Format})
		}
		if len(schema.Enum) > 0 {
			out = append(out, member{"enum", schema.Enum})
			if names, ok := stringList(schema.Extensions[ExtEnumNames]); ok && len(names) == len(schema.Enum) {
				out = append(out, member{"enumNames", names})
			}
		}
	case openapi3.TypeNumber, openapi3.TypeInteger:
		if schema.Min != nil {
			out = append(out, member{"minimum", *schema.Min})
		}
		if schema.Max != nil {
			out = append(out, member{"maximum", *schema.Max})
		}
	case openapi3.TypeArray:
		if schema.UniqueItems {
			out = append(out, member{"uniqueItems", true})
		}
		if schema.Items != nil && schema.Items.Value != nil && depth < maxImportDepth {
			out = append(out, member{"items", definitionFrom(schema.Items.Value, depth+1)})
		}
	case openapi3.TypeObject:
		props := orderedObject{}
		if depth < maxImportDepth {
			for _, name := range propertyOrder(schema) {
				ref := schema.Properties[name]
				if ref == nil || ref.Value == nil {
					continue
				}
				props = append(props, member{name, definitionFrom(ref.Value, depth+1)})
			}
		}
		out = append(out, member{"properties", props})
		if len(schema.Required) > 0 {
			out = append(out, member{"required", schema.Required})
		}
	}
	return out
}

func schemaType(schema *openapi3.Schema) string {
	if schema.Type != nil {
		for _, typ := range schema.Type.Slice() {
			if typ != openapi3.TypeNull {
				return typ
			}
		}
	}
	if len(schema.Properties) > 0 {
		return openapi3.TypeObject
	}
	if schema.Items != nil {
		return openapi3.TypeArray
	}
	return openapi3.TypeString
}

// propertyOrder honours x-property-order and appends any remaining
// properties alphabetically.
func propertyOrder(schema *openapi3.Schema) []string {
	seen := make(map[string]struct{}, len(schema.Properties))
	var order []string
	if declared, ok := stringList(schema.Extensions[ExtPropertyOrder]); ok {
		for _, name := range declared {
			if _, exists := schema.Properties[name]; !exists {
				continue
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			order = append(order, name)
		}
	}
	var rest []string
	for name := range schema.Properties {
		if _, ok := seen[name]; !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

func stringList(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
