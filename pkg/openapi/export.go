package openapi

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-customfields/pkg/fieldspec"
	"github.com/goliatone/go-customfields/pkg/registry"
)

// Extension keys written on exported schemas.
const (
	ExtPropertyOrder = "x-property-order"
	ExtEnumNames     = "x-enumNames"
	ExtSchemaID      = "x-schema-id"
	ExtSchemaVersion = "x-schema-version"
	ExtEntityType    = "x-entity-type"
)

// SchemaFor converts def into an OpenAPI schema.
func SchemaFor(def *fieldspec.ObjectSpec) *openapi3.Schema {
	if def == nil {
		return openapi3.NewObjectSchema()
	}
	return convert(def)
}

func convert(spec fieldspec.FieldSpec) *openapi3.Schema {
	out := &openapi3.Schema{}
	meta := spec.Meta()
	out.Title = meta.Title
	out.Description = meta.Description
	out.Default = meta.Default

	switch typed := spec.(type) {
	case *fieldspec.StringSpec:
		out.Type = &openapi3.Types{openapi3.TypeString}
		out.Format = string(typed.Format)
		out.Pattern = typed.Pattern
		if typed.MinLength != nil {
			out.MinLength = uint64(*typed.MinLength)
		}
		if typed.MaxLength != nil {
			maxLen := uint64(*typed.MaxLength)
			out.MaxLength = &maxLen
		}
		if len(typed.Enum) > 0 {
			labels := make([]string, len(typed.Enum))
			labelled := false
			for i, opt := range typed.Enum {
				out.Enum = append(out.Enum, opt.Value)
				labels[i] = opt.DisplayLabel()
				labelled = labelled || opt.Label != ""
			}
			if labelled {
				setExtension(out, ExtEnumNames, labels)
			}
		}
	case *fieldspec.NumberSpec:
		if typed.Integer {
			out.Type = &openapi3.Types{openapi3.TypeInteger}
		} else {
			out.Type = &openapi3.Types{openapi3.TypeNumber}
		}
		out.Min = copyFloat(typed.Minimum)
		out.Max = copyFloat(typed.Maximum)
	case *fieldspec.BooleanSpec:
		out.Type = &openapi3.Types{openapi3.TypeBoolean}
	case *fieldspec.ArraySpec:
		out.Type = &openapi3.Types{openapi3.TypeArray}
		out.UniqueItems = typed.UniqueItems
		if typed.Items != nil {
			out.Items = openapi3.NewSchemaRef("", convert(typed.Items))
		}
	case *fieldspec.ObjectSpec:
		out.Type = &openapi3.Types{openapi3.TypeObject}
		out.Properties = make(openapi3.Schemas, len(typed.Properties))
		order := make([]string, 0, len(typed.Properties))
		for _, prop := range typed.Properties {
			out.Properties[prop.Name] = openapi3.NewSchemaRef("", convert(prop.Spec))
			order = append(order, prop.Name)
		}
		if len(typed.Required) > 0 {
			out.Required = append([]string(nil), typed.Required...)
		}
		setExtension(out, ExtPropertyOrder, order)
	}
	return out
}

var componentUnsafe = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// ComponentName derives a stable component key such as "Employee_Skills_v2".
func ComponentName(schema registry.Schema) string {
	name := strings.Trim(componentUnsafe.ReplaceAllString(strings.TrimSpace(schema.Name), "_"), "_")
	if name == "" {
		name = schema.ID
	}
	return fmt.Sprintf("%s_%s_v%d", schema.EntityType, name, schema.Version)
}

// Component converts a stored schema, tagging it with its id, version and
// entity type.
func Component(schema registry.Schema) *openapi3.Schema {
	out := SchemaFor(schema.Definition)
	if out.Title == "" {
		out.Title = schema.Name
	}
	setExtension(out, ExtSchemaID, schema.ID)
	setExtension(out, ExtSchemaVersion, schema.Version)
	setExtension(out, ExtEntityType, string(schema.EntityType))
	return out
}

// Document wraps schemas as components of an otherwise empty OpenAPI 3
// document.
func Document(title, version string, schemas ...registry.Schema) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info:    &openapi3.Info{Title: title, Version: version},
		Paths:   openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: make(openapi3.Schemas, len(schemas)),
		},
	}
	for _, schema := range schemas {
		doc.Components.Schemas[ComponentName(schema)] = openapi3.NewSchemaRef("", Component(schema))
	}
	return doc
}

// Marshal encodes doc as indented JSON.
func Marshal(doc *openapi3.T) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("openapi: marshal document: %w", err)
	}
	return data, nil
}

func setExtension(schema *openapi3.Schema, key string, value any) {
	if schema.Extensions == nil {
		schema.Extensions = make(map[string]any)
	}
	schema.Extensions[key] = value
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
