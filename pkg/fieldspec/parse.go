package fieldspec

import (
	"fmt"
	"math"
	"strings"
)

var commonKeywords = map[string]struct{}{
	"$schema":     {},
	"type":        {},
	"title":       {},
	"description": {},
	"default":     {},
}

var kindKeywords = map[Kind]map[string]struct{}{
	KindString: {
		"minLength": {},
		"maxLength": {},
		"pattern":   {},
		"format":    {},
		"enum":      {},
		"enumNames": {},
	},
	KindNumber:  {"minimum": {}, "maximum": {}},
	KindInteger: {"minimum": {}, "maximum": {}},
	KindBoolean: {},
	KindArray:   {"items": {}, "uniqueItems": {}},
	KindObject:  {"properties": {}, "required": {}},
}

// ParseOption customises Parse.
type ParseOption func(*parseOptions)

type parseOptions struct {
	allowUnknownTypes bool
}

// WithUnknownTypes keeps fields with an unsupported type as *UnknownSpec
// nodes instead of failing. Descriptor builders use this to render the rest
// of a stored form; validators still refuse such definitions.
func WithUnknownTypes() ParseOption {
	return func(opts *parseOptions) {
		opts.allowUnknownTypes = true
	}
}

// Parse decodes a JSON or YAML definition. Property order follows the
// document. All structural problems are returned together as a
// *DefinitionError.
func Parse(data []byte, options ...ParseOption) (*ObjectSpec, error) {
	cfg := parseOptions{}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	root, err := decodeTree(data)
	if err != nil {
		return nil, &DefinitionError{Issues: []Issue{{Pointer: "#", Code: IssueSyntax, Message: err.Error()}}}
	}

	var issues collector
	if root.kind != treeMap {
		issues.add("", IssueShape, "definition must be an object")
		return nil, issues.err()
	}
	if typ, ok := root.lookup("type"); ok {
		if name, _ := typ.scalar.(string); name != string(KindObject) {
			issues.add("", IssueShape, "definition root must have type %q", KindObject)
			return nil, issues.err()
		}
	}

	def, _ := convertNode(root, "", &issues).(*ObjectSpec)
	if def == nil {
		return nil, issues.err()
	}

	if err := Check(def); err != nil {
		if derr, ok := err.(*DefinitionError); ok {
			for _, issue := range derr.Issues {
				if cfg.allowUnknownTypes && issue.Code == IssueUnsupportedType {
					continue
				}
				issues.issues = append(issues.issues, issue)
			}
		}
	}
	if err := issues.err(); err != nil {
		return nil, err
	}
	return def, nil
}

// MustParse panics if the definition cannot be parsed. Useful for tests and
// embedded fixtures.
func MustParse(data []byte) *ObjectSpec {
	def, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return def
}

func convertNode(node *tree, path string, issues *collector) FieldSpec {
	if node == nil || node.kind != treeMap {
		issues.add(path, IssueShape, "field spec must be an object")
		return nil
	}

	typeName := strings.TrimSpace(readString(node, "type", path, issues))
	if typeName == "" {
		if _, ok := node.lookup("properties"); ok {
			typeName = string(KindObject)
		} else {
			issues.add(path, IssueShape, "type is required")
			return nil
		}
	}

	common := Common{
		Title:       strings.TrimSpace(readString(node, "title", path, issues)),
		Description: strings.TrimSpace(readString(node, "description", path, issues)),
	}
	if value, ok := node.lookup("default"); ok {
		common.Default = value.plain()
	}

	kind := Kind(typeName)
	allowed, known := kindKeywords[kind]
	if !known {
		return &UnknownSpec{Common: common, Type: typeName}
	}

	for i, key := range node.keys {
		if strings.HasPrefix(strings.ToLower(key), "x-") {
			if common.Extensions == nil {
				common.Extensions = make(map[string]any)
			}
			common.Extensions[key] = node.values[i].plain()
			continue
		}
		if _, ok := commonKeywords[key]; ok {
			continue
		}
		if _, ok := allowed[key]; ok {
			continue
		}
		if isKnownKeyword(key) {
			issues.add(path, IssueUnknownKeyword, "keyword %q does not apply to %s fields", key, kind)
			continue
		}
		issues.add(path, IssueUnknownKeyword, "unsupported keyword %q", key)
	}

	switch kind {
	case KindString:
		return convertString(node, path, common, issues)
	case KindNumber, KindInteger:
		return &NumberSpec{
			Common:  common,
			Integer: kind == KindInteger,
			Minimum: readFloat(node, "minimum", path, issues),
			Maximum: readFloat(node, "maximum", path, issues),
		}
	case KindBoolean:
		return &BooleanSpec{Common: common}
	case KindArray:
		out := &ArraySpec{Common: common, UniqueItems: readBool(node, "uniqueItems", path, issues)}
		if items, ok := node.lookup("items"); ok {
			if items.kind == treeList {
				issues.add(issues.element(path), IssueShape, "tuple items are not supported")
			} else {
				out.Items = convertNode(items, issues.element(path), issues)
			}
		}
		return out
	case KindObject:
		return convertObject(node, path, common, issues)
	}
	return &UnknownSpec{Common: common, Type: typeName}
}

func convertString(node *tree, path string, common Common, issues *collector) *StringSpec {
	out := &StringSpec{
		Common:    common,
		MinLength: readInt(node, "minLength", path, issues),
		MaxLength: readInt(node, "maxLength", path, issues),
		Pattern:   readString(node, "pattern", path, issues),
		Format:    Format(strings.TrimSpace(readString(node, "format", path, issues))),
	}

	enumNode, ok := node.lookup("enum")
	if !ok {
		return out
	}
	if enumNode.kind != treeList {
		issues.add(path, IssueInvalidEnum, "enum must be an array")
		return out
	}
	out.Enum = make([]EnumOption, 0, len(enumNode.values))
	for idx, item := range enumNode.values {
		switch item.kind {
		case treeScalar:
			value, ok := item.scalar.(string)
			if !ok {
				issues.add(path, IssueInvalidEnum, "enum[%d] must be a string", idx)
				continue
			}
			out.Enum = append(out.Enum, EnumOption{Value: value})
		case treeMap:
			valueNode, ok := item.lookup("value")
			value, isString := "", false
			if ok {
				value, isString = valueNode.scalar.(string)
			}
			if !isString {
				issues.add(path, IssueInvalidEnum, "enum[%d].value must be a string", idx)
				continue
			}
			label := ""
			if labelNode, ok := item.lookup("label"); ok {
				label, _ = labelNode.scalar.(string)
			}
			out.Enum = append(out.Enum, EnumOption{Value: value, Label: label})
		default:
			issues.add(path, IssueInvalidEnum, "enum[%d] must be a string", idx)
		}
	}

	if namesNode, ok := node.lookup("enumNames"); ok {
		if namesNode.kind != treeList || len(namesNode.values) != len(out.Enum) {
			issues.add(path, IssueInvalidEnum, "enumNames must be an array with one label per enum value")
			return out
		}
		for idx, item := range namesNode.values {
			label, ok := item.scalar.(string)
			if !ok {
				issues.add(path, IssueInvalidEnum, "enumNames[%d] must be a string", idx)
				continue
			}
			out.Enum[idx].Label = label
		}
	}
	return out
}

func convertObject(node *tree, path string, common Common, issues *collector) *ObjectSpec {
	out := &ObjectSpec{Common: common}

	if propsNode, ok := node.lookup("properties"); ok {
		if propsNode.kind != treeMap {
			issues.add(path, IssueShape, "properties must be an object")
		} else {
			out.Properties = make([]Property, 0, len(propsNode.keys))
			for i, name := range propsNode.keys {
				spec := convertNode(propsNode.values[i], joinPath(path, name), issues)
				if spec == nil {
					continue
				}
				out.Properties = append(out.Properties, Property{Name: name, Spec: spec})
			}
		}
	}

	if requiredNode, ok := node.lookup("required"); ok {
		if requiredNode.kind != treeList {
			issues.add(path, IssueShape, "required must be an array")
		} else {
			for idx, item := range requiredNode.values {
				name, ok := item.scalar.(string)
				if !ok || strings.TrimSpace(name) == "" {
					issues.add(path, IssueShape, "required[%d] must be a non-empty string", idx)
					continue
				}
				out.Required = append(out.Required, name)
			}
		}
	}
	return out
}

func isKnownKeyword(key string) bool {
	for _, keys := range kindKeywords {
		if _, ok := keys[key]; ok {
			return true
		}
	}
	return false
}

func readString(node *tree, key, path string, issues *collector) string {
	value, ok := node.lookup(key)
	if !ok || value.kind == treeNull {
		return ""
	}
	str, ok := value.scalar.(string)
	if !ok {
		issues.add(path, IssueShape, "%s must be a string", key)
		return ""
	}
	return str
}

func readBool(node *tree, key, path string, issues *collector) bool {
	value, ok := node.lookup(key)
	if !ok || value.kind == treeNull {
		return false
	}
	flag, ok := value.scalar.(bool)
	if !ok {
		issues.add(path, IssueShape, "%s must be a boolean", key)
		return false
	}
	return flag
}

func readFloat(node *tree, key, path string, issues *collector) *float64 {
	value, ok := node.lookup(key)
	if !ok || value.kind == treeNull {
		return nil
	}
	number, ok := value.scalar.(float64)
	if !ok {
		issues.add(path, IssueInvalidBounds, "%s must be a number", key)
		return nil
	}
	return &number
}

func readInt(node *tree, key, path string, issues *collector) *int {
	number := readFloat(node, key, path, issues)
	if number == nil {
		return nil
	}
	if *number != math.Trunc(*number) {
		issues.add(path, IssueInvalidBounds, "%s must be an integer", key)
		return nil
	}
	value := int(*number)
	return &value
}

// String renders a short human description used in log lines.
func String(spec FieldSpec) string {
	if spec == nil {
		return "<nil>"
	}
	if arr, ok := spec.(*ArraySpec); ok && arr.Items != nil {
		return fmt.Sprintf("array<%s>", String(arr.Items))
	}
	return string(spec.Kind())
}
