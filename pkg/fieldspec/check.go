package fieldspec

import (
	"regexp"
	"strings"
)

// Check verifies the structural rules of a definition built in code or
// decoded by Parse. It returns a *DefinitionError listing every problem, or
// nil when the definition is usable.
func Check(def *ObjectSpec) error {
	var issues collector
	if def == nil {
		issues.add("", IssueShape, "definition is required")
		return issues.err()
	}
	checkObject(def, "", 0, &issues)
	return issues.err()
}

func checkSpec(spec FieldSpec, path string, depth int, issues *collector) {
	switch typed := spec.(type) {
	case nil:
		issues.add(path, IssueShape, "field spec is missing")
	case *StringSpec:
		checkString(typed, path, issues)
	case *NumberSpec:
		if typed.Minimum != nil && typed.Maximum != nil && *typed.Minimum > *typed.Maximum {
			issues.add(path, IssueInvalidBounds, "minimum %v is greater than maximum %v", *typed.Minimum, *typed.Maximum)
		}
	case *BooleanSpec:
	case *ArraySpec:
		if depth > MaxNestingDepth {
			issues.add(path, IssueTooDeep, "nesting is limited to %d levels", MaxNestingDepth)
			return
		}
		if typed.Items == nil {
			issues.add(path, IssueMissingItems, "array field requires items")
			return
		}
		checkSpec(typed.Items, issues.element(path), depth+1, issues)
	case *ObjectSpec:
		if depth > MaxNestingDepth {
			issues.add(path, IssueTooDeep, "nesting is limited to %d levels", MaxNestingDepth)
			return
		}
		checkObject(typed, path, depth, issues)
	case *UnknownSpec:
		issues.add(path, IssueUnsupportedType, "unsupported type %q", typed.Type)
	default:
		issues.add(path, IssueUnsupportedType, "unsupported field spec %T", spec)
	}
}

func checkObject(obj *ObjectSpec, path string, depth int, issues *collector) {
	seen := make(map[string]struct{}, len(obj.Properties))
	for _, prop := range obj.Properties {
		childPath := joinPath(path, prop.Name)
		switch {
		case strings.TrimSpace(prop.Name) == "":
			issues.add(path, IssueInvalidName, "property name must not be empty")
			continue
		case strings.ContainsAny(prop.Name, ".[]"):
			issues.add(childPath, IssueInvalidName, "property name %q must not contain '.', '[' or ']'", prop.Name)
		}
		if _, dup := seen[prop.Name]; dup {
			issues.add(childPath, IssueDuplicateProperty, "duplicate property %q", prop.Name)
			continue
		}
		seen[prop.Name] = struct{}{}
		checkSpec(prop.Spec, childPath, depth+1, issues)
	}
	for _, name := range obj.Required {
		if _, ok := seen[name]; !ok {
			issues.add(path, IssueUnknownRequired, "required property %q is not defined", name)
		}
	}
}

func checkString(spec *StringSpec, path string, issues *collector) {
	if spec.MinLength != nil && *spec.MinLength < 0 {
		issues.add(path, IssueInvalidBounds, "minLength must not be negative")
	}
	if spec.MaxLength != nil && *spec.MaxLength < 0 {
		issues.add(path, IssueInvalidBounds, "maxLength must not be negative")
	}
	if spec.MinLength != nil && spec.MaxLength != nil && *spec.MinLength > *spec.MaxLength {
		issues.add(path, IssueInvalidBounds, "minLength %d is greater than maxLength %d", *spec.MinLength, *spec.MaxLength)
	}
	if spec.Pattern != "" {
		if _, err := regexp.Compile(spec.Pattern); err != nil {
			issues.add(path, IssueInvalidPattern, "pattern does not compile: %v", err)
		}
	}
	if !spec.Format.Valid() {
		issues.add(path, IssueInvalidFormat, "unsupported format %q", spec.Format)
	}
	seen := make(map[string]struct{}, len(spec.Enum))
	for _, opt := range spec.Enum {
		if _, dup := seen[opt.Value]; dup {
			issues.add(path, IssueInvalidEnum, "duplicate enum value %q", opt.Value)
			continue
		}
		seen[opt.Value] = struct{}{}
	}
}
