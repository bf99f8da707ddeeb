package fieldspec

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidDefinition is matched by every *DefinitionError.
var ErrInvalidDefinition = errors.New("fieldspec: invalid definition")

// Issue codes reported inside a DefinitionError.
const (
	IssueSyntax            = "syntax"
	IssueShape             = "shape"
	IssueUnsupportedType   = "unsupported_type"
	IssueUnknownKeyword    = "unknown_keyword"
	IssueDuplicateProperty = "duplicate_property"
	IssueInvalidName       = "invalid_name"
	IssueMissingItems      = "missing_items"
	IssueUnknownRequired   = "unknown_required"
	IssueInvalidBounds     = "invalid_bounds"
	IssueInvalidPattern    = "invalid_pattern"
	IssueInvalidFormat     = "invalid_format"
	IssueInvalidEnum       = "invalid_enum"
	IssueTooDeep           = "too_deep"
)

// Issue is a single structural problem attributed to a dotted field path.
// Array element shapes use the ".items" segment; the root path is empty.
// Pointer locates the same node in the definition document, for example
// "#/properties/contacts/items/properties/name".
type Issue struct {
	Path    string `json:"path"`
	Pointer string `json:"pointer,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DefinitionError reports a structurally malformed definition.
type DefinitionError struct {
	Issues []Issue
}

func (e *DefinitionError) Error() string {
	if e == nil || len(e.Issues) == 0 {
		return ErrInvalidDefinition.Error()
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		path := issue.Path
		if path == "" {
			path = "definition"
		}
		parts = append(parts, path+": "+issue.Message)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidDefinition.Error(), strings.Join(parts, "; "))
}

// Is lets errors.Is match ErrInvalidDefinition.
func (e *DefinitionError) Is(target error) bool {
	return target == ErrInvalidDefinition
}

// Fields groups issue messages by path. The first message for a path wins so
// editors can highlight one problem per control.
func (e *DefinitionError) Fields() map[string]string {
	if e == nil || len(e.Issues) == 0 {
		return nil
	}
	out := make(map[string]string, len(e.Issues))
	for _, issue := range e.Issues {
		if _, exists := out[issue.Path]; exists {
			continue
		}
		out[issue.Path] = issue.Message
	}
	return out
}

type collector struct {
	issues []Issue
	// elements holds the dotted paths of array element specs so a property
	// that happens to be named "items" still points into "properties".
	elements map[string]struct{}
}

func (c *collector) add(path, code, format string, args ...any) {
	c.issues = append(c.issues, Issue{Path: path, Code: code, Message: fmt.Sprintf(format, args...)})
}

// element returns the path of the element spec of the array at path.
func (c *collector) element(path string) string {
	out := joinPath(path, "items")
	if c.elements == nil {
		c.elements = map[string]struct{}{}
	}
	c.elements[out] = struct{}{}
	return out
}

func (c *collector) pointer(path string) string {
	if path == "" {
		return "#"
	}
	var b strings.Builder
	b.WriteString("#")
	prefix := ""
	for _, segment := range strings.Split(path, ".") {
		prefix = joinPath(prefix, segment)
		if _, ok := c.elements[prefix]; ok {
			b.WriteString("/items")
			continue
		}
		b.WriteString("/properties/")
		b.WriteString(pointerEscaper.Replace(segment))
	}
	return b.String()
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func (c *collector) err() error {
	if len(c.issues) == 0 {
		return nil
	}
	issues := append([]Issue(nil), c.issues...)
	for i := range issues {
		if issues[i].Pointer == "" {
			issues[i].Pointer = c.pointer(issues[i].Path)
		}
	}
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Path < issues[j].Path
	})
	return &DefinitionError{Issues: issues}
}

func joinPath(base, segment string) string {
	if base == "" {
		return segment
	}
	return base + "." + segment
}
