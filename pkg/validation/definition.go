package validation

import (
	"errors"
	"strings"

	"github.com/goliatone/go-customfields/pkg/fieldspec"
)

// SchemaIssue represents a definition problem with both pointer and dotted
// field locations.
type SchemaIssue struct {
	Path    string `json:"path,omitempty"`
	Field   string `json:"field,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// SchemaValidationResult captures authoring-time validation outcomes for
// definition editors.
type SchemaValidationResult struct {
	Valid  bool          `json:"valid"`
	Issues []SchemaIssue `json:"issues,omitempty"`
}

// ValidateDefinition checks a raw JSON or YAML definition without building a
// validator.
func ValidateDefinition(raw []byte) SchemaValidationResult {
	_, err := fieldspec.Parse(raw)
	return resultFromError(err)
}

// ValidateSpec checks a definition assembled in code.
func ValidateSpec(def *fieldspec.ObjectSpec) SchemaValidationResult {
	return resultFromError(fieldspec.Check(def))
}

func resultFromError(err error) SchemaValidationResult {
	if err == nil {
		return SchemaValidationResult{Valid: true}
	}
	var defErr *fieldspec.DefinitionError
	if !errors.As(err, &defErr) {
		return SchemaValidationResult{Issues: []SchemaIssue{{Message: strings.TrimSpace(err.Error())}}}
	}
	result := SchemaValidationResult{Issues: make([]SchemaIssue, 0, len(defErr.Issues))}
	for _, issue := range defErr.Issues {
		result.Issues = append(result.Issues, SchemaIssue{
			Path:    issue.Pointer,
			Field:   issue.Path,
			Code:    issue.Code,
			Message: issue.Message,
		})
	}
	return result
}

