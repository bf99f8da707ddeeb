package model

import internalmodel "github.com/goliatone/go-customfields/internal/model"

// Descriptor re-exports the internal descriptor type.
type Descriptor = internalmodel.Descriptor

// ValidationRule re-exports the internal constraint echo.
type ValidationRule = internalmodel.ValidationRule

// Option re-exports the internal enum option.
type Option = internalmodel.Option

const (
	ValidationRuleMin         = internalmodel.ValidationRuleMin
	ValidationRuleMax         = internalmodel.ValidationRuleMax
	ValidationRuleMinLength   = internalmodel.ValidationRuleMinLength
	ValidationRuleMaxLength   = internalmodel.ValidationRuleMaxLength
	ValidationRulePattern     = internalmodel.ValidationRulePattern
	ValidationRuleUniqueItems = internalmodel.ValidationRuleUniqueItems
)

// Errors collects descriptor-level errors keyed by path.
func Errors(fields []Descriptor) map[string]string {
	return internalmodel.Errors(fields)
}

// Find returns the descriptor at path. Numeric array indices resolve to the
// element descriptor.
func Find(fields []Descriptor, path string) (Descriptor, bool) {
	return internalmodel.Find(fields, path)
}

// Clone returns a deep copy of fields.
func Clone(fields []Descriptor) []Descriptor {
	return internalmodel.CloneAll(fields)
}

// HumanLabel converts a property name such as "startDate" into "Start Date".
func HumanLabel(name string) string {
	return internalmodel.DefaultLabeler(name)
}
