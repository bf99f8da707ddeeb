package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goliatone/go-customfields/pkg/fieldspec"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const dateLayout = "2006-01-02"

// Validator checks candidate values against one definition. It holds no
// mutable state after Build and is safe for concurrent use.
type Validator struct {
	def      *fieldspec.ObjectSpec
	patterns map[*fieldspec.StringSpec]*regexp.Regexp
}

// Build compiles def into a Validator. Malformed definitions fail with a
// *fieldspec.DefinitionError and no validator is produced.
func Build(def *fieldspec.ObjectSpec) (*Validator, error) {
	if err := fieldspec.Check(def); err != nil {
		return nil, err
	}
	owned := fieldspec.Clone(def)
	v := &Validator{def: owned, patterns: make(map[*fieldspec.StringSpec]*regexp.Regexp)}
	var compileErr error
	fieldspec.Walk(owned, func(path string, spec fieldspec.FieldSpec, _ bool) bool {
		str, ok := spec.(*fieldspec.StringSpec)
		if !ok || str.Pattern == "" {
			return true
		}
		re, err := regexp.Compile(str.Pattern)
		if err != nil && compileErr == nil {
			compileErr = fmt.Errorf("validation: compile pattern at %s: %w", path, err)
		}
		v.patterns[str] = re
		return true
	})
	if compileErr != nil {
		return nil, compileErr
	}
	return v, nil
}

// MustBuild panics when Build fails. Useful for tests.
func MustBuild(def *fieldspec.ObjectSpec) *Validator {
	v, err := Build(def)
	if err != nil {
		panic(err)
	}
	return v
}

// Definition returns the validator's private copy of the definition.
func (v *Validator) Definition() *fieldspec.ObjectSpec {
	return v.def
}

// Check validates candidate, collecting every failure in a single pass. A nil
// candidate is treated as an empty object.
func (v *Validator) Check(candidate any) Result {
	run := &checkRun{v: v, errors: make(map[string]string)}
	if candidate == nil {
		candidate = map[string]any{}
	}
	run.object(v.def, candidate, "")
	return run.result()
}

// CheckField validates candidate and keeps only failures at path or below it.
func (v *Validator) CheckField(candidate any, path string) Result {
	full := v.Check(candidate)
	path = strings.TrimSpace(path)
	if full.OK || path == "" {
		return full
	}
	scoped := make(map[string]string)
	for key, msg := range full.FieldErrors {
		if key == path || strings.HasPrefix(key, path+".") {
			scoped[key] = msg
		}
	}
	return newResult(scoped)
}

type checkRun struct {
	v      *Validator
	errors map[string]string
}

func (r *checkRun) fail(path, format string, args ...any) {
	if _, exists := r.errors[path]; exists {
		return
	}
	r.errors[path] = fmt.Sprintf(format, args...)
}

func (r *checkRun) result() Result {
	return newResult(r.errors)
}

func (r *checkRun) value(spec fieldspec.FieldSpec, value any, path string) {
	switch typed := spec.(type) {
	case *fieldspec.StringSpec:
		r.str(typed, value, path)
	case *fieldspec.NumberSpec:
		r.number(typed, value, path)
	case *fieldspec.BooleanSpec:
		if _, ok := value.(bool); !ok {
			r.fail(path, "must be a boolean")
		}
	case *fieldspec.ArraySpec:
		r.array(typed, value, path)
	case *fieldspec.ObjectSpec:
		r.object(typed, value, path)
	case *fieldspec.UnknownSpec:
		r.fail(path, "unsupported field type %q", typed.Type)
	default:
		r.fail(path, "unsupported field")
	}
}

func (r *checkRun) object(spec *fieldspec.ObjectSpec, value any, path string) {
	obj, ok := value.(map[string]any)
	if !ok {
		r.fail(path, "must be an object")
		return
	}
	for _, prop := range spec.Properties {
		childPath := joinPath(path, prop.Name)
		child, present := obj[prop.Name]
		if !present || child == nil {
			if spec.IsRequired(prop.Name) {
				r.fail(childPath, "is required")
			}
			continue
		}
		r.value(prop.Spec, child, childPath)
	}
}

func (r *checkRun) array(spec *fieldspec.ArraySpec, value any, path string) {
	list, ok := value.([]any)
	if !ok {
		rv := reflect.ValueOf(value)
		if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
			r.fail(path, "must be an array")
			return
		}
		list = make([]any, rv.Len())
		for i := range list {
			list[i] = rv.Index(i).Interface()
		}
	}
	for idx, item := range list {
		r.value(spec.Items, item, joinPath(path, strconv.Itoa(idx)))
	}
	if !spec.UniqueItems {
		return
	}
	normalized := make([]any, len(list))
	for i, item := range list {
		normalized[i] = normalize(item)
	}
	for i := 1; i < len(normalized); i++ {
		for j := 0; j < i; j++ {
			if reflect.DeepEqual(normalized[i], normalized[j]) {
				r.fail(path, "items must be unique (item %d duplicates item %d)", i, j)
				return
			}
		}
	}
}

func (r *checkRun) str(spec *fieldspec.StringSpec, value any, path string) {
	text, ok := value.(string)
	if !ok {
		r.fail(path, "must be a string")
		return
	}
	length := utf8.RuneCountInString(text)
	if spec.MinLength != nil && length < *spec.MinLength {
		r.fail(path, "must be at least %d characters", *spec.MinLength)
		return
	}
	if spec.MaxLength != nil && length > *spec.MaxLength {
		r.fail(path, "must be at most %d characters", *spec.MaxLength)
		return
	}
	if len(spec.Enum) > 0 {
		for _, opt := range spec.Enum {
			if opt.Value == text {
				return
			}
		}
		r.fail(path, "must be one of: %s", strings.Join(spec.EnumValues(), ", "))
		return
	}
	if re := r.v.patterns[spec]; re != nil && !re.MatchString(text) {
		r.fail(path, "must match pattern %s", spec.Pattern)
		return
	}
	switch spec.Format {
	case fieldspec.FormatEmail:
		if !emailPattern.MatchString(text) {
			r.fail(path, "must be a valid email address")
		}
	case fieldspec.FormatDate:
		if _, err := time.Parse(dateLayout, text); err != nil {
			r.fail(path, "must be a date formatted as YYYY-MM-DD")
		}
	case fieldspec.FormatTel, fieldspec.FormatFree, fieldspec.FormatNone:
	}
}

func (r *checkRun) number(spec *fieldspec.NumberSpec, value any, path string) {
	number, ok := toFloat(value)
	if !ok {
		r.fail(path, "must be a number")
		return
	}
	if spec.Integer && number != math.Trunc(number) {
		r.fail(path, "must be an integer")
		return
	}
	if spec.Minimum != nil && number < *spec.Minimum {
		r.fail(path, "must be greater than or equal to %s", formatNumber(*spec.Minimum))
		return
	}
	if spec.Maximum != nil && number > *spec.Maximum {
		r.fail(path, "must be less than or equal to %s", formatNumber(*spec.Maximum))
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, !math.IsNaN(v) && !math.IsInf(v, 0)
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// normalize folds numeric variants onto float64 so deep equality treats 1
// and 1.0 as the same element.
func normalize(value any) any {
	if number, ok := toFloat(value); ok {
		return number
	}
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = normalize(item)
		}
		return out
	default:
		return value
	}
}

func joinPath(base, segment string) string {
	if base == "" {
		return segment
	}
	return base + "." + segment
}
