package testsupport

import (
	"math"
	"regexp/syntax"
	"strconv"
	"strings"

	"github.com/goliatone/go-customfields/pkg/fieldspec"
)

// ValidSample builds a value that satisfies def exactly. Every optional
// property is populated and arrays carry one element so nested rules are
// exercised too.
func ValidSample(def *fieldspec.ObjectSpec) map[string]any {
	out, _ := sampleFor(def).(map[string]any)
	return out
}

func sampleFor(spec fieldspec.FieldSpec) any {
	switch typed := spec.(type) {
	case *fieldspec.StringSpec:
		return sampleString(typed)
	case *fieldspec.NumberSpec:
		return sampleNumber(typed)
	case *fieldspec.BooleanSpec:
		return true
	case *fieldspec.ArraySpec:
		return []any{sampleFor(typed.Items)}
	case *fieldspec.ObjectSpec:
		out := make(map[string]any, len(typed.Properties))
		for _, prop := range typed.Properties {
			out[prop.Name] = sampleFor(prop.Spec)
		}
		return out
	default:
		return nil
	}
}

func sampleString(spec *fieldspec.StringSpec) string {
	if len(spec.Enum) > 0 {
		return spec.Enum[0].Value
	}
	if spec.Pattern != "" {
		if re, err := syntax.Parse(spec.Pattern, syntax.Perl); err == nil {
			var b strings.Builder
			writeRegexpSample(&b, re.Simplify())
			return b.String()
		}
	}
	switch spec.Format {
	case fieldspec.FormatEmail:
		return "jane.doe@example.com"
	case fieldspec.FormatDate:
		return "2024-02-29"
	case fieldspec.FormatTel:
		return "+1 555 0100"
	}
	n := 6
	if spec.MinLength != nil && *spec.MinLength > n {
		n = *spec.MinLength
	}
	if spec.MaxLength != nil && *spec.MaxLength < n {
		n = *spec.MaxLength
	}
	return strings.Repeat("a", n)
}

func writeRegexpSample(b *strings.Builder, re *syntax.Regexp) {
	switch re.Op {
	case syntax.OpLiteral:
		for _, r := range re.Rune {
			b.WriteRune(r)
		}
	case syntax.OpCharClass:
		if len(re.Rune) > 0 {
			b.WriteRune(re.Rune[0])
		}
	case syntax.OpAnyChar, syntax.OpAnyCharNotNL:
		b.WriteByte('a')
	case syntax.OpCapture:
		for _, sub := range re.Sub {
			writeRegexpSample(b, sub)
		}
	case syntax.OpConcat:
		for _, sub := range re.Sub {
			writeRegexpSample(b, sub)
		}
	case syntax.OpAlternate:
		if len(re.Sub) > 0 {
			writeRegexpSample(b, re.Sub[0])
		}
	case syntax.OpPlus:
		writeRegexpSample(b, re.Sub[0])
	case syntax.OpRepeat:
		for i := 0; i < re.Min; i++ {
			writeRegexpSample(b, re.Sub[0])
		}
	}
}

func sampleNumber(spec *fieldspec.NumberSpec) float64 {
	value := 1.0
	switch {
	case spec.Minimum != nil:
		value = *spec.Minimum
	case spec.Maximum != nil && *spec.Maximum < value:
		value = *spec.Maximum
	}
	if spec.Integer {
		value = math.Ceil(value)
	}
	return value
}

// RequiredPaths lists the dotted paths of every required property present in
// ValidSample(def). Array elements use index 0.
func RequiredPaths(def *fieldspec.ObjectSpec) []string {
	var out []string
	collectRequired(def, "", &out)
	return out
}

func collectRequired(spec fieldspec.FieldSpec, path string, out *[]string) {
	switch typed := spec.(type) {
	case *fieldspec.ObjectSpec:
		for _, prop := range typed.Properties {
			child := joinPath(path, prop.Name)
			if typed.IsRequired(prop.Name) {
				*out = append(*out, child)
			}
			collectRequired(prop.Spec, child, out)
		}
	case *fieldspec.ArraySpec:
		collectRequired(typed.Items, joinPath(path, "0"), out)
	}
}

// WithoutPath returns a deep copy of value with the dotted path removed.
func WithoutPath(value map[string]any, path string) map[string]any {
	copied, _ := deepCopy(value).(map[string]any)
	segments := strings.Split(path, ".")
	var current any = copied
	for i, segment := range segments {
		last := i == len(segments)-1
		switch node := current.(type) {
		case map[string]any:
			if last {
				delete(node, segment)
				return copied
			}
			current = node[segment]
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx >= len(node) {
				return copied
			}
			current = node[idx]
		default:
			return copied
		}
	}
	return copied
}

func deepCopy(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = deepCopy(item)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = deepCopy(item)
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
