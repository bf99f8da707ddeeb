package fieldspec

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const employeeJSON = `{
  "type": "object",
  "properties": {
    "zeta": {"type": "string", "title": "Zeta"},
    "age": {"type": "integer", "minimum": 0, "maximum": 120},
    "gender": {"type": "string", "enum": ["Male", "Female", "Unknown"], "enumNames": ["M", "F", "?"]},
    "email": {"type": "string", "format": "email"},
    "address": {
      "type": "object",
      "properties": {
        "city": {"type": "string"},
        "zip": {"type": "string", "pattern": "^[0-9]{5}$"}
      },
      "required": ["city"]
    },
    "contacts": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {"name": {"type": "string"}, "phone": {"type": "string", "format": "tel"}}
      }
    }
  },
  "required": ["age"]
}`

func propertyNames(def *ObjectSpec) []string {
	names := make([]string, 0, len(def.Properties))
	for _, prop := range def.Properties {
		names = append(names, prop.Name)
	}
	return names
}

func TestParse_PreservesDeclaredOrder(t *testing.T) {
	t.Parallel()

	def, err := Parse([]byte(employeeJSON))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []string{"zeta", "age", "gender", "email", "address", "contacts"}
	if diff := cmp.Diff(want, propertyNames(def)); diff != "" {
		t.Fatalf("property order mismatch (-want +got):\n%s", diff)
	}

	gender, ok := def.Property("gender")
	if !ok {
		t.Fatalf("expected gender property")
	}
	wantEnum := []EnumOption{{Value: "Male", Label: "M"}, {Value: "Female", Label: "F"}, {Value: "Unknown", Label: "?"}}
	if diff := cmp.Diff(wantEnum, gender.(*StringSpec).Enum); diff != "" {
		t.Fatalf("enum mismatch (-want +got):\n%s", diff)
	}

	age, _ := def.Property("age")
	number, ok := age.(*NumberSpec)
	if !ok || !number.Integer || *number.Minimum != 0 || *number.Maximum != 120 {
		t.Fatalf("unexpected age spec: %#v", age)
	}
	if !def.IsRequired("age") || def.IsRequired("zeta") {
		t.Fatalf("unexpected required set %v", def.Required)
	}
}

func TestParse_YAMLMatchesJSON(t *testing.T) {
	t.Parallel()

	yamlDoc := []byte(`
type: object
properties:
  zeta:
    type: string
    title: Zeta
  age:
    type: integer
    minimum: 0
    maximum: 120
  gender:
    type: string
    enum:
      - {value: Male, label: M}
      - {value: Female, label: F}
      - {value: Unknown, label: "?"}
  email:
    type: string
    format: email
  address:
    type: object
    properties:
      city: {type: string}
      zip: {type: string, pattern: "^[0-9]{5}$"}
    required: [city]
  contacts:
    type: array
    items:
      type: object
      properties:
        name: {type: string}
        phone: {type: string, format: tel}
required: [age]
`)
	fromYAML, err := Parse(yamlDoc)
	if err != nil {
		t.Fatalf("parse yaml: %v", err)
	}
	fromJSON := MustParse([]byte(employeeJSON))

	left, _ := json.Marshal(fromJSON)
	right, _ := json.Marshal(fromYAML)
	if diff := cmp.Diff(string(left), string(right)); diff != "" {
		t.Fatalf("yaml and json definitions differ (-json +yaml):\n%s", diff)
	}
}

func TestParse_RoundTripKeepsOrder(t *testing.T) {
	t.Parallel()

	def := MustParse([]byte(employeeJSON))
	encoded, err := json.Marshal(def)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded ObjectSpec
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	again, _ := json.Marshal(&decoded)
	if string(encoded) != string(again) {
		t.Fatalf("round trip changed encoding:\n%s\n%s", encoded, again)
	}
}

func TestParse_CollectsAllIssues(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
  "type": "object",
  "properties": {
    "name": {"type": "string", "minLength": 5, "maxLength": 2},
    "name": {"type": "string"},
    "tags": {"type": "array"},
    "mood": {"type": "color"},
    "score": {"type": "number", "pattern": "x"},
    "code": {"type": "string", "pattern": "(", "format": "uuid"}
  },
  "required": ["missing"]
}`)
	_, err := Parse(raw)
	var defErr *DefinitionError
	if !errors.As(err, &defErr) {
		t.Fatalf("expected DefinitionError, got %v", err)
	}
	if !errors.Is(err, ErrInvalidDefinition) {
		t.Fatalf("expected errors.Is to match ErrInvalidDefinition")
	}

	codes := make(map[string][]string)
	for _, issue := range defErr.Issues {
		codes[issue.Path] = append(codes[issue.Path], issue.Code)
	}
	want := map[string][]string{
		"":     {IssueUnknownRequired},
		"code": {IssueInvalidPattern, IssueInvalidFormat},
		"mood": {IssueUnsupportedType},
		"name": {IssueInvalidBounds, IssueDuplicateProperty},
		"score": {IssueUnknownKeyword},
		"tags":  {IssueMissingItems},
	}
	if diff := cmp.Diff(want, codes); diff != "" {
		t.Fatalf("issue codes mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_UnknownTypesAllowedWhenRequested(t *testing.T) {
	t.Parallel()

	raw := []byte(`{"type":"object","properties":{"mood":{"type":"color"},"name":{"type":"string"}}}`)
	def, err := Parse(raw, WithUnknownTypes())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	mood, _ := def.Property("mood")
	if unknown, ok := mood.(*UnknownSpec); !ok || unknown.Type != "color" {
		t.Fatalf("expected UnknownSpec for mood, got %#v", mood)
	}
	if err := Check(def); !errors.Is(err, ErrInvalidDefinition) {
		t.Fatalf("expected Check to reject unknown type, got %v", err)
	}
}

func TestParse_RejectsDeepNesting(t *testing.T) {
	t.Parallel()

	raw := []byte(`{"type":"object","properties":{
  "a":{"type":"object","properties":{
    "b":{"type":"object","properties":{
      "c":{"type":"object","properties":{"d":{"type":"string"}}}}}}}}}`)
	_, err := Parse(raw)
	var defErr *DefinitionError
	if !errors.As(err, &defErr) {
		t.Fatalf("expected DefinitionError, got %v", err)
	}
	if len(defErr.Issues) != 1 || defErr.Issues[0].Code != IssueTooDeep || defErr.Issues[0].Path != "a.b.c" {
		t.Fatalf("unexpected issues %#v", defErr.Issues)
	}
}

func TestParse_RejectsNonObjectRoot(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{`[]`, `{"type":"string"}`, ``, `{"type":"object"`} {
		if _, err := Parse([]byte(raw)); !errors.Is(err, ErrInvalidDefinition) {
			t.Fatalf("expected definition error for %q, got %v", raw, err)
		}
	}
}

func TestLookupAndClone(t *testing.T) {
	t.Parallel()

	def := MustParse([]byte(employeeJSON))
	for _, path := range []string{"address.city", "contacts.items.phone", "contacts.0.name"} {
		if _, ok := Lookup(def, path); !ok {
			t.Fatalf("expected %s to resolve", path)
		}
	}
	if _, ok := Lookup(def, "address.country"); ok {
		t.Fatalf("expected missing path to fail")
	}

	clone := Clone(def)
	clone.Properties[0].Spec.(*StringSpec).Title = "Changed"
	clone.Required = append(clone.Required, "zeta")
	if def.Properties[0].Spec.(*StringSpec).Title != "Zeta" || def.IsRequired("zeta") {
		t.Fatalf("clone shares state with source")
	}
}

func TestSameShape(t *testing.T) {
	t.Parallel()

	spec := func(raw string) FieldSpec {
		def := MustParse([]byte(`{"type":"object","properties":{"f":` + raw + `}}`))
		field, _ := def.Property("f")
		return field
	}
	contacts := `{"type":"array","items":{"type":"object","properties":{"phone":{"type":"string"}}}}`

	cases := []struct {
		name string
		a, b string
		want bool
	}{
		{"same scalar", `{"type":"string"}`, `{"type":"string","maxLength":3}`, true},
		{"integer is not number", `{"type":"integer"}`, `{"type":"number"}`, false},
		{"objects compare by kind", `{"type":"object","properties":{"a":{"type":"string"}}}`, `{"type":"object","properties":{"a":{"type":"integer"}}}`, true},
		{"identical object items", contacts, contacts, true},
		{"nested item type changed", contacts, `{"type":"array","items":{"type":"object","properties":{"phone":{"type":"integer"}}}}`, false},
		{"item property added", contacts, `{"type":"array","items":{"type":"object","properties":{"phone":{"type":"string"},"name":{"type":"string"}}}}`, false},
		{"nested arrays", `{"type":"array","items":{"type":"array","items":{"type":"string"}}}`, `{"type":"array","items":{"type":"array","items":{"type":"boolean"}}}`, false},
	}
	for _, tc := range cases {
		if got := SameShape(spec(tc.a), spec(tc.b)); got != tc.want {
			t.Errorf("%s: SameShape = %v, want %v", tc.name, got, tc.want)
		}
	}
}
