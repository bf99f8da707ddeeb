package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-customfields/pkg/fieldspec"
	"github.com/goliatone/go-customfields/pkg/testsupport"
	"github.com/goliatone/go-customfields/pkg/uischema"
	"github.com/goliatone/go-customfields/pkg/widgets"
)

func TestBuild_GenderSingleSelect(t *testing.T) {
	t.Parallel()

	fields := New(Options{}).Build(testsupport.Definition(t, "gender.json"), nil)
	want := []Descriptor{{
		Path:   "gender",
		Name:   "gender",
		Type:   "string",
		Widget: widgets.KindSelect,
		Label:  "gender",
		Options: []Option{
			{Value: "Male", Label: "Male"},
			{Value: "Female", Label: "Female"},
			{Value: "Unknown", Label: "Unknown"},
		},
	}}
	if diff := cmp.Diff(want, fields); diff != "" {
		t.Fatalf("descriptor mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_EmployeeWidgetsAndOrder(t *testing.T) {
	t.Parallel()

	def := testsupport.Definition(t, "employee.json")
	hints, err := uischema.Parse(testsupport.Fixture(t, "employee_hints.yaml"))
	if err != nil {
		t.Fatalf("parse hints: %v", err)
	}
	fields := New(Options{}).Build(def, hints)

	type summary struct {
		Path   string
		Widget widgets.Kind
		Label  string
	}
	got := make([]summary, 0, len(fields))
	for _, field := range fields {
		got = append(got, summary{field.Path, field.Widget, field.Label})
	}
	want := []summary{
		{"nickname", widgets.KindText, "Nickname"},
		{"age", widgets.KindNumber, "Age"},
		{"gender", widgets.KindSelect, "Gender"},
		{"email", widgets.KindEmail, "email"},
		{"birthday", widgets.KindDate, "birthday"},
		{"phone", widgets.KindTel, "phone"},
		{"badge", widgets.KindText, "badge"},
		{"salary", widgets.KindNumber, "salary"},
		{"remote", widgets.KindToggle, "Works remotely"},
		{"skills", widgets.KindMultiSelect, "skills"},
		{"address", widgets.KindFieldset, "Address"},
		{"contacts", widgets.KindRepeater, "Emergency contacts"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("descriptor summary mismatch (-want +got):\n%s", diff)
	}

	nickname, _ := Find(fields, "nickname")
	if nickname.Placeholder != "What do colleagues call you?" || nickname.HelpText != "Optional short name" {
		t.Fatalf("nickname hints not applied: %#v", nickname)
	}
	age, _ := Find(fields, "age")
	wantRules := []ValidationRule{
		{Kind: ValidationRuleMin, Params: map[string]string{"value": "0"}},
		{Kind: ValidationRuleMax, Params: map[string]string{"value": "120"}},
	}
	if diff := cmp.Diff(wantRules, age.Validations); diff != "" || !age.Required {
		t.Fatalf("age constraints mismatch (-want +got):\n%s", diff)
	}

	city, ok := Find(fields, "address.city")
	if !ok || !city.Required || city.Placeholder != "City" || city.CSSClass != "col-6" {
		t.Fatalf("address.city descriptor unexpected: %#v", city)
	}
	contactName, ok := Find(fields, "contacts.0.name")
	if !ok || contactName.Path != "contacts.items.name" || contactName.Placeholder != "Full name" || !contactName.Required {
		t.Fatalf("contact name descriptor unexpected: %#v", contactName)
	}
	skills, _ := Find(fields, "skills")
	wantOptions := []Option{{Value: "go", Label: "Go"}, {Value: "sql", Label: "SQL"}, {Value: "ops", Label: "Operations"}}
	if diff := cmp.Diff(wantOptions, skills.Options); diff != "" {
		t.Fatalf("skills options mismatch (-want +got):\n%s", diff)
	}
	if Errors(fields) != nil {
		t.Fatalf("expected no descriptor errors, got %v", Errors(fields))
	}
}

func TestBuild_Idempotent(t *testing.T) {
	t.Parallel()

	def := testsupport.Definition(t, "employee.json")
	hints, _ := uischema.Parse(testsupport.Fixture(t, "employee_hints.yaml"))
	builder := New(Options{})

	first := builder.Build(def, hints)
	second := builder.Build(def, hints)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("descriptor trees differ (-first +second):\n%s", diff)
	}
}

func TestBuild_MalformedFieldDoesNotBlankForm(t *testing.T) {
	t.Parallel()

	def, err := fieldspec.Parse([]byte(`{"type":"object","properties":{
  "name": {"type": "string"},
  "mood": {"type": "color", "title": "Mood"},
  "matrix": {"type": "array", "items": {"type": "array", "items": {"type": "number"}}},
  "notes": {"type": "string"}
}}`), fieldspec.WithUnknownTypes())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	fields := New(Options{}).Build(def, uischema.Hints{"notes": {Widget: "textarea"}, "name": {Widget: "checkbox"}})

	if len(fields) != 4 {
		t.Fatalf("expected four descriptors, got %d", len(fields))
	}
	wantErrors := map[string]string{
		"mood":   `unsupported field type "color"`,
		"matrix": "no widget available for array<array<number>> field",
	}
	if diff := cmp.Diff(wantErrors, Errors(fields)); diff != "" {
		t.Fatalf("descriptor errors mismatch (-want +got):\n%s", diff)
	}
	if fields[0].Widget != widgets.KindText {
		t.Fatalf("incompatible checkbox hint should be ignored, got %q", fields[0].Widget)
	}
	if fields[1].Label != "Mood" {
		t.Fatalf("error descriptor should keep its label, got %q", fields[1].Label)
	}
	if fields[3].Widget != widgets.KindTextarea {
		t.Fatalf("textarea hint not honoured, got %q", fields[3].Widget)
	}
}

func TestBuild_LabelerOption(t *testing.T) {
	t.Parallel()

	def := &fieldspec.ObjectSpec{Properties: []fieldspec.Property{{Name: "startDate2", Spec: &fieldspec.StringSpec{Format: fieldspec.FormatDate}}}}
	fields := New(Options{Labeler: DefaultLabeler}).Build(def, nil)
	if fields[0].Label != "Start Date 2" {
		t.Fatalf("unexpected label %q", fields[0].Label)
	}
}

func TestDefaultLabeler(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"first_name":       "First Name",
		"emergencyContact": "Emergency Contact",
		"phone-2":          "Phone 2",
		"":                 "",
	}
	for input, want := range cases {
		if got := DefaultLabeler(input); got != want {
			t.Fatalf("DefaultLabeler(%q) = %q, want %q", input, got, want)
		}
	}
}
