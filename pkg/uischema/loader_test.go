package uischema_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-customfields/pkg/testsupport"
	"github.com/goliatone/go-customfields/pkg/uischema"
)

func TestParse_YAMLMixesFlatAndNestedKeys(t *testing.T) {
	t.Parallel()

	hints, err := uischema.Parse(testsupport.Fixture(t, "employee_hints.yaml"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := uischema.Hints{
		"nickname": {
			Placeholder: "What do colleagues call you?",
			HelpText:    "Optional short name",
		},
		"bio":                 {Widget: "textarea"},
		"remote":              {Widget: "toggle"},
		"contacts.items.name": {Placeholder: "Full name"},
		"address.city":        {Placeholder: "City", CSSClass: "col-6"},
	}
	if diff := cmp.Diff(want, hints); diff != "" {
		t.Fatalf("hints mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_JSONBracketPaths(t *testing.T) {
	t.Parallel()

	hints, err := uischema.Parse([]byte(`{"contacts[].phone": {"ui:widget": "Tel"}, "ui:order": ["*"]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	hint, ok := hints.For("contacts.items.phone")
	if !ok || hint.Widget != "tel" {
		t.Fatalf("expected normalised widget hint, got %#v (ok=%v)", hint, ok)
	}
	if _, ok := hints.For("contacts[].phone"); !ok {
		t.Fatalf("expected bracket lookup to resolve")
	}
}

func TestParse_RejectsNonStringAttributes(t *testing.T) {
	t.Parallel()

	if _, err := uischema.Parse([]byte(`{"age": {"placeholder": 7}}`)); err == nil {
		t.Fatalf("expected error for numeric placeholder")
	}
	if _, err := uischema.Parse([]byte(`{"age": "stepper"}`)); err == nil {
		t.Fatalf("expected error for scalar hint")
	}
}

func TestParse_StripsMarkupAndUnsafeClasses(t *testing.T) {
	t.Parallel()

	hints, err := uischema.Parse([]byte(`{"name": {"placeholder": "<script>alert(1)</script>Your name", "cssClass": "wide <b> col-2"}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := uischema.Hint{Placeholder: "Your name", CSSClass: "wide col-2"}
	if diff := cmp.Diff(want, hints["name"]); diff != "" {
		t.Fatalf("sanitised hint mismatch (-want +got):\n%s", diff)
	}
}

func TestEqual_IgnoresNilVersusEmpty(t *testing.T) {
	t.Parallel()

	if !uischema.Equal(nil, uischema.Hints{}) {
		t.Fatalf("expected nil and empty hints to be equal")
	}
	if uischema.Equal(uischema.Hints{"a": {Widget: "textarea"}}, uischema.Hints{"a": {Widget: "text"}}) {
		t.Fatalf("expected differing widgets to be unequal")
	}
}

func TestNormalizeFieldPath(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"contacts[].name":  "contacts.items.name",
		"contacts[]":       "contacts.items",
		"tags[0]":          "tags.0",
		" address..city ":  "address.city",
		"":                 "",
	}
	for input, want := range cases {
		if got := uischema.NormalizeFieldPath(input); got != want {
			t.Fatalf("NormalizeFieldPath(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestParse_VisibleIfAliases(t *testing.T) {
	t.Parallel()

	hints, err := uischema.Parse([]byte(`
office:
  ui:visibleIf: "  !remote  "
contacts[].phone:
  visible_if: remote == true
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := uischema.Hints{
		"office":               {VisibleIf: "!remote"},
		"contacts.items.phone": {VisibleIf: "remote == true"},
	}
	if diff := cmp.Diff(want, hints); diff != "" {
		t.Fatalf("hints mismatch (-want +got):\n%s", diff)
	}
}
