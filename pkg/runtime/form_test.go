package runtime_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-customfields/pkg/fieldspec"
	"github.com/goliatone/go-customfields/pkg/model"
	"github.com/goliatone/go-customfields/pkg/registry"
	"github.com/goliatone/go-customfields/pkg/runtime"
	"github.com/goliatone/go-customfields/pkg/testsupport"
	"github.com/goliatone/go-customfields/pkg/uischema"
	"github.com/goliatone/go-customfields/pkg/validation"
)

type fakeFetcher struct {
	mu      sync.Mutex
	schemas map[string]registry.Schema
	gates   map[string]chan struct{}
	started chan string
	calls   map[string]int
}

func newFetcher(schemas ...registry.Schema) *fakeFetcher {
	f := &fakeFetcher{
		schemas: make(map[string]registry.Schema),
		gates:   make(map[string]chan struct{}),
		calls:   make(map[string]int),
		started: make(chan string, 8),
	}
	for _, s := range schemas {
		f.schemas[s.ID] = s
	}
	return f
}

func (f *fakeFetcher) hold(id string) chan struct{} {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gates[id] = gate
	f.mu.Unlock()
	return gate
}

func (f *fakeFetcher) Get(ctx context.Context, id string) (registry.Schema, error) {
	f.mu.Lock()
	f.calls[id]++
	gate := f.gates[id]
	schema, ok := f.schemas[id]
	f.mu.Unlock()
	f.started <- id
	if gate != nil {
		<-gate
	}
	if !ok {
		return registry.Schema{}, registry.ErrNotFound
	}
	return schema, nil
}

func schemaFrom(t *testing.T, id, fixture string) registry.Schema {
	t.Helper()
	return registry.Schema{ID: id, Name: id, EntityType: registry.EntityEmployee, Version: 1, Definition: testsupport.Definition(t, fixture)}
}

func parsed(t *testing.T, id, raw string) registry.Schema {
	t.Helper()
	def, err := fieldspec.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return registry.Schema{ID: id, Name: id, EntityType: registry.EntityEmployee, Version: 1, Definition: def}
}

type recorder struct {
	mu     sync.Mutex
	events []runtime.Event
}

func (r *recorder) record(e runtime.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) states() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if e.Kind == runtime.EventState {
			out = append(out, e.State.String())
		}
	}
	return out
}

func (r *recorder) kinds() []runtime.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]runtime.EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func TestFormLifecycle(t *testing.T) {
	fetcher := newFetcher(schemaFrom(t, "age-v1", "age.json"))
	form := runtime.New(fetcher)
	if form.State() != runtime.Uninitialized {
		t.Fatalf("expected uninitialized, got %s", form.State())
	}

	rec := &recorder{}
	form.Subscribe(rec.record)

	if err := form.Bind(context.Background(), "age-v1", runtime.BindOptions{}); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if got := len(form.Descriptors()); got != 1 {
		t.Fatalf("expected one descriptor, got %d", got)
	}

	_, err := form.Submit()
	if !errors.Is(err, validation.ErrValidation) {
		t.Fatalf("expected validation error for empty value, got %v", err)
	}
	if diff := cmp.Diff([]string{"age"}, keys(form.Errors())); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	if err := form.SetField("age", -1); err != nil {
		t.Fatalf("set field: %v", err)
	}
	if _, ok := form.Errors()["age"]; !ok {
		t.Fatalf("expected age error for -1, got %v", form.Errors())
	}

	if err := form.SetField("age", 30); err != nil {
		t.Fatalf("set field: %v", err)
	}
	if errs := form.Errors(); errs != nil {
		t.Fatalf("expected no errors, got %v", errs)
	}

	submission, err := form.Submit()
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	want := runtime.Submission{SchemaID: "age-v1", Value: map[string]any{"age": 30}}
	if diff := cmp.Diff(want, submission); diff != "" {
		t.Fatalf("submission mismatch (-want +got):\n%s", diff)
	}
	if form.State() != runtime.Submitted {
		t.Fatalf("expected submitted, got %s", form.State())
	}

	if err := form.SetField("age", 31); !errors.Is(err, runtime.ErrInvalidState) {
		t.Fatalf("expected invalid state after submit, got %v", err)
	}

	wantStates := []string{
		"loading", "ready",
		"validating", "editing",
		"validating", "editing",
		"validating", "editing",
		"validating", "editing", "submitted",
	}
	if diff := cmp.Diff(wantStates, rec.states()); diff != "" {
		t.Fatalf("state sequence mismatch (-want +got):\n%s", diff)
	}
	kinds := rec.kinds()
	if kinds[len(kinds)-1] != runtime.EventSubmitted {
		t.Fatalf("expected submitted event last, got %v", kinds)
	}
}

func TestSetFieldRejectsUnknownPath(t *testing.T) {
	form := runtime.New(newFetcher(schemaFrom(t, "emp", "employee.json")))
	if err := form.SetField("age", 1); !errors.Is(err, runtime.ErrInvalidState) {
		t.Fatalf("expected invalid state before bind, got %v", err)
	}
	if err := form.Bind(context.Background(), "emp", runtime.BindOptions{}); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := form.SetField("shoeSize", 44); !errors.Is(err, runtime.ErrUnknownField) {
		t.Fatalf("expected unknown field, got %v", err)
	}
	if err := form.SetField("contacts.0.name", "Ana"); err != nil {
		t.Fatalf("set nested field: %v", err)
	}
	want := map[string]any{"contacts": []any{map[string]any{"name": "Ana"}}}
	if diff := cmp.Diff(want, form.Value()); diff != "" {
		t.Fatalf("value mismatch (-want +got):\n%s", diff)
	}
}

func TestBindFailureMovesToError(t *testing.T) {
	form := runtime.New(newFetcher())
	rec := &recorder{}
	form.Subscribe(rec.record)

	err := form.Bind(context.Background(), "missing", runtime.BindOptions{})
	if err == nil {
		t.Fatal("expected fetch error")
	}
	if form.State() != runtime.Failed {
		t.Fatalf("expected error state, got %s", form.State())
	}
	if snap := form.Snapshot(); !errors.Is(snap.Err, err) {
		t.Fatalf("snapshot should carry bind error, got %v", snap.Err)
	}
	kinds := rec.kinds()
	if kinds[len(kinds)-1] != runtime.EventError {
		t.Fatalf("expected error event, got %v", kinds)
	}
}

func TestBindRejectsMalformedDefinition(t *testing.T) {
	broken := registry.Schema{
		ID: "broken",
		Definition: &fieldspec.ObjectSpec{Properties: []fieldspec.Property{
			{Name: "tags", Spec: &fieldspec.ArraySpec{}},
		}},
	}
	form := runtime.New(newFetcher(broken))
	err := form.Bind(context.Background(), "broken", runtime.BindOptions{})
	var defErr *fieldspec.DefinitionError
	if !errors.As(err, &defErr) {
		t.Fatalf("expected definition error, got %v", err)
	}
	if form.State() != runtime.Failed {
		t.Fatalf("expected error state, got %s", form.State())
	}
	if form.Descriptors() != nil {
		t.Fatal("no descriptors expected for a malformed definition")
	}
}

func TestStaleBindIsDiscarded(t *testing.T) {
	fetcher := newFetcher(schemaFrom(t, "slow", "age.json"), schemaFrom(t, "fast", "gender.json"))
	gate := fetcher.hold("slow")
	form := runtime.New(fetcher)

	done := make(chan error, 1)
	go func() {
		done <- form.Bind(context.Background(), "slow", runtime.BindOptions{})
	}()
	if id := <-fetcher.started; id != "slow" {
		t.Fatalf("expected slow fetch first, got %s", id)
	}

	if err := form.Bind(context.Background(), "fast", runtime.BindOptions{}); err != nil {
		t.Fatalf("bind fast: %v", err)
	}
	close(gate)
	if err := <-done; !errors.Is(err, runtime.ErrSuperseded) {
		t.Fatalf("expected superseded, got %v", err)
	}

	snap := form.Snapshot()
	if snap.SchemaID != "fast" || snap.State != runtime.Ready {
		t.Fatalf("expected ready on fast, got %s on %s", snap.State, snap.SchemaID)
	}
	if len(snap.Descriptors) != 1 || snap.Descriptors[0].Name != "gender" {
		t.Fatalf("descriptors should belong to fast schema: %+v", snap.Descriptors)
	}
}

func TestArtifactsMemoizedPerSchema(t *testing.T) {
	fetcher := newFetcher(schemaFrom(t, "a", "age.json"), schemaFrom(t, "b", "gender.json"))
	form := runtime.New(fetcher)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "a", "b"} {
		if err := form.Bind(ctx, id, runtime.BindOptions{}); err != nil {
			t.Fatalf("bind %s: %v", id, err)
		}
	}
	if diff := cmp.Diff(map[string]int{"a": 1, "b": 1}, fetcher.calls); diff != "" {
		t.Fatalf("fetch counts mismatch (-want +got):\n%s", diff)
	}
}

func TestDescriptorsAreCopies(t *testing.T) {
	form := runtime.New(newFetcher(schemaFrom(t, "emp", "employee.json")))
	if err := form.Bind(context.Background(), "emp", runtime.BindOptions{}); err != nil {
		t.Fatalf("bind: %v", err)
	}
	want := form.Descriptors()

	edit := func(fields []model.Descriptor) {
		for i := range fields {
			fields[i].Label = "MUTATED"
			for j := range fields[i].Nested {
				fields[i].Nested[j].Label = "MUTATED"
			}
			for j := range fields[i].Options {
				fields[i].Options[j].Label = "MUTATED"
			}
		}
	}
	edit(form.Descriptors())
	edit(form.Snapshot().Descriptors)

	if diff := cmp.Diff(want, form.Descriptors()); diff != "" {
		t.Fatalf("cached descriptors changed (-want +got):\n%s", diff)
	}
}

func TestSwitchingSchemaCarry(t *testing.T) {
	v1 := parsed(t, "v1", `{"type":"object","properties":{
		"age":{"type":"integer"},
		"nickname":{"type":"string"},
		"address":{"type":"object","properties":{"city":{"type":"string"},"zip":{"type":"string"}}},
		"contacts":{"type":"array","items":{"type":"object","properties":{"name":{"type":"string"},"phone":{"type":"string"}}}},
		"skills":{"type":"array","items":{"type":"object","properties":{"name":{"type":"string"}}}}
	}}`)
	v2 := parsed(t, "v2", `{"type":"object","properties":{
		"age":{"type":"integer"},
		"nickname":{"type":"number"},
		"address":{"type":"object","properties":{"city":{"type":"string"}}},
		"contacts":{"type":"array","items":{"type":"object","properties":{"name":{"type":"string"},"phone":{"type":"integer"}}}},
		"skills":{"type":"array","items":{"type":"object","properties":{"name":{"type":"string"}}}},
		"team":{"type":"string"}
	}}`)
	skills := []any{map[string]any{"name": "go"}}

	cases := []struct {
		name string
		opts runtime.BindOptions
		want map[string]any
	}{
		{
			name: "discard by default",
			want: map[string]any{},
		},
		{
			name: "carry matching shapes",
			opts: runtime.BindOptions{CarryValues: true},
			want: map[string]any{"age": 41, "address": map[string]any{"city": "Lyon"}, "skills": skills},
		},
		{
			name: "initial overrides carried values",
			opts: runtime.BindOptions{CarryValues: true, Initial: map[string]any{"age": 7, "team": "ops"}},
			want: map[string]any{"age": 7, "team": "ops", "address": map[string]any{"city": "Lyon"}, "skills": skills},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			form := runtime.New(newFetcher(v1, v2))
			ctx := context.Background()
			if err := form.Bind(ctx, "v1", runtime.BindOptions{}); err != nil {
				t.Fatalf("bind v1: %v", err)
			}
			for path, value := range map[string]any{
				"age":          41,
				"nickname":     "Bo",
				"address.city": "Lyon",
				"address.zip":  "69001",
				"contacts":     []any{map[string]any{"name": "Ann", "phone": "555-1234"}},
				"skills":       skills,
			} {
				if err := form.SetField(path, value); err != nil {
					t.Fatalf("set %s: %v", path, err)
				}
			}
			if err := form.Bind(ctx, "v2", tc.opts); err != nil {
				t.Fatalf("bind v2: %v", err)
			}
			if diff := cmp.Diff(tc.want, form.Value()); diff != "" {
				t.Fatalf("value mismatch (-want +got):\n%s", diff)
			}
			if res, err := form.Validate(); err != nil || !res.OK {
				t.Fatalf("carried value must stay valid, got %+v (%v)", res, err)
			}
		})
	}
}

func TestApplyServerErrors(t *testing.T) {
	form := runtime.New(newFetcher(schemaFrom(t, "emp", "employee.json")))
	if _, err := form.ApplyServerErrors(map[string][]string{"age": {"x"}}); !errors.Is(err, runtime.ErrNotReady) {
		t.Fatalf("expected not ready, got %v", err)
	}
	if err := form.Bind(context.Background(), "emp", runtime.BindOptions{}); err != nil {
		t.Fatalf("bind: %v", err)
	}

	mapping, err := form.ApplyServerErrors(map[string][]string{
		"/body/age":              {"too young", " too young "},
		"contacts[1].name":       {"required"},
		"address.city.extra":     {"unknown city"},
		"__all__":                {"quota exceeded"},
		"legacyField":            {"gone"},
		"/data/contacts/0/phone": {""},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	wantFields := map[string][]string{
		"age":             {"too young"},
		"contacts.1.name": {"required"},
		"address.city":    {"unknown city"},
	}
	if diff := cmp.Diff(wantFields, mapping.Fields); diff != "" {
		t.Fatalf("field mapping mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"gone", "quota exceeded"}, sorted(mapping.Form)); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}

	if err := form.SetField("age", 30); err != nil {
		t.Fatalf("set field: %v", err)
	}
	if _, ok := form.Snapshot().ServerErrors["age"]; ok {
		t.Fatal("editing a field should clear its server error")
	}
}

func TestResetRestoresInitial(t *testing.T) {
	form := runtime.New(newFetcher(schemaFrom(t, "age", "age.json")))
	if err := form.Bind(context.Background(), "age", runtime.BindOptions{Initial: map[string]any{"age": 18}}); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := form.SetField("age", 200); err != nil {
		t.Fatalf("set: %v", err)
	}
	form.Reset()
	snap := form.Snapshot()
	if snap.State != runtime.Ready || snap.Validated {
		t.Fatalf("expected fresh ready state, got %+v", snap)
	}
	if diff := cmp.Diff(map[string]any{"age": 18}, snap.Value); diff != "" {
		t.Fatalf("value mismatch (-want +got):\n%s", diff)
	}
}

func TestUnsubscribe(t *testing.T) {
	form := runtime.New(newFetcher(schemaFrom(t, "age", "age.json")))
	rec := &recorder{}
	unsubscribe := form.Subscribe(rec.record)
	unsubscribe()
	unsubscribe()
	if err := form.Bind(context.Background(), "age", runtime.BindOptions{}); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if len(rec.kinds()) != 0 {
		t.Fatalf("expected no events after unsubscribe, got %v", rec.kinds())
	}
}

func TestFetcherFunc(t *testing.T) {
	schema := schemaFrom(t, "age", "age.json")
	var fetcher runtime.Fetcher = runtime.FetcherFunc(func(ctx context.Context, id string) (registry.Schema, error) {
		return schema, nil
	})
	form := runtime.New(fetcher)
	if err := form.Bind(context.Background(), "age", runtime.BindOptions{}); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if got, ok := form.Schema(); !ok || got.ID != "age" {
		t.Fatalf("unexpected schema %+v", got)
	}
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return sorted(out)
}

func sorted(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func TestVisibilityFollowsValue(t *testing.T) {
	schema := parsed(t, "vis-1", `{"type":"object","properties":{
		"remote":{"type":"boolean"},
		"office":{"type":"string"},
		"contacts":{"type":"array","items":{"type":"object","properties":{
			"name":{"type":"string"},
			"phone":{"type":"string"}
		}}}
	}}`)
	hints, err := uischema.Parse([]byte(`{
		"office":{"ui:visibleIf":"!remote"},
		"contacts":{"items":{"phone":{"ui:visibleIf":"remote"}}}
	}`))
	if err != nil {
		t.Fatalf("parse hints: %v", err)
	}
	schema.UIHints = hints

	form := runtime.New(newFetcher(schema))
	if form.Visible("office") {
		t.Fatal("an unbound form shows nothing")
	}
	if err := form.Bind(context.Background(), "vis-1", runtime.BindOptions{}); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if !form.Visible("office") || form.Visible("contacts.0.phone") || !form.Visible("contacts.0.name") {
		t.Fatal("unexpected visibility before remote is set")
	}
	if diff := cmp.Diff([]string{"contacts.items.phone"}, form.Snapshot().Hidden); diff != "" {
		t.Fatalf("hidden mismatch (-want +got):\n%s", diff)
	}

	if err := form.SetField("remote", true); err != nil {
		t.Fatalf("set remote: %v", err)
	}
	if form.Visible("office") || !form.Visible("contacts.0.phone") {
		t.Fatal("unexpected visibility after remote is set")
	}
	if diff := cmp.Diff([]string{"office"}, form.Snapshot().Hidden); diff != "" {
		t.Fatalf("hidden mismatch (-want +got):\n%s", diff)
	}
}
