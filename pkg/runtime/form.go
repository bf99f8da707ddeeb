package runtime

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-customfields/pkg/fieldspec"
	"github.com/goliatone/go-customfields/pkg/model"
	"github.com/goliatone/go-customfields/pkg/registry"
	"github.com/goliatone/go-customfields/pkg/validation"
	"github.com/goliatone/go-customfields/pkg/valuepath"
	"github.com/goliatone/go-customfields/pkg/visibility"
)

// Fetcher resolves a schema by id. *registry.Registry and the REST client
// both satisfy it.
type Fetcher interface {
	Get(ctx context.Context, id string) (registry.Schema, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, id string) (registry.Schema, error)

// Get implements Fetcher.
func (f FetcherFunc) Get(ctx context.Context, id string) (registry.Schema, error) {
	return f(ctx, id)
}

// Option configures a Form.
type Option func(*Form)

// WithBuilder swaps the descriptor builder.
func WithBuilder(builder model.Builder) Option {
	return func(f *Form) {
		if builder != nil {
			f.builder = builder
		}
	}
}

// WithLogger sets the form logger.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Form) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// BindOptions tunes Bind. CarryValues copies values of fields whose path and
// shape match between the previous and the new schema; without it the
// in-progress value is discarded. Initial seeds the value after carrying.
type BindOptions struct {
	CarryValues bool
	Initial     map[string]any
}

type artifacts struct {
	schema      registry.Schema
	descriptors []model.Descriptor
	validator   *validation.Validator
}

// Form is the state of one dynamic form. It is safe for concurrent use;
// subscribers are called synchronously after each transition, outside the
// form lock.
type Form struct {
	fetcher Fetcher
	builder model.Builder
	logger  *zap.Logger

	mu         sync.Mutex
	generation uint64
	state      State
	schemaID   string
	current    *artifacts
	memo       map[string]*artifacts
	initial    map[string]any
	value      map[string]any
	result     *validation.Result
	server     ErrorMapping
	err        error
	subs       subscribers
}

// New returns an unbound Form reading schemas from fetcher.
func New(fetcher Fetcher, options ...Option) *Form {
	f := &Form{
		fetcher: fetcher,
		builder: model.NewBuilder(),
		logger:  zap.NewNop(),
		memo:    make(map[string]*artifacts),
		value:   map[string]any{},
	}
	for _, opt := range options {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Bind attaches the form to schemaID. It may be called in any state; a bind
// started earlier and still waiting for its schema returns ErrSuperseded and
// leaves the form untouched.
func (f *Form) Bind(ctx context.Context, schemaID string, opts BindOptions) error {
	f.mu.Lock()
	f.generation++
	gen := f.generation
	var previous *fieldspec.ObjectSpec
	if f.current != nil {
		previous = f.current.schema.Definition
	}
	carried := valuepath.Clone(f.value)
	cached := f.memo[schemaID]
	f.schemaID = schemaID
	f.err = nil
	events := f.transition(Loading)
	f.mu.Unlock()
	f.publish(events)

	art := cached
	if art == nil {
		schema, err := f.fetcher.Get(ctx, schemaID)
		if err == nil {
			art, err = f.derive(schema)
		}
		if err != nil {
			return f.fail(gen, schemaID, err)
		}
	}

	f.mu.Lock()
	if gen != f.generation {
		f.mu.Unlock()
		f.logger.Debug("discarding stale schema", zap.String("schema_id", schemaID))
		return ErrSuperseded
	}
	f.memo[schemaID] = art
	f.current = art

	value := map[string]any{}
	if opts.CarryValues && previous != nil {
		value = carry(previous, art.schema.Definition, carried)
	}
	for key, v := range opts.Initial {
		value[key] = valuepath.CloneValue(v)
	}
	f.initial = valuepath.Clone(value)
	f.value = value
	f.result = nil
	f.server = ErrorMapping{}
	events = f.transition(Ready)
	f.mu.Unlock()
	f.publish(events)
	return nil
}

func (f *Form) derive(schema registry.Schema) (*artifacts, error) {
	validator, err := validation.Build(schema.Definition)
	if err != nil {
		return nil, err
	}
	return &artifacts{
		schema:      schema,
		descriptors: f.builder.Build(schema.Definition, schema.UIHints),
		validator:   validator,
	}, nil
}

func (f *Form) fail(gen uint64, schemaID string, err error) error {
	f.mu.Lock()
	if gen != f.generation {
		f.mu.Unlock()
		return ErrSuperseded
	}
	f.current = nil
	f.err = err
	f.value = map[string]any{}
	f.result = nil
	events := f.transition(Failed)
	events = append(events, Event{Kind: EventError, State: Failed, SchemaID: schemaID, Err: err})
	f.mu.Unlock()
	f.logger.Warn("form bind failed", zap.String("schema_id", schemaID), zap.Error(err))
	f.publish(events)
	return err
}

// SetField writes value at the dotted path and revalidates the whole value.
func (f *Form) SetField(path string, value any) error {
	f.mu.Lock()
	if !f.state.editable() {
		state := f.state
		f.mu.Unlock()
		return &StateError{Op: "set field", State: state}
	}
	if _, ok := fieldspec.Lookup(f.current.schema.Definition, path); !ok {
		f.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownField, path)
	}
	if err := valuepath.Set(f.value, path, valuepath.CloneValue(value)); err != nil {
		f.mu.Unlock()
		return fmt.Errorf("runtime: set %q: %w", path, err)
	}
	delete(f.server.Fields, path)
	events := []Event{{Kind: EventChange, State: f.state, SchemaID: f.schemaID, Path: path, Value: valuepath.CloneValue(value)}}
	events = append(events, f.validateLocked()...)
	f.mu.Unlock()
	f.publish(events)
	return nil
}

// Validate runs the validator over the current value.
func (f *Form) Validate() (validation.Result, error) {
	f.mu.Lock()
	if !f.state.editable() {
		state := f.state
		f.mu.Unlock()
		return validation.Result{}, &StateError{Op: "validate", State: state}
	}
	events := f.validateLocked()
	result := *f.result
	f.mu.Unlock()
	f.publish(events)
	return result, nil
}

func (f *Form) validateLocked() []Event {
	events := f.transition(Validating)
	result := f.current.validator.Check(f.value)
	f.result = &result
	events = append(events, Event{Kind: EventValidated, State: Validating, SchemaID: f.schemaID, Result: &result})
	return append(events, f.transition(Editing)...)
}

// Submit validates the value and, when it passes, moves the form to
// Submitted and returns the value with the bound schema id. A failing value
// leaves the form in Editing and returns a *validation.ValidationError.
func (f *Form) Submit() (Submission, error) {
	f.mu.Lock()
	if !f.state.editable() {
		state := f.state
		f.mu.Unlock()
		return Submission{}, &StateError{Op: "submit", State: state}
	}
	events := f.validateLocked()
	if !f.result.OK {
		err := f.result.Err()
		f.mu.Unlock()
		f.publish(events)
		return Submission{}, err
	}
	submission := Submission{SchemaID: f.schemaID, Value: valuepath.Clone(f.value)}
	events = append(events, f.transition(Submitted)...)
	events = append(events, Event{Kind: EventSubmitted, State: Submitted, SchemaID: f.schemaID, Submission: &submission})
	f.mu.Unlock()
	f.publish(events)
	return submission, nil
}

// ApplyServerErrors attaches errors returned by the persistence layer. Paths
// are matched against the bound definition; unmatched messages become
// form-level errors. The form returns to Editing so the user can correct
// the value.
func (f *Form) ApplyServerErrors(payload map[string][]string) (ErrorMapping, error) {
	f.mu.Lock()
	if f.current == nil {
		f.mu.Unlock()
		return ErrorMapping{}, ErrNotReady
	}
	mapping := MapErrorPayload(f.current.schema.Definition, payload)
	f.server = mapping
	var events []Event
	if f.state == Submitted || f.state == Ready {
		events = f.transition(Editing)
	}
	f.mu.Unlock()
	f.publish(events)
	return mapping.clone(), nil
}

// Reset restores the value seeded by the last Bind and clears errors.
func (f *Form) Reset() {
	f.mu.Lock()
	if f.current == nil {
		f.mu.Unlock()
		return
	}
	f.value = valuepath.Clone(f.initial)
	f.result = nil
	f.server = ErrorMapping{}
	f.err = nil
	events := f.transition(Ready)
	f.mu.Unlock()
	f.publish(events)
}

// Subscribe registers fn for every subsequent event and returns a function
// that removes it.
func (f *Form) Subscribe(fn func(Event)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	f.mu.Lock()
	id := f.subs.add(fn)
	f.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs.fns, id)
			f.mu.Unlock()
		})
	}
}

// State returns the current lifecycle state.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Value returns a copy of the current value.
func (f *Form) Value() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return valuepath.Clone(f.value)
}

// Errors returns the field errors of the last validation.
func (f *Form) Errors() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.result == nil || f.result.OK {
		return nil
	}
	out := make(map[string]string, len(f.result.FieldErrors))
	for path, msg := range f.result.FieldErrors {
		out[path] = msg
	}
	return out
}

// Descriptors returns a copy of the descriptors of the bound schema.
func (f *Form) Descriptors() []model.Descriptor {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return nil
	}
	return model.Clone(f.current.descriptors)
}

// Schema returns the bound schema.
func (f *Form) Schema() (registry.Schema, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return registry.Schema{}, false
	}
	return f.current.schema, true
}

// Visible reports whether the field at path is shown for the current value.
// A field is hidden when its own visibleIf rule or one of its parents' fails.
func (f *Form) Visible(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return false
	}
	fields := f.current.descriptors
	for _, segment := range valuepath.Split(path) {
		if valuepath.IsIndex(segment) || segment == "items" {
			continue
		}
		var next *model.Descriptor
		for i := range fields {
			if fields[i].Name == segment {
				next = &fields[i]
				break
			}
		}
		if next == nil {
			return true
		}
		if !visibility.Visible(next.VisibleIf, f.value) {
			return false
		}
		fields = next.Nested
	}
	return true
}

// Snapshot is a consistent copy of the form state.
type Snapshot struct {
	State        State               `json:"state"`
	SchemaID     string              `json:"schema_id,omitempty"`
	Version      int                 `json:"version,omitempty"`
	Value        map[string]any      `json:"value"`
	Errors       map[string]string   `json:"errors,omitempty"`
	ServerErrors map[string][]string `json:"server_errors,omitempty"`
	FormErrors   []string            `json:"form_errors,omitempty"`
	Descriptors  []model.Descriptor  `json:"descriptors,omitempty"`
	Hidden       []string            `json:"hidden,omitempty"`
	Validated    bool                `json:"validated"`
	Err          error               `json:"-"`
}

// Snapshot returns the state, value, errors and descriptors in one read.
func (f *Form) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := Snapshot{
		State:    f.state,
		SchemaID: f.schemaID,
		Value:    valuepath.Clone(f.value),
		Err:      f.err,
	}
	if f.current != nil {
		snap.Version = f.current.schema.Version
		snap.Descriptors = model.Clone(f.current.descriptors)
		snap.Hidden = visibility.Hidden(f.current.descriptors, f.value)
	}
	if f.result != nil {
		snap.Validated = true
		if !f.result.OK {
			snap.Errors = make(map[string]string, len(f.result.FieldErrors))
			for path, msg := range f.result.FieldErrors {
				snap.Errors[path] = msg
			}
		}
	}
	server := f.server.clone()
	snap.ServerErrors = server.Fields
	snap.FormErrors = server.Form
	return snap
}

func (f *Form) transition(next State) []Event {
	if f.state == next {
		return nil
	}
	f.state = next
	return []Event{{Kind: EventState, State: next, SchemaID: f.schemaID}}
}

func (f *Form) publish(events []Event) {
	if len(events) == 0 {
		return
	}
	f.mu.Lock()
	fns := f.subs.snapshot()
	f.mu.Unlock()
	for _, event := range events {
		for _, fn := range fns {
			fn(event)
		}
	}
}

// carry copies values whose path exists in both definitions with the same
// shape. Objects are descended into rather than copied whole.
func carry(from, to *fieldspec.ObjectSpec, value map[string]any) map[string]any {
	out := map[string]any{}
	fieldspec.Walk(to, func(path string, spec fieldspec.FieldSpec, _ bool) bool {
		old, ok := fieldspec.Lookup(from, path)
		if !ok || !fieldspec.SameShape(old, spec) {
			return false
		}
		if spec.Kind() == fieldspec.KindObject {
			return true
		}
		if v, ok := valuepath.Get(value, path); ok {
			_ = valuepath.Set(out, path, valuepath.CloneValue(v))
		}
		return false
	})
	return out
}
