package runtime

import "github.com/goliatone/go-customfields/pkg/validation"

// EventKind names what happened to a form.
type EventKind string

const (
	EventState     EventKind = "state"
	EventChange    EventKind = "change"
	EventValidated EventKind = "validated"
	EventSubmitted EventKind = "submitted"
	EventError     EventKind = "error"
)

// Event is delivered to subscribers after the form state has changed.
type Event struct {
	Kind       EventKind
	State      State
	SchemaID   string
	Path       string
	Value      any
	Result     *validation.Result
	Submission *Submission
	Err        error
}

// Submission is what Submit hands to the caller for persistence.
type Submission struct {
	SchemaID string         `json:"schema_id"`
	Value    map[string]any `json:"value"`
}

type subscribers struct {
	next int
	fns  map[int]func(Event)
}

func (s *subscribers) add(fn func(Event)) int {
	if s.fns == nil {
		s.fns = make(map[int]func(Event))
	}
	s.next++
	s.fns[s.next] = fn
	return s.next
}

func (s *subscribers) snapshot() []func(Event) {
	out := make([]func(Event), 0, len(s.fns))
	for i := 1; i <= s.next; i++ {
		if fn, ok := s.fns[i]; ok {
			out = append(out, fn)
		}
	}
	return out
}
