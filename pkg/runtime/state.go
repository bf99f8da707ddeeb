package runtime

// State is a step of the form lifecycle.
type State int

const (
	Uninitialized State = iota
	Loading
	Ready
	Editing
	Validating
	Submitted
	Failed
)

var stateNames = [...]string{
	Uninitialized: "uninitialized",
	Loading:       "loading",
	Ready:         "ready",
	Editing:       "editing",
	Validating:    "validating",
	Submitted:     "submitted",
	Failed:        "error",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// MarshalText renders the state name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s State) editable() bool {
	return s == Ready || s == Editing
}
