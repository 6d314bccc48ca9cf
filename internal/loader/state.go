package loader

// State is the position of a load cycle in its lifecycle.
type State int

const (
	Idle State = iota
	Fetching
	Decoding
	Rendering
	Done
	Errored
	// Superseded marks a cycle whose result was discarded because a newer
	// cycle started before it could commit.
	Superseded
)

var stateNames = [...]string{
	Idle:       "idle",
	Fetching:   "fetching",
	Decoding:   "decoding",
	Rendering:  "rendering",
	Done:       "done",
	Errored:    "errored",
	Superseded: "superseded",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == Done || s == Errored || s == Superseded
}

// MarshalText renders the state name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
