package cache

// State is the observable state of a query.
type State int

const (
	// StateLoading means no fetch has completed yet.
	StateLoading State = iota

	// StateReady means the last fetch succeeded.
	StateReady

	// StateError means the last fetch failed.
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time view of a query entry.
type Snapshot struct {
	State State

	// Value is set only in StateReady.
	Value any

	// Err is set only in StateError.
	Err error

	// Fetching is true while a re-fetch runs over an already settled entry.
	Fetching bool
}
