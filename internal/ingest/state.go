package ingest

import "fmt"

// State is the phase of the ingestion loop.
type State int

const (
	Idle State = iota
	Fetching
	Decoding
	Routing
	Committing
	ShuttingDown
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Decoding:
		return "decoding"
	case Routing:
		return "routing"
	case Committing:
		return "committing"
	case ShuttingDown:
		return "shutting_down"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// validTransitions lists the phases reachable from each phase. Every phase may
// fall back to Idle when an iteration is abandoned; ShuttingDown is entered only
// from Idle, so no batch is ever open when the loop exits.
var validTransitions = map[State][]State{
	Idle:         {Fetching, ShuttingDown},
	Fetching:     {Decoding, Idle},
	Decoding:     {Routing, Idle},
	Routing:      {Committing, Idle},
	Committing:   {Idle},
	ShuttingDown: {},
}

// CanTransition reports whether the loop may move from one phase to another.
func CanTransition(from, to State) bool {
	if from == to {
		return true
	}
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
