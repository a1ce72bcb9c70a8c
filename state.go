package overlaypal

// State is a step of the conversion state machine.
//
//	BackgroundSolve -> OverlaySolve | NoBackgroundRetry | Failed
//	NoBackgroundRetry -> OverlaySolve | Failed
//	OverlaySolve -> Consistent | Failed
type State int

// Conversion states.
const (
	StateBackgroundSolve State = iota
	StateNoBackgroundRetry
	StateOverlaySolve
	StateConsistent
	StateFailed
)

var stateNames = [...]string{
	StateBackgroundSolve:   "background solve",
	StateNoBackgroundRetry: "no background retry",
	StateOverlaySolve:      "overlay solve",
	StateConsistent:        "consistent",
	StateFailed:            "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether the conversion stops in this state.
func (s State) Terminal() bool {
	return s == StateConsistent || s == StateFailed
}
