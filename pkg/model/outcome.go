package model

// Outcome is the terminal state of one target.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeSuccess
	OutcomeExcluded
	OutcomeEntityError
	OutcomeUnresolved
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeExcluded:
		return "excluded"
	case OutcomeEntityError:
		return "entity_error"
	case OutcomeUnresolved:
		return "unresolved"
	default:
		return "pending"
	}
}

// Terminal reports whether o is one of the four final states.
func (o Outcome) Terminal() bool {
	return o != OutcomePending
}
