package checkout

import "fmt"

type State string

const (
	StateEditing    State = "editing"
	StateValidating State = "validating"
	StateSubmitting State = "submitting"
	StateConfirmed  State = "confirmed"
	StateFailed     State = "failed"
)

var transitions = map[State][]State{
	StateEditing:    {StateValidating},
	StateValidating: {StateEditing, StateSubmitting},
	StateSubmitting: {StateConfirmed, StateFailed},
	StateFailed:     {StateEditing},
}

func (s State) CanTransitionTo(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s State) IsTerminal() bool {
	return s == StateConfirmed
}

func (s State) String() string {
	return string(s)
}

// session records the states one submission passes through.
type session struct {
	state   State
	history []State
}

func newSession() *session {
	return &session{
		state:   StateEditing,
		history: []State{StateEditing},
	}
}

func (s *session) transition(next State) error {
	if !s.state.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, s.state, next)
	}
	s.state = next
	s.history = append(s.history, next)
	return nil
}
