// Package scan models the lifecycle and live progress of an organization scan.
package scan

import (
	"encoding/json"
	"fmt"
)

// State is the scan lifecycle phase.
type State string

const (
	StateNotStarted State = "not_started"
	StateStarting   State = "starting"
	StateRunning    State = "running"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// validTransitions defines the allowed lifecycle moves. A terminal scan can
// only be superseded by a new one starting.
var validTransitions = map[State][]State{
	StateNotStarted: {StateStarting},
	StateStarting:   {StateRunning, StateCompleted, StateFailed},
	StateRunning:    {StateCompleted, StateFailed},
	StateCompleted:  {StateStarting},
	StateFailed:     {StateStarting},
}

// IsValid returns true if the state is a known lifecycle phase.
func (s State) IsValid() bool {
	switch s {
	case StateNotStarted, StateStarting, StateRunning, StateCompleted, StateFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// IsActive returns true while a scan is claiming the process-wide slot.
func (s State) IsActive() bool {
	return s == StateStarting || s == StateRunning
}

// IsTerminal returns true once a scan has finished, successfully or not.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// CanTransitionTo returns true if the lifecycle allows moving to target.
func (s State) CanTransitionTo(target State) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// ParseState parses a string into a State.
func ParseState(s string) (State, error) {
	state := State(s)
	if !state.IsValid() {
		return "", fmt.Errorf("invalid scan state: %s", s)
	}
	return state, nil
}

// MarshalJSON implements json.Marshaler.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *State) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	if str == "" {
		*s = StateNotStarted
		return nil
	}

	state := State(str)
	if !state.IsValid() {
		return fmt.Errorf("invalid scan state: %s", str)
	}

	*s = state
	return nil
}
