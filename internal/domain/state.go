package domain

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// ErrInvalidState is returned when an invalid state value is provided
var ErrInvalidState = errors.New("invalid state value")

// ErrInvalidStateTransition is returned when an invalid state transition is attempted
var ErrInvalidStateTransition = errors.New("invalid state transition")

// State represents an immutable transfer state value object
type State struct {
	value string
}

// Valid state values
const (
	stateDraft     = "draft"
	stateWaiting   = "waiting"
	stateConfirmed = "confirmed"
	stateAssigned  = "assigned"
	stateDone      = "done"
	stateCancelled = "cancelled"
)

// Predefined State instances
var (
	StateDraft     = State{value: stateDraft}
	StateWaiting   = State{value: stateWaiting}
	StateConfirmed = State{value: stateConfirmed}
	StateAssigned  = State{value: stateAssigned}
	StateDone      = State{value: stateDone}
	StateCancelled = State{value: stateCancelled}
)

// NewState creates a new State value object with validation
func NewState(s string) (State, error) {
	switch s {
	case stateDraft, stateWaiting, stateConfirmed, stateAssigned, stateDone, stateCancelled:
		return State{value: s}, nil
	default:
		return State{}, ErrInvalidState
	}
}

// MustNewState creates a State or panics if invalid (use for constants only)
func MustNewState(s string) State {
	state, err := NewState(s)
	if err != nil {
		panic(err)
	}
	return state
}

// String returns the string representation of the state
func (s State) String() string {
	return s.value
}

// Equals checks if two states are equal
func (s State) Equals(other State) bool {
	return s.value == other.value
}

// IsDraft returns true if the state is draft
func (s State) IsDraft() bool {
	return s.value == stateDraft
}

// IsWaiting returns true if the state is waiting
func (s State) IsWaiting() bool {
	return s.value == stateWaiting
}

// IsConfirmed returns true if the state is confirmed
func (s State) IsConfirmed() bool {
	return s.value == stateConfirmed
}

// IsAssigned returns true if the state is assigned
func (s State) IsAssigned() bool {
	return s.value == stateAssigned
}

// IsDone returns true if the state is done
func (s State) IsDone() bool {
	return s.value == stateDone
}

// IsCancelled returns true if the state is cancelled
func (s State) IsCancelled() bool {
	return s.value == stateCancelled
}

// IsFinal returns true if the state is a closed state (done or cancelled).
// Done is immutable; cancelled can only return to draft.
func (s State) IsFinal() bool {
	return s.value == stateDone || s.value == stateCancelled
}

// IsActive returns true if the state is part of the in-progress lifecycle
func (s State) IsActive() bool {
	return !s.IsFinal()
}

// CanTransitionTo checks if this state can transition to another state
func (s State) CanTransitionTo(target State) bool {
	// Valid transitions for the stock transfer lifecycle
	validTransitions := map[string][]string{
		stateDraft:     {stateWaiting, stateConfirmed, stateCancelled},
		stateWaiting:   {stateConfirmed, stateAssigned, stateCancelled},
		stateConfirmed: {stateWaiting, stateAssigned, stateDone, stateCancelled},
		stateAssigned:  {stateWaiting, stateConfirmed, stateDone, stateCancelled},
		stateDone:      {}, // Terminal state
		stateCancelled: {stateDraft},
	}

	allowedTargets, exists := validTransitions[s.value]
	if !exists {
		return false
	}

	for _, allowed := range allowedTargets {
		if target.value == allowed {
			return true
		}
	}

	return false
}

// MarshalText implements encoding.TextMarshaler for JSON serialization
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for JSON deserialization
func (s *State) UnmarshalText(text []byte) error {
	state, err := NewState(string(text))
	if err != nil {
		return err
	}
	*s = state
	return nil
}

// MarshalBSONValue implements bson.ValueMarshaler. The mongo driver does
// not consult encoding.TextMarshaler, so the state is stored as a plain
// string field.
func (s State) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(s.value)
}

// UnmarshalBSONValue implements bson.ValueUnmarshaler
func (s *State) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	var raw string
	if err := bson.UnmarshalValue(t, data, &raw); err != nil {
		return err
	}
	state, err := NewState(raw)
	if err != nil {
		return err
	}
	*s = state
	return nil
}
