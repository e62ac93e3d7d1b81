package models

import "time"

// AnonymousAuthor is the author recorded when a reporter gives no name.
const AnonymousAuthor = "anonymous"

// State is the lifecycle state of an incident. It is a closed enumeration;
// transitions between any two states are allowed.
type State string

const (
	StatePending    State = "pending"
	StateInProgress State = "in_progress"
	StateResolved   State = "resolved"
)

// stateAliases maps state names used by older reporting clients to their
// canonical values.
var stateAliases = map[string]State{
	"pendiente":   StatePending,
	"en atención": StateInProgress,
	"en_atencion": StateInProgress,
	"resuelto":    StateResolved,
}

// ParseState normalizes a state string to its canonical value. It accepts
// the canonical names plus legacy aliases. The second return value is false
// when the input is outside the enumeration.
func ParseState(s string) (State, bool) {
	switch State(s) {
	case StatePending, StateInProgress, StateResolved:
		return State(s), true
	}
	if st, ok := stateAliases[s]; ok {
		return st, true
	}
	return "", false
}

// ValidStates returns the canonical state names, for error messages.
func ValidStates() []string {
	return []string{string(StatePending), string(StateInProgress), string(StateResolved)}
}

// Incident is a reported event with a lifecycle state. Instances handed out
// by the store are copies; mutating one never affects the stored record.
type Incident struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Author       string    `json:"author"`
	State        State     `json:"state"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	LastModifier string    `json:"last_modifier,omitempty"`
}

// Clone returns a copy of the incident.
func (i *Incident) Clone() *Incident {
	c := *i
	return &c
}
