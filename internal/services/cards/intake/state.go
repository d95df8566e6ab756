// Package intake runs the conversational collection of card requests as an
// explicit state machine, independent of any chat or HTTP transport.
package intake

import "fmt"

// State is the step an intake session is waiting on.
type State int

const (
	StateIdle State = iota
	StateCollectingName
	StateCollectingFather
	StateCollectingPhone
	StateAwaitingPhoto
	StateSelectingInstitution
	StateAwaitingToken
	StateDone
	StateCancelled
)

var stateNames = map[State]string{
	StateIdle:                 "idle",
	StateCollectingName:       "collecting_name",
	StateCollectingFather:     "collecting_father",
	StateCollectingPhone:      "collecting_phone",
	StateAwaitingPhoto:        "awaiting_photo",
	StateSelectingInstitution: "selecting_institution",
	StateAwaitingToken:        "awaiting_token",
	StateDone:                 "done",
	StateCancelled:            "cancelled",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether the session only accepts a new start.
func (s State) Terminal() bool {
	return s == StateIdle || s == StateDone || s == StateCancelled
}

// EventKind identifies an input to a session.
type EventKind string

const (
	EventStart             EventKind = "start"
	EventText              EventKind = "text"
	EventPhoto             EventKind = "photo"
	EventSkipPhoto         EventKind = "skip_photo"
	EventSelectInstitution EventKind = "select_institution"
	EventCancel            EventKind = "cancel"
)

// Event is one input to a session.
type Event struct {
	Kind          EventKind `json:"kind"`
	Text          string    `json:"text,omitempty"`
	PhotoPath     string    `json:"-"`
	InstitutionID string    `json:"institution_id,omitempty"`
}

type transitionKey struct {
	from State
	kind EventKind
}

// transitions lists the target of every accepted event on success. Start and
// Cancel are accepted from any state and handled before the table. Rejected
// input keeps the current state.
var transitions = map[transitionKey]State{
	{StateCollectingName, EventText}:                    StateCollectingFather,
	{StateCollectingFather, EventText}:                  StateCollectingPhone,
	{StateCollectingPhone, EventText}:                   StateAwaitingPhoto,
	{StateAwaitingPhoto, EventPhoto}:                    StateSelectingInstitution,
	{StateAwaitingPhoto, EventSkipPhoto}:                StateSelectingInstitution,
	{StateSelectingInstitution, EventSelectInstitution}: StateAwaitingToken,
	{StateAwaitingToken, EventText}:                     StateDone,
}

// Next returns the success target for kind in state s.
func Next(s State, kind EventKind) (State, bool) {
	switch kind {
	case EventStart:
		return StateCollectingName, true
	case EventCancel:
		if s.Terminal() {
			return s, false
		}
		return StateCancelled, true
	}
	next, ok := transitions[transitionKey{from: s, kind: kind}]
	return next, ok
}
