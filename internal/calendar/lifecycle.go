package calendar

import (
	"errors"
	"fmt"
)

// Action is a lifecycle transition an actor can request on an appointment.
type Action string

const (
	ActionConfirm  Action = "confirm"
	ActionCancel   Action = "cancel"
	ActionComplete Action = "complete"
	ActionNoShow   Action = "no_show"
)

// ParseAction validates an action string from the wire.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionConfirm, ActionCancel, ActionComplete, ActionNoShow:
		return Action(s), nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// Actor classifies who is requesting a transition. The owning practitioner
// and delegated organization staff share the exact same permitted-transition
// table; the class only selects which mutation channel carries the request.
// Patients can only request cancelled_by_patient through a channel outside
// this service.
type Actor string

const (
	ActorPractitioner      Actor = "practitioner"
	ActorOrganizationStaff Actor = "organization_staff"
)

// Channel is the backend mutation channel a transition is applied through.
type Channel string

const (
	ChannelPractitioner Channel = "practitioner"
	ChannelOrganization Channel = "organization"
)

// Channel returns the mutation channel for the actor class.
func (a Actor) Channel() Channel {
	if a == ActorOrganizationStaff {
		return ChannelOrganization
	}
	return ChannelPractitioner
}

// ErrIllegalTransition is returned when an action is requested from a status
// outside its permitted "from" set. Terminal statuses admit no action at all.
var ErrIllegalTransition = errors.New("illegal status transition")

type transition struct {
	from []Status
	to   Status
}

var transitions = map[Action]transition{
	ActionConfirm:  {from: []Status{StatusPending}, to: StatusConfirmed},
	ActionCancel:   {from: []Status{StatusPending, StatusConfirmed}, to: StatusCancelledByPractitioner},
	ActionComplete: {from: []Status{StatusPending, StatusConfirmed}, to: StatusCompleted},
	ActionNoShow:   {from: []Status{StatusPending, StatusConfirmed}, to: StatusNoShow},
}

// actionOrder fixes the order Allowed presents affordances in.
var actionOrder = []Action{ActionConfirm, ActionCancel, ActionComplete, ActionNoShow}

// Can reports whether the action is permitted from the given status.
func Can(s Status, a Action) bool {
	t, ok := transitions[a]
	if !ok {
		return false
	}
	for _, from := range t.from {
		if from == s {
			return true
		}
	}
	return false
}

// Next returns the status the action leads to from s, or ErrIllegalTransition.
// Once a terminal status is reached nothing reopens it.
func Next(s Status, a Action) (Status, error) {
	if !Can(s, a) {
		return "", fmt.Errorf("%w: %s from %s", ErrIllegalTransition, a, s)
	}
	return transitions[a].to, nil
}

// Allowed lists the actions permitted from s, in a fixed presentation order.
// Terminal statuses return nil: every affordance disappears permanently.
func Allowed(s Status) []Action {
	if s.Terminal() {
		return nil
	}
	var out []Action
	for _, a := range actionOrder {
		if Can(s, a) {
			out = append(out, a)
		}
	}
	return out
}

// TransitionPayload carries the optional free text captured alongside a
// transition: a cancellation reason for cancel, practitioner notes for
// complete. Both are always nullable.
type TransitionPayload struct {
	Reason *string
	Notes  *string
}

// InitialStatus resolves the status a newly created appointment starts in:
// pending by default, or confirmed when staff explicitly chooses it at
// creation. Anything else is rejected.
func InitialStatus(explicit *Status) (Status, error) {
	if explicit == nil {
		return StatusPending, nil
	}
	switch *explicit {
	case StatusPending, StatusConfirmed:
		return *explicit, nil
	}
	return "", fmt.Errorf("appointment cannot be created with status %q", *explicit)
}
