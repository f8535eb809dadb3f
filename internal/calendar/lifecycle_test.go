package calendar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStatuses = []Status{
	StatusPending, StatusConfirmed, StatusCompleted,
	StatusCancelledByPatient, StatusCancelledByPractitioner, StatusNoShow,
}

var allActions = []Action{ActionConfirm, ActionCancel, ActionComplete, ActionNoShow}

func TestPermittedTransitions(t *testing.T) {
	cases := []struct {
		from   Status
		action Action
		to     Status
	}{
		{StatusPending, ActionConfirm, StatusConfirmed},
		{StatusPending, ActionCancel, StatusCancelledByPractitioner},
		{StatusConfirmed, ActionCancel, StatusCancelledByPractitioner},
		{StatusPending, ActionComplete, StatusCompleted},
		{StatusConfirmed, ActionComplete, StatusCompleted},
		{StatusPending, ActionNoShow, StatusNoShow},
		{StatusConfirmed, ActionNoShow, StatusNoShow},
	}

	for _, tc := range cases {
		got, err := Next(tc.from, tc.action)
		require.NoError(t, err, "%s from %s", tc.action, tc.from)
		assert.Equal(t, tc.to, got)
	}
}

func TestConfirmOnlyFromPending(t *testing.T) {
	_, err := Next(StatusConfirmed, ActionConfirm)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

// No action ever leads out of a terminal status: nothing reopens a completed,
// cancelled, or no-show appointment.
func TestTerminalStatusesAreFinal(t *testing.T) {
	for _, s := range allStatuses {
		if !s.Terminal() {
			continue
		}
		assert.Nil(t, Allowed(s), "terminal status %s must expose no affordances", s)
		for _, a := range allActions {
			_, err := Next(s, a)
			assert.ErrorIs(t, err, ErrIllegalTransition, "%s from %s", a, s)
		}
	}
}

func TestAllowedAffordances(t *testing.T) {
	assert.Equal(t,
		[]Action{ActionConfirm, ActionCancel, ActionComplete, ActionNoShow},
		Allowed(StatusPending))
	assert.Equal(t,
		[]Action{ActionCancel, ActionComplete, ActionNoShow},
		Allowed(StatusConfirmed))
}

// The two actor classes share the identical transition table; they differ only
// in which channel applies the mutation.
func TestActorChannels(t *testing.T) {
	assert.Equal(t, ChannelPractitioner, ActorPractitioner.Channel())
	assert.Equal(t, ChannelOrganization, ActorOrganizationStaff.Channel())

	for _, s := range allStatuses {
		for _, a := range allActions {
			// Can() takes no actor on purpose: both classes see the same table.
			_ = Can(s, a)
		}
	}
}

func TestInitialStatus(t *testing.T) {
	got, err := InitialStatus(nil)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got)

	confirmed := StatusConfirmed
	got, err = InitialStatus(&confirmed)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got)

	done := StatusCompleted
	_, err = InitialStatus(&done)
	assert.Error(t, err)
}

func TestStatusValid(t *testing.T) {
	for _, s := range allStatuses {
		assert.True(t, s.Valid())
	}
	assert.False(t, Status("expired").Valid())
}

func TestParseAction(t *testing.T) {
	for _, a := range allActions {
		got, err := ParseAction(string(a))
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
	_, err := ParseAction("reopen")
	assert.Error(t, err)
}
