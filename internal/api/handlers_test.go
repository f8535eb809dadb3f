package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicdesk/practice-calendar/internal/appointment"
	"github.com/clinicdesk/practice-calendar/internal/calendar"
	"github.com/clinicdesk/practice-calendar/internal/external"
)

type fakeAppointments struct {
	appts []calendar.Appointment

	lastAction calendar.Action
	lastActor  calendar.Actor
	applyErr   error
	applied    *calendar.Appointment
}

func (f *fakeAppointments) ListRange(_ context.Context, _ calendar.DateRange, _ appointment.Scope) ([]calendar.Appointment, error) {
	return f.appts, nil
}

func (f *fakeAppointments) Create(_ context.Context, params appointment.CreateParams) (*calendar.Appointment, error) {
	return &calendar.Appointment{
		ID:             uuid.New(),
		PractitionerID: params.PractitionerID,
		PatientID:      params.PatientID,
		Date:           params.Date,
		StartTime:      params.StartTime,
		EndTime:        params.EndTime,
		Status:         calendar.StatusPending,
		Source:         calendar.SourcePractice,
	}, nil
}

func (f *fakeAppointments) ApplyTransition(_ context.Context, _ uuid.UUID, action calendar.Action, _ calendar.TransitionPayload, actor calendar.Actor) (*calendar.Appointment, error) {
	f.lastAction = action
	f.lastActor = actor
	if f.applyErr != nil {
		return nil, f.applyErr
	}
	return f.applied, nil
}

type fakeEvents struct {
	events    []calendar.ExternalEvent
	deleteErr error
}

func (f *fakeEvents) ListRange(_ context.Context, _ calendar.DateRange) []calendar.ExternalEvent {
	return f.events
}

func (f *fakeEvents) CreateManual(_ context.Context, params external.CreateParams) (*calendar.ExternalEvent, error) {
	return &calendar.ExternalEvent{
		ID:           uuid.New(),
		Date:         params.Date,
		StartAt:      params.StartAt,
		EndAt:        params.EndAt,
		Title:        params.Title,
		TypeDetected: calendar.EventTypeAppointment,
		Source:       calendar.EventSourceManual,
	}, nil
}

func (f *fakeEvents) Delete(_ context.Context, _ uuid.UUID) error {
	return f.deleteErr
}

func testRouter(appts *fakeAppointments, events *fakeEvents) http.Handler {
	return NewRouter(RouterConfig{
		Appointments: appts,
		Events:       events,
		Aggregator:   calendar.NewAggregator(zerolog.Nop()),
		Log:          zerolog.Nop(),
		Env:          "test",
		Version:      "test",
		Now: func() time.Time {
			return time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC)
		},
	})
}

func TestCalendarEndpointMergesAndLaysOut(t *testing.T) {
	practitionerID := uuid.New()
	appts := &fakeAppointments{appts: []calendar.Appointment{{
		ID:             uuid.New(),
		PractitionerID: practitionerID,
		Date:           "2024-03-10",
		StartTime:      "09:00:00",
		EndTime:        "09:30:00",
		Status:         calendar.StatusConfirmed,
		Source:         calendar.SourcePractice,
	}}}
	events := &fakeEvents{events: []calendar.ExternalEvent{{
		ID:           uuid.New(),
		Date:         "2024-03-10",
		StartAt:      time.Date(2024, time.March, 10, 8, 0, 0, 0, time.UTC),
		EndAt:        time.Date(2024, time.March, 10, 8, 30, 0, 0, time.UTC),
		Title:        "imported",
		TypeDetected: calendar.EventTypeBusy,
		Source:       calendar.EventSourceImported,
	}}}

	req := httptest.NewRequest(http.MethodGet, "/calendar?view=day&anchor=2024-03-10", nil)
	rec := httptest.NewRecorder()
	testRouter(appts, events).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp CalendarResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "day", resp.View)
	assert.Equal(t, "2024-03-10", resp.From)
	assert.Equal(t, "2024-03-10", resp.To)
	assert.Contains(t, resp.QueryKey, "2024-03-10..2024-03-10")

	require.Len(t, resp.Days, 1)
	items := resp.Days[0].Items
	require.Len(t, items, 2)

	// External event at 08:00 sorts ahead of the 09:00 appointment.
	assert.Equal(t, "external_event", items[0].Kind)
	assert.Equal(t, "appointment", items[1].Kind)

	// Day view attaches pixel geometry.
	require.NotNil(t, items[1].Layout)
	assert.InDelta(t, 2*calendar.DayHourHeight, items[1].Layout.Top, 1e-9)
	assert.InDelta(t, calendar.DayHourHeight/2, items[1].Layout.Height, 1e-9)

	// 09:00 on the displayed day puts the now line two hours into the grid.
	require.NotNil(t, resp.NowOffset)
	assert.InDelta(t, 2*calendar.DayHourHeight, *resp.NowOffset, 1e-9)
}

func TestCalendarEndpointRejectsBadInput(t *testing.T) {
	router := testRouter(&fakeAppointments{}, &fakeEvents{})

	for _, path := range []string{
		"/calendar?view=year",
		"/calendar?view=day&anchor=03-10-2024",
		"/calendar?view=day&practitioner_id=nope",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestTransitionRoutesSelectChannel(t *testing.T) {
	id := uuid.New()
	appts := &fakeAppointments{applied: &calendar.Appointment{
		ID:     id,
		Date:   "2024-03-10",
		Status: calendar.StatusConfirmed,
	}}
	router := testRouter(appts, &fakeEvents{})

	req := httptest.NewRequest(http.MethodPost, "/appointments/"+id.String()+"/transitions/confirm", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, calendar.ActorPractitioner, appts.lastActor)
	assert.Equal(t, calendar.ActionConfirm, appts.lastAction)

	req = httptest.NewRequest(http.MethodPost, "/org/appointments/"+id.String()+"/transitions/cancel", strings.NewReader(`{"reason":"double booked"}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, calendar.ActorOrganizationStaff, appts.lastActor)
	assert.Equal(t, calendar.ActionCancel, appts.lastAction)
}

func TestTransitionErrorMapping(t *testing.T) {
	id := uuid.New()
	cases := []struct {
		err  error
		want int
		code string
	}{
		{appointment.ErrAppointmentNotFound, http.StatusNotFound, "appointment_not_found"},
		{calendar.ErrIllegalTransition, http.StatusConflict, "illegal_transition"},
		{appointment.ErrTransitionInFlight, http.StatusConflict, "transition_in_flight"},
		{appointment.ErrTransitionConflict, http.StatusConflict, "transition_conflict"},
	}

	for _, tc := range cases {
		appts := &fakeAppointments{applyErr: tc.err}
		router := testRouter(appts, &fakeEvents{})

		req := httptest.NewRequest(http.MethodPost, "/appointments/"+id.String()+"/transitions/confirm", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, tc.want, rec.Code, tc.code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, tc.code, resp.Error)
	}
}

func TestTransitionRejectsUnknownAction(t *testing.T) {
	router := testRouter(&fakeAppointments{}, &fakeEvents{})

	req := httptest.NewRequest(http.MethodPost, "/appointments/"+uuid.NewString()+"/transitions/reopen", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteEventReadOnlyMapping(t *testing.T) {
	events := &fakeEvents{deleteErr: external.ErrEventReadOnly}
	router := testRouter(&fakeAppointments{}, events)

	req := httptest.NewRequest(http.MethodDelete, "/events/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
