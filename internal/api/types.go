package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/practice-calendar/internal/calendar"
)

type CreateAppointmentRequest struct {
	PractitionerID string  `json:"practitioner_id"`
	PatientID      *string `json:"patient_id,omitempty"`
	Date           string  `json:"date"`
	StartTime      string  `json:"start_time"`
	EndTime        string  `json:"end_time"`
	Notes          *string `json:"notes,omitempty"`
	Status         *string `json:"status,omitempty"`
}

type TransitionRequest struct {
	Reason *string `json:"reason,omitempty"`
	Notes  *string `json:"notes,omitempty"`
}

type CreateEventRequest struct {
	Date        string    `json:"date"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Location    *string   `json:"location,omitempty"`
}

type AppointmentResponse struct {
	ID                 uuid.UUID  `json:"id"`
	PractitionerID     uuid.UUID  `json:"practitioner_id"`
	PatientID          *uuid.UUID `json:"patient_id,omitempty"`
	Date               string     `json:"date"`
	StartTime          string     `json:"start_time"`
	EndTime            string     `json:"end_time"`
	Status             string     `json:"status"`
	Source             string     `json:"source"`
	Draft              bool       `json:"draft"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	PractitionerNotes  *string    `json:"practitioner_notes,omitempty"`
	// Actions are the transition affordances the UI may offer; empty once the
	// appointment has reached a terminal status.
	Actions []string `json:"actions"`
}

type ExternalEventResponse struct {
	ID           uuid.UUID `json:"id"`
	Date         string    `json:"date"`
	StartAt      time.Time `json:"start_at"`
	EndAt        time.Time `json:"end_at"`
	Title        string    `json:"title"`
	Description  *string   `json:"description,omitempty"`
	Location     *string   `json:"location,omitempty"`
	TypeDetected string    `json:"type_detected"`
	Source       string    `json:"source"`
	Deletable    bool      `json:"deletable"`
}

type LayoutBox struct {
	Top           float64 `json:"top"`
	Height        float64 `json:"height"`
	DisplayHeight float64 `json:"display_height"`
}

type CalendarItemResponse struct {
	Kind        string                 `json:"kind"`
	Appointment *AppointmentResponse   `json:"appointment,omitempty"`
	Event       *ExternalEventResponse `json:"event,omitempty"`
	Layout      *LayoutBox             `json:"layout,omitempty"`
}

type CalendarDayResponse struct {
	Date  string                 `json:"date"`
	Items []CalendarItemResponse `json:"items"`
}

type CalendarResponse struct {
	View   string `json:"view"`
	Anchor string `json:"anchor"`
	From   string `json:"from"`
	To     string `json:"to"`
	// QueryKey identifies the resolved range + scope this response answers.
	// Clients discard responses whose key no longer matches their current
	// query, so a late reply can never be applied to a different range.
	QueryKey  string                `json:"query_key"`
	Days      []CalendarDayResponse `json:"days"`
	NowOffset *float64              `json:"now_offset,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func appointmentResponse(a *calendar.Appointment) *AppointmentResponse {
	actions := calendar.Allowed(a.Status)
	names := make([]string, 0, len(actions))
	for _, action := range actions {
		names = append(names, string(action))
	}

	return &AppointmentResponse{
		ID:                 a.ID,
		PractitionerID:     a.PractitionerID,
		PatientID:          a.PatientID,
		Date:               a.Date,
		StartTime:          a.StartTime,
		EndTime:            a.EndTime,
		Status:             string(a.Status),
		Source:             string(a.Source),
		Draft:              a.Draft(),
		CancellationReason: a.CancellationReason,
		PractitionerNotes:  a.PractitionerNotes,
		Actions:            names,
	}
}

func eventResponse(ev *calendar.ExternalEvent) *ExternalEventResponse {
	return &ExternalEventResponse{
		ID:           ev.ID,
		Date:         ev.Date,
		StartAt:      ev.StartAt,
		EndAt:        ev.EndAt,
		Title:        ev.Title,
		Description:  ev.Description,
		Location:     ev.Location,
		TypeDetected: string(ev.TypeDetected),
		Source:       string(ev.Source),
		Deletable:    ev.Source == calendar.EventSourceManual,
	}
}
