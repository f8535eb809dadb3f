package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicdesk/practice-calendar/internal/appointment"
	"github.com/clinicdesk/practice-calendar/internal/calendar"
	"github.com/clinicdesk/practice-calendar/internal/external"
)

func createAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		practitionerID, err := uuid.Parse(req.PractitionerID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_practitioner_id", "practitioner_id must be a valid UUID")
			return
		}

		params := appointment.CreateParams{
			PractitionerID: practitionerID,
			Date:           req.Date,
			StartTime:      req.StartTime,
			EndTime:        req.EndTime,
			Notes:          req.Notes,
		}

		if req.PatientID != nil {
			patientID, err := uuid.Parse(*req.PatientID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
				return
			}
			params.PatientID = &patientID
		}
		if req.Status != nil {
			status := calendar.Status(*req.Status)
			params.Status = &status
		}

		appt, err := svc.Create(r.Context(), params)
		if err != nil {
			handleCreateError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, appointmentResponse(appt))
	}
}

// transitionHandler applies a lifecycle action through the channel the route
// is mounted on: the practitioner-scoped routes pass ActorPractitioner, the
// organization-scoped routes ActorOrganizationStaff. The permitted-transition
// table is identical for both.
func transitionHandler(svc AppointmentService, actor calendar.Actor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		action, err := calendar.ParseAction(chi.URLParam(r, "action"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_action", err.Error())
			return
		}

		var req TransitionRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
				return
			}
		}

		payload := calendar.TransitionPayload{Reason: req.Reason, Notes: req.Notes}

		appt, err := svc.ApplyTransition(r.Context(), id, action, payload, actor)
		if err != nil {
			handleTransitionError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, appointmentResponse(appt))
	}
}

func listEventsHandler(svc ExternalEventService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		from, err := calendar.ParseDateKey(q.Get("from"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_from", "from must be YYYY-MM-DD")
			return
		}
		to, err := calendar.ParseDateKey(q.Get("to"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_to", "to must be YYYY-MM-DD")
			return
		}

		events := svc.ListRange(r.Context(), calendar.DateRange{From: from, To: to})

		out := make([]*ExternalEventResponse, 0, len(events))
		for i := range events {
			out = append(out, eventResponse(&events[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func createEventHandler(svc ExternalEventService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateEventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		ev, err := svc.CreateManual(r.Context(), external.CreateParams{
			Date:        req.Date,
			StartAt:     req.StartAt,
			EndAt:       req.EndAt,
			Title:       req.Title,
			Description: req.Description,
			Location:    req.Location,
		})
		if err != nil {
			if errors.Is(err, external.ErrInvalidEvent) {
				writeError(w, http.StatusBadRequest, "invalid_event", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusCreated, eventResponse(ev))
	}
}

func deleteEventHandler(svc ExternalEventService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_event_id", "id must be a valid UUID")
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			switch {
			case errors.Is(err, external.ErrEventNotFound):
				writeError(w, http.StatusNotFound, "event_not_found", err.Error())
			case errors.Is(err, external.ErrEventReadOnly):
				writeError(w, http.StatusConflict, "event_read_only", err.Error())
			default:
				writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			}
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func handleCreateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, appointment.ErrPractitionerNotFound):
		writeError(w, http.StatusNotFound, "practitioner_not_found", err.Error())
	case errors.Is(err, appointment.ErrInvalidTimes),
		errors.Is(err, appointment.ErrPractitionerMissing):
		writeError(w, http.StatusBadRequest, "invalid_appointment", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleTransitionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, calendar.ErrIllegalTransition):
		writeError(w, http.StatusConflict, "illegal_transition", err.Error())
	case errors.Is(err, appointment.ErrTransitionInFlight):
		writeError(w, http.StatusConflict, "transition_in_flight", err.Error())
	case errors.Is(err, appointment.ErrTransitionConflict):
		writeError(w, http.StatusConflict, "transition_conflict", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
