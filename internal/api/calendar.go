package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/practice-calendar/internal/appointment"
	"github.com/clinicdesk/practice-calendar/internal/calendar"
)

// calendarHandler serves the merged month/week/day view: it resolves the
// fetch range for the anchor + view, queries both event sources, aggregates
// them into per-day buckets, and (for week/day) attaches pixel geometry and
// the now-indicator offset.
func calendarHandler(appts AppointmentService, events ExternalEventService, agg calendar.Aggregator, now func() time.Time, gridStart, gridEnd int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		view, err := calendar.ParseView(q.Get("view"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_view", err.Error())
			return
		}

		anchor := calendar.GoToToday(now())
		if raw := q.Get("anchor"); raw != "" {
			anchor, err = calendar.ParseDateKey(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_anchor", "anchor must be YYYY-MM-DD")
				return
			}
		}

		scope, err := parseScope(q.Get("scope"), q.Get("practitioner_id"), q.Get("organization_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_scope", err.Error())
			return
		}

		rng := calendar.ResolveRange(anchor, view)

		fetched, err := appts.ListRange(r.Context(), rng, scope)
		if err != nil {
			writeError(w, http.StatusBadGateway, "appointments_fetch_failed", err.Error())
			return
		}
		// External events are best-effort and never fail the view.
		external := events.ListRange(r.Context(), rng)

		buckets := agg.Aggregate(fetched, external)

		var geometry *calendar.Geometry
		switch view {
		case calendar.ViewDay:
			g := calendar.DayGeometry()
			g.StartHour, g.EndHour = gridStart, gridEnd
			geometry = &g
		case calendar.ViewWeek:
			g := calendar.WeekGeometry()
			g.StartHour, g.EndHour = gridStart, gridEnd
			geometry = &g
		}

		resp := CalendarResponse{
			View:     string(view),
			Anchor:   calendar.DateKey(anchor),
			From:     calendar.DateKey(rng.From),
			To:       calendar.DateKey(rng.To),
			QueryKey: calendar.DateKey(rng.From) + ".." + calendar.DateKey(rng.To) + "@" + scope.Key(),
		}

		for _, key := range rng.Keys() {
			day := CalendarDayResponse{Date: key, Items: []CalendarItemResponse{}}
			for _, it := range buckets[key] {
				day.Items = append(day.Items, itemResponse(it, geometry))
			}
			resp.Days = append(resp.Days, day)
		}

		if geometry != nil {
			if offset, ok := geometry.NowOffset(now(), rng); ok {
				resp.NowOffset = &offset
			}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func itemResponse(it calendar.CalendarItem, geometry *calendar.Geometry) CalendarItemResponse {
	out := CalendarItemResponse{Kind: string(it.Kind)}

	switch it.Kind {
	case calendar.KindAppointment:
		out.Appointment = appointmentResponse(it.Appointment)
	case calendar.KindExternalEvent:
		out.Event = eventResponse(it.Event)
	}

	if geometry != nil {
		if box, ok := geometry.Position(it); ok {
			out.Layout = &LayoutBox{
				Top:           box.Top,
				Height:        box.Height,
				DisplayHeight: geometry.DisplayHeight(box),
			}
		}
	}

	return out
}

func parseScope(kind, practitionerID, organizationID string) (appointment.Scope, error) {
	scope := appointment.Scope{Kind: appointment.ScopeKind(kind)}
	if kind == "" {
		scope.Kind = appointment.ScopeAll
	}

	if practitionerID != "" {
		id, err := uuid.Parse(practitionerID)
		if err != nil {
			return appointment.Scope{}, err
		}
		scope.PractitionerID = &id
	}
	if organizationID != "" {
		id, err := uuid.Parse(organizationID)
		if err != nil {
			return appointment.Scope{}, err
		}
		scope.OrganizationID = &id
	}

	return scope, nil
}
