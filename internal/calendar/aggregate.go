package calendar

import (
	"sort"

	"github.com/rs/zerolog"
)

// Aggregator merges practice appointments and external calendar events into
// per-day buckets of CalendarItems. It holds no state beyond a logger:
// Aggregate is a pure function of its inputs and safe to re-run on every
// refresh, regardless of which fetch resolved first.
type Aggregator struct {
	log zerolog.Logger
}

func NewAggregator(log zerolog.Logger) Aggregator {
	return Aggregator{log: log}
}

// Aggregate buckets every item under its calendar date and sorts each bucket
// ascending by start time-of-day.
//
// The sort is stable over input order, and appointments are appended before
// external events, so an appointment and an event sharing an exact start time
// keep that relative order deterministically. Nothing reconciles such
// double-booked slots; both items are kept.
//
// Items whose date or start time does not parse are dropped from the result
// and logged; aggregation of the remaining items continues.
func (g Aggregator) Aggregate(appointments []Appointment, events []ExternalEvent) map[string][]CalendarItem {
	buckets := make(map[string][]CalendarItem)

	for i := range appointments {
		it := CalendarItem{Kind: KindAppointment, Appointment: &appointments[i]}
		g.place(buckets, it)
	}
	for i := range events {
		it := CalendarItem{Kind: KindExternalEvent, Event: &events[i]}
		g.place(buckets, it)
	}

	for key := range buckets {
		bucket := buckets[key]
		sort.SliceStable(bucket, func(i, j int) bool {
			a, _ := bucket[i].StartClock()
			b, _ := bucket[j].StartClock()
			return a < b
		})
	}

	return buckets
}

func (g Aggregator) place(buckets map[string][]CalendarItem, it CalendarItem) {
	key, ok := it.DateKey()
	if !ok {
		g.dropped(it, "unparseable date")
		return
	}
	if _, ok := it.StartClock(); !ok {
		g.dropped(it, "unparseable start time")
		return
	}
	buckets[key] = append(buckets[key], it)
}

func (g Aggregator) dropped(it CalendarItem, reason string) {
	ev := g.log.Warn().Str("kind", string(it.Kind)).Str("reason", reason)
	switch it.Kind {
	case KindAppointment:
		ev = ev.Str("appointment_id", it.Appointment.ID.String()).Str("date", it.Appointment.Date)
	case KindExternalEvent:
		ev = ev.Str("event_id", it.Event.ID.String()).Str("date", it.Event.Date)
	}
	ev.Msg("calendar item dropped from aggregation")
}
