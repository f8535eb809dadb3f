// Package importer syncs external ICS calendar feeds into the external-events
// store. Each run fetches a feed, expands recurring events inside the sync
// window, classifies every occurrence, and upserts the results keyed by
// feed + occurrence UID.
package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/teambition/rrule-go"

	"github.com/clinicdesk/practice-calendar/internal/calendar"
	"github.com/clinicdesk/practice-calendar/internal/external"
)

const maxOccurrencesPerEvent = 1000

// Feed is a single ICS subscription.
type Feed struct {
	ID  string
	URL string
}

type Importer struct {
	client *http.Client
	repo   external.Repository
	log    zerolog.Logger
}

func New(repo external.Repository, log zerolog.Logger) *Importer {
	return &Importer{
		client: &http.Client{Timeout: 15 * time.Second},
		repo:   repo,
		log:    log,
	}
}

// SyncFeed fetches one feed and upserts its occurrences within the window.
// Individual events that fail to parse are skipped and logged; the rest of
// the feed still imports.
func (im *Importer) SyncFeed(ctx context.Context, feed Feed, window calendar.DateRange) error {
	if feed.URL == "" {
		return errors.New("feed URL is empty")
	}

	body, err := im.fetch(ctx, feed.URL)
	if err != nil {
		return fmt.Errorf("fetch feed %s: %w", feed.ID, err)
	}

	events, err := im.parse(feed, body, window)
	if err != nil {
		return fmt.Errorf("parse feed %s: %w", feed.ID, err)
	}

	if err := im.repo.UpsertImported(ctx, feed.ID, events); err != nil {
		return fmt.Errorf("store feed %s: %w", feed.ID, err)
	}

	im.log.Info().Str("feed_id", feed.ID).Int("event_count", len(events)).Msg("feed sync complete")
	return nil
}

func (im *Importer) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := im.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func (im *Importer) parse(feed Feed, body []byte, window calendar.DateRange) ([]calendar.ExternalEvent, error) {
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var out []calendar.ExternalEvent
	for _, ve := range cal.Events() {
		events, err := im.expandVEvent(feed, ve, window)
		if err != nil {
			im.log.Warn().Err(err).Str("feed_id", feed.ID).Msg("skipping unparseable VEVENT")
			continue
		}
		out = append(out, events...)
	}
	return out, nil
}

func (im *Importer) expandVEvent(feed Feed, ve *ical.VEvent, window calendar.DateRange) ([]calendar.ExternalEvent, error) {
	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return nil, errors.New("missing UID")
	}
	uid := uidProp.Value

	start, err := ve.GetStartAt()
	if err != nil {
		return nil, fmt.Errorf("DTSTART: %w", err)
	}
	end, err := ve.GetEndAt()
	if err != nil || !end.After(start) {
		// Events without a usable DTEND default to 30 minutes.
		end = start.Add(30 * time.Minute)
	}
	duration := end.Sub(start)

	summary := propValue(ve, ical.ComponentPropertySummary)
	description := optional(propValue(ve, ical.ComponentPropertyDescription))
	location := optional(propValue(ve, ical.ComponentPropertyLocation))

	starts, err := occurrenceStarts(ve, start, window)
	if err != nil {
		return nil, err
	}

	var out []calendar.ExternalEvent
	for _, occStart := range starts {
		if !window.Contains(occStart) {
			continue
		}
		occEnd := occStart.Add(duration)
		occUID := uid + "/" + occStart.Format(time.RFC3339)
		feedID := feed.ID

		out = append(out, calendar.ExternalEvent{
			ID:           deterministicID(feed.ID, occUID),
			Date:         calendar.DateKey(occStart),
			StartAt:      occStart,
			EndAt:        occEnd,
			Title:        displayTitle(summary),
			Description:  description,
			Location:     location,
			TypeDetected: classify(summary),
			Source:       calendar.EventSourceImported,
			FeedID:       &feedID,
			ImportUID:    &occUID,
		})
	}
	return out, nil
}

// occurrenceStarts returns the start instants of an event inside the window:
// a single start for plain events, or the RRULE expansion for recurring ones.
func occurrenceStarts(ve *ical.VEvent, start time.Time, window calendar.DateRange) ([]time.Time, error) {
	rruleProp := ve.GetProperty(ical.ComponentPropertyRrule)
	if rruleProp == nil || rruleProp.Value == "" {
		return []time.Time{start}, nil
	}

	rule, err := rrule.StrToRRule(rruleProp.Value)
	if err != nil {
		return nil, fmt.Errorf("RRULE: %w", err)
	}
	rule.DTStart(start)

	var set rrule.Set
	set.RRule(rule)

	windowStart := window.From.In(start.Location())
	windowEnd := window.To.AddDate(0, 0, 1).In(start.Location())

	starts := set.Between(windowStart, windowEnd, true)
	if len(starts) > maxOccurrencesPerEvent {
		starts = starts[:maxOccurrencesPerEvent]
	}
	return starts, nil
}

// classify maps a VEVENT onto the type_detected hint consumed by the calendar:
// entries without a usable summary are opaque busy blocks.
func classify(summary string) calendar.EventType {
	s := strings.ToLower(strings.TrimSpace(summary))
	if s == "" || s == "busy" || s == "blocked" {
		return calendar.EventTypeBusy
	}
	return calendar.EventTypeAppointment
}

func displayTitle(summary string) string {
	if strings.TrimSpace(summary) == "" {
		return "Busy"
	}
	return summary
}

// deterministicID derives a stable UUID per feed occurrence so repeated syncs
// address the same row.
func deterministicID(feedID, occUID string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(feedID+"#"+occUID))
}

func propValue(ve *ical.VEvent, prop ical.ComponentProperty) string {
	if p := ve.GetProperty(prop); p != nil {
		return p.Value
	}
	return ""
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
