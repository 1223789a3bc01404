package calendar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/ocean-haven/booking/internal/storage/models"
)

const (
	maxFeedBytes           = 10 << 20
	maxOccurrencesPerEvent = 1000
	defaultFetchTimeout    = 15 * time.Second
	statusCancelled        = "CANCELLED"
	statusConfirmed        = "CONFIRMED"
	statusTentative        = "TENTATIVE"
)

// Fetcher downloads external iCal feeds.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a fetcher whose requests time out after timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch downloads the feed at url. Any status other than 200 is an error.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, errors.New("feed URL is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/calendar, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching calendar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching calendar: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("reading calendar: %w", err)
	}
	return body, nil
}

// Window bounds which occurrences of a feed are kept.
type Window struct {
	Start time.Time
	End   time.Time
}

// overlaps reports whether [start, end] intersects the window.
func (w Window) overlaps(start, end time.Time) bool {
	return !end.Before(w.Start) && !start.After(w.End)
}

// ParseFeed reads an external feed into occurrences inside the window.
// Recurring events are expanded and EXDATEs honoured; cancelled events and
// events without a start are skipped. Date-only values are read in loc.
func ParseFeed(body []byte, window Window, loc *time.Location) ([]models.FeedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty calendar body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing calendar: %w", err)
	}

	p := NewParser(loc)
	var out []models.FeedEvent
	for _, ve := range cal.Events() {
		base, rule, exdates, ok := p.readVEvent(ve)
		if !ok || strings.EqualFold(base.Status, statusCancelled) {
			continue
		}

		if rule == "" {
			if window.overlaps(base.Start, base.End) {
				out = append(out, base)
			}
			continue
		}

		out = append(out, expand(base, rule, exdates, window)...)
	}

	return out, nil
}

// readVEvent extracts the fields kept for a FeedEvent plus the raw RRULE
// and EXDATE values.
func (p *Parser) readVEvent(ve *ical.VEvent) (models.FeedEvent, string, []time.Time, bool) {
	var ev models.FeedEvent

	if prop := ve.GetProperty(ical.ComponentPropertyUniqueId); prop != nil {
		ev.UID = prop.Value
	}
	if prop := ve.GetProperty(ical.ComponentPropertySummary); prop != nil {
		ev.Summary = prop.Value
	}
	if prop := ve.GetProperty(ical.ComponentPropertyStatus); prop != nil {
		ev.Status = strings.ToUpper(prop.Value)
	}

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return ev, "", nil, false
	}
	ev.AllDay = isDateValue(startProp)

	var err error
	if ev.AllDay {
		// All-day values are stored as UTC midnight of their date.
		start, ok := p.parseDateValue(startProp.Value)
		if !ok {
			return ev, "", nil, false
		}
		ev.Start = dayOf(start)
		ev.End = ev.Start.AddDate(0, 0, 1)
		if endProp := ve.GetProperty(ical.ComponentPropertyDtEnd); endProp != nil {
			if end, ok := p.parseDateValue(endProp.Value); ok {
				ev.End = dayOf(end)
			}
		}
	} else {
		if ev.Start, err = ve.GetStartAt(); err != nil {
			return ev, "", nil, false
		}
		ev.End = ev.Start
		if ve.GetProperty(ical.ComponentPropertyDtEnd) != nil {
			if end, err := ve.GetEndAt(); err == nil {
				ev.End = end
			}
		}
	}

	if ev.UID == "" {
		ev.UID = fmt.Sprintf("%s@feed", ev.Start.UTC().Format("20060102T150405Z"))
	}

	var rule string
	if prop := ve.GetProperty(ical.ComponentPropertyRrule); prop != nil {
		rule = prop.Value
	}

	var exdates []time.Time
	for _, prop := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(prop.Value, ",") {
			t, ok := p.parseDateValue(part)
			if !ok {
				continue
			}
			if ev.AllDay {
				t = dayOf(t)
			}
			exdates = append(exdates, t)
		}
	}

	return ev, rule, exdates, true
}

func isDateValue(prop *ical.IANAProperty) bool {
	if vs, ok := prop.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(prop.Value, "T")
}

// expand returns one FeedEvent per RRULE occurrence inside the window, each
// keeping the base event's duration.
func expand(base models.FeedEvent, rule string, exdates []time.Time, window Window) []models.FeedEvent {
	r, err := rrule.StrToRRule(rule)
	if err != nil {
		log.Printf("Skipping recurring event %s: bad RRULE %q: %v", base.UID, rule, err)
		return nil
	}
	r.DTStart(base.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range exdates {
		set.ExDate(ex.In(base.Start.Location()))
	}

	duration := base.End.Sub(base.Start)
	// Occurrences that started before the window may still cover it.
	from := window.Start.Add(-duration)
	occurrences := set.Between(from, window.End, true)
	if len(occurrences) > maxOccurrencesPerEvent {
		log.Printf("Truncating recurring event %s to %d occurrences", base.UID, maxOccurrencesPerEvent)
		occurrences = occurrences[:maxOccurrencesPerEvent]
	}

	out := make([]models.FeedEvent, 0, len(occurrences))
	for _, start := range occurrences {
		occ := base
		occ.Start = start
		occ.End = start.Add(duration)
		out = append(out, occ)
	}
	return out
}
