package calendar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func utcDay(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func feedBody(lines ...string) string {
	return ics(lines...) + "\r\n"
}

var testWindow = Window{Start: utcDay(2025, 1, 1), End: utcDay(2025, 12, 31)}

func TestFetcherFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/calendar")
		w.Write([]byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"))
	}))
	defer srv.Close()

	f := NewFetcher(time.Second)

	body, err := f.Fetch(context.Background(), srv.URL+"/feed.ics")
	require.NoError(t, err)
	assert.Contains(t, string(body), "BEGIN:VCALENDAR")

	_, err = f.Fetch(context.Background(), srv.URL+"/missing")
	assert.Error(t, err)

	_, err = f.Fetch(context.Background(), "")
	assert.Error(t, err)
}

func TestParseFeedAllDayAndTimed(t *testing.T) {
	body := feedBody(
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//EN",
		"BEGIN:VEVENT",
		"UID:a1@airbnb.com",
		"DTSTAMP:20250101T000000Z",
		"DTSTART;VALUE=DATE:20250301",
		"DTEND;VALUE=DATE:20250305",
		"SUMMARY:Reserved",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:b2@booking.com",
		"DTSTAMP:20250101T000000Z",
		"DTSTART:20250410T150000Z",
		"DTEND:20250412T110000Z",
		"SUMMARY:CLOSED - Not available",
		"END:VEVENT",
		"END:VCALENDAR",
	)

	events, err := ParseFeed([]byte(body), testWindow, time.UTC)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "a1@airbnb.com", events[0].UID)
	assert.True(t, events[0].AllDay)
	assert.Equal(t, utcDay(2025, 3, 1), events[0].Start)
	assert.Equal(t, utcDay(2025, 3, 5), events[0].End)

	assert.False(t, events[1].AllDay)
	assert.True(t, events[1].Start.Equal(time.Date(2025, 4, 10, 15, 0, 0, 0, time.UTC)))
	assert.True(t, events[1].End.Equal(time.Date(2025, 4, 12, 11, 0, 0, 0, time.UTC)))
}

func TestParseFeedAllDayIgnoresLocationOffset(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	body := feedBody(
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"BEGIN:VEVENT",
		"UID:x",
		"DTSTART;VALUE=DATE:20250301",
		"END:VEVENT",
		"END:VCALENDAR",
	)

	events, err := ParseFeed([]byte(body), testWindow, loc)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, utcDay(2025, 3, 1), events[0].Start)
	assert.Equal(t, utcDay(2025, 3, 2), events[0].End)
}

func TestParseFeedSkipsCancelledAndOutOfWindow(t *testing.T) {
	body := feedBody(
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"BEGIN:VEVENT",
		"UID:cancelled",
		"DTSTART;VALUE=DATE:20250301",
		"DTEND;VALUE=DATE:20250303",
		"STATUS:CANCELLED",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:old",
		"DTSTART;VALUE=DATE:20200301",
		"DTEND;VALUE=DATE:20200303",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:nostart",
		"SUMMARY:Broken",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:kept",
		"DTSTART;VALUE=DATE:20250601",
		"DTEND;VALUE=DATE:20250602",
		"END:VEVENT",
		"END:VCALENDAR",
	)

	events, err := ParseFeed([]byte(body), testWindow, time.UTC)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "kept", events[0].UID)
}

func TestParseFeedExpandsRecurrence(t *testing.T) {
	body := feedBody(
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"BEGIN:VEVENT",
		"UID:weekly",
		"DTSTART;VALUE=DATE:20250106",
		"DTEND;VALUE=DATE:20250108",
		"RRULE:FREQ=WEEKLY;COUNT=4",
		"EXDATE;VALUE=DATE:20250113",
		"SUMMARY:Cleaning",
		"END:VEVENT",
		"END:VCALENDAR",
	)

	events, err := ParseFeed([]byte(body), testWindow, time.UTC)
	require.NoError(t, err)
	require.Len(t, events, 3)

	starts := []time.Time{utcDay(2025, 1, 6), utcDay(2025, 1, 20), utcDay(2025, 1, 27)}
	for i, ev := range events {
		assert.Equal(t, "weekly", ev.UID)
		assert.True(t, ev.Start.Equal(starts[i]), "occurrence %d starts %s", i, ev.Start)
		assert.Equal(t, 48*time.Hour, ev.End.Sub(ev.Start))
	}
}

func TestParseFeedRecurrenceClippedToWindow(t *testing.T) {
	body := feedBody(
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"BEGIN:VEVENT",
		"UID:daily",
		"DTSTART:20241201T100000Z",
		"DTEND:20241201T120000Z",
		"RRULE:FREQ=DAILY",
		"END:VEVENT",
		"END:VCALENDAR",
	)

	window := Window{Start: utcDay(2025, 1, 1), End: utcDay(2025, 1, 10)}
	events, err := ParseFeed([]byte(body), window, time.UTC)
	require.NoError(t, err)
	require.Len(t, events, 9)
	assert.True(t, events[0].Start.Equal(time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)))
}

func TestParseFeedRejectsEmptyBody(t *testing.T) {
	_, err := ParseFeed(nil, testWindow, time.UTC)
	assert.Error(t, err)
}
