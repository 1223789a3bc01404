package calendar

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocean-haven/booking/internal/storage/models"
)

func ics(lines ...string) string {
	return strings.Join(lines, "\r\n")
}

func TestParseICSDateOnlyEvent(t *testing.T) {
	events := ParseICS(ics(
		"BEGIN:VCALENDAR",
		"BEGIN:VEVENT",
		"DTSTART:20250101",
		"DTEND:20250104",
		"SUMMARY:Reserved",
		"CATEGORIES:Airbnb",
		"STATUS:CONFIRMED",
		"END:VEVENT",
		"END:VCALENDAR",
	))

	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), ev.From)
	assert.Equal(t, time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC), ev.To)
	assert.Equal(t, "Airbnb", ev.Source)
	assert.Equal(t, "Reserved", ev.Summary)
	assert.Equal(t, "CONFIRMED", ev.Status)
}

func TestParseICSDropsEventWithoutEnd(t *testing.T) {
	text := ics("BEGIN:VEVENT", "DTSTART:20250101", "END:VEVENT")

	assert.Empty(t, ParseICS(text))

	res := NewParser(time.UTC).Parse(text)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, WarnMissingEnd, res.Warnings[0].Reason)
	assert.Equal(t, 1, res.Warnings[0].Line)
}

func TestParseICSUTCTimestamp(t *testing.T) {
	events := ParseICS(ics(
		"BEGIN:VEVENT",
		"DTSTART:20250101T120000Z",
		"DTEND:20250103T100000Z",
		"END:VEVENT",
	))

	require.Len(t, events, 1)
	assert.True(t, events[0].From.Equal(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.UTC, events[0].From.Location())
}

func TestParseICSUTCTimestampIgnoresParserLocation(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	res := NewParser(loc).Parse(ics(
		"BEGIN:VEVENT",
		"DTSTART;TZID=America/Sao_Paulo:20250101T120000Z",
		"DTEND;VALUE=DATE:20250105",
		"END:VEVENT",
	))

	require.Len(t, res.Events, 1)
	assert.True(t, res.Events[0].From.Equal(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2025, 1, 4, 0, 0, 0, 0, loc), res.Events[0].To)
}

func TestParseICSKeepsFirstOccurrence(t *testing.T) {
	events := ParseICS(ics(
		"BEGIN:VEVENT",
		"DTSTART:20250101",
		"DTSTART:20250201",
		"DTEND:20250102",
		"SUMMARY:first",
		"SUMMARY:second",
		"END:VEVENT",
	))

	require.Len(t, events, 1)
	assert.Equal(t, 1, events[0].From.Day())
	assert.Equal(t, time.January, events[0].From.Month())
	assert.Equal(t, "first", events[0].Summary)
}

func TestParseICSPreservesOrderAndIgnoresJunk(t *testing.T) {
	events := ParseICS(strings.Join([]string{
		"BEGIN:VCALENDAR",
		"this line has no colon",
		"X-WR-CALNAME:Beach house",
		"BEGIN:VEVENT",
		"  DTSTART:20250310  ",
		"DTEND:20250312",
		"UID:abc@example.com",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"DTSTART:20250301",
		"DTEND:20250302",
		"END:VEVENT",
		"END:VCALENDAR",
	}, "\n"))

	require.Len(t, events, 2)
	assert.Equal(t, 10, events[0].From.Day())
	assert.Equal(t, 1, events[1].From.Day())
	assert.Equal(t, events[1].From, events[1].To)
}

func TestParseICSIgnoresPropertiesOutsideEvents(t *testing.T) {
	events := ParseICS(ics(
		"DTSTART:20250101",
		"DTEND:20250104",
		"BEGIN:VEVENT",
		"SUMMARY:no dates",
		"END:VEVENT",
	))

	assert.Empty(t, events)
}

func TestParseICSReversedRangeIsWarnedButKept(t *testing.T) {
	res := NewParser(nil).Parse(ics(
		"BEGIN:VEVENT",
		"DTSTART:20250110",
		"DTEND:20250105",
		"END:VEVENT",
	))

	require.Len(t, res.Events, 1)
	assert.True(t, res.Events[0].From.After(res.Events[0].To))
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, WarnReversedRange, res.Warnings[0].Reason)
}

func TestParseICSInvalidDateWarns(t *testing.T) {
	res := NewParser(nil).Parse(ics(
		"BEGIN:VEVENT",
		"DTSTART:tomorrow",
		"DTEND:20250105",
		"END:VEVENT",
	))

	assert.Empty(t, res.Events)
	reasons := []string{}
	for _, w := range res.Warnings {
		reasons = append(reasons, w.Reason)
	}
	assert.Equal(t, []string{WarnInvalidDate, WarnMissingStart}, reasons)
}

func TestParseICSFallbackFormats(t *testing.T) {
	events := ParseICS(ics(
		"BEGIN:VEVENT",
		"DTSTART:2025-02-01",
		"DTEND:2025-02-03T10:00:00Z",
		"END:VEVENT",
	))

	require.Len(t, events, 1)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), events[0].From)
	assert.Equal(t, time.Date(2025, 2, 2, 10, 0, 0, 0, time.UTC), events[0].To)
}

func TestWarningString(t *testing.T) {
	assert.Equal(t, "line 4: missing DTEND", Warning{Line: 4, Reason: WarnMissingEnd}.String())
}

func TestParseICSUnfoldsAndUnescapesText(t *testing.T) {
	events := ParseICS(ics(
		"BEGIN:VEVENT",
		"DTSTART:20250110",
		"DTEND:20250112",
		"SUMMARY:Reserva Maria Fernanda de Albuquerque\\, Souza e Silva dos Sant",
		" os Oliveira",
		"CATEGORIES:Site\\;Direct",
		"END:VEVENT",
	))
	require.Len(t, events, 1)
	assert.Equal(t, "Reserva Maria Fernanda de Albuquerque, Souza e Silva dos Santos Oliveira", events[0].Summary)
	assert.Equal(t, "Site;Direct", events[0].Source)
}

func TestParseICSIndentedPropertiesAreNotFolded(t *testing.T) {
	events := ParseICS(ics(
		"BEGIN:VEVENT",
		"  DTSTART:20250110",
		"\tDTEND:20250112",
		"  SUMMARY:Airbnb",
		"END:VEVENT",
	))
	require.Len(t, events, 1)
	assert.Equal(t, "Airbnb", events[0].Summary)
	assert.Equal(t, time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC), events[0].To)
}

func TestParseICSReadsLongMergedText(t *testing.T) {
	guest := "Maria Fernanda de Albuquerque, Souza e Silva dos Santos Oliveira"
	note := "Manutenção da pintura; chegada do eletricista às 10:00 confirmada pelo zelador"
	body := BuildMerged(nil,
		[]models.Block{{ID: "b1", From: utcDay(2025, 2, 1), To: utcDay(2025, 2, 4), Note: note}},
		[]models.Booking{{ID: "k1", Status: models.BookingStatusConfirmed, GuestName: guest,
			CheckIn: utcDay(2025, 3, 10), CheckOut: utcDay(2025, 3, 12)}},
		utcDay(2025, 1, 1),
	)

	events := ParseICS(body)
	require.Len(t, events, 2)

	summaries := map[string]string{}
	for _, ev := range events {
		summaries[NormalizeSource(ev)] = ev.Summary
	}
	assert.Equal(t, note, summaries[SourceBlock])
	assert.Equal(t, "Reserva "+guest, summaries[SourceSite])
}
