// Package calendar provides iCal parsing, availability helpers and external
// calendar sync functionality.
package calendar

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
)

// Event is a busy date range read from one VEVENT. To is the last occupied
// day (inclusive).
type Event struct {
	From    time.Time `json:"from"`
	To      time.Time `json:"to"`
	Source  string    `json:"source,omitempty"`
	Summary string    `json:"summary,omitempty"`
	Status  string    `json:"status,omitempty"`
}

// Warning reasons reported by Parser.Parse.
const (
	WarnMissingStart  = "missing DTSTART"
	WarnMissingEnd    = "missing DTEND"
	WarnInvalidDate   = "unparseable date"
	WarnReversedRange = "DTSTART after DTEND"
)

// Warning describes an event that was dropped or looks suspicious.
// Line is the 1-based line of the BEGIN:VEVENT that opened the event.
type Warning struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: %s", w.Line, w.Reason)
}

// ParseResult holds the parsed events plus anything the lenient parse skipped.
type ParseResult struct {
	Events   []Event
	Warnings []Warning
}

// Parser parses iCal/ICS calendar text into busy ranges.
type Parser struct {
	// Location is used for date-only and floating values. Defaults to UTC.
	Location *time.Location
}

// NewParser creates a new iCal parser reading floating times in loc.
func NewParser(loc *time.Location) *Parser {
	return &Parser{Location: loc}
}

var (
	dateOnlyRe = regexp.MustCompile(`^\d{8}$`)
	utcStampRe = regexp.MustCompile(`^\d{8}T\d{6}Z$`)
)

// ParseICS parses iCal text with a UTC parser and returns only the events.
func ParseICS(icsText string) []Event {
	return NewParser(time.UTC).Parse(icsText).Events
}

// vevent accumulates the recognised properties of the current VEVENT.
// Only the first occurrence of each property is kept.
type vevent struct {
	line    int
	start   *time.Time
	end     *time.Time
	badDate bool
	seen    map[string]bool
	source  string
	summary string
	status  string
}

// Parse processes the text line by line. Events missing a bound are dropped
// and reported as warnings; reversed ranges are kept and reported.
func (p *Parser) Parse(icsText string) ParseResult {
	var res ParseResult
	var current *vevent

	for _, ul := range unfold(icsText) {
		line := strings.TrimSpace(ul.text)
		if line == "" {
			continue
		}

		colonIdx := strings.Index(line, ":")
		if colonIdx == -1 {
			continue
		}

		field := line[:colonIdx]
		value := line[colonIdx+1:]

		// Drop property parameters (e.g. DTSTART;VALUE=DATE:20231215)
		if semicolonIdx := strings.Index(field, ";"); semicolonIdx != -1 {
			field = field[:semicolonIdx]
		}
		field = strings.ToUpper(field)

		switch field {
		case "BEGIN":
			if strings.EqualFold(value, "VEVENT") {
				current = &vevent{line: ul.line, seen: make(map[string]bool)}
			}
			continue
		case "END":
			if strings.EqualFold(value, "VEVENT") && current != nil {
				ev, warns, ok := current.finish()
				if ok {
					res.Events = append(res.Events, ev)
				}
				res.Warnings = append(res.Warnings, warns...)
				current = nil
			}
			continue
		}

		if current == nil || current.seen[field] {
			continue
		}

		switch field {
		case "DTSTART", "DTEND":
			current.seen[field] = true
			t, ok := p.parseDate(value, line)
			if !ok {
				current.badDate = true
				continue
			}
			if field == "DTSTART" {
				current.start = &t
			} else {
				current.end = &t
			}
		case "SUMMARY":
			current.seen[field] = true
			current.summary = unescapeText(value)
		case "CATEGORIES":
			current.seen[field] = true
			current.source = unescapeText(value)
		case "STATUS":
			current.seen[field] = true
			current.status = unescapeText(value)
		}
	}

	return res
}

// unfoldedLine is one logical content line and the physical line it starts on.
type unfoldedLine struct {
	line int
	text string
}

// indentedPropertyRe matches an indented line that still starts one of the
// recognised properties, so hand-indented feeds keep working.
var indentedPropertyRe = regexp.MustCompile(`(?i)^[ \t]+(BEGIN|END|DTSTART|DTEND|SUMMARY|CATEGORIES|STATUS)[;:]`)

// unfold splits on CRLF or LF and joins continuation lines (leading space or
// tab) onto the previous line.
func unfold(icsText string) []unfoldedLine {
	var out []unfoldedLine
	for i, raw := range strings.Split(strings.ReplaceAll(icsText, "\r\n", "\n"), "\n") {
		raw = strings.TrimSuffix(raw, "\r")
		folded := raw != "" && (raw[0] == ' ' || raw[0] == '\t')
		if folded && len(out) > 0 && !indentedPropertyRe.MatchString(raw) {
			out[len(out)-1].text += raw[1:]
			continue
		}
		out = append(out, unfoldedLine{line: i + 1, text: raw})
	}
	return out
}

// unescapeText decodes iCalendar TEXT escapes.
func unescapeText(value string) string {
	if !strings.Contains(value, `\`) {
		return value
	}
	return ical.FromText(value)
}

// finish converts the accumulator into an Event, shifting the exclusive
// DTEND back one day.
func (v *vevent) finish() (Event, []Warning, bool) {
	var warns []Warning
	if v.start == nil || v.end == nil {
		if v.badDate {
			warns = append(warns, Warning{Line: v.line, Reason: WarnInvalidDate})
		}
		if v.start == nil {
			warns = append(warns, Warning{Line: v.line, Reason: WarnMissingStart})
		}
		if v.end == nil {
			warns = append(warns, Warning{Line: v.line, Reason: WarnMissingEnd})
		}
		return Event{}, warns, false
	}

	if v.start.After(*v.end) {
		warns = append(warns, Warning{Line: v.line, Reason: WarnReversedRange})
	}

	return Event{
		From:    *v.start,
		To:      v.end.AddDate(0, 0, -1),
		Source:  v.source,
		Summary: v.summary,
		Status:  v.status,
	}, warns, true
}

// parseDate parses a DTSTART/DTEND value. The value after the first colon is
// tried first, then the text after the final colon of the line.
func (p *Parser) parseDate(value, line string) (time.Time, bool) {
	if t, ok := p.parseDateValue(value); ok {
		return t, true
	}
	if i := strings.LastIndex(line, ":"); i != -1 && line[i+1:] != value {
		return p.parseDateValue(line[i+1:])
	}
	return time.Time{}, false
}

func (p *Parser) parseDateValue(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	loc := p.location()

	if dateOnlyRe.MatchString(value) {
		t, err := time.ParseInLocation("20060102", value, loc)
		return t, err == nil
	}

	if utcStampRe.MatchString(value) {
		year, _ := strconv.Atoi(value[0:4])
		month, _ := strconv.Atoi(value[4:6])
		day, _ := strconv.Atoi(value[6:8])
		hour, _ := strconv.Atoi(value[9:11])
		minute, _ := strconv.Atoi(value[11:13])
		second, _ := strconv.Atoi(value[13:15])
		return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC), true
	}

	// Generic fallback formats
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, true
	}
	formats := []string{
		"20060102T150405",     // Floating datetime
		"2006-01-02T15:04:05", // ISO 8601 without zone
		"2006-01-02",          // ISO 8601 date
	}
	for _, format := range formats {
		if t, err := time.ParseInLocation(format, value, loc); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

func (p *Parser) location() *time.Location {
	if p == nil || p.Location == nil {
		return time.UTC
	}
	return p.Location
}
