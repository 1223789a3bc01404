package calendar

import (
	"strings"
	"time"
)

// DayLayout is the key format for per-day maps.
const DayLayout = "2006-01-02"

// Normalized source labels.
const (
	SourceBooking = "Booking"
	SourceAirbnb  = "Airbnb"
	SourceVRBO    = "VRBO"
	SourceSite    = "Site"
	SourceBlock   = "Block"
)

// dayOf truncates t to its calendar date, keeping the date as read in t's
// own location.
func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayKey formats the calendar date of t.
func DayKey(t time.Time) string {
	return t.Format(DayLayout)
}

// EachDay enumerates every calendar day from from to to, both inclusive.
// It returns nil when to falls on an earlier day than from.
func EachDay(from, to time.Time) []time.Time {
	start, end := dayOf(from), dayOf(to)
	if end.Before(start) {
		return nil
	}

	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// NormalizeSource maps an event's source (or summary when it has none) to a
// platform label.
func NormalizeSource(ev Event) string {
	raw := ev.Source
	if raw == "" {
		raw = ev.Summary
	}
	lower := strings.ToLower(raw)

	switch {
	case lower == "":
		return ""
	case strings.Contains(lower, "booking"):
		return SourceBooking
	case strings.Contains(lower, "airbnb"):
		return SourceAirbnb
	case strings.Contains(lower, "vrbo"):
		return SourceVRBO
	case strings.Contains(lower, "site"), strings.Contains(lower, "reserva"):
		return SourceSite
	}
	return raw
}

// SourcesByDay buckets events by calendar day. Each day lists the distinct
// normalized sources of the events covering it, in first-seen order. Days
// covered only by unlabeled events map to an empty list.
func SourcesByDay(events []Event) map[string][]string {
	out := make(map[string][]string)
	for _, ev := range events {
		src := NormalizeSource(ev)
		for _, day := range EachDay(ev.From, ev.To) {
			key := DayKey(day)
			labels, ok := out[key]
			if !ok {
				labels = []string{}
			}
			if src != "" && !contains(labels, src) {
				labels = append(labels, src)
			}
			out[key] = labels
		}
	}
	return out
}

// IsBlock reports whether the event is a manual owner block.
func IsBlock(ev Event) bool {
	return strings.Contains(strings.ToLower(ev.Source), "block")
}

// SelectionHasBlock reports whether any block overlaps the inclusive
// selection [from, to].
func SelectionHasBlock(events []Event, from, to time.Time) bool {
	selStart, selEnd := dayOf(from), dayOf(to)
	for _, ev := range events {
		if !IsBlock(ev) {
			continue
		}
		if !(selEnd.Before(dayOf(ev.From)) || selStart.After(dayOf(ev.To))) {
			return true
		}
	}
	return false
}

// SelectionTouchesBlock reports whether a block starts the day after the
// selection or ends the day before it.
func SelectionTouchesBlock(events []Event, from, to time.Time) bool {
	nextDay := dayOf(to).AddDate(0, 0, 1)
	prevDay := dayOf(from).AddDate(0, 0, -1)
	for _, ev := range events {
		if !IsBlock(ev) {
			continue
		}
		if dayOf(ev.From).Equal(nextDay) || dayOf(ev.To).Equal(prevDay) {
			return true
		}
	}
	return false
}

// UnblockRange returns the range to send to the unblock endpoint. A
// selection that only touches a block is widened by one day on each side so
// the adjacent block is removed.
func UnblockRange(events []Event, from, to time.Time) (time.Time, time.Time) {
	if !SelectionHasBlock(events, from, to) && SelectionTouchesBlock(events, from, to) {
		return from.AddDate(0, 0, -1), to.AddDate(0, 0, 1)
	}
	return from, to
}

// IsAvailable reports whether no event occupies any night of the stay from
// checkIn to checkOut. The check-out day itself may be occupied.
func IsAvailable(events []Event, checkIn, checkOut time.Time) bool {
	first := dayOf(checkIn)
	last := dayOf(checkOut).AddDate(0, 0, -1)
	if last.Before(first) {
		return true
	}
	for _, ev := range events {
		if !(last.Before(dayOf(ev.From)) || first.After(dayOf(ev.To))) {
			return false
		}
	}
	return true
}

// BusyDays returns the set of day keys covered by any event.
func BusyDays(events []Event) map[string]bool {
	busy := make(map[string]bool)
	for _, ev := range events {
		for _, day := range EachDay(ev.From, ev.To) {
			busy[DayKey(day)] = true
		}
	}
	return busy
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
