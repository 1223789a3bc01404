package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mergedFeed = "BEGIN:VCALENDAR\r\n" +
	"BEGIN:VEVENT\r\n" +
	"DTSTART;VALUE=DATE:20250110\r\n" +
	"DTEND;VALUE=DATE:20250112\r\n" +
	"SUMMARY:Airbnb (Not available)\r\n" +
	"CATEGORIES:Airbnb\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func feedServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/calendar/merged.ics":
			w.Header().Set("Content-Type", "text/calendar")
			w.Write([]byte(mergedFeed))
		case "/stats/dashboard":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":"forbidden","message":"Owner access required"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestQuoteOffline(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"-offline", "quote", "2025-01-06", "2025-01-16"}, &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Nights:   10 (8 weekday, 2 weekend)")
	assert.Contains(t, out.String(), "Discount: 3%")
	assert.Contains(t, out.String(), "Total:    R$ 50440")
}

func TestQuoteRejectsEmptyStay(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"-offline", "quote", "2025-01-06", "2025-01-06"}, &out)
	assert.Error(t, err)

	err = run(context.Background(), []string{"-offline", "quote", "06/01/2025", "2025-01-09"}, &out)
	assert.Error(t, err)
}

func TestAvailabilityListsBusyDays(t *testing.T) {
	srv := feedServer(t)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-server", srv.URL, "availability"}, &out))
	assert.Contains(t, out.String(), "2025-01-10  Airbnb")
	assert.Contains(t, out.String(), "2025-01-11  Airbnb")
	assert.NotContains(t, out.String(), "2025-01-12")
}

func TestAvailabilityChecksStay(t *testing.T) {
	srv := feedServer(t)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-server", srv.URL, "availability", "2025-01-12", "2025-01-15"}, &out))
	assert.Equal(t, "available\n", out.String())

	out.Reset()
	require.NoError(t, run(context.Background(), []string{"-server", srv.URL, "availability", "2025-01-08", "2025-01-11"}, &out))
	assert.Equal(t, "unavailable\n", out.String())
}

func TestAPIErrorsSurface(t *testing.T) {
	srv := feedServer(t)

	var out bytes.Buffer
	err := run(context.Background(), []string{"-server", srv.URL, "stats"}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Owner access required")
}

func TestUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"frobnicate"}, &out)
	assert.Error(t, err)
	assert.Contains(t, out.String(), "Usage: bookingctl")
}
