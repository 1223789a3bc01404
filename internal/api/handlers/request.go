// Package handlers provides HTTP request handlers for the API endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ocean-haven/booking/internal/api/middleware"
)

const maxBodyBytes = 1 << 20

// listResponse wraps collections the way the front end reads them.
type listResponse struct {
	Data any `json:"data"`
}

// decodeFields decodes a JSON object into the given destinations. Keys are
// matched ignoring case and underscores so both CheckIn and check_in reach
// the same field.
func decodeFields(r *http.Request, fields map[string]any) error {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&raw); err != nil {
		return fmt.Errorf("decoding body: %w", err)
	}

	for key, value := range raw {
		dst, ok := fields[normalizeKey(key)]
		if !ok {
			continue
		}
		if err := json.Unmarshal(value, dst); err != nil {
			return fmt.Errorf("field %s: %w", key, err)
		}
	}
	return nil
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.ReplaceAll(key, "_", ""))
}

// parseDate accepts RFC3339 timestamps and YYYY-MM-DD dates.
func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("date is required")
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q", value)
}

// calendarDate returns UTC midnight of t's date as read in loc.
func calendarDate(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func writeInternal(w http.ResponseWriter, message string) {
	middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, message)
}
