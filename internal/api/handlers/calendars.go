package handlers

import (
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"

	"github.com/ocean-haven/booking/internal/api/middleware"
	"github.com/ocean-haven/booking/internal/calendar"
	"github.com/ocean-haven/booking/internal/storage"
	"github.com/ocean-haven/booking/internal/storage/models"
)

// CreateSubscriptionRequest adds an external platform feed.
type CreateSubscriptionRequest struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

// SyncTrigger starts a background sync of one subscription.
type SyncTrigger interface {
	TriggerSync(subscriptionID string)
}

// ListSubscriptions returns all calendar subscriptions.
func ListSubscriptions(subs *storage.CalendarRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := subs.List(r.Context())
		if err != nil {
			writeInternal(w, "Failed to query calendars")
			return
		}
		middleware.WriteJSON(w, http.StatusOK, listResponse{Data: list})
	}
}

// CreateSubscription adds a calendar subscription and syncs it right away.
func CreateSubscription(subs *storage.CalendarRepository, trigger SyncTrigger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateSubscriptionRequest
		if err := decodeFields(r, map[string]any{
			"platform": &req.Platform,
			"url":      &req.URL,
		}); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		req.Platform = strings.TrimSpace(req.Platform)
		req.URL = strings.TrimSpace(req.URL)
		if req.Platform == "" || req.URL == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Platform and URL are required")
			return
		}
		if u, err := url.Parse(req.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "URL must be an http(s) address")
			return
		}

		sub := &models.CalendarSubscription{Platform: req.Platform, URL: req.URL}
		if err := subs.Create(r.Context(), sub); err != nil {
			log.Printf("Failed to create subscription: %v", err)
			writeInternal(w, "Failed to create calendar")
			return
		}

		if trigger != nil {
			trigger.TriggerSync(sub.ID)
		}

		middleware.WriteJSON(w, http.StatusCreated, sub)
	}
}

// DeleteSubscription removes a calendar subscription and its synced events.
func DeleteSubscription(subs *storage.CalendarRepository, feed *calendar.MergedFeed) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		err := subs.Delete(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Calendar not found")
			return
		}
		if err != nil {
			writeInternal(w, "Failed to delete calendar")
			return
		}
		feed.Invalidate()

		w.WriteHeader(http.StatusNoContent)
	}
}

// MergedCalendar serves the merged iCal feed.
func MergedCalendar(feed *calendar.MergedFeed) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := feed.Render(r.Context())
		if err != nil {
			log.Printf("Failed to render merged calendar: %v", err)
			writeInternal(w, "Failed to render calendar")
			return
		}

		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write([]byte(body))
	}
}
