// Package models contains the domain models for the application.
package models

import (
	"time"
)

// CalendarSubscription is an external platform iCal feed (Airbnb, Booking.com, ...).
type CalendarSubscription struct {
	ID         string     `json:"id"`
	Platform   string     `json:"platform"`
	URL        string     `json:"url"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
	SyncStatus string     `json:"sync_status"`
	SyncError  *string    `json:"sync_error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// SyncStatus constants
const (
	SyncStatusPending = "pending"
	SyncStatusSyncing = "syncing"
	SyncStatusSuccess = "success"
	SyncStatusError   = "error"
)

// FeedEvent is one occurrence read from a subscription during its last
// successful sync. Recurring events are stored expanded.
type FeedEvent struct {
	SubscriptionID string    `json:"subscription_id"`
	UID            string    `json:"uid"`
	Summary        string    `json:"summary"`
	Status         string    `json:"status,omitempty"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	AllDay         bool      `json:"all_day"`
}

// CalendarSyncResult contains the results of a calendar sync operation.
type CalendarSyncResult struct {
	SubscriptionID string    `json:"subscription_id"`
	Platform       string    `json:"platform"`
	EventsFound    int       `json:"events_found"`
	EventsStored   int       `json:"events_stored"`
	Error          error     `json:"-"`
	SyncedAt       time.Time `json:"synced_at"`
}
