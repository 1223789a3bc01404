package handlers

import (
	"net/http"
	"time"

	"github.com/ocean-haven/booking/internal/api/middleware"
	"github.com/ocean-haven/booking/internal/calendar"
	"github.com/ocean-haven/booking/internal/storage"
	"github.com/ocean-haven/booking/internal/storage/models"
	"github.com/ocean-haven/booking/internal/websocket"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status      string `json:"status"`
	DBConnected bool   `json:"db_connected"`
}

// HealthCheck returns a handler that performs a health check.
func HealthCheck(db *storage.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbConnected := db.PingContext(r.Context()) == nil

		status := "healthy"
		code := http.StatusOK
		if !dbConnected {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		middleware.WriteJSON(w, code, HealthResponse{
			Status:      status,
			DBConnected: dbConnected,
		})
	}
}

// StatusResponse represents the system status response.
type StatusResponse struct {
	CalendarsCount    int        `json:"calendars_count"`
	CalendarsFailing  int        `json:"calendars_failing"`
	PendingBookings   int64      `json:"pending_bookings"`
	ConnectedClients  int        `json:"connected_clients"`
	NextSyncAt        *time.Time `json:"next_sync_at,omitempty"`
	NextCompletionRun *time.Time `json:"next_completion_run,omitempty"`
}

// NextRunner reports when a scheduled job runs next.
type NextRunner interface {
	NextRun(name string) *time.Time
}

// Status returns a handler that provides system status information.
func Status(subs *storage.CalendarRepository, bookings *storage.BookingRepository, hub *websocket.Hub, scheduler NextRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		list, err := subs.List(ctx)
		if err != nil {
			writeInternal(w, "Failed to query calendars")
			return
		}
		stats, err := bookings.Stats(ctx)
		if err != nil {
			writeInternal(w, "Failed to compute stats")
			return
		}

		response := StatusResponse{
			CalendarsCount:  len(list),
			PendingBookings: stats.PendingBookings,
		}
		for _, sub := range list {
			if sub.SyncStatus == models.SyncStatusError {
				response.CalendarsFailing++
			}
		}
		if hub != nil {
			response.ConnectedClients = hub.ClientCount()
		}
		if scheduler != nil {
			response.NextSyncAt = scheduler.NextRun(calendar.JobSync)
			response.NextCompletionRun = scheduler.NextRun(calendar.JobComplete)
		}

		middleware.WriteJSON(w, http.StatusOK, response)
	}
}
