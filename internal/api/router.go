// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ocean-haven/booking/internal/api/handlers"
	"github.com/ocean-haven/booking/internal/api/middleware"
	"github.com/ocean-haven/booking/internal/auth"
	"github.com/ocean-haven/booking/internal/calendar"
	"github.com/ocean-haven/booking/internal/pricing"
	"github.com/ocean-haven/booking/internal/storage"
	"github.com/ocean-haven/booking/internal/websocket"
)

// Services are the long-lived components the handlers share.
type Services struct {
	Hub       *websocket.Hub
	Issuer    *auth.Issuer
	Feed      *calendar.MergedFeed
	Scheduler *calendar.Scheduler
	// Pricing applies until the owner stores an override.
	Pricing  pricing.Settings
	Location *time.Location
	// IsOwnerEmail decides which registrations get the owner role.
	IsOwnerEmail func(email string) bool
	StaticDir    string
}

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(db *storage.DB, svc Services) *mux.Router {
	users := storage.NewUserRepository(db)
	bookings := storage.NewBookingRepository(db)
	blocks := storage.NewBlockRepository(db)
	subs := storage.NewCalendarRepository(db)
	messages := storage.NewMessageRepository(db)
	prices := handlers.NewPricingStore(storage.NewSettingsRepository(db), svc.Pricing)
	broadcaster := websocket.NewEventBroadcaster(svc.Hub)

	feed := svc.Feed
	if feed == nil {
		feed = calendar.NewMergedFeed(subs, blocks, bookings, 0)
	}

	// Interfaces stay nil when no scheduler is running.
	var trigger handlers.SyncTrigger
	var nextRuns handlers.NextRunner
	if svc.Scheduler != nil {
		trigger = svc.Scheduler
		nextRuns = svc.Scheduler
	}

	authed := middleware.Authenticate(svc.Issuer)
	optional := middleware.OptionalAuth(svc.Issuer)
	owner := func(h http.Handler) http.Handler {
		return authed(middleware.RequireOwner(h))
	}

	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logging)
	r.Use(middleware.ErrorRecovery)
	r.Use(middleware.CORS)

	// Preflight for every path, registered first so it wins over the
	// method-restricted routes below.
	r.Methods(http.MethodOptions).HandlerFunc(middleware.Preflight)

	// Health and observability
	r.HandleFunc("/health", handlers.HealthCheck(db)).Methods("GET")
	r.Handle("/status", owner(handlers.Status(subs, bookings, svc.Hub, nextRuns))).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Accounts
	r.HandleFunc("/auth/register", handlers.Register(users, svc.Issuer, svc.IsOwnerEmail)).Methods("POST")
	r.HandleFunc("/auth/login", handlers.Login(users, svc.Issuer)).Methods("POST")
	r.Handle("/auth/me", authed(handlers.Me(users))).Methods("GET")

	// Bookings
	r.Handle("/bookings", optional(handlers.CreateBooking(bookings, prices, feed, broadcaster, svc.Location))).Methods("POST")
	r.Handle("/bookings", owner(handlers.ListBookings(bookings))).Methods("GET")
	r.Handle("/bookings/mine", authed(handlers.ListMyBookings(bookings))).Methods("GET")
	r.Handle("/bookings/{id}/approve", owner(handlers.ApproveBooking(bookings, feed, broadcaster))).Methods("POST")
	r.Handle("/bookings/{id}/reject", owner(handlers.RejectBooking(bookings, feed, broadcaster))).Methods("POST")
	r.Handle("/stats/dashboard", owner(handlers.DashboardStats(bookings))).Methods("GET")

	// Calendar
	r.HandleFunc("/calendar/merged.ics", handlers.MergedCalendar(feed)).Methods("GET")
	r.Handle("/blocks", owner(handlers.ListBlocks(blocks))).Methods("GET")
	r.Handle("/blocks", owner(handlers.CreateBlock(blocks, feed))).Methods("POST")
	r.Handle("/blocks/unblock", owner(handlers.UnblockRange(blocks, feed))).Methods("POST")
	r.Handle("/ical", owner(handlers.ListSubscriptions(subs))).Methods("GET")
	r.Handle("/ical", owner(handlers.CreateSubscription(subs, trigger))).Methods("POST")
	r.Handle("/ical/{id}", owner(handlers.DeleteSubscription(subs, feed))).Methods("DELETE")

	// Messages
	r.Handle("/messages", authed(handlers.ListMessages(messages, bookings))).Methods("GET")
	r.Handle("/messages", authed(handlers.PostMessage(messages, bookings, broadcaster))).Methods("POST")
	r.HandleFunc("/ws/messages", handlers.MessageStream(svc.Hub, svc.Issuer, bookings)).Methods("GET")

	// Pricing
	r.HandleFunc("/pricing", handlers.GetPricing(prices)).Methods("GET")
	r.Handle("/pricing", owner(handlers.UpdatePricing(prices))).Methods("PUT")

	// Serve static frontend files
	if svc.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(svc.StaticDir)))
	}

	return r
}
