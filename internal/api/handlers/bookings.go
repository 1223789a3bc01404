package handlers

import (
	"errors"
	"log"
	"math"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/ocean-haven/booking/internal/api/middleware"
	"github.com/ocean-haven/booking/internal/calendar"
	"github.com/ocean-haven/booking/internal/metrics"
	"github.com/ocean-haven/booking/internal/storage"
	"github.com/ocean-haven/booking/internal/storage/models"
	"github.com/ocean-haven/booking/internal/websocket"
)

var emailRe = regexp.MustCompile(`^\S+@\S+\.\S+$`)

func validEmail(email string) bool {
	return emailRe.MatchString(email)
}

// CreateBookingRequest is a stay request. Keys are accepted in snake_case
// or in the front end's PascalCase.
type CreateBookingRequest struct {
	CheckIn        string
	CheckOut       string
	GuestName      string
	GuestEmail     string
	GuestPhone     string
	NumberOfGuests int
	// TotalPrice is the client's own quote. It is only compared with the
	// server price.
	TotalPrice *float64
}

// decode reads the request body into req.
func (req *CreateBookingRequest) decode(r *http.Request) error {
	return decodeFields(r, map[string]any{
		"checkin":        &req.CheckIn,
		"checkout":       &req.CheckOut,
		"guestname":      &req.GuestName,
		"guestemail":     &req.GuestEmail,
		"guestphone":     &req.GuestPhone,
		"numberofguests": &req.NumberOfGuests,
		"totalprice":     &req.TotalPrice,
	})
}

// validate parses the dates and returns per-field problems.
func (req *CreateBookingRequest) validate(loc *time.Location) (time.Time, time.Time, map[string]string) {
	problems := make(map[string]string)

	checkIn, err := parseDate(req.CheckIn)
	if err != nil {
		problems["check_in"] = err.Error()
	}
	checkOut, err := parseDate(req.CheckOut)
	if err != nil {
		problems["check_out"] = err.Error()
	}
	if len(problems) == 0 {
		checkIn, checkOut = calendarDate(checkIn, loc), calendarDate(checkOut, loc)
		if !checkIn.Before(checkOut) {
			problems["check_out"] = "check-out must be after check-in"
		}
	}

	if strings.TrimSpace(req.GuestName) == "" {
		problems["guest_name"] = "name is required"
	}
	if !validEmail(strings.TrimSpace(req.GuestEmail)) {
		problems["guest_email"] = "invalid email address"
	}
	if req.NumberOfGuests < 1 {
		problems["number_of_guests"] = "at least one guest is required"
	}

	return checkIn, checkOut, problems
}

// CreateBooking records a pending stay request priced by the server.
func CreateBooking(
	bookings *storage.BookingRepository,
	prices *PricingStore,
	feed *calendar.MergedFeed,
	broadcaster *websocket.EventBroadcaster,
	loc *time.Location,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateBookingRequest
		if err := req.decode(r); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		checkIn, checkOut, problems := req.validate(loc)
		if len(problems) > 0 {
			middleware.WriteErrorWithDetails(w, http.StatusBadRequest, middleware.ErrValidation, "Invalid booking request", problems)
			return
		}

		settings, err := prices.Current(r.Context())
		if err != nil {
			writeInternal(w, "Failed to load pricing")
			return
		}
		quote := settings.Calculator().Compute(checkIn, checkOut)
		if req.TotalPrice != nil && int64(math.Round(*req.TotalPrice)) != quote.Total {
			log.Printf("Client total %.2f differs from server price %d, using server price", *req.TotalPrice, quote.Total)
		}

		booking := &models.Booking{
			CheckIn:        checkIn,
			CheckOut:       checkOut,
			GuestName:      strings.TrimSpace(req.GuestName),
			GuestEmail:     strings.TrimSpace(req.GuestEmail),
			GuestPhone:     strings.TrimSpace(req.GuestPhone),
			NumberOfGuests: req.NumberOfGuests,
			SubtotalPrice:  quote.Subtotal,
			DiscountAmount: quote.DiscountAmount,
			TotalPrice:     quote.Total,
		}
		if claims := middleware.ClaimsFrom(r.Context()); claims != nil {
			email := claims.Email
			booking.UserEmail = &email
		}

		if err := bookings.Create(r.Context(), booking); err != nil {
			log.Printf("Failed to create booking: %v", err)
			writeInternal(w, "Failed to create booking")
			return
		}

		metrics.IncBookingCreated()
		feed.Invalidate()
		broadcaster.BroadcastBookingCreated(*booking)

		middleware.WriteJSON(w, http.StatusCreated, booking)
	}
}

// ListBookings returns every booking, newest first.
func ListBookings(bookings *storage.BookingRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := bookings.List(r.Context())
		if err != nil {
			writeInternal(w, "Failed to query bookings")
			return
		}
		middleware.WriteJSON(w, http.StatusOK, listResponse{Data: list})
	}
}

// ListMyBookings returns the caller's bookings.
func ListMyBookings(bookings *storage.BookingRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.ClaimsFrom(r.Context())

		list, err := bookings.ListByUser(r.Context(), claims.Email)
		if err != nil {
			writeInternal(w, "Failed to query bookings")
			return
		}
		middleware.WriteJSON(w, http.StatusOK, listResponse{Data: list})
	}
}

// ApproveBooking confirms a pending booking.
func ApproveBooking(bookings *storage.BookingRepository, feed *calendar.MergedFeed, broadcaster *websocket.EventBroadcaster) http.HandlerFunc {
	return transitionBooking(bookings, feed, broadcaster, models.BookingStatusConfirmed)
}

// RejectBooking cancels a pending or confirmed booking.
func RejectBooking(bookings *storage.BookingRepository, feed *calendar.MergedFeed, broadcaster *websocket.EventBroadcaster) http.HandlerFunc {
	return transitionBooking(bookings, feed, broadcaster, models.BookingStatusCancelled)
}

func transitionBooking(
	bookings *storage.BookingRepository,
	feed *calendar.MergedFeed,
	broadcaster *websocket.EventBroadcaster,
	status string,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		current, err := bookings.GetByID(r.Context(), id)
		if err != nil {
			writeInternal(w, "Failed to load booking")
			return
		}
		if current == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Booking not found")
			return
		}

		updated, err := bookings.Transition(r.Context(), id, status)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Booking not found")
			return
		case errors.Is(err, storage.ErrConflict):
			middleware.WriteError(w, http.StatusConflict, middleware.ErrConflict, "Booking is "+current.Status)
			return
		case err != nil:
			log.Printf("Failed to update booking %s: %v", id, err)
			writeInternal(w, "Failed to update booking")
			return
		}

		metrics.IncBookingDecision(status)
		feed.Invalidate()
		broadcaster.BroadcastBookingStatusChanged(*updated, current.Status)

		middleware.WriteJSON(w, http.StatusOK, updated)
	}
}

// DashboardStats returns the owner's booking counters.
func DashboardStats(bookings *storage.BookingRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := bookings.Stats(r.Context())
		if err != nil {
			writeInternal(w, "Failed to compute stats")
			return
		}
		middleware.WriteJSON(w, http.StatusOK, stats)
	}
}
