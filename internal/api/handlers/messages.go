package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/ocean-haven/booking/internal/api/middleware"
	"github.com/ocean-haven/booking/internal/auth"
	"github.com/ocean-haven/booking/internal/storage"
	"github.com/ocean-haven/booking/internal/storage/models"
	"github.com/ocean-haven/booking/internal/websocket"
)

const maxMessageLength = 4000

// canAccessBooking reports whether the caller may read or write the
// booking's thread: the owner or the account that made it. The guest email
// typed into the booking form is unverified and grants nothing.
func canAccessBooking(claims *auth.Claims, b *models.Booking) bool {
	if claims == nil || b == nil {
		return false
	}
	if claims.IsOwner {
		return true
	}
	return b.UserEmail != nil && strings.EqualFold(*b.UserEmail, claims.Email)
}

// loadAuthorizedBooking resolves bookingID and writes the error response
// when the caller may not see it. It returns nil when a response was written.
func loadAuthorizedBooking(ctx context.Context, w http.ResponseWriter, bookings *storage.BookingRepository, bookingID string) *models.Booking {
	if bookingID == "" {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "booking_id is required")
		return nil
	}

	booking, err := bookings.GetByID(ctx, bookingID)
	if err != nil {
		writeInternal(w, "Failed to load booking")
		return nil
	}
	if booking == nil {
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Booking not found")
		return nil
	}
	if !canAccessBooking(middleware.ClaimsFrom(ctx), booking) {
		middleware.WriteError(w, http.StatusForbidden, middleware.ErrForbidden, "Not a participant of this booking")
		return nil
	}
	return booking
}

// ListMessages returns a booking's thread, oldest first.
func ListMessages(messages *storage.MessageRepository, bookings *storage.BookingRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		booking := loadAuthorizedBooking(r.Context(), w, bookings, r.URL.Query().Get("booking_id"))
		if booking == nil {
			return
		}

		list, err := messages.ListByBooking(r.Context(), booking.ID)
		if err != nil {
			writeInternal(w, "Failed to query messages")
			return
		}
		middleware.WriteJSON(w, http.StatusOK, listResponse{Data: list})
	}
}

// PostMessage stores a message and pushes it to the booking's subscribers.
func PostMessage(messages *storage.MessageRepository, bookings *storage.BookingRepository, broadcaster *websocket.EventBroadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var bookingID, text string
		if err := decodeFields(r, map[string]any{
			"bookingid": &bookingID,
			"message":   &text,
		}); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		text = strings.TrimSpace(text)
		if text == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "message is required")
			return
		}
		if len(text) > maxMessageLength {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "message is too long")
			return
		}

		booking := loadAuthorizedBooking(r.Context(), w, bookings, strings.TrimSpace(bookingID))
		if booking == nil {
			return
		}

		claims := middleware.ClaimsFrom(r.Context())
		msg := &models.Message{
			BookingID:   booking.ID,
			SenderEmail: claims.Email,
			IsFromOwner: claims.IsOwner,
			Message:     text,
		}
		if err := messages.Create(r.Context(), msg); err != nil {
			log.Printf("Failed to create message: %v", err)
			writeInternal(w, "Failed to send message")
			return
		}

		broadcaster.BroadcastMessageCreated(*msg)

		middleware.WriteJSON(w, http.StatusCreated, msg)
	}
}
