package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/ocean-haven/booking/internal/pricing"
	"github.com/ocean-haven/booking/internal/storage/models"
)

var emailRe = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// ValidationError reports a request rejected before it was sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// BookingRequest is a stay request as the booking form submits it.
type BookingRequest struct {
	CheckIn        time.Time `json:"check_in"`
	CheckOut       time.Time `json:"check_out"`
	GuestName      string    `json:"guest_name"`
	GuestEmail     string    `json:"guest_email"`
	GuestPhone     string    `json:"guest_phone,omitempty"`
	NumberOfGuests int       `json:"number_of_guests"`
	// TotalPrice is the locally quoted total. The server reprices.
	TotalPrice int64 `json:"total_price,omitempty"`
}

// Validate runs the form checks and returns the first problem as a
// *ValidationError.
func (r BookingRequest) Validate() error {
	switch {
	case r.CheckIn.IsZero() || r.CheckOut.IsZero():
		return &ValidationError{Field: "dates", Message: "select check-in and check-out dates"}
	case pricing.WholeDaysBetween(r.CheckIn, r.CheckOut) < 1:
		return &ValidationError{Field: "check_out", Message: "check-out must be after check-in"}
	case strings.TrimSpace(r.GuestName) == "":
		return &ValidationError{Field: "guest_name", Message: "name is required"}
	case !emailRe.MatchString(strings.TrimSpace(r.GuestEmail)):
		return &ValidationError{Field: "guest_email", Message: "invalid email address"}
	case r.NumberOfGuests < 1:
		return &ValidationError{Field: "number_of_guests", Message: "at least one guest is required"}
	}
	return nil
}

// CreateBooking validates and submits a stay request. When a calculator is
// given, its quote is attached and compared to the stored price.
func (c *Client) CreateBooking(ctx context.Context, req BookingRequest, calc *pricing.Calculator) (*models.Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if calc != nil {
		req.TotalPrice = calc.Compute(req.CheckIn, req.CheckOut).Total
	}

	var booking models.Booking
	if err := c.doJSON(ctx, http.MethodPost, "/bookings", req, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// ListBookings returns every booking. Owner only.
func (c *Client) ListBookings(ctx context.Context) ([]models.Booking, error) {
	var out listBody[models.Booking]
	if err := c.doJSON(ctx, http.MethodGet, "/bookings", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// MyBookings returns the bookings made with the session's account.
func (c *Client) MyBookings(ctx context.Context) ([]models.Booking, error) {
	var out listBody[models.Booking]
	if err := c.doJSON(ctx, http.MethodGet, "/bookings/mine", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// ApproveBooking confirms a pending booking.
func (c *Client) ApproveBooking(ctx context.Context, id string) (*models.Booking, error) {
	return c.decide(ctx, id, "approve")
}

// RejectBooking cancels a booking.
func (c *Client) RejectBooking(ctx context.Context, id string) (*models.Booking, error) {
	return c.decide(ctx, id, "reject")
}

func (c *Client) decide(ctx context.Context, id, action string) (*models.Booking, error) {
	var booking models.Booking
	path := fmt.Sprintf("/bookings/%s/%s", url.PathEscape(id), action)
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// DashboardStats returns the owner's booking counters.
func (c *Client) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	var stats models.DashboardStats
	if err := c.doJSON(ctx, http.MethodGet, "/stats/dashboard", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Pricing returns the server's active rate configuration.
func (c *Client) Pricing(ctx context.Context) (*pricing.Settings, error) {
	var settings pricing.Settings
	if err := c.doJSON(ctx, http.MethodGet, "/pricing", nil, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpdatePricing stores new rate settings. Owner only.
func (c *Client) UpdatePricing(ctx context.Context, settings pricing.Settings) (*pricing.Settings, error) {
	var out pricing.Settings
	if err := c.doJSON(ctx, http.MethodPut, "/pricing", settings, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
