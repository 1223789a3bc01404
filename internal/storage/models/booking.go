package models

import "time"

// Booking status values.
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
	BookingStatusCompleted = "completed"
)

// Booking is a stay request made through the site.
type Booking struct {
	ID             string     `json:"id"`
	UserEmail      *string    `json:"user_email,omitempty"`
	Status         string     `json:"status"`
	CheckIn        time.Time  `json:"check_in"`
	CheckOut       time.Time  `json:"check_out"`
	GuestName      string     `json:"guest_name"`
	GuestEmail     string     `json:"guest_email"`
	GuestPhone     string     `json:"guest_phone"`
	NumberOfGuests int        `json:"number_of_guests"`
	SubtotalPrice  int64      `json:"subtotal_price"`
	DiscountAmount float64    `json:"discount_amount"`
	TotalPrice     int64      `json:"total_price"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// CanTransitionTo reports whether the booking may move to the given status.
func (b *Booking) CanTransitionTo(status string) bool {
	switch status {
	case BookingStatusConfirmed:
		return b.Status == BookingStatusPending
	case BookingStatusCancelled:
		return b.Status == BookingStatusPending || b.Status == BookingStatusConfirmed
	case BookingStatusCompleted:
		return b.Status == BookingStatusConfirmed
	}
	return false
}

// Occupies reports whether the booking holds its dates on the calendar.
func (b *Booking) Occupies() bool {
	return b.Status != BookingStatusCancelled
}

// DashboardStats summarises bookings for the owner dashboard.
type DashboardStats struct {
	TotalBookings     int64 `json:"total_bookings"`
	ConfirmedBookings int64 `json:"confirmed_bookings"`
	PendingBookings   int64 `json:"pending_bookings"`
	TotalRevenue      int64 `json:"total_revenue"`
}
