package models

import "time"

// Message is one entry in a booking's conversation thread.
type Message struct {
	ID          string    `json:"id"`
	BookingID   string    `json:"booking_id"`
	SenderEmail string    `json:"sender_email"`
	IsFromOwner bool      `json:"is_from_owner"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
}
