package websocket

import (
	"encoding/json"
	"time"

	"github.com/ocean-haven/booking/internal/storage/models"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Server -> Client event types
	TypeMessageCreated        MessageType = "message.created"
	TypeBookingCreated        MessageType = "booking.created"
	TypeBookingStatusChanged  MessageType = "booking.status_changed"
	TypeCalendarSyncCompleted MessageType = "calendar.sync_completed"
	TypeCalendarSyncError     MessageType = "calendar.sync_error"

	// Client -> Server command types
	TypePing MessageType = "ping"

	// Server -> Client response types
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"
)

// Message represents a WebSocket message envelope.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, payload any) (Message, error) {
	msg := Message{Type: msgType, Timestamp: time.Now().UTC()}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Message{}, err
		}
		msg.Payload = raw
	}
	return msg, nil
}

// JSON serializes the message to JSON bytes.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// Decode unmarshals the payload into v.
func (m Message) Decode(v any) error {
	return json.Unmarshal(m.Payload, v)
}

// BookingStatusPayload is the payload for booking.status_changed events.
type BookingStatusPayload struct {
	BookingID      string `json:"booking_id"`
	PreviousStatus string `json:"previous_status"`
	NewStatus      string `json:"new_status"`
	GuestName      string `json:"guest_name"`
}

// CalendarSyncPayload is the payload for calendar.sync_completed events.
type CalendarSyncPayload struct {
	SubscriptionID string    `json:"subscription_id"`
	Platform       string    `json:"platform"`
	EventsFound    int       `json:"events_found"`
	EventsStored   int       `json:"events_stored"`
	SyncedAt       time.Time `json:"synced_at"`
}

// CalendarSyncErrorPayload is the payload for calendar.sync_error events.
type CalendarSyncErrorPayload struct {
	SubscriptionID string `json:"subscription_id"`
	Platform       string `json:"platform"`
	Error          string `json:"error"`
	Message        string `json:"message"`
}

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ChatPayload is the payload for message.created events.
type ChatPayload = models.Message
