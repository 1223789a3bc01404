package websocket

import (
	"log"

	"github.com/ocean-haven/booking/internal/storage/models"
)

// EventBroadcaster turns domain changes into topic messages.
type EventBroadcaster struct {
	hub *Hub
}

// NewEventBroadcaster creates a new event broadcaster. A nil hub makes every
// broadcast a no-op.
func NewEventBroadcaster(hub *Hub) *EventBroadcaster {
	return &EventBroadcaster{hub: hub}
}

// BroadcastMessageCreated pushes a new chat message to its booking thread
// and to the owner.
func (b *EventBroadcaster) BroadcastMessageCreated(msg models.Message) {
	b.publish(TypeMessageCreated, msg, BookingTopic(msg.BookingID), TopicOwner)
}

// BroadcastBookingCreated tells the owner about a new request.
func (b *EventBroadcaster) BroadcastBookingCreated(booking models.Booking) {
	b.publish(TypeBookingCreated, booking, TopicOwner)
}

// BroadcastBookingStatusChanged notifies the owner and the booking thread.
func (b *EventBroadcaster) BroadcastBookingStatusChanged(booking models.Booking, previous string) {
	payload := BookingStatusPayload{
		BookingID:      booking.ID,
		PreviousStatus: previous,
		NewStatus:      booking.Status,
		GuestName:      booking.GuestName,
	}
	b.publish(TypeBookingStatusChanged, payload, TopicOwner, BookingTopic(booking.ID))
}

// BroadcastCalendarSyncCompleted sends a calendar sync completed event.
func (b *EventBroadcaster) BroadcastCalendarSyncCompleted(result models.CalendarSyncResult) {
	payload := CalendarSyncPayload{
		SubscriptionID: result.SubscriptionID,
		Platform:       result.Platform,
		EventsFound:    result.EventsFound,
		EventsStored:   result.EventsStored,
		SyncedAt:       result.SyncedAt,
	}
	b.publish(TypeCalendarSyncCompleted, payload, TopicOwner)
}

// BroadcastCalendarSyncError sends a calendar sync error event.
func (b *EventBroadcaster) BroadcastCalendarSyncError(subscriptionID, platform string, err error) {
	payload := CalendarSyncErrorPayload{
		SubscriptionID: subscriptionID,
		Platform:       platform,
		Error:          "sync_error",
		Message:        err.Error(),
	}
	b.publish(TypeCalendarSyncError, payload, TopicOwner)
}

func (b *EventBroadcaster) publish(msgType MessageType, payload any, topics ...string) {
	if b == nil || b.hub == nil {
		return
	}

	msg, err := NewMessage(msgType, payload)
	if err != nil {
		log.Printf("Error encoding WebSocket payload: %v", err)
		return
	}
	data, err := msg.JSON()
	if err != nil {
		log.Printf("Error encoding WebSocket message: %v", err)
		return
	}

	for _, topic := range topics {
		b.hub.Publish(topic, data)
	}
}
