package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocean-haven/booking/internal/storage/models"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data, ok := <-c.Send():
		require.True(t, ok, "client channel closed")
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Message{}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.Send():
		t.Fatalf("unexpected message: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishOnlyReachesTopic(t *testing.T) {
	hub := startHub(t)
	a := NewClient(BookingTopic("a"))
	b := NewClient(BookingTopic("b"))
	hub.Register(a)
	hub.Register(b)

	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	hub.Publish(BookingTopic("a"), []byte(`{"type":"ping"}`))

	assert.Equal(t, TypePing, receive(t, a).Type)
	assertSilent(t, b)
}

func TestUnregisterClosesClient(t *testing.T) {
	hub := startHub(t)
	c := NewClient(TopicOwner)
	hub.Register(c)
	hub.Unregister(c)

	select {
	case _, ok := <-c.Send():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("client not closed")
	}
	assert.Equal(t, 0, hub.ClientCount())
}

func TestBroadcastMessageCreated(t *testing.T) {
	hub := startHub(t)
	guest := NewClient(BookingTopic("bk1"))
	owner := NewClient(TopicOwner)
	hub.Register(guest)
	hub.Register(owner)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	NewEventBroadcaster(hub).BroadcastMessageCreated(models.Message{ID: "m1", BookingID: "bk1", Message: "hi"})

	for _, c := range []*Client{guest, owner} {
		msg := receive(t, c)
		assert.Equal(t, TypeMessageCreated, msg.Type)
		var payload ChatPayload
		require.NoError(t, msg.Decode(&payload))
		assert.Equal(t, "hi", payload.Message)
	}
}

func TestBroadcastStatusChangeSkipsOtherBookings(t *testing.T) {
	hub := startHub(t)
	other := NewClient(BookingTopic("other"))
	hub.Register(other)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	NewEventBroadcaster(hub).BroadcastBookingStatusChanged(models.Booking{ID: "bk1", Status: models.BookingStatusConfirmed}, models.BookingStatusPending)

	assertSilent(t, other)
}

func TestNilBroadcasterIsNoop(t *testing.T) {
	var b *EventBroadcaster
	b.BroadcastBookingCreated(models.Booking{})
	NewEventBroadcaster(nil).BroadcastBookingCreated(models.Booking{})
}

func TestStopClosesClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	c := NewClient(TopicOwner)
	hub.Register(c)
	hub.Stop()

	select {
	case _, ok := <-c.Send():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("client not closed on stop")
	}
}
