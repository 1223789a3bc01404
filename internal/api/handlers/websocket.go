package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ocean-haven/booking/internal/api/middleware"
	"github.com/ocean-haven/booking/internal/auth"
	"github.com/ocean-haven/booking/internal/storage"
	ws "github.com/ocean-haven/booking/internal/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 65536
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The front end is served from a different origin than the API.
		return true
	},
}

// MessageStream upgrades to a WebSocket that streams one booking's events.
// Without booking_id an owner token subscribes to the owner topic.
func MessageStream(hub *ws.Hub, issuer *auth.Issuer, bookings *storage.BookingRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := issuer.Parse(middleware.BearerToken(r))
		if err != nil {
			middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrUnauthorized, "Invalid or expired token")
			return
		}
		ctx := middleware.WithClaims(r.Context(), claims)

		var topic string
		bookingID := r.URL.Query().Get("booking_id")
		switch {
		case bookingID != "":
			booking := loadAuthorizedBooking(ctx, w, bookings, bookingID)
			if booking == nil {
				return
			}
			topic = ws.BookingTopic(booking.ID)
		case claims.IsOwner:
			topic = ws.TopicOwner
		default:
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "booking_id is required")
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade error: %v", err)
			return
		}

		client := ws.NewClient(topic)
		hub.Register(client)

		go writePump(conn, client)
		go readPump(conn, client, hub)
	}
}

// writePump pumps messages from the hub to the WebSocket connection.
func writePump(conn *websocket.Conn, client *ws.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump keeps the read deadline fresh and unregisters the client once
// the connection closes. The stream is server-push only; inbound frames are
// discarded.
func readPump(conn *websocket.Conn, client *ws.Client, hub *ws.Hub) {
	defer func() {
		hub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}
	}
}
