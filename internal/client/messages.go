package client

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ocean-haven/booking/internal/storage/models"
	ws "github.com/ocean-haven/booking/internal/websocket"
)

const streamBuffer = 16

// ListMessages returns a booking's thread, oldest first.
func (c *Client) ListMessages(ctx context.Context, bookingID string) ([]models.Message, error) {
	var out listBody[models.Message]
	path := "/messages?booking_id=" + url.QueryEscape(bookingID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// SendMessage posts a message to a booking's thread.
func (c *Client) SendMessage(ctx context.Context, bookingID, text string) (*models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ValidationError{Field: "message", Message: "message is empty"}
	}

	var msg models.Message
	in := map[string]string{"booking_id": bookingID, "message": text}
	if err := c.doJSON(ctx, http.MethodPost, "/messages", in, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// MessageStream delivers live chat messages for one booking. Messages sent
// while the stream is closed are not replayed; list the thread again after
// reopening.
type MessageStream struct {
	conn     *websocket.Conn
	messages chan models.Message
	done     chan struct{}
	once     sync.Once
	err      error
}

// StreamMessages opens the live channel for bookingID. An owner session may
// pass an empty bookingID to follow every thread.
func (c *Client) StreamMessages(ctx context.Context, bookingID string) (*MessageStream, error) {
	endpoint, err := c.streamURL(bookingID)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	if c.session.Token != "" {
		header.Set("Authorization", "Bearer "+c.session.Token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			return nil, &APIError{StatusCode: resp.StatusCode, Code: http.StatusText(resp.StatusCode), Message: err.Error()}
		}
		return nil, fmt.Errorf("dialing message stream: %w", err)
	}

	s := &MessageStream{
		conn:     conn,
		messages: make(chan models.Message, streamBuffer),
		done:     make(chan struct{}),
	}
	go s.readLoop()
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()
	return s, nil
}

func (c *Client) streamURL(bookingID string) (string, error) {
	u, err := url.Parse(c.session.BaseURL + "/ws/messages")
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	if bookingID != "" {
		q := u.Query()
		q.Set("booking_id", bookingID)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Messages returns the channel of incoming messages. It is closed when the
// stream ends.
func (s *MessageStream) Messages() <-chan models.Message {
	return s.messages
}

// Err returns the error that ended the stream, if it ended on its own.
// It is only meaningful after Messages is closed.
func (s *MessageStream) Err() error {
	return s.err
}

// Close ends the stream.
func (s *MessageStream) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}

func (s *MessageStream) readLoop() {
	defer close(s.messages)

	for {
		var envelope ws.Message
		if err := s.conn.ReadJSON(&envelope); err != nil {
			select {
			case <-s.done:
			default:
				s.err = err
				s.Close()
			}
			return
		}
		if envelope.Type != ws.TypeMessageCreated {
			continue
		}

		var msg models.Message
		if err := envelope.Decode(&msg); err != nil {
			log.Printf("Dropping undecodable message: %v", err)
			continue
		}

		select {
		case s.messages <- msg:
		case <-s.done:
			return
		}
	}
}
