package storage

import (
	"context"
	"fmt"

	"github.com/ocean-haven/booking/internal/storage/models"
)

// MessageRepository provides data access for booking message threads.
type MessageRepository struct {
	BaseRepository
}

// NewMessageRepository creates a new message repository.
func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Create appends a message to its booking's thread.
func (r *MessageRepository) Create(ctx context.Context, m *models.Message) error {
	m.ID = GenerateID()
	m.CreatedAt = r.Now()

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO messages (id, booking_id, sender_email, is_from_owner, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.ID, m.BookingID, m.SenderEmail, m.IsFromOwner, m.Message, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	return nil
}

// ListByBooking returns a booking's thread, oldest first.
func (r *MessageRepository) ListByBooking(ctx context.Context, bookingID string) ([]models.Message, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, booking_id, sender_email, is_from_owner, message, created_at
		FROM messages WHERE booking_id = ?
		ORDER BY created_at ASC, rowid ASC
	`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.BookingID, &m.SenderEmail, &m.IsFromOwner, &m.Message, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}
