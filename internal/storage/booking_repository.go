package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ocean-haven/booking/internal/storage/models"
)

// BookingRepository provides data access for bookings.
type BookingRepository struct {
	BaseRepository
}

// NewBookingRepository creates a new booking repository.
func NewBookingRepository(db *DB) *BookingRepository {
	return &BookingRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

const bookingColumns = `id, user_email, status, check_in, check_out, guest_name, guest_email,
	guest_phone, number_of_guests, subtotal_price, discount_amount, total_price, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }, b *models.Booking) error {
	return row.Scan(
		&b.ID, &b.UserEmail, &b.Status, &b.CheckIn, &b.CheckOut, &b.GuestName, &b.GuestEmail,
		&b.GuestPhone, &b.NumberOfGuests, &b.SubtotalPrice, &b.DiscountAmount, &b.TotalPrice,
		&b.CreatedAt, &b.UpdatedAt,
	)
}

// Create inserts a new booking in the pending state.
func (r *BookingRepository) Create(ctx context.Context, b *models.Booking) error {
	b.ID = GenerateID()
	b.Status = models.BookingStatusPending
	b.CreatedAt = r.Now()
	b.CheckIn = b.CheckIn.UTC()
	b.CheckOut = b.CheckOut.UTC()

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		b.ID, b.UserEmail, b.Status, b.CheckIn, b.CheckOut, b.GuestName, b.GuestEmail,
		b.GuestPhone, b.NumberOfGuests, b.SubtotalPrice, b.DiscountAmount, b.TotalPrice,
		b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting booking: %w", err)
	}

	return nil
}

// GetByID retrieves a booking by its ID.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	b := &models.Booking{}

	err := scanBooking(r.DB().QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id), b)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying booking: %w", err)
	}

	return b, nil
}

// List retrieves all bookings, newest first.
func (r *BookingRepository) List(ctx context.Context) ([]models.Booking, error) {
	return r.query(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC`)
}

// ListByUser retrieves the bookings created by one account, newest first.
func (r *BookingRepository) ListByUser(ctx context.Context, email string) ([]models.Booking, error) {
	return r.query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_email = ? ORDER BY created_at DESC`, email)
}

// ListOccupying retrieves bookings that hold dates on the calendar.
func (r *BookingRepository) ListOccupying(ctx context.Context) ([]models.Booking, error) {
	return r.query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE status != ? ORDER BY check_in`,
		models.BookingStatusCancelled)
}

// ListCheckedOut retrieves confirmed bookings whose check-out is before t.
func (r *BookingRepository) ListCheckedOut(ctx context.Context, t time.Time) ([]models.Booking, error) {
	return r.query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE status = ? AND check_out < ?`,
		models.BookingStatusConfirmed, t.UTC())
}

func (r *BookingRepository) query(ctx context.Context, q string, args ...any) ([]models.Booking, error) {
	rows, err := r.DB().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying bookings: %w", err)
	}
	defer rows.Close()

	bookings := []models.Booking{}
	for rows.Next() {
		var b models.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, fmt.Errorf("scanning booking: %w", err)
		}
		bookings = append(bookings, b)
	}

	return bookings, rows.Err()
}

// Transition moves a booking to status. It returns ErrNotFound for an
// unknown booking and ErrConflict when the current status does not allow
// the move. The updated booking is returned on success.
func (r *BookingRepository) Transition(ctx context.Context, id, status string) (*models.Booking, error) {
	var updated *models.Booking
	err := r.Transaction(func(tx *sql.Tx) error {
		b := &models.Booking{}
		err := scanBooking(tx.QueryRowContext(ctx,
			`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id), b)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("querying booking: %w", err)
		}

		if !b.CanTransitionTo(status) {
			return fmt.Errorf("booking %s is %s: %w", id, b.Status, ErrConflict)
		}

		now := r.Now()
		if _, err := tx.ExecContext(ctx,
			`UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?`, status, now, id); err != nil {
			return fmt.Errorf("updating booking status: %w", err)
		}

		b.Status = status
		b.UpdatedAt = &now
		updated = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Stats computes the dashboard counters. Revenue sums confirmed and
// completed stays.
func (r *BookingRepository) Stats(ctx context.Context) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{}

	err := r.DB().QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status IN (?, ?) THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status IN (?, ?) THEN total_price ELSE 0 END), 0)
		FROM bookings
	`,
		models.BookingStatusConfirmed, models.BookingStatusCompleted,
		models.BookingStatusPending,
		models.BookingStatusConfirmed, models.BookingStatusCompleted,
	).Scan(&stats.TotalBookings, &stats.ConfirmedBookings, &stats.PendingBookings, &stats.TotalRevenue)
	if err != nil {
		return nil, fmt.Errorf("querying dashboard stats: %w", err)
	}

	return stats, nil
}
