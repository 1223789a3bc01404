package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ocean-haven/booking/internal/storage/models"
)

// CalendarRepository provides data access for external calendar
// subscriptions and their synced events.
type CalendarRepository struct {
	BaseRepository
}

// NewCalendarRepository creates a new calendar repository.
func NewCalendarRepository(db *DB) *CalendarRepository {
	return &CalendarRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

const subscriptionColumns = `id, platform, url, last_sync_at, sync_status, sync_error, created_at, updated_at`

func scanSubscription(row interface{ Scan(...any) error }, sub *models.CalendarSubscription) error {
	return row.Scan(
		&sub.ID, &sub.Platform, &sub.URL, &sub.LastSyncAt,
		&sub.SyncStatus, &sub.SyncError, &sub.CreatedAt, &sub.UpdatedAt,
	)
}

// Create inserts a new subscription in the pending state.
func (r *CalendarRepository) Create(ctx context.Context, sub *models.CalendarSubscription) error {
	sub.ID = GenerateID()
	sub.CreatedAt = r.Now()
	sub.UpdatedAt = sub.CreatedAt
	sub.SyncStatus = models.SyncStatusPending

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO icals (id, platform, url, sync_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sub.ID, sub.Platform, sub.URL, sub.SyncStatus, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting subscription: %w", err)
	}

	return nil
}

// GetByID retrieves a subscription by its ID.
func (r *CalendarRepository) GetByID(ctx context.Context, id string) (*models.CalendarSubscription, error) {
	sub := &models.CalendarSubscription{}

	err := scanSubscription(r.DB().QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM icals WHERE id = ?`, id), sub)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying subscription: %w", err)
	}

	return sub, nil
}

// List retrieves all subscriptions, newest first.
func (r *CalendarRepository) List(ctx context.Context) ([]models.CalendarSubscription, error) {
	rows, err := r.DB().QueryContext(ctx,
		`SELECT `+subscriptionColumns+` FROM icals ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying subscriptions: %w", err)
	}
	defer rows.Close()

	subs := []models.CalendarSubscription{}
	for rows.Next() {
		var sub models.CalendarSubscription
		if err := scanSubscription(rows, &sub); err != nil {
			return nil, fmt.Errorf("scanning subscription: %w", err)
		}
		subs = append(subs, sub)
	}

	return subs, rows.Err()
}

// UpdateSyncStatus records the outcome of a sync attempt. last_sync_at only
// moves on success.
func (r *CalendarRepository) UpdateSyncStatus(ctx context.Context, id string, status string, syncError *string) error {
	now := r.Now()
	var lastSyncAt any
	if status == models.SyncStatusSuccess {
		lastSyncAt = now
	}

	_, err := r.DB().ExecContext(ctx, `
		UPDATE icals SET
			sync_status = ?, sync_error = ?, last_sync_at = COALESCE(?, last_sync_at), updated_at = ?
		WHERE id = ?
	`, status, syncError, lastSyncAt, now, id)
	if err != nil {
		return fmt.Errorf("updating sync status: %w", err)
	}

	return nil
}

// Delete removes a subscription; its feed events go with it.
func (r *CalendarRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB().ExecContext(ctx, "DELETE FROM icals WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting subscription: %w", err)
	}
	return checkAffected(result)
}

// ReplaceEvents swaps the stored events of a subscription for events.
func (r *CalendarRepository) ReplaceEvents(ctx context.Context, subscriptionID string, events []models.FeedEvent) error {
	return r.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM feed_events WHERE subscription_id = ?", subscriptionID); err != nil {
			return fmt.Errorf("deleting feed events: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO feed_events (subscription_id, uid, summary, status, start_at, end_at, all_day)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing feed event insert: %w", err)
		}
		defer stmt.Close()

		for _, ev := range events {
			if _, err := stmt.ExecContext(ctx,
				subscriptionID, ev.UID, ev.Summary, ev.Status,
				ev.Start.UTC(), ev.End.UTC(), ev.AllDay,
			); err != nil {
				return fmt.Errorf("inserting feed event %s: %w", ev.UID, err)
			}
		}

		return nil
	})
}

// FeedEventWithPlatform pairs a synced event with its subscription's platform.
type FeedEventWithPlatform struct {
	models.FeedEvent
	Platform string
}

// ListEvents returns every synced event ordered by start.
func (r *CalendarRepository) ListEvents(ctx context.Context) ([]FeedEventWithPlatform, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT e.subscription_id, e.uid, e.summary, e.status, e.start_at, e.end_at, e.all_day, i.platform
		FROM feed_events e
		JOIN icals i ON i.id = e.subscription_id
		ORDER BY e.start_at
	`)
	if err != nil {
		return nil, fmt.Errorf("querying feed events: %w", err)
	}
	defer rows.Close()

	var events []FeedEventWithPlatform
	for rows.Next() {
		var ev FeedEventWithPlatform
		if err := rows.Scan(
			&ev.SubscriptionID, &ev.UID, &ev.Summary, &ev.Status,
			&ev.Start, &ev.End, &ev.AllDay, &ev.Platform,
		); err != nil {
			return nil, fmt.Errorf("scanning feed event: %w", err)
		}
		events = append(events, ev)
	}

	return events, rows.Err()
}
