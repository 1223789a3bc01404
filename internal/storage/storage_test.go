package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocean-haven/booking/internal/storage/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "booking.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newBooking(guest string, in, out time.Time) *models.Booking {
	email := guest + "@example.com"
	return &models.Booking{
		UserEmail:      &email,
		CheckIn:        in,
		CheckOut:       out,
		GuestName:      guest,
		GuestEmail:     email,
		NumberOfGuests: 2,
		SubtotalPrice:  15000,
		TotalPrice:     15000,
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, RunMigrations(db))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM _migrations").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(openTestDB(t))

	u := &models.User{Email: "owner@example.com", PasswordHash: "hash", FullName: "Owner", IsOwner: true}
	require.NoError(t, repo.Create(ctx, u))

	err := repo.Create(ctx, &models.User{Email: "owner@example.com", PasswordHash: "x"})
	assert.True(t, errors.Is(err, ErrConflict))

	got, err := repo.GetByEmail(ctx, "owner@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsOwner)
	assert.Equal(t, "Owner", got.FullName)

	missing, err := repo.GetByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestBookingTransitions(t *testing.T) {
	ctx := context.Background()
	repo := NewBookingRepository(openTestDB(t))

	b := newBooking("ana", time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Create(ctx, b))
	assert.Equal(t, models.BookingStatusPending, b.Status)
	assert.NotEmpty(t, b.ID)

	updated, err := repo.Transition(ctx, b.ID, models.BookingStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, updated.Status)
	assert.NotNil(t, updated.UpdatedAt)

	_, err = repo.Transition(ctx, b.ID, models.BookingStatusConfirmed)
	assert.True(t, errors.Is(err, ErrConflict))

	_, err = repo.Transition(ctx, b.ID, models.BookingStatusCancelled)
	require.NoError(t, err)

	_, err = repo.Transition(ctx, b.ID, models.BookingStatusCancelled)
	assert.True(t, errors.Is(err, ErrConflict))

	_, err = repo.Transition(ctx, "missing", models.BookingStatusConfirmed)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestBookingListsAndStats(t *testing.T) {
	ctx := context.Background()
	repo := NewBookingRepository(openTestDB(t))
	day := func(d int) time.Time { return time.Date(2025, 2, d, 0, 0, 0, 0, time.UTC) }

	a := newBooking("ana", day(1), day(4))
	b := newBooking("bia", day(10), day(12))
	b.TotalPrice = 11000
	c := newBooking("ana", day(20), day(22))
	for _, bk := range []*models.Booking{a, b, c} {
		require.NoError(t, repo.Create(ctx, bk))
	}

	_, err := repo.Transition(ctx, a.ID, models.BookingStatusConfirmed)
	require.NoError(t, err)
	_, err = repo.Transition(ctx, c.ID, models.BookingStatusCancelled)
	require.NoError(t, err)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := repo.ListByUser(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	occupying, err := repo.ListOccupying(ctx)
	require.NoError(t, err)
	assert.Len(t, occupying, 2)

	done, err := repo.ListCheckedOut(ctx, day(5))
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, a.ID, done[0].ID)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &models.DashboardStats{
		TotalBookings:     3,
		ConfirmedBookings: 1,
		PendingBookings:   1,
		TotalRevenue:      15000,
	}, stats)
}

func TestBlockRepositoryDeleteOverlapping(t *testing.T) {
	ctx := context.Background()
	repo := NewBlockRepository(openTestDB(t))
	day := func(d int) time.Time { return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC) }

	require.NoError(t, repo.Create(ctx, &models.Block{From: day(1), To: day(3), Note: "paint"}))
	require.NoError(t, repo.Create(ctx, &models.Block{From: day(10), To: day(12)}))

	n, err := repo.DeleteOverlapping(ctx, day(3), day(5))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	blocks, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.True(t, blocks[0].From.Equal(day(10)))
}

func TestCalendarRepositoryEvents(t *testing.T) {
	ctx := context.Background()
	repo := NewCalendarRepository(openTestDB(t))

	sub := &models.CalendarSubscription{Platform: "Airbnb", URL: "https://example.com/a.ics"}
	require.NoError(t, repo.Create(ctx, sub))
	assert.Equal(t, models.SyncStatusPending, sub.SyncStatus)

	start := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	events := []models.FeedEvent{
		{UID: "a", Summary: "Reserved", Start: start, End: start.AddDate(0, 0, 3), AllDay: true},
		{UID: "b", Start: start.AddDate(0, 0, 5), End: start.AddDate(0, 0, 6)},
	}
	require.NoError(t, repo.ReplaceEvents(ctx, sub.ID, events))
	require.NoError(t, repo.ReplaceEvents(ctx, sub.ID, events[:1]))

	stored, err := repo.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Airbnb", stored[0].Platform)
	assert.True(t, stored[0].AllDay)
	assert.True(t, stored[0].Start.Equal(start))

	msg := "boom"
	require.NoError(t, repo.UpdateSyncStatus(ctx, sub.ID, models.SyncStatusError, &msg))
	got, err := repo.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LastSyncAt)
	require.NotNil(t, got.SyncError)
	assert.Equal(t, "boom", *got.SyncError)

	require.NoError(t, repo.UpdateSyncStatus(ctx, sub.ID, models.SyncStatusSuccess, nil))
	got, err = repo.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.LastSyncAt)
	assert.Nil(t, got.SyncError)

	require.NoError(t, repo.Delete(ctx, sub.ID))
	stored, err = repo.ListEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)

	assert.True(t, errors.Is(repo.Delete(ctx, sub.ID), ErrNotFound))
}

func TestMessagesAndSettings(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	bookings := NewBookingRepository(db)
	messages := NewMessageRepository(db)
	settings := NewSettingsRepository(db)

	b := newBooking("ana", time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 5, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, bookings.Create(ctx, b))

	for _, text := range []string{"hello", "see you"} {
		require.NoError(t, messages.Create(ctx, &models.Message{BookingID: b.ID, SenderEmail: "ana@example.com", Message: text}))
	}
	thread, err := messages.ListByBooking(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, thread, 2)
	assert.Equal(t, "hello", thread[0].Message)

	unset, err := settings.Get(ctx, models.SettingPricing)
	require.NoError(t, err)
	assert.Nil(t, unset)

	require.NoError(t, settings.Set(ctx, models.SettingPricing, `{"scheme":"flat"}`))
	require.NoError(t, settings.Set(ctx, models.SettingPricing, `{"scheme":"weekday_weekend"}`))
	got, err := settings.Get(ctx, models.SettingPricing)
	require.NoError(t, err)
	assert.Equal(t, `{"scheme":"weekday_weekend"}`, got.Value)
}
