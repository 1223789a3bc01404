package calendar

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocean-haven/booking/internal/storage"
	"github.com/ocean-haven/booking/internal/storage/models"
)

type fakeSources struct {
	events   []storage.FeedEventWithPlatform
	blocks   []models.Block
	bookings []models.Booking
	calls    int
	err      error
	onList   func()
}

func (f *fakeSources) ListEvents(ctx context.Context) ([]storage.FeedEventWithPlatform, error) {
	f.calls++
	if f.onList != nil {
		f.onList()
	}
	return f.events, f.err
}

func (f *fakeSources) List(ctx context.Context) ([]models.Block, error) {
	return f.blocks, nil
}

func (f *fakeSources) ListOccupying(ctx context.Context) ([]models.Booking, error) {
	return f.bookings, nil
}

func mergedFixture() *fakeSources {
	return &fakeSources{
		events: []storage.FeedEventWithPlatform{
			{
				FeedEvent: models.FeedEvent{
					UID: "a1@airbnb", Summary: "Reserved",
					Start: utcDay(2025, 3, 20), End: utcDay(2025, 3, 22), AllDay: true,
				},
				Platform: SourceAirbnb,
			},
		},
		blocks: []models.Block{
			{ID: "b1", From: utcDay(2025, 3, 1), To: utcDay(2025, 3, 4)},
		},
		bookings: []models.Booking{
			{ID: "k1", Status: models.BookingStatusPending, GuestName: "Ana",
				CheckIn: utcDay(2025, 3, 10), CheckOut: utcDay(2025, 3, 12)},
			{ID: "k2", Status: models.BookingStatusCancelled, GuestName: "Rui",
				CheckIn: utcDay(2025, 4, 10), CheckOut: utcDay(2025, 4, 12)},
		},
	}
}

func TestBuildMergedRoundTrip(t *testing.T) {
	src := mergedFixture()
	body := BuildMerged(src.events, src.blocks, src.bookings, utcDay(2025, 1, 1))

	assert.Contains(t, body, "PRODID:"+MergedProductID)
	assert.Contains(t, body, "VERSION:2.0")
	assert.Contains(t, body, "UID:block-b1")
	assert.Contains(t, body, "SUMMARY:"+BlockSummary)
	assert.Contains(t, body, "DTSTART:20250301T000000Z")
	assert.Contains(t, body, "STATUS:TENTATIVE")
	assert.NotContains(t, body, "Rui")

	events := ParseICS(body)
	require.Len(t, events, 3)

	bySource := make(map[string]Event)
	for _, ev := range events {
		bySource[NormalizeSource(ev)] = ev
	}

	airbnb := bySource[SourceAirbnb]
	assert.Equal(t, utcDay(2025, 3, 20), airbnb.From)
	assert.Equal(t, utcDay(2025, 3, 21), airbnb.To)

	block := bySource[SourceBlock]
	assert.True(t, IsBlock(block))
	assert.Equal(t, utcDay(2025, 3, 1), block.From)
	assert.Equal(t, utcDay(2025, 3, 3), block.To)

	site := bySource[SourceSite]
	assert.Equal(t, "Reserva Ana", site.Summary)
	assert.Equal(t, utcDay(2025, 3, 11), site.To)
}

func TestBuildMergedConfirmedBookingAndBlockNote(t *testing.T) {
	bookings := []models.Booking{
		{ID: "k1", Status: models.BookingStatusConfirmed, GuestName: "Ana",
			CheckIn: utcDay(2025, 3, 10), CheckOut: utcDay(2025, 3, 12)},
	}
	blocks := []models.Block{{ID: "b1", From: utcDay(2025, 3, 1), To: utcDay(2025, 3, 2), Note: "Pintura"}}

	body := BuildMerged(nil, blocks, bookings, utcDay(2025, 1, 1))
	assert.Contains(t, body, "SUMMARY:Pintura")
	assert.NotContains(t, body, "TENTATIVE")
	assert.Equal(t, 2, strings.Count(body, "STATUS:CONFIRMED"))
}

func TestBuildMergedKeepsRecurrenceUIDsUnique(t *testing.T) {
	ev := models.FeedEvent{UID: "weekly", Start: utcDay(2025, 1, 6), End: utcDay(2025, 1, 8), AllDay: true}
	next := ev
	next.Start, next.End = utcDay(2025, 1, 13), utcDay(2025, 1, 15)

	body := BuildMerged([]storage.FeedEventWithPlatform{
		{FeedEvent: ev, Platform: SourceVRBO},
		{FeedEvent: next, Platform: SourceVRBO},
	}, nil, nil, utcDay(2025, 1, 1))

	assert.Equal(t, 2, strings.Count(body, "UID:weekly"))
	assert.Contains(t, body, "UID:weekly-1")
}

func TestMergedFeedCachesUntilInvalidated(t *testing.T) {
	src := mergedFixture()
	feed := NewMergedFeed(src, src, src, time.Minute)
	defer feed.Stop()

	first, err := feed.Render(context.Background())
	require.NoError(t, err)
	second, err := feed.Render(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, src.calls)

	feed.Invalidate()
	_, err = feed.Render(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestMergedFeedDropsRenderRacingInvalidate(t *testing.T) {
	src := mergedFixture()
	feed := NewMergedFeed(src, src, src, time.Minute)
	defer feed.Stop()

	// A write lands while the first render is reading its sources.
	src.onList = func() {
		src.onList = nil
		src.blocks = append(src.blocks, models.Block{ID: "b2", From: utcDay(2025, 4, 1), To: utcDay(2025, 4, 2)})
		feed.Invalidate()
	}

	_, err := feed.Render(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)

	body, err := feed.Render(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
	assert.Contains(t, body, "UID:block-b2")

	_, err = feed.Render(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestMergedFeedPropagatesErrors(t *testing.T) {
	src := &fakeSources{err: errors.New("db down")}
	feed := NewMergedFeed(src, src, src, time.Minute)
	defer feed.Stop()

	_, err := feed.Render(context.Background())
	assert.Error(t, err)
}
