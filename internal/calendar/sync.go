package calendar

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ocean-haven/booking/internal/metrics"
	"github.com/ocean-haven/booking/internal/storage"
	"github.com/ocean-haven/booking/internal/storage/models"
)

// syncLookback keeps recently finished stays in the synced window.
const syncLookback = 30 * 24 * time.Hour

// SyncService pulls external platform feeds into the feed_events table and
// closes out finished stays.
type SyncService struct {
	calendarRepo *storage.CalendarRepository
	bookingRepo  *storage.BookingRepository
	fetcher      *Fetcher
	feed         *MergedFeed
	location     *time.Location
	horizon      time.Duration
	now          func() time.Time
}

// NewSyncService creates a new calendar sync service. feed may be nil.
func NewSyncService(
	calendarRepo *storage.CalendarRepository,
	bookingRepo *storage.BookingRepository,
	fetcher *Fetcher,
	feed *MergedFeed,
	loc *time.Location,
	horizon time.Duration,
) *SyncService {
	if fetcher == nil {
		fetcher = NewFetcher(0)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &SyncService{
		calendarRepo: calendarRepo,
		bookingRepo:  bookingRepo,
		fetcher:      fetcher,
		feed:         feed,
		location:     loc,
		horizon:      horizon,
		now:          time.Now,
	}
}

// window returns the range of occurrences kept by a sync.
func (s *SyncService) window() Window {
	now := s.now().UTC()
	return Window{Start: now.Add(-syncLookback), End: now.Add(s.horizon)}
}

// SyncSubscription synchronizes a single subscription and returns the result.
// A failed fetch or parse leaves the previously stored events in place.
func (s *SyncService) SyncSubscription(ctx context.Context, id string) (*models.CalendarSyncResult, error) {
	sub, err := s.calendarRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting subscription: %w", err)
	}
	if sub == nil {
		return nil, fmt.Errorf("subscription %s: %w", id, storage.ErrNotFound)
	}

	result := &models.CalendarSyncResult{
		SubscriptionID: sub.ID,
		Platform:       sub.Platform,
		SyncedAt:       s.now().UTC(),
	}

	if err := s.calendarRepo.UpdateSyncStatus(ctx, id, models.SyncStatusSyncing, nil); err != nil {
		log.Printf("Failed to update sync status: %v", err)
	}

	body, err := s.fetcher.Fetch(ctx, sub.URL)
	if err != nil {
		return s.fail(ctx, result, err)
	}

	events, err := ParseFeed(body, s.window(), s.location)
	if err != nil {
		return s.fail(ctx, result, err)
	}
	result.EventsFound = len(events)

	if err := s.calendarRepo.ReplaceEvents(ctx, id, events); err != nil {
		return s.fail(ctx, result, fmt.Errorf("storing events: %w", err))
	}
	result.EventsStored = len(events)

	if err := s.calendarRepo.UpdateSyncStatus(ctx, id, models.SyncStatusSuccess, nil); err != nil {
		log.Printf("Failed to update sync status: %v", err)
	}
	metrics.IncCalendarSync(models.SyncStatusSuccess)
	s.invalidate()

	return result, nil
}

func (s *SyncService) fail(ctx context.Context, result *models.CalendarSyncResult, err error) (*models.CalendarSyncResult, error) {
	msg := err.Error()
	if uerr := s.calendarRepo.UpdateSyncStatus(ctx, result.SubscriptionID, models.SyncStatusError, &msg); uerr != nil {
		log.Printf("Failed to update sync status: %v", uerr)
	}
	metrics.IncCalendarSync(models.SyncStatusError)
	result.Error = err
	return result, err
}

// SyncAll synchronizes every subscription. A failing subscription does not
// stop the others; its result carries the error.
func (s *SyncService) SyncAll(ctx context.Context) ([]models.CalendarSyncResult, error) {
	subs, err := s.calendarRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing subscriptions: %w", err)
	}

	results := make([]models.CalendarSyncResult, 0, len(subs))
	for _, sub := range subs {
		result, err := s.SyncSubscription(ctx, sub.ID)
		if err != nil {
			log.Printf("Error syncing subscription %s: %v", sub.ID, err)
			if result == nil {
				result = &models.CalendarSyncResult{
					SubscriptionID: sub.ID,
					Platform:       sub.Platform,
					Error:          err,
					SyncedAt:       s.now().UTC(),
				}
			}
		}
		results = append(results, *result)
	}

	return results, nil
}

// CompleteCheckedOut marks confirmed bookings whose check-out has passed as
// completed and returns the bookings it moved.
func (s *SyncService) CompleteCheckedOut(ctx context.Context) ([]models.Booking, error) {
	due, err := s.bookingRepo.ListCheckedOut(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("listing checked-out bookings: %w", err)
	}

	var completed []models.Booking
	for _, b := range due {
		updated, err := s.bookingRepo.Transition(ctx, b.ID, models.BookingStatusCompleted)
		if err != nil {
			log.Printf("Failed to complete booking %s: %v", b.ID, err)
			continue
		}
		metrics.IncBookingDecision(models.BookingStatusCompleted)
		completed = append(completed, *updated)
	}

	if len(completed) > 0 {
		s.invalidate()
	}
	return completed, nil
}

func (s *SyncService) invalidate() {
	if s.feed != nil {
		s.feed.Invalidate()
	}
}
