package calendar

import (
	"context"
	"fmt"
	"sync"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/karlseguin/ccache/v3"

	"github.com/ocean-haven/booking/internal/storage"
	"github.com/ocean-haven/booking/internal/storage/models"
)

// Merged feed identity and labels.
const (
	MergedProductID = "-//ocean-haven//Merged Calendar//EN"
	BlockSummary    = "Bloqueio"
	mergedCacheKey  = "merged.ics"
)

// EventLister lists synced external events.
type EventLister interface {
	ListEvents(ctx context.Context) ([]storage.FeedEventWithPlatform, error)
}

// BlockLister lists manual blocks.
type BlockLister interface {
	List(ctx context.Context) ([]models.Block, error)
}

// BookingLister lists bookings that hold calendar dates.
type BookingLister interface {
	ListOccupying(ctx context.Context) ([]models.Booking, error)
}

// MergedFeed renders the combined availability calendar and caches the
// rendered body until Invalidate or the TTL.
type MergedFeed struct {
	events   EventLister
	blocks   BlockLister
	bookings BookingLister
	cache    *ccache.Cache[string]
	ttl      time.Duration

	// generation counts invalidations; a render only caches its body when
	// no invalidation happened while it read the sources.
	mu         sync.Mutex
	generation uint64
}

// NewMergedFeed creates a merged feed over the given sources.
func NewMergedFeed(events EventLister, blocks BlockLister, bookings BookingLister, ttl time.Duration) *MergedFeed {
	return &MergedFeed{
		events:   events,
		blocks:   blocks,
		bookings: bookings,
		cache:    ccache.New(ccache.Configure[string]().MaxSize(16)),
		ttl:      ttl,
	}
}

// Render returns the merged iCalendar text.
func (m *MergedFeed) Render(ctx context.Context) (string, error) {
	if item := m.cache.Get(mergedCacheKey); item != nil && !item.Expired() {
		return item.Value(), nil
	}

	m.mu.Lock()
	generation := m.generation
	m.mu.Unlock()

	events, err := m.events.ListEvents(ctx)
	if err != nil {
		return "", fmt.Errorf("listing feed events: %w", err)
	}
	blocks, err := m.blocks.List(ctx)
	if err != nil {
		return "", fmt.Errorf("listing blocks: %w", err)
	}
	bookings, err := m.bookings.ListOccupying(ctx)
	if err != nil {
		return "", fmt.Errorf("listing bookings: %w", err)
	}

	body := BuildMerged(events, blocks, bookings, time.Now())
	if m.ttl > 0 {
		m.mu.Lock()
		if m.generation == generation {
			m.cache.Set(mergedCacheKey, body, m.ttl)
		}
		m.mu.Unlock()
	}
	return body, nil
}

// Invalidate drops the cached body. It is a no-op on a nil feed.
func (m *MergedFeed) Invalidate() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.generation++
	m.cache.Delete(mergedCacheKey)
	m.mu.Unlock()
}

// Stop releases the cache's background worker.
func (m *MergedFeed) Stop() {
	m.cache.Stop()
}

// BuildMerged renders one VCALENDAR holding every synced event tagged with
// its platform, every block and every non-cancelled booking.
func BuildMerged(events []storage.FeedEventWithPlatform, blocks []models.Block, bookings []models.Booking, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetVersion("2.0")
	cal.SetProductId(MergedProductID)

	seen := make(map[string]int)
	for _, fe := range events {
		uid := fe.UID
		if n := seen[uid]; n > 0 {
			uid = fmt.Sprintf("%s-%d", fe.UID, n)
		}
		seen[fe.UID]++

		ev := cal.AddEvent(uid)
		ev.SetDtStampTime(now)
		ev.SetSummary(fe.Summary)
		ev.AddProperty(ical.ComponentPropertyCategories, fe.Platform)
		if fe.AllDay {
			ev.SetAllDayStartAt(fe.Start)
			ev.SetAllDayEndAt(fe.End)
		} else {
			ev.SetStartAt(fe.Start)
			ev.SetEndAt(fe.End)
		}
		status := fe.Status
		if status == "" {
			status = statusConfirmed
		}
		ev.SetProperty(ical.ComponentPropertyStatus, status)
	}

	for _, b := range blocks {
		ev := cal.AddEvent("block-" + b.ID)
		ev.SetDtStampTime(now)
		summary := b.Note
		if summary == "" {
			summary = BlockSummary
		}
		ev.SetSummary(summary)
		ev.AddProperty(ical.ComponentPropertyCategories, SourceBlock)
		ev.SetStartAt(b.From)
		ev.SetEndAt(b.To)
		ev.SetProperty(ical.ComponentPropertyStatus, statusConfirmed)
	}

	for _, bk := range bookings {
		if !bk.Occupies() {
			continue
		}
		ev := cal.AddEvent(bk.ID)
		ev.SetDtStampTime(now)
		ev.SetSummary("Reserva " + bk.GuestName)
		ev.AddProperty(ical.ComponentPropertyCategories, SourceSite)
		ev.SetStartAt(bk.CheckIn)
		ev.SetEndAt(bk.CheckOut)
		status := statusTentative
		if bk.Status != models.BookingStatusPending {
			status = statusConfirmed
		}
		ev.SetProperty(ical.ComponentPropertyStatus, status)
	}

	return cal.Serialize()
}
