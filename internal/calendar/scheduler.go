package calendar

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ocean-haven/booking/internal/storage"
	"github.com/ocean-haven/booking/internal/storage/models"
	"github.com/ocean-haven/booking/internal/websocket"
)

// Job names registered with the scheduler.
const (
	JobSync     = "sync"
	JobComplete = "complete"
)

// Scheduler manages the periodic sync and stay completion jobs.
type Scheduler struct {
	cron         *cron.Cron
	syncService  *SyncService
	calendarRepo *storage.CalendarRepository
	broadcaster  *websocket.EventBroadcaster

	jobs   map[string]cron.EntryID
	jobsMu sync.RWMutex

	interval time.Duration
	wg       sync.WaitGroup
}

// NewScheduler creates a new calendar sync scheduler. A nil hub disables
// broadcasts.
func NewScheduler(
	syncService *SyncService,
	calendarRepo *storage.CalendarRepository,
	hub *websocket.Hub,
	intervalMin int,
) *Scheduler {
	if intervalMin <= 0 {
		intervalMin = 15
	}

	var broadcaster *websocket.EventBroadcaster
	if hub != nil {
		broadcaster = websocket.NewEventBroadcaster(hub)
	}

	return &Scheduler{
		cron:         cron.New(cron.WithSeconds()),
		syncService:  syncService,
		calendarRepo: calendarRepo,
		broadcaster:  broadcaster,
		jobs:         make(map[string]cron.EntryID),
		interval:     time.Duration(intervalMin) * time.Minute,
	}
}

// Start registers the jobs and starts the cron runner.
func (s *Scheduler) Start() error {
	log.Println("Starting calendar sync scheduler...")

	if err := s.schedule(JobSync, everySpec(s.interval), s.syncAll); err != nil {
		return err
	}
	if err := s.schedule(JobComplete, "@every 1h", s.completeStays); err != nil {
		return err
	}

	s.cron.Start()
	log.Printf("Calendar scheduler started, syncing every %s", s.interval)

	return nil
}

// Stop waits for running jobs and triggered syncs to finish.
func (s *Scheduler) Stop() {
	log.Println("Stopping calendar sync scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.wg.Wait()
	log.Println("Calendar scheduler stopped")
}

func (s *Scheduler) schedule(name, spec string, fn func()) error {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	if existingID, exists := s.jobs[name]; exists {
		s.cron.Remove(existingID)
		delete(s.jobs, name)
	}

	entryID, err := s.cron.AddFunc(spec, fn)
	if err != nil {
		return fmt.Errorf("scheduling %s job: %w", name, err)
	}
	s.jobs[name] = entryID
	return nil
}

// TriggerSync runs an immediate sync of one subscription in the background.
func (s *Scheduler) TriggerSync(subscriptionID string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx := context.Background()
		sub, err := s.calendarRepo.GetByID(ctx, subscriptionID)
		if err != nil || sub == nil {
			log.Printf("Subscription not found for sync: %s", subscriptionID)
			return
		}
		s.syncSubscription(ctx, sub.ID, sub.Platform)
	}()
}

// syncSubscription performs one sync and broadcasts its outcome.
func (s *Scheduler) syncSubscription(ctx context.Context, id, platform string) {
	log.Printf("Syncing calendar: %s (%s)", id, platform)

	result, err := s.syncService.SyncSubscription(ctx, id)
	if err != nil {
		log.Printf("Calendar sync failed for %s: %v", id, err)
		s.broadcaster.BroadcastCalendarSyncError(id, platform, err)
		return
	}

	log.Printf("Calendar sync completed for %s: %d events", id, result.EventsStored)
	s.broadcaster.BroadcastCalendarSyncCompleted(*result)
}

func (s *Scheduler) syncAll() {
	results, err := s.syncService.SyncAll(context.Background())
	if err != nil {
		log.Printf("Failed to sync calendars: %v", err)
		return
	}

	for _, result := range results {
		if result.Error != nil {
			s.broadcaster.BroadcastCalendarSyncError(result.SubscriptionID, result.Platform, result.Error)
			continue
		}
		s.broadcaster.BroadcastCalendarSyncCompleted(result)
	}
}

func (s *Scheduler) completeStays() {
	completed, err := s.syncService.CompleteCheckedOut(context.Background())
	if err != nil {
		log.Printf("Failed to complete stays: %v", err)
		return
	}

	for _, b := range completed {
		log.Printf("Booking %s completed", b.ID)
		s.broadcaster.BroadcastBookingStatusChanged(b, models.BookingStatusConfirmed)
	}
}

// everySpec converts an interval to a cron spec.
func everySpec(d time.Duration) string {
	if d < time.Minute {
		d = 15 * time.Minute
	}
	return "@every " + d.String()
}

// ScheduledJobs returns the names of the registered jobs.
func (s *Scheduler) ScheduledJobs() []string {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}

// NextRun returns the next scheduled run time of a job.
func (s *Scheduler) NextRun(name string) *time.Time {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	if entryID, exists := s.jobs[name]; exists {
		entry := s.cron.Entry(entryID)
		if !entry.Next.IsZero() {
			return &entry.Next
		}
	}
	return nil
}
