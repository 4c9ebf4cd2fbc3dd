// Package notify produces the weekly recommendation digest. A cron schedule
// runs the event query for the coming week and enqueues one notification per
// opted-in profile.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"sosyal-api/domain"
)

// DefaultSchedule runs the digest every Monday at 09:00.
const DefaultSchedule = "0 9 * * 1"

const maxDigestEvents = 5

// Storage is the persistence surface the digest needs.
type Storage interface {
	FetchEvents(ctx context.Context) ([]domain.Event, error)
	ListProfiles(ctx context.Context) ([]domain.Profile, error)
	EnqueueNotifications(ctx context.Context, notifs []domain.Notification) error
}

// Digest owns the cron schedule and the per-run pipeline.
type Digest struct {
	store    Storage
	logger   *log.Logger
	schedule string
	runner   *cron.Cron
	timeout  time.Duration

	// now is swapped in tests to pin the week window.
	now func() time.Time
}

// NewDigest creates a digest job. An empty schedule falls back to
// DefaultSchedule.
func NewDigest(store Storage, logger *log.Logger, schedule string) *Digest {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Digest{
		store:    store,
		logger:   logger,
		schedule: schedule,
		timeout:  2 * time.Minute,
		now:      time.Now,
	}
}

// Start registers the schedule and begins running. It returns an error when
// the cron expression does not parse.
func (d *Digest) Start() error {
	d.runner = cron.New()
	_, err := d.runner.AddFunc(d.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.Run(ctx); err != nil {
			d.logger.Errorf("weekly digest run failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule digest: %w", err)
	}
	d.runner.Start()
	d.logger.Infof("weekly digest scheduled: %s", d.schedule)
	return nil
}

// Stop halts the schedule. In-flight runs finish.
func (d *Digest) Stop() {
	if d.runner != nil {
		<-d.runner.Stop().Done()
	}
}

// Run executes one digest pass: query the coming week's events sorted by
// crowd size and fan out to every profile that opted in.
func (d *Digest) Run(ctx context.Context) error {
	now := d.now()

	events, err := d.store.FetchEvents(ctx)
	if err != nil {
		return fmt.Errorf("fetch events: %w", err)
	}

	filters := domain.DefaultFilters()
	filters.Date = domain.DateThisWeek
	filters.SortBy = domain.SortByAttendees

	picks := domain.Query(events, "", "", filters, now)
	if len(picks) == 0 {
		d.logger.Info("weekly digest: no events this week, skipping")
		return nil
	}
	if len(picks) > maxDigestEvents {
		picks = picks[:maxDigestEvents]
	}

	payload, err := sonic.Marshal(domain.DigestPayload{
		WeekStart: now.Format("2006-01-02"),
		Events:    picks,
	})
	if err != nil {
		return fmt.Errorf("encode digest payload: %w", err)
	}

	profiles, err := d.store.ListProfiles(ctx)
	if err != nil {
		return fmt.Errorf("list profiles: %w", err)
	}

	notifs := make([]domain.Notification, 0, len(profiles))
	for _, p := range profiles {
		if !p.Preferences.WeeklyRecommendations {
			continue
		}
		notifs = append(notifs, domain.Notification{
			ID:        uuid.NewString(),
			UserID:    p.Username,
			Type:      domain.NotificationWeeklyDigest,
			Data:      payload,
			Timestamp: now.UnixNano(),
		})
	}
	if len(notifs) == 0 {
		d.logger.Info("weekly digest: no opted-in profiles, skipping")
		return nil
	}

	if err := d.store.EnqueueNotifications(ctx, notifs); err != nil {
		return fmt.Errorf("enqueue digest: %w", err)
	}
	d.logger.Infof("weekly digest enqueued, recipients: %d, events: %d", len(notifs), len(picks))
	return nil
}
