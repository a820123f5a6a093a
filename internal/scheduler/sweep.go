package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pakuni-app/notification-engine/internal/dispatch"
	"github.com/pakuni-app/notification-engine/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// EventDateSource resolves the external event date a reminder trigger
// counts down to (admission deadline, entry test date, scholarship close).
type EventDateSource interface {
	GetEventDate(ctx context.Context, triggerType models.TriggerType, criteria map[string]string) (time.Time, error)
}

// CandidateStore lists the triggers a sweep has to evaluate.
type CandidateStore interface {
	GetSweepCandidates(ctx context.Context) ([]models.Trigger, error)
}

// Activator runs one trigger activation.
type Activator interface {
	ActivateTrigger(ctx context.Context, trigger *models.Trigger) (*dispatch.ActivationResult, error)
}

// Sweeper periodically evaluates the due predicates over all enabled
// non-immediate triggers and activates the due ones. Each due trigger is
// activated in its own goroutine; the per-trigger lease inside the
// orchestrator keeps concurrent sweeps and operator actions from
// double-sending.
type Sweeper struct {
	store     CandidateStore
	activator Activator
	events    EventDateSource
	interval  time.Duration
	cron      *cron.Cron
}

func NewSweeper(store CandidateStore, activator Activator, events EventDateSource, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		store:     store,
		activator: activator,
		events:    events,
		interval:  interval,
	}
}

// Start begins the periodic sweep.
func (s *Sweeper) Start() {
	s.cron = cron.New()

	s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		if err := s.Sweep(context.Background()); err != nil {
			logrus.WithError(err).Error("Scheduler sweep failed")
		}
	})

	s.cron.Start()
	logrus.WithField("interval", s.interval.String()).Info("Scheduler sweep started")
}

// Stop halts future sweeps; in-flight activations run to completion.
func (s *Sweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Sweep evaluates all candidates once and activates the due ones.
func (s *Sweeper) Sweep(ctx context.Context) error {
	now := time.Now()

	candidates, err := s.store.GetSweepCandidates(ctx)
	if err != nil {
		return fmt.Errorf("failed to load sweep candidates: %w", err)
	}

	var wg sync.WaitGroup
	for i := range candidates {
		trigger := candidates[i]
		if !s.due(ctx, &trigger, now) {
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := s.activator.ActivateTrigger(ctx, &trigger)
			if err != nil {
				logrus.WithError(err).WithField("trigger_id", trigger.ID.Hex()).Error("Trigger activation failed")
				return
			}
			if result.Skipped {
				return
			}
			logrus.WithFields(logrus.Fields{
				"trigger_id": trigger.ID.Hex(),
				"sent":       result.SentCount,
				"failed":     result.Failed,
			}).Info("Sweep activation finished")
		}()
	}
	wg.Wait()

	return nil
}

// due dispatches to the matching predicate. Reminder triggers (DaysBefore
// set) are evaluated against the external event date; everything else by
// schedule type.
func (s *Sweeper) due(ctx context.Context, t *models.Trigger, now time.Time) bool {
	if !t.Enabled {
		return false
	}

	if t.DaysBefore != nil {
		eventDate, err := s.events.GetEventDate(ctx, t.TriggerType, t.TargetCriteria)
		if err != nil {
			logrus.WithError(err).WithField("trigger_id", t.ID.Hex()).Warn("Failed to resolve event date")
			return false
		}
		return ReminderDue(t, now, eventDate, s.interval)
	}

	switch t.ScheduleType {
	case models.ScheduleScheduled:
		return ScheduledDue(t, now)
	case models.ScheduleRecurring:
		return RecurringDue(t, now)
	}
	return false
}
