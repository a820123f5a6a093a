package scheduler

import (
	"time"

	"github.com/pakuni-app/notification-engine/internal/models"
)

// ScheduledDue reports whether a one-shot scheduled trigger is due at now.
// Comparing lastTriggered against the schedule instant makes repeated
// sweeps idempotent: once activated for that instant it never fires again.
func ScheduledDue(t *models.Trigger, now time.Time) bool {
	if t.ScheduleType != models.ScheduleScheduled || t.ScheduleTime.IsZero() {
		return false
	}
	if now.Before(t.ScheduleTime) {
		return false
	}
	return t.LastTriggered.Before(t.ScheduleTime)
}

// RecurringDue reports whether a recurring trigger has crossed its
// interval boundary since the last activation. A trigger that has never
// fired is due on its first observed sweep.
func RecurringDue(t *models.Trigger, now time.Time) bool {
	if t.ScheduleType != models.ScheduleRecurring {
		return false
	}
	interval, err := t.RecurringInterval()
	if err != nil {
		return false
	}
	if t.LastTriggered.IsZero() {
		return true
	}
	return !now.Before(t.LastTriggered.Add(interval))
}

// ReminderDue reports whether a days-before reminder is due: now falls in
// the window [eventDate - daysBefore, eventDate - daysBefore + sweepInterval)
// and the trigger has not already fired inside that window.
func ReminderDue(t *models.Trigger, now, eventDate time.Time, sweepInterval time.Duration) bool {
	if t.DaysBefore == nil || eventDate.IsZero() {
		return false
	}

	windowStart := eventDate.Add(-time.Duration(*t.DaysBefore) * 24 * time.Hour)
	if now.Before(windowStart) || !now.Before(windowStart.Add(sweepInterval)) {
		return false
	}
	return t.LastTriggered.Before(windowStart)
}
