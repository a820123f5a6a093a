package scheduler

import (
	"testing"
	"time"

	"github.com/pakuni-app/notification-engine/internal/models"
	"github.com/stretchr/testify/assert"
)

func mustParse(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("bad test timestamp %q: %v", value, err)
	}
	return ts
}

func TestScheduledDue(t *testing.T) {
	scheduleTime := mustParse(t, "2025-09-01T09:00:00Z")

	tests := []struct {
		name          string
		now           string
		lastTriggered string
		want          bool
	}{
		{"before schedule time", "2025-09-01T08:59:59Z", "", false},
		{"at schedule time", "2025-09-01T09:00:00Z", "", true},
		{"after schedule time, never fired", "2025-09-02T00:00:00Z", "", true},
		{"already fired for this instant", "2025-09-01T10:00:00Z", "2025-09-01T09:00:01Z", false},
		{"fired long before reschedule", "2025-09-01T10:00:00Z", "2025-08-01T00:00:00Z", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger := &models.Trigger{
				ScheduleType: models.ScheduleScheduled,
				ScheduleTime: scheduleTime,
			}
			if tt.lastTriggered != "" {
				trigger.LastTriggered = mustParse(t, tt.lastTriggered)
			}
			assert.Equal(t, tt.want, ScheduledDue(trigger, mustParse(t, tt.now)))
		})
	}
}

func TestScheduledDueWrongType(t *testing.T) {
	trigger := &models.Trigger{ScheduleType: models.ScheduleRecurring}
	assert.False(t, ScheduledDue(trigger, time.Now()))
}

func TestRecurringDue(t *testing.T) {
	lastTriggered := mustParse(t, "2025-08-01T00:00:00Z")

	tests := []struct {
		name    string
		pattern string
		now     string
		want    bool
	}{
		{"due exactly at boundary", "every 7 days", "2025-08-08T00:00:00Z", true},
		{"not due one hour early", "every 7 days", "2025-08-07T23:00:00Z", false},
		{"due past boundary", "every 7 days", "2025-08-10T00:00:00Z", true},
		{"hourly due", "every 1 hours", "2025-08-01T01:00:00Z", true},
		{"hourly not due", "every 1 hours", "2025-08-01T00:59:00Z", false},
		{"unparseable pattern never due", "sometimes", "2025-09-01T00:00:00Z", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger := &models.Trigger{
				ScheduleType:     models.ScheduleRecurring,
				RecurringPattern: tt.pattern,
				LastTriggered:    lastTriggered,
			}
			assert.Equal(t, tt.want, RecurringDue(trigger, mustParse(t, tt.now)))
		})
	}
}

func TestRecurringDueFirstSweep(t *testing.T) {
	trigger := &models.Trigger{
		ScheduleType:     models.ScheduleRecurring,
		RecurringPattern: "every 7 days",
	}
	assert.True(t, RecurringDue(trigger, time.Now()), "never-fired recurring trigger is due on first sweep")
}

func TestReminderDue(t *testing.T) {
	eventDate := mustParse(t, "2025-09-01T00:00:00Z")
	daysBefore := 7
	sweepInterval := time.Hour

	tests := []struct {
		name          string
		now           string
		lastTriggered string
		want          bool
	}{
		{"in window", "2025-08-25T00:30:00Z", "", true},
		{"at window start", "2025-08-25T00:00:00Z", "", true},
		{"too early", "2025-08-20T00:00:00Z", "", false},
		{"past window", "2025-08-25T01:00:00Z", "", false},
		{"already fired in window", "2025-08-25T00:30:00Z", "2025-08-25T00:05:00Z", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger := &models.Trigger{
				TriggerType: models.TriggerDeadlineReminder,
				DaysBefore:  &daysBefore,
			}
			if tt.lastTriggered != "" {
				trigger.LastTriggered = mustParse(t, tt.lastTriggered)
			}
			assert.Equal(t, tt.want, ReminderDue(trigger, mustParse(t, tt.now), eventDate, sweepInterval))
		})
	}
}

func TestReminderDueNoDaysBefore(t *testing.T) {
	trigger := &models.Trigger{TriggerType: models.TriggerDeadlineReminder}
	assert.False(t, ReminderDue(trigger, time.Now(), time.Now(), time.Hour))
}
