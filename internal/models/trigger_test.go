package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTrigger() *Trigger {
	return &Trigger{
		Name:            "admission deadline",
		TriggerType:     TriggerDeadlineReminder,
		TargetType:      TargetAllUsers,
		ScheduleType:    ScheduleImmediate,
		TitleTemplate:   "Deadline for {university}",
		MessageTemplate: "Apply before {date}",
	}
}

func TestTriggerValidate(t *testing.T) {
	days := 7
	negative := -1

	tests := []struct {
		name    string
		mutate  func(*Trigger)
		wantErr bool
	}{
		{"valid immediate", func(tr *Trigger) {}, false},
		{"missing name", func(tr *Trigger) { tr.Name = " " }, true},
		{"unknown trigger type", func(tr *Trigger) { tr.TriggerType = "party_time" }, true},
		{"unknown target type", func(tr *Trigger) { tr.TargetType = "everyone" }, true},
		{"unknown schedule type", func(tr *Trigger) { tr.ScheduleType = "whenever" }, true},
		{"missing templates", func(tr *Trigger) { tr.TitleTemplate = "" }, true},
		{
			"scheduled without schedule time",
			func(tr *Trigger) { tr.ScheduleType = ScheduleScheduled },
			true,
		},
		{
			"scheduled with schedule time",
			func(tr *Trigger) {
				tr.ScheduleType = ScheduleScheduled
				tr.ScheduleTime = time.Now().Add(time.Hour)
			},
			false,
		},
		{
			"recurring without pattern",
			func(tr *Trigger) { tr.ScheduleType = ScheduleRecurring },
			true,
		},
		{
			"recurring with valid pattern",
			func(tr *Trigger) {
				tr.ScheduleType = ScheduleRecurring
				tr.RecurringPattern = "every 7 days"
			},
			false,
		},
		{
			"recurring and days_before are mutually exclusive",
			func(tr *Trigger) {
				tr.ScheduleType = ScheduleRecurring
				tr.RecurringPattern = "every 7 days"
				tr.DaysBefore = &days
			},
			true,
		},
		{
			"by_university without criteria",
			func(tr *Trigger) { tr.TargetType = TargetByUniversity },
			true,
		},
		{
			"by_university with criteria",
			func(tr *Trigger) {
				tr.TargetType = TargetByUniversity
				tr.TargetCriteria = map[string]string{"university_id": "nust"}
			},
			false,
		},
		{
			"by_interest without criteria",
			func(tr *Trigger) { tr.TargetType = TargetByInterest },
			true,
		},
		{
			"days_before on reminder type",
			func(tr *Trigger) { tr.DaysBefore = &days },
			false,
		},
		{
			"days_before on non-reminder type",
			func(tr *Trigger) {
				tr.TriggerType = TriggerNewAnnouncement
				tr.DaysBefore = &days
			},
			true,
		},
		{
			"negative days_before",
			func(tr *Trigger) { tr.DaysBefore = &negative },
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger := validTrigger()
			tt.mutate(trigger)
			err := trigger.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseRecurringPattern(t *testing.T) {
	tests := []struct {
		pattern string
		want    time.Duration
		wantErr bool
	}{
		{"every 7 days", 7 * 24 * time.Hour, false},
		{"every 1 day", 24 * time.Hour, false},
		{"Every 2 Weeks", 14 * 24 * time.Hour, false},
		{"every 30 minutes", 30 * time.Minute, false},
		{"every 6 hours", 6 * time.Hour, false},
		{"every day", 0, true},
		{"every 0 days", 0, true},
		{"every -1 days", 0, true},
		{"every 3 fortnights", 0, true},
		{"7 days", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, err := ParseRecurringPattern(tt.pattern)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
