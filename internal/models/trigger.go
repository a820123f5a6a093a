package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TriggerType drives default iconography and, for reminder-style types,
// enables the DaysBefore field.
type TriggerType string

const (
	TriggerDeadlineReminder    TriggerType = "deadline_reminder"
	TriggerMeritPublished      TriggerType = "merit_published"
	TriggerEntryTestReminder   TriggerType = "entry_test_reminder"
	TriggerScholarshipDeadline TriggerType = "scholarship_deadline"
	TriggerNewAnnouncement     TriggerType = "new_announcement"
	TriggerCustom              TriggerType = "custom"
)

func (t TriggerType) Valid() bool {
	switch t {
	case TriggerDeadlineReminder, TriggerMeritPublished, TriggerEntryTestReminder,
		TriggerScholarshipDeadline, TriggerNewAnnouncement, TriggerCustom:
		return true
	}
	return false
}

// IsReminder reports whether this trigger type fires relative to an
// external event date (admission deadline, test date, scholarship close).
func (t TriggerType) IsReminder() bool {
	switch t {
	case TriggerDeadlineReminder, TriggerEntryTestReminder, TriggerScholarshipDeadline:
		return true
	}
	return false
}

type TargetType string

const (
	TargetAllUsers      TargetType = "all_users"
	TargetSpecificUsers TargetType = "specific_users"
	TargetByInterest    TargetType = "by_interest"
	TargetByUniversity  TargetType = "by_university"
	TargetByProgram     TargetType = "by_program"
)

func (t TargetType) Valid() bool {
	switch t {
	case TargetAllUsers, TargetSpecificUsers, TargetByInterest, TargetByUniversity, TargetByProgram:
		return true
	}
	return false
}

// CriteriaKey returns the key that must be present in TargetCriteria for
// this target type, or "" when no key is required.
func (t TargetType) CriteriaKey() string {
	switch t {
	case TargetByInterest:
		return "interest"
	case TargetByUniversity:
		return "university_id"
	case TargetByProgram:
		return "program_id"
	case TargetSpecificUsers:
		return "user_ids"
	}
	return ""
}

type ScheduleType string

const (
	ScheduleImmediate ScheduleType = "immediate"
	ScheduleScheduled ScheduleType = "scheduled"
	ScheduleRecurring ScheduleType = "recurring"
)

func (s ScheduleType) Valid() bool {
	switch s {
	case ScheduleImmediate, ScheduleScheduled, ScheduleRecurring:
		return true
	}
	return false
}

// Trigger is an operator-authored rule describing when and to whom a
// notification should be generated.
type Trigger struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name             string             `bson:"name" json:"name"`
	Description      string             `bson:"description,omitempty" json:"description,omitempty"`
	TriggerType      TriggerType        `bson:"trigger_type" json:"trigger_type"`
	TargetType       TargetType         `bson:"target_type" json:"target_type"`
	TargetCriteria   map[string]string  `bson:"target_criteria,omitempty" json:"target_criteria,omitempty"`
	ScheduleType     ScheduleType       `bson:"schedule_type" json:"schedule_type"`
	ScheduleTime     time.Time          `bson:"schedule_time,omitempty" json:"schedule_time,omitempty"` // required for scheduled
	RecurringPattern string             `bson:"recurring_pattern,omitempty" json:"recurring_pattern,omitempty"`
	DaysBefore       *int               `bson:"days_before,omitempty" json:"days_before,omitempty"` // reminder types only
	TitleTemplate    string             `bson:"title_template" json:"title_template"`
	MessageTemplate  string             `bson:"message_template" json:"message_template"`
	Enabled          bool               `bson:"enabled" json:"enabled"`
	Deleted          bool               `bson:"deleted,omitempty" json:"-"` // soft-delete flag
	LastTriggered    time.Time          `bson:"last_triggered,omitempty" json:"last_triggered,omitempty"`
	TotalSent        int64              `bson:"total_sent" json:"total_sent"`
	LeaseToken       string             `bson:"lease_token,omitempty" json:"-"`
	LeaseExpiresAt   time.Time          `bson:"lease_expires_at,omitempty" json:"-"`
	CreatedBy        string             `bson:"created_by,omitempty" json:"created_by,omitempty"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}

// RecurringInterval parses the trigger's recurring pattern
// ("every N minutes|hours|days|weeks") into a duration.
func (t *Trigger) RecurringInterval() (time.Duration, error) {
	return ParseRecurringPattern(t.RecurringPattern)
}

// ParseRecurringPattern parses "every N minutes|hours|days|weeks" (N >= 1).
func ParseRecurringPattern(pattern string) (time.Duration, error) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(pattern)))
	if len(fields) != 3 || fields[0] != "every" {
		return 0, fmt.Errorf("invalid recurring pattern %q", pattern)
	}

	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid recurring pattern %q: count must be a positive integer", pattern)
	}

	var unit time.Duration
	switch fields[2] {
	case "minute", "minutes":
		unit = time.Minute
	case "hour", "hours":
		unit = time.Hour
	case "day", "days":
		unit = 24 * time.Hour
	case "week", "weeks":
		unit = 7 * 24 * time.Hour
	default:
		return 0, fmt.Errorf("invalid recurring pattern %q: unknown unit %q", pattern, fields[2])
	}

	return time.Duration(n) * unit, nil
}

// Validate checks that the trigger is a persistable combination of fields.
// An invalid combination is never stored.
func (t *Trigger) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if !t.TriggerType.Valid() {
		return fmt.Errorf("unknown trigger type %q", t.TriggerType)
	}
	if !t.TargetType.Valid() {
		return fmt.Errorf("unknown target type %q", t.TargetType)
	}
	if !t.ScheduleType.Valid() {
		return fmt.Errorf("unknown schedule type %q", t.ScheduleType)
	}
	if strings.TrimSpace(t.TitleTemplate) == "" || strings.TrimSpace(t.MessageTemplate) == "" {
		return fmt.Errorf("title and message templates are required")
	}

	if key := t.TargetType.CriteriaKey(); key != "" {
		if t.TargetCriteria[key] == "" {
			return fmt.Errorf("target type %q requires criteria key %q", t.TargetType, key)
		}
	}

	switch t.ScheduleType {
	case ScheduleScheduled:
		if t.ScheduleTime.IsZero() {
			return fmt.Errorf("scheduled trigger requires schedule_time")
		}
	case ScheduleRecurring:
		if _, err := ParseRecurringPattern(t.RecurringPattern); err != nil {
			return fmt.Errorf("recurring trigger requires a valid recurring_pattern: %v", err)
		}
		if t.DaysBefore != nil {
			return fmt.Errorf("recurring_pattern and days_before are mutually exclusive")
		}
	}

	if t.DaysBefore != nil {
		if !t.TriggerType.IsReminder() {
			return fmt.Errorf("days_before is only valid for reminder trigger types")
		}
		if *t.DaysBefore < 0 {
			return fmt.Errorf("days_before must be >= 0")
		}
	}

	return nil
}

// TriggerStats is the aggregate returned by the admin statistics endpoint.
type TriggerStats struct {
	Total     int64 `bson:"total" json:"total"`
	Enabled   int64 `bson:"enabled" json:"enabled"`
	TotalSent int64 `bson:"total_sent" json:"total_sent"`
}
