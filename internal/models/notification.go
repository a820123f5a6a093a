package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type NotificationStatus string

const (
	StatusDraft     NotificationStatus = "draft"
	StatusScheduled NotificationStatus = "scheduled"
	StatusSent      NotificationStatus = "sent"
	StatusFailed    NotificationStatus = "failed"
)

func (s NotificationStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusScheduled, StatusSent, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transition except
// an explicit operator retry.
func (s NotificationStatus) Terminal() bool {
	return s == StatusSent || s == StatusFailed
}

// CanTransition reports whether the state machine allows moving from s to
// next. Retry of a failed notification is modeled as failed -> scheduled
// (or draft), never as an automatic re-send.
func (s NotificationStatus) CanTransition(next NotificationStatus) bool {
	switch s {
	case StatusDraft:
		return next == StatusScheduled || next == StatusSent || next == StatusFailed
	case StatusScheduled:
		return next == StatusSent || next == StatusFailed || next == StatusDraft
	case StatusFailed:
		// explicit operator retry only
		return next == StatusScheduled || next == StatusDraft
	}
	return false
}

// Notification is one concrete, independently trackable send. A Trigger
// activation produces one Notification record; an ad-hoc notification
// exists without any trigger.
type Notification struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	TriggerID      *primitive.ObjectID `bson:"trigger_id,omitempty" json:"trigger_id,omitempty"`
	Title          string              `bson:"title" json:"title"`
	Body           string              `bson:"body" json:"body"`
	Type           TriggerType         `bson:"type" json:"type"`
	Priority       Priority            `bson:"priority" json:"priority"`
	TargetAudience TargetType          `bson:"target_audience" json:"target_audience"`
	TargetCriteria map[string]string   `bson:"target_criteria,omitempty" json:"target_criteria,omitempty"`
	TargetUserIDs  []string            `bson:"target_user_ids,omitempty" json:"target_user_ids,omitempty"` // explicit override of targeting
	ScheduledAt    *time.Time          `bson:"scheduled_at,omitempty" json:"scheduled_at,omitempty"`
	Data           map[string]string   `bson:"data,omitempty" json:"data,omitempty"` // opaque payload forwarded to the transport
	Status         NotificationStatus  `bson:"status" json:"status"`
	DeliveryCount  int64               `bson:"delivery_count" json:"delivery_count"`
	OpenCount      int64               `bson:"open_count" json:"open_count"`
	ClickCount     int64               `bson:"click_count" json:"click_count"`
	SendToken      string              `bson:"send_token,omitempty" json:"-"`
	SendExpiresAt  time.Time           `bson:"send_expires_at,omitempty" json:"-"`
	CreatedBy      string              `bson:"created_by,omitempty" json:"created_by,omitempty"`
	CreatedAt      time.Time           `bson:"created_at" json:"created_at"`
	SentAt         *time.Time          `bson:"sent_at,omitempty" json:"sent_at,omitempty"` // set iff status = sent
}

// Validate checks an operator-authored notification before persisting.
func (n *Notification) Validate() error {
	if n.Title == "" || n.Body == "" {
		return fmt.Errorf("title and body are required")
	}
	if !n.Type.Valid() {
		return fmt.Errorf("unknown notification type %q", n.Type)
	}
	if !n.Priority.Valid() {
		return fmt.Errorf("unknown priority %q", n.Priority)
	}
	if len(n.TargetUserIDs) == 0 {
		if !n.TargetAudience.Valid() {
			return fmt.Errorf("unknown target audience %q", n.TargetAudience)
		}
		if key := n.TargetAudience.CriteriaKey(); key != "" && n.TargetCriteria[key] == "" {
			return fmt.Errorf("target audience %q requires criteria key %q", n.TargetAudience, key)
		}
	}
	if n.Status != "" && !n.Status.Valid() {
		return fmt.Errorf("unknown status %q", n.Status)
	}
	return nil
}

// NotificationFilter narrows admin list queries.
type NotificationFilter struct {
	Status   NotificationStatus
	Type     TriggerType
	Audience TargetType
	Limit    int64
	Offset   int64
}

// NotificationStats is the aggregate returned by the admin statistics
// endpoint for notifications.
type NotificationStats struct {
	Total     int64 `bson:"total" json:"total"`
	Draft     int64 `bson:"draft" json:"draft"`
	Scheduled int64 `bson:"scheduled" json:"scheduled"`
	Sent      int64 `bson:"sent" json:"sent"`
	Failed    int64 `bson:"failed" json:"failed"`
	Delivered int64 `bson:"delivered" json:"delivered"`
	Opened    int64 `bson:"opened" json:"opened"`
	Clicked   int64 `bson:"clicked" json:"clicked"`
}
