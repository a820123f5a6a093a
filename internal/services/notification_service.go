package services

import (
	"context"
	"fmt"

	"github.com/pakuni-app/notification-engine/internal/dispatch"
	"github.com/pakuni-app/notification-engine/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Sender is the orchestrator surface for ad-hoc sends.
type Sender interface {
	SendNotification(ctx context.Context, notif *models.Notification) (*dispatch.ActivationResult, error)
}

// NotificationService implements the operator-facing ad-hoc notification
// operations and enforces the draft/scheduled/sent/failed state machine.
type NotificationService struct {
	store  NotificationStore
	sender Sender
}

func NewNotificationService(store NotificationStore, sender Sender) *NotificationService {
	return &NotificationService{
		store:  store,
		sender: sender,
	}
}

// CreateNotification validates and persists an operator-authored
// notification. It starts as a draft, or directly as scheduled when a
// schedule instant is supplied.
func (s *NotificationService) CreateNotification(ctx context.Context, notif *models.Notification, createdBy string) (*models.Notification, error) {
	if notif.Priority == "" {
		notif.Priority = models.PriorityNormal
	}
	if err := notif.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	notif.Status = models.StatusDraft
	if notif.ScheduledAt != nil {
		notif.Status = models.StatusScheduled
	}
	notif.CreatedBy = createdBy
	notif.DeliveryCount = 0
	notif.OpenCount = 0
	notif.ClickCount = 0
	notif.SentAt = nil

	return s.store.CreateNotification(ctx, notif)
}

// GetNotification fetches one notification.
func (s *NotificationService) GetNotification(ctx context.Context, id primitive.ObjectID) (*models.Notification, error) {
	notif, err := s.store.GetNotificationByID(ctx, id)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	return notif, err
}

// UpdateNotification applies an operator edit. Sent and failed
// notifications are immutable; edit-and-resend means authoring a new
// notification.
func (s *NotificationService) UpdateNotification(ctx context.Context, id primitive.ObjectID, notif *models.Notification) (*models.Notification, error) {
	existing, err := s.GetNotification(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Status.Terminal() {
		return nil, fmt.Errorf("%w: cannot edit a %s notification", ErrInvalidTransition, existing.Status)
	}

	if notif.Priority == "" {
		notif.Priority = existing.Priority
	}
	if err := notif.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	return s.store.UpdateNotification(ctx, id, notif)
}

// SendNotification dispatches a draft or scheduled notification now.
func (s *NotificationService) SendNotification(ctx context.Context, id primitive.ObjectID) (*dispatch.ActivationResult, error) {
	notif, err := s.GetNotification(ctx, id)
	if err != nil {
		return nil, err
	}
	if notif.Status.Terminal() {
		return nil, fmt.Errorf("%w: notification is already %s", ErrInvalidTransition, notif.Status)
	}
	return s.sender.SendNotification(ctx, notif)
}

// RetryNotification is the explicit operator re-send of a failed
// notification, modeled as the failed -> scheduled transition. The
// notification is then picked up by a subsequent SendNotification.
func (s *NotificationService) RetryNotification(ctx context.Context, id primitive.ObjectID) error {
	notif, err := s.GetNotification(ctx, id)
	if err != nil {
		return err
	}
	if !notif.Status.CanTransition(models.StatusScheduled) {
		return fmt.Errorf("%w: cannot retry a %s notification", ErrInvalidTransition, notif.Status)
	}

	if err := s.store.UpdateStatus(ctx, id, notif.Status, models.StatusScheduled); err != nil {
		if err == mongo.ErrNoDocuments {
			return ErrInvalidTransition
		}
		return err
	}
	return nil
}

// DeleteNotification removes a notification record.
func (s *NotificationService) DeleteNotification(ctx context.Context, id primitive.ObjectID) error {
	err := s.store.DeleteNotification(ctx, id)
	if err == mongo.ErrNoDocuments {
		return ErrNotFound
	}
	return err
}

// GetNotifications returns notifications matching the filter with
// pagination.
func (s *NotificationService) GetNotifications(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error) {
	return s.store.ListNotifications(ctx, filter)
}

// GetNotificationStats returns the aggregate notification counters.
func (s *NotificationService) GetNotificationStats(ctx context.Context) (*models.NotificationStats, error) {
	return s.store.GetStats(ctx)
}
