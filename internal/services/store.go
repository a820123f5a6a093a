package services

import (
	"context"

	"github.com/pakuni-app/notification-engine/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TriggerStore is the persistence surface the trigger service needs.
// *repository.TriggerRepository satisfies it; tests use fakes.
type TriggerStore interface {
	CreateTrigger(ctx context.Context, trigger *models.Trigger) (*models.Trigger, error)
	GetTriggerByID(ctx context.Context, id primitive.ObjectID) (*models.Trigger, error)
	UpdateTrigger(ctx context.Context, id primitive.ObjectID, trigger *models.Trigger) (*models.Trigger, error)
	SetEnabled(ctx context.Context, id primitive.ObjectID, enabled bool) error
	SoftDeleteTrigger(ctx context.Context, id primitive.ObjectID) error
	ListTriggers(ctx context.Context, enabledOnly bool) ([]models.Trigger, error)
	GetStats(ctx context.Context) (*models.TriggerStats, error)
}

// NotificationStore is the persistence surface the notification and
// metrics services need.
type NotificationStore interface {
	CreateNotification(ctx context.Context, notif *models.Notification) (*models.Notification, error)
	GetNotificationByID(ctx context.Context, id primitive.ObjectID) (*models.Notification, error)
	UpdateNotification(ctx context.Context, id primitive.ObjectID, notif *models.Notification) (*models.Notification, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.NotificationStatus) error
	DeleteNotification(ctx context.Context, id primitive.ObjectID) error
	ListNotifications(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error)
	IncrementDelivery(ctx context.Context, id primitive.ObjectID, n int64) error
	IncrementOpen(ctx context.Context, id primitive.ObjectID) error
	IncrementClick(ctx context.Context, id primitive.ObjectID) error
	GetStats(ctx context.Context) (*models.NotificationStats, error)
}
