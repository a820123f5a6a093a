package services

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MetricsService folds transport callbacks (delivered/opened/clicked)
// back into the notification counters. The transport de-duplicates
// repeated callbacks for the same physical delivery; this service only
// enforces open <= delivered and click <= delivered by clamping, never by
// raising an error for an out-of-order callback.
type MetricsService struct {
	store NotificationStore
}

func NewMetricsService(store NotificationStore) *MetricsService {
	return &MetricsService{store: store}
}

// RecordDelivery counts one confirmed delivery.
func (s *MetricsService) RecordDelivery(ctx context.Context, id primitive.ObjectID) error {
	if err := s.store.IncrementDelivery(ctx, id, 1); err != nil {
		return s.mapErr(id, "delivery", err)
	}
	return nil
}

// RecordOpen counts one open, clamped to the delivery count.
func (s *MetricsService) RecordOpen(ctx context.Context, id primitive.ObjectID) error {
	if err := s.store.IncrementOpen(ctx, id); err != nil {
		return s.mapErr(id, "open", err)
	}
	return nil
}

// RecordClick counts one click, clamped to the delivery count.
func (s *MetricsService) RecordClick(ctx context.Context, id primitive.ObjectID) error {
	if err := s.store.IncrementClick(ctx, id); err != nil {
		return s.mapErr(id, "click", err)
	}
	return nil
}

func (s *MetricsService) mapErr(id primitive.ObjectID, event string, err error) error {
	if err == mongo.ErrNoDocuments {
		// callback for a deleted notification; nothing to count
		logrus.WithField("notification_id", id.Hex()).Debugf("Dropped %s callback for unknown notification", event)
		return ErrNotFound
	}
	return err
}
