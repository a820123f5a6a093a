package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/pakuni-app/notification-engine/internal/models"
	"github.com/pakuni-app/notification-engine/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NotificationRepository handles database operations for notification
// records.
type NotificationRepository struct {
	collection *mongo.Collection
}

// NewNotificationRepository creates a new instance of NotificationRepository.
func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{
		collection: db.Collection("notifications"),
	}
}

// CreateNotification inserts a new notification record.
func (r *NotificationRepository) CreateNotification(ctx context.Context, notif *models.Notification) (*models.Notification, error) {
	notif.CreatedAt = time.Now()

	result, err := r.collection.InsertOne(ctx, notif)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to insert notification")
		return nil, fmt.Errorf("failed to create notification: %v", err)
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("failed to create notification: unexpected inserted id type")
	}
	notif.ID = insertedID
	return notif, nil
}

// GetNotificationByID fetches a notification by its ID.
func (r *NotificationRepository) GetNotificationByID(ctx context.Context, id primitive.ObjectID) (*models.Notification, error) {
	var notif models.Notification
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&notif); err != nil {
		return nil, err
	}
	return &notif, nil
}

// UpdateNotification overwrites the editable content fields of a
// notification. Status transitions go through UpdateStatus instead.
func (r *NotificationRepository) UpdateNotification(ctx context.Context, id primitive.ObjectID, notif *models.Notification) (*models.Notification, error) {
	update := bson.M{"$set": bson.M{
		"title":           notif.Title,
		"body":            notif.Body,
		"type":            notif.Type,
		"priority":        notif.Priority,
		"target_audience": notif.TargetAudience,
		"target_criteria": notif.TargetCriteria,
		"target_user_ids": notif.TargetUserIDs,
		"scheduled_at":    notif.ScheduledAt,
		"data":            notif.Data,
	}}

	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		logger.Log.WithError(err).WithField("notification_id", id.Hex()).Error("Failed to update notification")
		return nil, fmt.Errorf("failed to update notification: %v", err)
	}
	return r.GetNotificationByID(ctx, id)
}

// UpdateStatus conditionally moves a notification from one status to
// another; the compare-and-swap filter makes concurrent senders race
// safely. sentAt is set exactly when the new status is "sent" and cleared
// otherwise. Returns mongo.ErrNoDocuments when the notification was not
// in the expected status.
func (r *NotificationRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.NotificationStatus) error {
	set := bson.M{"status": to}
	if to == models.StatusSent {
		set["sent_at"] = time.Now()
	} else {
		set["sent_at"] = nil
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id, "status": from}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update notification status: %v", err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// DeleteNotification removes a notification record.
func (r *NotificationRepository) DeleteNotification(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		logger.Log.WithError(err).WithField("notification_id", id.Hex()).Error("Failed to delete notification")
		return err
	}
	if result.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// ListNotifications fetches notifications matching the filter, newest
// first, with offset/limit pagination.
func (r *NotificationRepository) ListNotifications(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Type != "" {
		query["type"] = filter.Type
	}
	if filter.Audience != "" {
		query["target_audience"] = filter.Audience
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if filter.Offset > 0 {
		opts.SetSkip(filter.Offset)
	}
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to fetch notifications")
		return nil, fmt.Errorf("failed to fetch notifications: %v", err)
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %v", err)
	}
	return notifications, nil
}

// ClaimSend takes the single-sender claim on a draft or scheduled
// notification; the losing concurrent sender gets false. Mirrors the
// trigger activation lease.
func (r *NotificationRepository) ClaimSend(ctx context.Context, id primitive.ObjectID, token string, ttl time.Duration) (bool, error) {
	now := time.Now()
	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": []models.NotificationStatus{models.StatusDraft, models.StatusScheduled}},
		"$or": []bson.M{
			{"send_token": bson.M{"$exists": false}},
			{"send_token": ""},
			{"send_expires_at": bson.M{"$lt": now}},
		},
	}
	update := bson.M{"$set": bson.M{
		"send_token":      token,
		"send_expires_at": now.Add(ttl),
	}}

	err := r.collection.FindOneAndUpdate(ctx, filter, update).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to claim send: %v", err)
	}
	return true, nil
}

// ReleaseSend gives the send claim back.
func (r *NotificationRepository) ReleaseSend(ctx context.Context, id primitive.ObjectID, token string) error {
	update := bson.M{"$set": bson.M{
		"send_token":      "",
		"send_expires_at": time.Time{},
	}}
	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": id, "send_token": token}, update); err != nil {
		return fmt.Errorf("failed to release send claim: %v", err)
	}
	return nil
}

// IncrementDelivery atomically adds n accepted deliveries to the counter.
func (r *NotificationRepository) IncrementDelivery(ctx context.Context, id primitive.ObjectID, n int64) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"delivery_count": n}})
	if err != nil {
		return fmt.Errorf("failed to increment delivery count: %v", err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// IncrementOpen adds one open, clamped server-side so open_count never
// exceeds delivery_count even when callbacks arrive out of order.
func (r *NotificationRepository) IncrementOpen(ctx context.Context, id primitive.ObjectID) error {
	return r.clampedIncrement(ctx, id, "open_count")
}

// IncrementClick adds one click, clamped to delivery_count like opens.
func (r *NotificationRepository) IncrementClick(ctx context.Context, id primitive.ObjectID) error {
	return r.clampedIncrement(ctx, id, "click_count")
}

// clampedIncrement runs an aggregation-pipeline update so the increment
// and the clamp happen in one atomic document write.
func (r *NotificationRepository) clampedIncrement(ctx context.Context, id primitive.ObjectID, field string) error {
	pipeline := bson.A{
		bson.M{"$set": bson.M{
			field: bson.M{"$min": bson.A{
				bson.M{"$add": bson.A{"$" + field, 1}},
				"$delivery_count",
			}},
		}},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, pipeline)
	if err != nil {
		return fmt.Errorf("failed to increment %s: %v", field, err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// GetStats aggregates notification counters grouped over all records.
func (r *NotificationRepository) GetStats(ctx context.Context) (*models.NotificationStats, error) {
	countByStatus := func(status models.NotificationStatus) bson.M {
		return bson.M{"$sum": bson.M{"$cond": []interface{}{
			bson.M{"$eq": []interface{}{"$status", status}}, 1, 0,
		}}}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":       nil,
			"total":     bson.M{"$sum": 1},
			"draft":     countByStatus(models.StatusDraft),
			"scheduled": countByStatus(models.StatusScheduled),
			"sent":      countByStatus(models.StatusSent),
			"failed":    countByStatus(models.StatusFailed),
			"delivered": bson.M{"$sum": "$delivery_count"},
			"opened":    bson.M{"$sum": "$open_count"},
			"clicked":   bson.M{"$sum": "$click_count"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate notification stats: %v", err)
	}
	defer cursor.Close(ctx)

	var results []models.NotificationStats
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode notification stats: %v", err)
	}
	if len(results) == 0 {
		return &models.NotificationStats{}, nil
	}
	return &results[0], nil
}
