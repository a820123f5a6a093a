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

// TriggerRepository handles database operations related to triggers.
type TriggerRepository struct {
	collection *mongo.Collection
}

// NewTriggerRepository creates a new instance of TriggerRepository.
func NewTriggerRepository(db *mongo.Database) *TriggerRepository {
	return &TriggerRepository{
		collection: db.Collection("triggers"),
	}
}

// CreateTrigger inserts a new trigger.
func (r *TriggerRepository) CreateTrigger(ctx context.Context, trigger *models.Trigger) (*models.Trigger, error) {
	trigger.CreatedAt = time.Now()
	trigger.UpdatedAt = trigger.CreatedAt

	result, err := r.collection.InsertOne(ctx, trigger)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to insert trigger")
		return nil, fmt.Errorf("failed to create trigger: %v", err)
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		logger.Log.Error("Failed to cast inserted trigger ID")
		return nil, fmt.Errorf("failed to create trigger: unexpected inserted id type")
	}
	trigger.ID = insertedID

	logger.Log.WithField("trigger_id", trigger.ID.Hex()).Info("Trigger created successfully")
	return trigger, nil
}

// GetTriggerByID fetches a trigger by its ID. Soft-deleted triggers are
// not returned.
func (r *TriggerRepository) GetTriggerByID(ctx context.Context, id primitive.ObjectID) (*models.Trigger, error) {
	var trigger models.Trigger

	filter := bson.M{"_id": id, "deleted": bson.M{"$ne": true}}
	if err := r.collection.FindOne(ctx, filter).Decode(&trigger); err != nil {
		return nil, err
	}
	return &trigger, nil
}

// UpdateTrigger overwrites the operator-editable fields of a trigger.
func (r *TriggerRepository) UpdateTrigger(ctx context.Context, id primitive.ObjectID, trigger *models.Trigger) (*models.Trigger, error) {
	update := bson.M{"$set": bson.M{
		"name":              trigger.Name,
		"description":       trigger.Description,
		"trigger_type":      trigger.TriggerType,
		"target_type":       trigger.TargetType,
		"target_criteria":   trigger.TargetCriteria,
		"schedule_type":     trigger.ScheduleType,
		"schedule_time":     trigger.ScheduleTime,
		"recurring_pattern": trigger.RecurringPattern,
		"days_before":       trigger.DaysBefore,
		"title_template":    trigger.TitleTemplate,
		"message_template":  trigger.MessageTemplate,
		"updated_at":        time.Now(),
	}}

	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		logger.Log.WithError(err).WithField("trigger_id", id.Hex()).Error("Failed to update trigger")
		return nil, fmt.Errorf("failed to update trigger: %v", err)
	}

	return r.GetTriggerByID(ctx, id)
}

// SetEnabled flips the enabled flag. A disabled trigger can no longer win
// an activation claim, but an in-flight activation is left alone.
func (r *TriggerRepository) SetEnabled(ctx context.Context, id primitive.ObjectID, enabled bool) error {
	update := bson.M{"$set": bson.M{"enabled": enabled, "updated_at": time.Now()}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id, "deleted": bson.M{"$ne": true}}, update)
	if err != nil {
		logger.Log.WithError(err).WithField("trigger_id", id.Hex()).Error("Failed to toggle trigger")
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SoftDeleteTrigger marks a trigger deleted without removing its row, so
// notifications that reference it keep a valid parent.
func (r *TriggerRepository) SoftDeleteTrigger(ctx context.Context, id primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{"deleted": true, "enabled": false, "updated_at": time.Now()}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		logger.Log.WithError(err).WithField("trigger_id", id.Hex()).Error("Failed to delete trigger")
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	logger.Log.WithField("trigger_id", id.Hex()).Info("Trigger deleted")
	return nil
}

// ListTriggers fetches all non-deleted triggers, optionally only enabled
// ones, newest first.
func (r *TriggerRepository) ListTriggers(ctx context.Context, enabledOnly bool) ([]models.Trigger, error) {
	filter := bson.M{"deleted": bson.M{"$ne": true}}
	if enabledOnly {
		filter["enabled"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to fetch triggers")
		return nil, fmt.Errorf("failed to fetch triggers: %v", err)
	}
	defer cursor.Close(ctx)

	var triggers []models.Trigger
	if err := cursor.All(ctx, &triggers); err != nil {
		return nil, fmt.Errorf("failed to decode triggers: %v", err)
	}
	return triggers, nil
}

// GetSweepCandidates returns the enabled, non-deleted triggers the
// scheduler has to evaluate: everything except immediate ones, which
// activate synchronously on operator action. Reminder triggers are
// always swept since their due instant comes from the event date, not
// the schedule type.
func (r *TriggerRepository) GetSweepCandidates(ctx context.Context) ([]models.Trigger, error) {
	filter := bson.M{
		"deleted": bson.M{"$ne": true},
		"enabled": true,
		"$or": []bson.M{
			{"schedule_type": bson.M{"$ne": models.ScheduleImmediate}},
			{"days_before": bson.M{"$ne": nil}},
		},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sweep candidates: %v", err)
	}
	defer cursor.Close(ctx)

	var triggers []models.Trigger
	if err := cursor.All(ctx, &triggers); err != nil {
		return nil, fmt.Errorf("failed to decode sweep candidates: %v", err)
	}
	return triggers, nil
}

// ClaimActivation tries to take the single-writer activation lease for a
// trigger. Only one concurrent caller can win: the filter matches only
// when the trigger is enabled and no unexpired lease is held. Returns
// false when the claim was lost, which callers treat as a no-op.
func (r *TriggerRepository) ClaimActivation(ctx context.Context, id primitive.ObjectID, token string, ttl time.Duration) (bool, error) {
	now := time.Now()
	filter := bson.M{
		"_id":     id,
		"deleted": bson.M{"$ne": true},
		"enabled": true,
		"$or": []bson.M{
			{"lease_token": bson.M{"$exists": false}},
			{"lease_token": ""},
			{"lease_expires_at": bson.M{"$lt": now}},
		},
	}
	update := bson.M{"$set": bson.M{
		"lease_token":      token,
		"lease_expires_at": now.Add(ttl),
	}}

	err := r.collection.FindOneAndUpdate(ctx, filter, update).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		logger.Log.WithError(err).WithField("trigger_id", id.Hex()).Error("Failed to claim activation lease")
		return false, fmt.Errorf("failed to claim activation: %v", err)
	}
	return true, nil
}

// CompleteActivation releases the lease after a successful (or partially
// successful) activation, advancing last_triggered and atomically adding
// the accepted recipient count to total_sent.
func (r *TriggerRepository) CompleteActivation(ctx context.Context, id primitive.ObjectID, token string, triggeredAt time.Time, sentCount int64) error {
	filter := bson.M{"_id": id, "lease_token": token}
	update := bson.M{
		"$set": bson.M{
			"last_triggered":   triggeredAt,
			"lease_token":      "",
			"lease_expires_at": time.Time{},
		},
		"$inc": bson.M{"total_sent": sentCount},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to complete activation: %v", err)
	}
	if result.MatchedCount == 0 {
		// lease expired under us; the counters were not advanced
		logger.Log.WithField("trigger_id", id.Hex()).Warn("Activation lease lost before completion")
	}
	return nil
}

// ReleaseActivation gives the lease back without advancing last_triggered,
// so the next sweep retries the trigger. Used on total transport failure.
func (r *TriggerRepository) ReleaseActivation(ctx context.Context, id primitive.ObjectID, token string) error {
	filter := bson.M{"_id": id, "lease_token": token}
	update := bson.M{"$set": bson.M{
		"lease_token":      "",
		"lease_expires_at": time.Time{},
	}}

	if _, err := r.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to release activation: %v", err)
	}
	return nil
}

// GetStats aggregates the trigger counters for the admin dashboard.
func (r *TriggerRepository) GetStats(ctx context.Context) (*models.TriggerStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"deleted": bson.M{"$ne": true}}}},
		{{Key: "$group", Value: bson.M{
			"_id":        nil,
			"total":      bson.M{"$sum": 1},
			"enabled":    bson.M{"$sum": bson.M{"$cond": []interface{}{"$enabled", 1, 0}}},
			"total_sent": bson.M{"$sum": "$total_sent"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate trigger stats: %v", err)
	}
	defer cursor.Close(ctx)

	var results []models.TriggerStats
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode trigger stats: %v", err)
	}
	if len(results) == 0 {
		return &models.TriggerStats{}, nil
	}
	return &results[0], nil
}
