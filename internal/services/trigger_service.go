package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pakuni-app/notification-engine/internal/dispatch"
	"github.com/pakuni-app/notification-engine/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Activator is the delivery orchestrator surface the trigger service uses
// for "send now". *dispatch.Orchestrator satisfies it.
type Activator interface {
	ActivateTrigger(ctx context.Context, trigger *models.Trigger) (*dispatch.ActivationResult, error)
}

// TriggerService implements the operator-facing trigger operations:
// validated CRUD, enable/disable, immediate execution and statistics.
type TriggerService struct {
	store     TriggerStore
	activator Activator
}

func NewTriggerService(store TriggerStore, activator Activator) *TriggerService {
	return &TriggerService{
		store:     store,
		activator: activator,
	}
}

// CreateTrigger validates and persists a new trigger. Enabled defaults to
// true; an invalid field combination is never persisted.
func (s *TriggerService) CreateTrigger(ctx context.Context, trigger *models.Trigger, createdBy string) (*models.Trigger, error) {
	if err := trigger.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	trigger.Enabled = true
	trigger.CreatedBy = createdBy
	trigger.TotalSent = 0
	trigger.LastTriggered = time.Time{}

	created, err := s.store.CreateTrigger(ctx, trigger)
	if err != nil {
		return nil, err
	}

	// immediate triggers bypass the scheduler and activate on creation
	if created.ScheduleType == models.ScheduleImmediate {
		result, err := s.activator.ActivateTrigger(ctx, created)
		if err != nil {
			logrus.WithError(err).WithField("trigger_id", created.ID.Hex()).Error("Immediate activation failed")
		} else if !result.Skipped {
			return s.store.GetTriggerByID(ctx, created.ID)
		}
	}
	return created, nil
}

// GetTrigger fetches one trigger.
func (s *TriggerService) GetTrigger(ctx context.Context, id primitive.ObjectID) (*models.Trigger, error) {
	trigger, err := s.store.GetTriggerByID(ctx, id)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	return trigger, err
}

// UpdateTrigger validates and applies an operator edit. Engine-owned
// fields (lastTriggered, totalSent, lease) are untouched.
func (s *TriggerService) UpdateTrigger(ctx context.Context, id primitive.ObjectID, trigger *models.Trigger) (*models.Trigger, error) {
	if err := trigger.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if _, err := s.GetTrigger(ctx, id); err != nil {
		return nil, err
	}
	return s.store.UpdateTrigger(ctx, id, trigger)
}

// ToggleEnabled flips the enabled flag. Disabling prevents future
// activations only; an in-flight activation finishes on its own.
func (s *TriggerService) ToggleEnabled(ctx context.Context, id primitive.ObjectID, enabled bool) error {
	err := s.store.SetEnabled(ctx, id, enabled)
	if err == mongo.ErrNoDocuments {
		return ErrNotFound
	}
	return err
}

// DeleteTrigger soft-deletes a trigger so delivery history stays valid.
func (s *TriggerService) DeleteTrigger(ctx context.Context, id primitive.ObjectID) error {
	err := s.store.SoftDeleteTrigger(ctx, id)
	if err == mongo.ErrNoDocuments {
		return ErrNotFound
	}
	return err
}

// ListTriggers returns all triggers, optionally only enabled ones.
func (s *TriggerService) ListTriggers(ctx context.Context, enabledOnly bool) ([]models.Trigger, error) {
	return s.store.ListTriggers(ctx, enabledOnly)
}

// ExecuteNow activates a trigger immediately on operator action,
// regardless of its schedule. A disabled trigger is rejected here since
// the operator is looking at it; concurrent contention with a sweep comes
// back as a skipped no-op result.
func (s *TriggerService) ExecuteNow(ctx context.Context, id primitive.ObjectID) (*dispatch.ActivationResult, error) {
	trigger, err := s.GetTrigger(ctx, id)
	if err != nil {
		return nil, err
	}
	if !trigger.Enabled {
		return nil, fmt.Errorf("%w: trigger is disabled", ErrValidation)
	}
	return s.activator.ActivateTrigger(ctx, trigger)
}

// GetStatistics returns the aggregate trigger counters.
func (s *TriggerService) GetStatistics(ctx context.Context) (*models.TriggerStats, error) {
	return s.store.GetStats(ctx)
}
