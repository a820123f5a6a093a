package dispatch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pakuni-app/notification-engine/internal/models"
	"github.com/pakuni-app/notification-engine/internal/templates"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// Transport is the external push-notification gateway. Deliver reports
// whether the gateway accepted the message for the recipient; an error
// means the gateway itself was unreachable.
type Transport interface {
	Deliver(ctx context.Context, recipientID, title, body string, payload map[string]string) (accepted bool, err error)
}

// Resolver resolves targeting into a recipient set and supplies
// per-recipient template bindings.
type Resolver interface {
	Resolve(ctx context.Context, targetType models.TargetType, criteria map[string]string, override []string) ([]string, error)
	Placeholders(ctx context.Context, recipientID string) (map[string]string, error)
}

// TriggerStore is the slice of trigger persistence the orchestrator needs:
// the activation lease plus counter advancement.
type TriggerStore interface {
	ClaimActivation(ctx context.Context, id primitive.ObjectID, token string, ttl time.Duration) (bool, error)
	CompleteActivation(ctx context.Context, id primitive.ObjectID, token string, triggeredAt time.Time, sentCount int64) error
	ReleaseActivation(ctx context.Context, id primitive.ObjectID, token string) error
}

// NotificationStore records the per-activation notification and its
// delivery counter.
type NotificationStore interface {
	CreateNotification(ctx context.Context, notif *models.Notification) (*models.Notification, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.NotificationStatus) error
	IncrementDelivery(ctx context.Context, id primitive.ObjectID, n int64) error
	ClaimSend(ctx context.Context, id primitive.ObjectID, token string, ttl time.Duration) (bool, error)
	ReleaseSend(ctx context.Context, id primitive.ObjectID, token string) error
}

// ActivationResult is the outcome of one trigger activation or one ad-hoc
// notification send.
type ActivationResult struct {
	NotificationID primitive.ObjectID `json:"notification_id,omitempty"`
	Resolved       int64              `json:"resolved"`
	SentCount      int64              `json:"sent_count"`
	Failed         bool               `json:"failed"`
	Skipped        bool               `json:"skipped"` // lost the activation claim; expected under concurrency
}

// Orchestrator runs the delivery state machine: claim, resolve, render,
// fan out to the transport, record counters and advance trigger state.
type Orchestrator struct {
	triggers      TriggerStore
	notifications NotificationStore
	resolver      Resolver
	transport     Transport
	workers       int
	leaseTTL      time.Duration
}

func NewOrchestrator(triggers TriggerStore, notifications NotificationStore, resolver Resolver, transport Transport, workers int, leaseTTL time.Duration) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	if leaseTTL <= 0 {
		leaseTTL = 5 * time.Minute
	}
	return &Orchestrator{
		triggers:      triggers,
		notifications: notifications,
		resolver:      resolver,
		transport:     transport,
		workers:       workers,
		leaseTTL:      leaseTTL,
	}
}

// ActivateTrigger executes one activation of a trigger. The per-trigger
// lease guarantees a single winner under concurrent sweeps and operator
// "send now" actions; the loser gets a Skipped result, not an error.
// Once the lease is held the activation always runs to completion, even
// if the trigger is disabled meanwhile.
func (o *Orchestrator) ActivateTrigger(ctx context.Context, trigger *models.Trigger) (*ActivationResult, error) {
	if !trigger.Enabled || trigger.Deleted {
		return &ActivationResult{Skipped: true}, nil
	}

	token := uuid.NewString()
	claimed, err := o.triggers.ClaimActivation(ctx, trigger.ID, token, o.leaseTTL)
	if err != nil {
		return nil, err
	}
	if !claimed {
		logrus.WithField("trigger_id", trigger.ID.Hex()).Debug("Activation already claimed elsewhere")
		return &ActivationResult{Skipped: true}, nil
	}

	recipients, err := o.resolver.Resolve(ctx, trigger.TargetType, trigger.TargetCriteria, nil)
	if err != nil {
		// abort before any send attempt; the next sweep retries
		if relErr := o.triggers.ReleaseActivation(ctx, trigger.ID, token); relErr != nil {
			logrus.WithError(relErr).WithField("trigger_id", trigger.ID.Hex()).Error("Failed to release lease after resolution error")
		}
		return nil, fmt.Errorf("targeting resolution failed: %w", err)
	}

	triggerID := trigger.ID
	notif, err := o.notifications.CreateNotification(ctx, &models.Notification{
		TriggerID:      &triggerID,
		Title:          trigger.TitleTemplate,
		Body:           trigger.MessageTemplate,
		Type:           trigger.TriggerType,
		Priority:       models.PriorityNormal,
		TargetAudience: trigger.TargetType,
		TargetCriteria: trigger.TargetCriteria,
		Status:         models.StatusScheduled,
		CreatedBy:      "engine",
	})
	if err != nil {
		if relErr := o.triggers.ReleaseActivation(ctx, trigger.ID, token); relErr != nil {
			logrus.WithError(relErr).WithField("trigger_id", trigger.ID.Hex()).Error("Failed to release lease after store error")
		}
		return nil, err
	}

	accepted, errored := o.fanOut(ctx, recipients, trigger.TitleTemplate, trigger.MessageTemplate, nil)

	result := &ActivationResult{
		NotificationID: notif.ID,
		Resolved:       int64(len(recipients)),
		SentCount:      accepted,
	}

	// total transport unavailability: every attempt errored and nothing
	// got through, so the trigger is left unadvanced for the next sweep
	if len(recipients) > 0 && errored == int64(len(recipients)) && accepted == 0 {
		result.Failed = true
		if err := o.triggers.ReleaseActivation(ctx, trigger.ID, token); err != nil {
			logrus.WithError(err).WithField("trigger_id", trigger.ID.Hex()).Error("Failed to release lease after transport failure")
		}
		if err := o.notifications.UpdateStatus(ctx, notif.ID, models.StatusScheduled, models.StatusFailed); err != nil {
			logrus.WithError(err).WithField("notification_id", notif.ID.Hex()).Error("Failed to mark notification failed")
		}
		logrus.WithFields(logrus.Fields{
			"trigger_id": trigger.ID.Hex(),
			"resolved":   result.Resolved,
		}).Warn("Activation failed: transport unavailable")
		return result, nil
	}

	// success or partial success: an empty recipient set is a legitimate
	// outcome and still advances last_triggered
	if accepted > 0 {
		if err := o.notifications.IncrementDelivery(ctx, notif.ID, accepted); err != nil {
			logrus.WithError(err).WithField("notification_id", notif.ID.Hex()).Error("Failed to record delivery count")
		}
	}
	if err := o.triggers.CompleteActivation(ctx, trigger.ID, token, time.Now(), accepted); err != nil {
		logrus.WithError(err).WithField("trigger_id", trigger.ID.Hex()).Error("Failed to complete activation")
	}
	if err := o.notifications.UpdateStatus(ctx, notif.ID, models.StatusScheduled, models.StatusSent); err != nil {
		logrus.WithError(err).WithField("notification_id", notif.ID.Hex()).Error("Failed to mark notification sent")
	}

	logrus.WithFields(logrus.Fields{
		"trigger_id": trigger.ID.Hex(),
		"resolved":   result.Resolved,
		"sent":       accepted,
	}).Info("Trigger activated")
	return result, nil
}

// SendNotification dispatches an ad-hoc notification. The send claim
// plays the role the trigger lease plays for activations: only one
// concurrent sender wins.
func (o *Orchestrator) SendNotification(ctx context.Context, notif *models.Notification) (*ActivationResult, error) {
	if notif.Status.Terminal() {
		return nil, fmt.Errorf("notification %s already %s", notif.ID.Hex(), notif.Status)
	}

	token := uuid.NewString()
	claimed, err := o.notifications.ClaimSend(ctx, notif.ID, token, o.leaseTTL)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return &ActivationResult{NotificationID: notif.ID, Skipped: true}, nil
	}

	recipients, err := o.resolver.Resolve(ctx, notif.TargetAudience, notif.TargetCriteria, notif.TargetUserIDs)
	if err != nil {
		if relErr := o.notifications.ReleaseSend(ctx, notif.ID, token); relErr != nil {
			logrus.WithError(relErr).WithField("notification_id", notif.ID.Hex()).Error("Failed to release send claim")
		}
		return nil, fmt.Errorf("targeting resolution failed: %w", err)
	}

	accepted, errored := o.fanOut(ctx, recipients, notif.Title, notif.Body, notif.Data)

	result := &ActivationResult{
		NotificationID: notif.ID,
		Resolved:       int64(len(recipients)),
		SentCount:      accepted,
	}

	if len(recipients) > 0 && errored == int64(len(recipients)) && accepted == 0 {
		result.Failed = true
		if err := o.notifications.UpdateStatus(ctx, notif.ID, notif.Status, models.StatusFailed); err != nil {
			logrus.WithError(err).WithField("notification_id", notif.ID.Hex()).Error("Failed to mark notification failed")
		}
		if err := o.notifications.ReleaseSend(ctx, notif.ID, token); err != nil {
			logrus.WithError(err).WithField("notification_id", notif.ID.Hex()).Error("Failed to release send claim")
		}
		return result, nil
	}

	if accepted > 0 {
		if err := o.notifications.IncrementDelivery(ctx, notif.ID, accepted); err != nil {
			logrus.WithError(err).WithField("notification_id", notif.ID.Hex()).Error("Failed to record delivery count")
		}
	}
	if err := o.notifications.UpdateStatus(ctx, notif.ID, notif.Status, models.StatusSent); err != nil {
		logrus.WithError(err).WithField("notification_id", notif.ID.Hex()).Error("Failed to mark notification sent")
	}
	if err := o.notifications.ReleaseSend(ctx, notif.ID, token); err != nil {
		logrus.WithError(err).WithField("notification_id", notif.ID.Hex()).Error("Failed to release send claim")
	}

	return result, nil
}

// fanOut renders and delivers to every recipient with bounded
// concurrency, respecting the transport's rate limits. Returns the number
// of accepted deliveries and the number of transport errors. Individual
// rejections and errors never abort the remaining recipients.
func (o *Orchestrator) fanOut(ctx context.Context, recipients []string, title, body string, payload map[string]string) (accepted, errored int64) {
	if len(recipients) == 0 {
		return 0, 0
	}

	globals := map[string]string{
		"date": time.Now().Format("January 2, 2006"),
	}

	var acceptedCount, erroredCount atomic.Int64

	var g errgroup.Group
	g.SetLimit(o.workers)

	for _, recipientID := range recipients {
		recipientID := recipientID
		g.Go(func() error {
			bindings := make(map[string]string, len(globals)+4)
			for k, v := range globals {
				bindings[k] = v
			}
			if personal, err := o.resolver.Placeholders(ctx, recipientID); err == nil {
				for k, v := range personal {
					bindings[k] = v
				}
			} else {
				logrus.WithError(err).WithField("recipient", recipientID).Warn("Failed to load recipient placeholders")
			}

			renderedTitle, renderedBody := templates.RenderPair(title, body, bindings)

			ok, err := o.transport.Deliver(ctx, recipientID, renderedTitle, renderedBody, payload)
			if err != nil {
				erroredCount.Add(1)
				logrus.WithError(err).WithField("recipient", recipientID).Warn("Transport error")
				return nil
			}
			if ok {
				acceptedCount.Add(1)
			} else {
				logrus.WithField("recipient", recipientID).Debug("Transport rejected recipient")
			}
			return nil
		})
	}
	_ = g.Wait()

	return acceptedCount.Load(), erroredCount.Load()
}
