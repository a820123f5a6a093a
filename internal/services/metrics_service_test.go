package services

import (
	"context"
	"testing"

	"github.com/pakuni-app/notification-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRecordCallbacks(t *testing.T) {
	store := newFakeNotificationStore()
	metrics := NewMetricsService(store)
	ctx := context.Background()

	notif, err := store.CreateNotification(ctx, &models.Notification{
		Title:          "Merit list",
		Body:           "Out now",
		Type:           models.TriggerMeritPublished,
		Priority:       models.PriorityNormal,
		TargetAudience: models.TargetAllUsers,
		Status:         models.StatusSent,
	})
	require.NoError(t, err)

	require.NoError(t, metrics.RecordDelivery(ctx, notif.ID))
	require.NoError(t, metrics.RecordDelivery(ctx, notif.ID))
	require.NoError(t, metrics.RecordOpen(ctx, notif.ID))
	require.NoError(t, metrics.RecordClick(ctx, notif.ID))

	got := store.notifications[notif.ID]
	assert.Equal(t, int64(2), got.DeliveryCount)
	assert.Equal(t, int64(1), got.OpenCount)
	assert.Equal(t, int64(1), got.ClickCount)
}

// Opens and clicks never exceed deliveries, no matter how the callbacks
// interleave; out-of-order callbacks are clamped, not rejected.
func TestCounterMonotonicity(t *testing.T) {
	store := newFakeNotificationStore()
	metrics := NewMetricsService(store)
	ctx := context.Background()

	notif, err := store.CreateNotification(ctx, &models.Notification{
		Title:          "Announcement",
		Body:           "Hi",
		Type:           models.TriggerNewAnnouncement,
		Priority:       models.PriorityNormal,
		TargetAudience: models.TargetAllUsers,
		Status:         models.StatusSent,
	})
	require.NoError(t, err)

	steps := []func() error{
		func() error { return metrics.RecordOpen(ctx, notif.ID) }, // open before any delivery
		func() error { return metrics.RecordDelivery(ctx, notif.ID) },
		func() error { return metrics.RecordOpen(ctx, notif.ID) },
		func() error { return metrics.RecordOpen(ctx, notif.ID) },
		func() error { return metrics.RecordClick(ctx, notif.ID) },
		func() error { return metrics.RecordClick(ctx, notif.ID) },
		func() error { return metrics.RecordDelivery(ctx, notif.ID) },
		func() error { return metrics.RecordOpen(ctx, notif.ID) },
	}

	for i, step := range steps {
		require.NoError(t, step(), "step %d", i)
		got := store.notifications[notif.ID]
		assert.LessOrEqual(t, got.OpenCount, got.DeliveryCount, "after step %d", i)
		assert.LessOrEqual(t, got.ClickCount, got.DeliveryCount, "after step %d", i)
	}

	got := store.notifications[notif.ID]
	assert.Equal(t, int64(2), got.DeliveryCount)
	assert.Equal(t, int64(2), got.OpenCount)
	assert.Equal(t, int64(1), got.ClickCount)
}

func TestRecordUnknownNotification(t *testing.T) {
	metrics := NewMetricsService(newFakeNotificationStore())

	err := metrics.RecordOpen(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrNotFound)
}
