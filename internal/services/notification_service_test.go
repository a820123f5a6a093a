package services

import (
	"context"
	"testing"
	"time"

	"github.com/pakuni-app/notification-engine/internal/dispatch"
	"github.com/pakuni-app/notification-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type fakeNotificationStore struct {
	notifications map[primitive.ObjectID]*models.Notification
}

func newFakeNotificationStore() *fakeNotificationStore {
	return &fakeNotificationStore{notifications: make(map[primitive.ObjectID]*models.Notification)}
}

func (f *fakeNotificationStore) CreateNotification(ctx context.Context, notif *models.Notification) (*models.Notification, error) {
	notif.ID = primitive.NewObjectID()
	notif.CreatedAt = time.Now()
	f.notifications[notif.ID] = notif
	return notif, nil
}

func (f *fakeNotificationStore) GetNotificationByID(ctx context.Context, id primitive.ObjectID) (*models.Notification, error) {
	notif, ok := f.notifications[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return notif, nil
}

func (f *fakeNotificationStore) UpdateNotification(ctx context.Context, id primitive.ObjectID, notif *models.Notification) (*models.Notification, error) {
	existing, ok := f.notifications[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	notif.ID = id
	notif.Status = existing.Status
	f.notifications[id] = notif
	return notif, nil
}

func (f *fakeNotificationStore) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.NotificationStatus) error {
	notif, ok := f.notifications[id]
	if !ok || notif.Status != from {
		return mongo.ErrNoDocuments
	}
	notif.Status = to
	if to == models.StatusSent {
		now := time.Now()
		notif.SentAt = &now
	} else {
		notif.SentAt = nil
	}
	return nil
}

func (f *fakeNotificationStore) DeleteNotification(ctx context.Context, id primitive.ObjectID) error {
	if _, ok := f.notifications[id]; !ok {
		return mongo.ErrNoDocuments
	}
	delete(f.notifications, id)
	return nil
}

func (f *fakeNotificationStore) ListNotifications(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error) {
	var out []models.Notification
	for _, notif := range f.notifications {
		if filter.Status != "" && notif.Status != filter.Status {
			continue
		}
		if filter.Type != "" && notif.Type != filter.Type {
			continue
		}
		out = append(out, *notif)
	}
	return out, nil
}

func (f *fakeNotificationStore) IncrementDelivery(ctx context.Context, id primitive.ObjectID, n int64) error {
	notif, ok := f.notifications[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	notif.DeliveryCount += n
	return nil
}

// IncrementOpen mirrors the clamped pipeline update: the counter never
// exceeds the delivery count.
func (f *fakeNotificationStore) IncrementOpen(ctx context.Context, id primitive.ObjectID) error {
	notif, ok := f.notifications[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	if notif.OpenCount+1 <= notif.DeliveryCount {
		notif.OpenCount++
	}
	return nil
}

func (f *fakeNotificationStore) IncrementClick(ctx context.Context, id primitive.ObjectID) error {
	notif, ok := f.notifications[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	if notif.ClickCount+1 <= notif.DeliveryCount {
		notif.ClickCount++
	}
	return nil
}

func (f *fakeNotificationStore) GetStats(ctx context.Context) (*models.NotificationStats, error) {
	stats := &models.NotificationStats{}
	for _, notif := range f.notifications {
		stats.Total++
		switch notif.Status {
		case models.StatusDraft:
			stats.Draft++
		case models.StatusScheduled:
			stats.Scheduled++
		case models.StatusSent:
			stats.Sent++
		case models.StatusFailed:
			stats.Failed++
		}
		stats.Delivered += notif.DeliveryCount
		stats.Opened += notif.OpenCount
		stats.Clicked += notif.ClickCount
	}
	return stats, nil
}

type countingSender struct {
	calls int
}

func (s *countingSender) SendNotification(ctx context.Context, notif *models.Notification) (*dispatch.ActivationResult, error) {
	s.calls++
	return &dispatch.ActivationResult{NotificationID: notif.ID, SentCount: 1}, nil
}

func draftNotification() *models.Notification {
	return &models.Notification{
		Title:          "Scholarship open",
		Body:           "Apply by {date}",
		Type:           models.TriggerScholarshipDeadline,
		TargetAudience: models.TargetAllUsers,
	}
}

func TestCreateNotificationDefaults(t *testing.T) {
	svc := NewNotificationService(newFakeNotificationStore(), &countingSender{})

	created, err := svc.CreateNotification(context.Background(), draftNotification(), "op1")
	require.NoError(t, err)

	assert.Equal(t, models.StatusDraft, created.Status)
	assert.Equal(t, models.PriorityNormal, created.Priority, "priority defaults to normal")
	assert.Nil(t, created.SentAt)
	assert.Equal(t, "op1", created.CreatedBy)
}

func TestCreateNotificationScheduled(t *testing.T) {
	svc := NewNotificationService(newFakeNotificationStore(), &countingSender{})

	notif := draftNotification()
	at := time.Now().Add(time.Hour)
	notif.ScheduledAt = &at

	created, err := svc.CreateNotification(context.Background(), notif, "op1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusScheduled, created.Status)
}

func TestCreateNotificationValidation(t *testing.T) {
	svc := NewNotificationService(newFakeNotificationStore(), &countingSender{})

	notif := draftNotification()
	notif.Title = ""

	_, err := svc.CreateNotification(context.Background(), notif, "op1")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateSentNotificationRejected(t *testing.T) {
	store := newFakeNotificationStore()
	svc := NewNotificationService(store, &countingSender{})

	created, err := svc.CreateNotification(context.Background(), draftNotification(), "op1")
	require.NoError(t, err)
	require.NoError(t, store.UpdateStatus(context.Background(), created.ID, models.StatusDraft, models.StatusSent))

	_, err = svc.UpdateNotification(context.Background(), created.ID, draftNotification())
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSendNotification(t *testing.T) {
	store := newFakeNotificationStore()
	sender := &countingSender{}
	svc := NewNotificationService(store, sender)

	created, err := svc.CreateNotification(context.Background(), draftNotification(), "op1")
	require.NoError(t, err)

	result, err := svc.SendNotification(context.Background(), created.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, sender.calls)
	assert.Equal(t, int64(1), result.SentCount)
}

func TestSendSentNotificationRejected(t *testing.T) {
	store := newFakeNotificationStore()
	svc := NewNotificationService(store, &countingSender{})

	created, err := svc.CreateNotification(context.Background(), draftNotification(), "op1")
	require.NoError(t, err)
	require.NoError(t, store.UpdateStatus(context.Background(), created.ID, models.StatusDraft, models.StatusSent))

	_, err = svc.SendNotification(context.Background(), created.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRetryFailedNotification(t *testing.T) {
	store := newFakeNotificationStore()
	svc := NewNotificationService(store, &countingSender{})

	created, err := svc.CreateNotification(context.Background(), draftNotification(), "op1")
	require.NoError(t, err)
	require.NoError(t, store.UpdateStatus(context.Background(), created.ID, models.StatusDraft, models.StatusFailed))

	require.NoError(t, svc.RetryNotification(context.Background(), created.ID))

	got, err := svc.GetNotification(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusScheduled, got.Status)
}

func TestRetrySentNotificationRejected(t *testing.T) {
	store := newFakeNotificationStore()
	svc := NewNotificationService(store, &countingSender{})

	created, err := svc.CreateNotification(context.Background(), draftNotification(), "op1")
	require.NoError(t, err)
	require.NoError(t, store.UpdateStatus(context.Background(), created.ID, models.StatusDraft, models.StatusSent))

	err = svc.RetryNotification(context.Background(), created.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestGetNotificationsFiltered(t *testing.T) {
	store := newFakeNotificationStore()
	svc := NewNotificationService(store, &countingSender{})

	first, err := svc.CreateNotification(context.Background(), draftNotification(), "op1")
	require.NoError(t, err)
	_, err = svc.CreateNotification(context.Background(), draftNotification(), "op1")
	require.NoError(t, err)
	require.NoError(t, store.UpdateStatus(context.Background(), first.ID, models.StatusDraft, models.StatusSent))

	sent, err := svc.GetNotifications(context.Background(), models.NotificationFilter{Status: models.StatusSent})
	require.NoError(t, err)
	assert.Len(t, sent, 1)

	drafts, err := svc.GetNotifications(context.Background(), models.NotificationFilter{Status: models.StatusDraft})
	require.NoError(t, err)
	assert.Len(t, drafts, 1)
}
