package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/pakuni-app/notification-engine/internal/models"
	"github.com/pakuni-app/notification-engine/internal/services"
	"github.com/pakuni-app/notification-engine/pkg/logger"
	"github.com/pakuni-app/notification-engine/pkg/middleware"
)

// NotificationHandler handles HTTP requests for ad-hoc notifications.
type NotificationHandler struct {
	Service *services.NotificationService
}

func NewNotificationHandler(service *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{Service: service}
}

// CreateNotificationHandler handles POST /notifications.
func (h *NotificationHandler) CreateNotificationHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var notif models.Notification
	if err := json.NewDecoder(r.Body).Decode(&notif); err != nil {
		logger.Log.Warnf("Failed to decode notification payload: %v", err)
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	created, err := h.Service.CreateNotification(r.Context(), &notif, claims.UserID)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Log.Errorf("Failed to create notification: %v", err)
		http.Error(w, "Failed to create notification", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

// GetNotificationsHandler handles GET /notifications with filter and
// pagination query params.
func (h *NotificationHandler) GetNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, _ := strconv.ParseInt(q.Get("limit"), 10, 64)
	offset, _ := strconv.ParseInt(q.Get("offset"), 10, 64)
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	filter := models.NotificationFilter{
		Status:   models.NotificationStatus(q.Get("status")),
		Type:     models.TriggerType(q.Get("type")),
		Audience: models.TargetType(q.Get("audience")),
		Limit:    limit,
		Offset:   offset,
	}

	notifications, err := h.Service.GetNotifications(r.Context(), filter)
	if err != nil {
		logger.Log.Errorf("Failed to fetch notifications: %v", err)
		http.Error(w, "Failed to fetch notifications", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(notifications)
}

// GetNotificationHandler handles GET /notifications/{id}.
func (h *NotificationHandler) GetNotificationHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	notif, err := h.Service.GetNotification(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			http.Error(w, "Notification not found", http.StatusNotFound)
			return
		}
		logger.Log.Errorf("Failed to fetch notification: %v", err)
		http.Error(w, "Failed to fetch notification", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(notif)
}

// UpdateNotificationHandler handles PUT /notifications/{id}.
func (h *NotificationHandler) UpdateNotificationHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var notif models.Notification
	if err := json.NewDecoder(r.Body).Decode(&notif); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	updated, err := h.Service.UpdateNotification(r.Context(), id, &notif)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			http.Error(w, "Notification not found", http.StatusNotFound)
		case errors.Is(err, services.ErrValidation):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, services.ErrInvalidTransition):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			logger.Log.Errorf("Failed to update notification: %v", err)
			http.Error(w, "Failed to update notification", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updated)
}

// SendNotificationHandler handles POST /notifications/{id}/send.
func (h *NotificationHandler) SendNotificationHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	result, err := h.Service.SendNotification(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			http.Error(w, "Notification not found", http.StatusNotFound)
		case errors.Is(err, services.ErrInvalidTransition):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			logger.Log.Errorf("Failed to send notification: %v", err)
			http.Error(w, "Failed to send notification", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// RetryNotificationHandler handles POST /notifications/{id}/retry: the
// explicit operator re-send of a failed notification.
func (h *NotificationHandler) RetryNotificationHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.Service.RetryNotification(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			http.Error(w, "Notification not found", http.StatusNotFound)
		case errors.Is(err, services.ErrInvalidTransition):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			logger.Log.Errorf("Failed to retry notification: %v", err)
			http.Error(w, "Failed to retry notification", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": string(models.StatusScheduled)})
}

// DeleteNotificationHandler handles DELETE /notifications/{id}.
func (h *NotificationHandler) DeleteNotificationHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteNotification(r.Context(), id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			http.Error(w, "Notification not found", http.StatusNotFound)
			return
		}
		logger.Log.Errorf("Failed to delete notification: %v", err)
		http.Error(w, "Failed to delete notification", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "Notification deleted"})
}

// NotificationStatsHandler handles GET /notifications/stats.
func (h *NotificationHandler) NotificationStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.GetNotificationStats(r.Context())
	if err != nil {
		logger.Log.Errorf("Failed to fetch notification stats: %v", err)
		http.Error(w, "Failed to fetch statistics", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
