package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pakuni-app/notification-engine/internal/models"
	"github.com/pakuni-app/notification-engine/internal/services"
	"github.com/pakuni-app/notification-engine/pkg/logger"
	"github.com/pakuni-app/notification-engine/pkg/middleware"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TriggerHandler handles HTTP requests for trigger administration.
type TriggerHandler struct {
	Service *services.TriggerService
}

// NewTriggerHandler creates a new instance of TriggerHandler.
func NewTriggerHandler(service *services.TriggerService) *TriggerHandler {
	return &TriggerHandler{Service: service}
}

// CreateTriggerHandler handles POST /triggers.
func (h *TriggerHandler) CreateTriggerHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var trigger models.Trigger
	if err := json.NewDecoder(r.Body).Decode(&trigger); err != nil {
		logger.Log.Warnf("Failed to decode trigger payload: %v", err)
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	created, err := h.Service.CreateTrigger(r.Context(), &trigger, claims.UserID)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Log.Errorf("Failed to create trigger: %v", err)
		http.Error(w, "Failed to create trigger", http.StatusInternalServerError)
		return
	}

	logger.Log.Infof("Operator %s created trigger %s", claims.UserID, created.ID.Hex())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

// GetTriggerHandler handles GET /triggers/{id}.
func (h *TriggerHandler) GetTriggerHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	trigger, err := h.Service.GetTrigger(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			http.Error(w, "Trigger not found", http.StatusNotFound)
			return
		}
		logger.Log.Errorf("Failed to fetch trigger: %v", err)
		http.Error(w, "Failed to fetch trigger", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(trigger)
}

// ListTriggersHandler handles GET /triggers?enabled=true.
func (h *TriggerHandler) ListTriggersHandler(w http.ResponseWriter, r *http.Request) {
	enabledOnly := r.URL.Query().Get("enabled") == "true"

	triggers, err := h.Service.ListTriggers(r.Context(), enabledOnly)
	if err != nil {
		logger.Log.Errorf("Failed to list triggers: %v", err)
		http.Error(w, "Failed to list triggers", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(triggers)
}

// UpdateTriggerHandler handles PUT /triggers/{id}.
func (h *TriggerHandler) UpdateTriggerHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var trigger models.Trigger
	if err := json.NewDecoder(r.Body).Decode(&trigger); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	updated, err := h.Service.UpdateTrigger(r.Context(), id, &trigger)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, services.ErrNotFound):
			http.Error(w, "Trigger not found", http.StatusNotFound)
		default:
			logger.Log.Errorf("Failed to update trigger: %v", err)
			http.Error(w, "Failed to update trigger", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updated)
}

// ToggleTriggerHandler handles PATCH /triggers/{id}/toggle.
func (h *TriggerHandler) ToggleTriggerHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if err := h.Service.ToggleEnabled(r.Context(), id, body.Enabled); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			http.Error(w, "Trigger not found", http.StatusNotFound)
			return
		}
		logger.Log.Errorf("Failed to toggle trigger: %v", err)
		http.Error(w, "Failed to toggle trigger", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"enabled": body.Enabled})
}

// DeleteTriggerHandler handles DELETE /triggers/{id}.
func (h *TriggerHandler) DeleteTriggerHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteTrigger(r.Context(), id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			http.Error(w, "Trigger not found", http.StatusNotFound)
			return
		}
		logger.Log.Errorf("Failed to delete trigger: %v", err)
		http.Error(w, "Failed to delete trigger", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "Trigger deleted"})
}

// ExecuteTriggerHandler handles POST /triggers/{id}/execute ("send now").
func (h *TriggerHandler) ExecuteTriggerHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	result, err := h.Service.ExecuteNow(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			http.Error(w, "Trigger not found", http.StatusNotFound)
		case errors.Is(err, services.ErrValidation):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			logger.Log.Errorf("Failed to execute trigger: %v", err)
			http.Error(w, "Failed to execute trigger", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// TriggerStatsHandler handles GET /triggers/stats.
func (h *TriggerHandler) TriggerStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.GetStatistics(r.Context())
	if err != nil {
		logger.Log.Errorf("Failed to fetch trigger stats: %v", err)
		http.Error(w, "Failed to fetch statistics", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

func parseID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	vars := mux.Vars(r)
	id, err := primitive.ObjectIDFromHex(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return primitive.NilObjectID, false
	}
	return id, true
}
