package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pakuni-app/notification-engine/internal/services"
	"github.com/pakuni-app/notification-engine/pkg/logger"
)

// CallbackHandler receives the asynchronous delivered/opened/clicked
// callbacks from the push gateway and feeds them to the metrics service.
type CallbackHandler struct {
	Metrics *services.MetricsService
}

func NewCallbackHandler(metrics *services.MetricsService) *CallbackHandler {
	return &CallbackHandler{Metrics: metrics}
}

// DeliveredHandler handles POST /callbacks/{id}/delivered.
func (h *CallbackHandler) DeliveredHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.Metrics.RecordDelivery(r.Context(), id); err != nil {
		h.writeCallbackErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// OpenedHandler handles POST /callbacks/{id}/opened.
func (h *CallbackHandler) OpenedHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.Metrics.RecordOpen(r.Context(), id); err != nil {
		h.writeCallbackErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClickedHandler handles POST /callbacks/{id}/clicked.
func (h *CallbackHandler) ClickedHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.Metrics.RecordClick(r.Context(), id); err != nil {
		h.writeCallbackErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CallbackHandler) writeCallbackErr(w http.ResponseWriter, err error) {
	if errors.Is(err, services.ErrNotFound) {
		// the gateway retries on 5xx only; an unknown id is final
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"message": "Unknown notification"})
		return
	}
	logger.Log.Errorf("Failed to record callback: %v", err)
	http.Error(w, "Failed to record callback", http.StatusInternalServerError)
}
