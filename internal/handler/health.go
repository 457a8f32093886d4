package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/hairkim/Fitness-App-sub000/internal/httputil"
	"github.com/hairkim/Fitness-App-sub000/internal/model"
	"github.com/hairkim/Fitness-App-sub000/internal/service"
	"github.com/hairkim/Fitness-App-sub000/internal/transport/http/middleware"
)

type HealthHandler struct {
	healthService *service.HealthService
}

func NewHealthHandler(healthService *service.HealthService) *HealthHandler {
	return &HealthHandler{
		healthService: healthService,
	}
}

// GymVisit handles POST /health/gym-visit (the streak check-in).
func (h *HealthHandler) GymVisit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	result, err := h.healthService.RecordGymVisit(r.Context(), userID)
	if err != nil {
		log.Printf("[ERROR] GymVisit handler: user=%d err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to record gym visit")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// SyncToday handles PUT /health/today with the device's whole-day totals.
func (h *HealthHandler) SyncToday(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.SyncHealthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	sample, err := h.healthService.SyncToday(r.Context(), userID, req)
	if err != nil {
		if errors.Is(err, model.ErrInvalidHealthSample) {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		log.Printf("[ERROR] SyncToday handler: user=%d err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to sync health data")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, sample)
}

// GetSamples handles GET /health/samples?from=...&to=... (RFC 3339 dates).
func (h *HealthHandler) GetSamples(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var from, to time.Time
	if f := r.URL.Query().Get("from"); f != "" {
		parsed, err := time.Parse(time.RFC3339, f)
		if err != nil {
			httputil.WriteBadRequest(w, "Invalid from parameter")
			return
		}
		from = parsed
	}
	if t := r.URL.Query().Get("to"); t != "" {
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			httputil.WriteBadRequest(w, "Invalid to parameter")
			return
		}
		to = parsed
	}

	samples, err := h.healthService.GetSamples(r.Context(), userID, from, to)
	if err != nil {
		log.Printf("[ERROR] GetSamples handler: user=%d err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to get health samples")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"samples": samples})
}
