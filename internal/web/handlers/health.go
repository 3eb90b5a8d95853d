package handlers

import (
	"context"
	"net/http"
	"time"
)

// healthProbeTimeout bounds the encoder round-trip during a health check.
const healthProbeTimeout = 2 * time.Second

// HealthChecker is the encoder liveness probe.
type HealthChecker interface {
	Healthy(ctx context.Context) error
}

// HealthHandler reports service health, including the encoder sidecar.
type HealthHandler struct {
	encoder HealthChecker
}

// NewHealthHandler creates a health handler. encoder may be nil.
func NewHealthHandler(encoder HealthChecker) *HealthHandler {
	return &HealthHandler{encoder: encoder}
}

// Get handles the health check endpoint. The service itself answering is
// "ok"; a dead encoder degrades the report but does not fail it, since
// enrollment and streaming surface their own encoder errors.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	encoderStatus := "ok"
	if h.encoder != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
		defer cancel()
		if err := h.encoder.Healthy(ctx); err != nil {
			encoderStatus = "down"
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"encoder": encoderStatus,
	})
}
