package handlers

import (
	"net/http"

	"github.com/pratik-mahalle/ec2-automations/internal/pkg/logger"
	"github.com/pratik-mahalle/ec2-automations/internal/pkg/utils"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	logger *logger.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		logger: log,
	}
}

// Healthz handles liveness probe
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccess(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
