package http

import (
	"net/http"

	"github.com/go-chi/render"

	"ligaproxy/pkg/contracts"
)

// HealthHandler answers liveness probes.
type HealthHandler struct {
	providerName string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(providerName string) *HealthHandler {
	return &HealthHandler{providerName: providerName}
}

// Check handles GET /health.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status":   "healthy",
		"provider": h.providerName,
		"version":  contracts.Version,
	})
}
