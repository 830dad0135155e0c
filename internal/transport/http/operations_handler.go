package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
)

// OperationsHandler serves the operation catalog for discovery.
type OperationsHandler struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

// NewOperationsHandler creates a new operations handler.
func NewOperationsHandler(dispatcher Dispatcher, logger *slog.Logger) *OperationsHandler {
	if dispatcher == nil {
		panic("dispatcher cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OperationsHandler{
		dispatcher: dispatcher,
		logger:     logger.With(slog.String("handler", "operations")),
	}
}

// List handles GET /operations: the supported operation names and, per
// operation, the declared payload and response shapes.
func (h *OperationsHandler) List(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"supported_operations": h.dispatcher.Names(),
		"schemas":              h.dispatcher.Info(),
	})
}
