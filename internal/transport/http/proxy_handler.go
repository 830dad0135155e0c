package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	apierrors "ligaproxy/internal/errors"
	"ligaproxy/internal/middleware"
)

// ProxyHandler exposes the operation pipeline over HTTP.
type ProxyHandler struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

// NewProxyHandler creates a new proxy handler.
func NewProxyHandler(dispatcher Dispatcher, logger *slog.Logger) *ProxyHandler {
	if dispatcher == nil {
		panic("dispatcher cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProxyHandler{
		dispatcher: dispatcher,
		logger:     logger.With(slog.String("handler", "proxy")),
	}
}

// ExecuteRequest is the envelope for POST /proxy/execute.
type ExecuteRequest struct {
	OperationType string                 `json:"operationType"`
	Payload       map[string]interface{} `json:"payload"`
	RequestID     string                 `json:"requestId,omitempty"`
}

// Bind implements the render.Binder interface.
func (req *ExecuteRequest) Bind(r *http.Request) error {
	if req.OperationType == "" {
		return errors.New("operationType is required")
	}
	if req.Payload == nil {
		req.Payload = map[string]interface{}{}
	}
	return nil
}

// ExecuteResponse is the success envelope for POST /proxy/execute.
type ExecuteResponse struct {
	RequestID     string      `json:"requestId"`
	OperationType string      `json:"operationType"`
	Data          interface{} `json:"data"`
}

// Execute handles POST /proxy/execute: it decodes the envelope, runs the
// operation and renders either the normalized record or the structured
// error with its mapped status code.
func (h *ProxyHandler) Execute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := &ExecuteRequest{}
	if err := render.Bind(r, req); err != nil {
		h.logger.WarnContext(ctx, "invalid execute request",
			slog.String("error", err.Error()))
		render.Render(w, r, apierrors.NewWithDetails(
			apierrors.CodeValidation,
			"Invalid request body",
			map[string]interface{}{"message": err.Error()},
		))
		return
	}

	h.logger.InfoContext(ctx, "proxy execute",
		slog.String("stage", "proxy_start"),
		slog.String("operation_type", req.OperationType))

	result, apiErr := h.dispatcher.Execute(ctx, req.OperationType, req.Payload)
	if apiErr != nil {
		h.logger.WarnContext(ctx, "proxy execute failed",
			slog.String("stage", "proxy_complete"),
			slog.String("operation_type", req.OperationType),
			slog.String("error_code", apiErr.Code))
		render.Render(w, r, apiErr)
		return
	}

	h.logger.InfoContext(ctx, "proxy execute completed",
		slog.String("stage", "proxy_complete"),
		slog.String("operation_type", req.OperationType))

	render.JSON(w, r, ExecuteResponse{
		RequestID:     requestID(r, req),
		OperationType: req.OperationType,
		Data:          result,
	})
}

// requestID resolves the request ID: the one assigned by the middleware
// wins, then a caller-supplied envelope value.
func requestID(r *http.Request, req *ExecuteRequest) string {
	if id := middleware.GetRequestID(r.Context()); id != "" {
		return id
	}
	return req.RequestID
}
