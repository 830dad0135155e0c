package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	apierrors "ligaproxy/internal/errors"
	"ligaproxy/internal/infrastructure"
)

// requestIDHeader is the wire header carrying the request ID in both
// directions.
const requestIDHeader = "X-Request-ID"

// RequestID generates a unique request ID for each request, honoring an
// ID supplied by the caller. This should be the first middleware in the
// chain; the ID becomes the trace_id on every log line.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set(requestIDHeader, requestID)
		ctx := infrastructure.WithTraceID(r.Context(), requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	return infrastructure.GetTraceID(ctx)
}

// redactedHeaders are never logged verbatim.
var redactedHeaders = map[string]bool{
	"Authorization": true,
	"Cookie":        true,
}

// StructuredLogger logs one inbound and one outbound line per request.
// It should come after RequestID so both lines carry the trace_id.
func StructuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()

			headers := make(map[string]string, len(r.Header))
			for name := range r.Header {
				if redactedHeaders[name] {
					headers[name] = "[REDACTED]"
				} else {
					headers[name] = r.Header.Get(name)
				}
			}

			logger.InfoContext(ctx, "request started",
				slog.String("stage", "inbound"),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
				slog.Any("headers", headers),
			)

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.InfoContext(ctx, "request completed",
				slog.String("stage", "outbound"),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status_code", ww.Status()),
				slog.Int("body_size", ww.BytesWritten()),
				slog.Float64("latency_ms", float64(time.Since(start).Microseconds())/1000),
			)
		})
	}
}

// Recoverer recovers from panics, logs them and responds with the
// structured internal-error shape. Panic details never reach the caller.
func Recoverer(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					ctx := r.Context()
					logger.ErrorContext(ctx, "panic recovered",
						slog.Any("panic", rvr),
						slog.String("stack", string(debug.Stack())),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
					)
					writeError(w, ctx, apierrors.New(apierrors.CodeInternal, "Internal server error"))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimiter bounds the inbound request rate for the whole endpoint. This
// is separate from the outbound limiter in front of the upstream: it
// protects this service, not the provider.
type RateLimiter struct {
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewRateLimiter creates an inbound rate limiter.
func NewRateLimiter(rps float64, burst int, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
	}
}

// Handler rejects requests over the configured rate with 429.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if !rl.limiter.Allow() {
			rl.logger.WarnContext(ctx, "inbound rate limit exceeded",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
			)
			w.Header().Set("Retry-After", "1")
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusTooManyRequests)
			body, _ := json.Marshal(apierrors.New("RATE_LIMIT_EXCEEDED", "Too many requests"))
			w.Write(body)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Timeout cancels request contexts after the given duration. Handlers see
// the cancellation through ctx and abandon in-flight retries and waits.
func Timeout(timeout time.Duration) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeError writes a structured error response with the request ID
// attached, for paths outside the render-based handlers.
func writeError(w http.ResponseWriter, ctx context.Context, apiErr *apierrors.Error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(apierrors.HTTPStatus(apiErr.Code))

	payload := map[string]interface{}{
		"error": apiErr.Message,
		"code":  apiErr.Code,
	}
	if requestID := infrastructure.GetTraceID(ctx); requestID != "" {
		payload["requestId"] = requestID
	}
	body, _ := json.Marshal(payload)
	w.Write(body)
}
