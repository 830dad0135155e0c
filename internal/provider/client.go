package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"time"

	"ligaproxy/internal/config"
	"ligaproxy/internal/infrastructure"
)

// retryableStatuses are the upstream statuses worth retrying: throttling
// and transient server-side failures.
var retryableStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// UpstreamError reports a failed upstream call: the last status code (zero
// for transport-level failures), a short reason and the underlying cause.
type UpstreamError struct {
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// RetryPolicy is the immutable retry/backoff configuration shared by every
// call through one client.
type RetryPolicy struct {
	MaxRetries        int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	JitterRange       float64
}

// Delay computes the jittered backoff before retrying the given 0-indexed
// attempt: min(base * multiplier^attempt, max), jittered symmetrically by
// up to JitterRange of that value and floored at zero. rnd must yield a
// uniform value in [0,1) and is consulted anew for every attempt.
func (p RetryPolicy) Delay(attempt int, rnd func() float64) time.Duration {
	delay := float64(p.BaseDelay) * math.Pow(p.BackoffMultiplier, float64(attempt))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}

	jitter := (rnd()*2 - 1) * p.JitterRange * delay
	jittered := delay + jitter
	if jittered < 0 {
		jittered = 0
	}
	return time.Duration(jittered)
}

// Client performs rate-limited, retrying GET calls against the upstream and
// decodes the JSON response body.
type Client struct {
	httpClient *http.Client
	limiter    *SlidingWindowLimiter
	policy     RetryPolicy
	timeout    time.Duration
	logger     *slog.Logger
	metrics    *infrastructure.Metrics

	// Injection points for tests.
	sleep     func(context.Context, time.Duration) error
	randFloat func() float64
}

// NewClient creates a client from the provider configuration. The limiter
// is owned by the client and shared across all calls through it.
func NewClient(cfg config.ProviderConfig, logger *slog.Logger, metrics *infrastructure.Metrics) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{},
		limiter:    NewSlidingWindowLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow, logger),
		policy: RetryPolicy{
			MaxRetries:        cfg.MaxRetries,
			BaseDelay:         cfg.BaseDelay,
			MaxDelay:          cfg.MaxDelay,
			BackoffMultiplier: cfg.BackoffMultiplier,
			JitterRange:       cfg.JitterRange,
		},
		timeout:   cfg.RequestTimeout,
		logger:    logger.With(slog.String("component", "upstream_client")),
		metrics:   metrics,
		sleep:     sleepContext,
		randFloat: rand.Float64,
	}
}

// GetJSON performs a GET against url with rate limiting, bounded retries and
// exponential backoff, returning the decoded JSON body. Retryable failures
// are statuses 429/500/502/503/504 and transport-level errors; anything else
// fails immediately. Attempt count never exceeds MaxRetries+1.
func (c *Client) GetJSON(ctx context.Context, url string) (interface{}, error) {
	waitStart := time.Now()
	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	if c.metrics != nil {
		c.metrics.RateLimitWait.Observe(time.Since(waitStart).Seconds())
	}

	for attempt := 0; attempt <= c.policy.MaxRetries; attempt++ {
		c.logger.DebugContext(ctx, "upstream request",
			slog.Int("attempt", attempt+1),
			slog.String("url", url))

		start := time.Now()
		body, status, err := c.do(ctx, url)
		latency := time.Since(start)

		if err != nil {
			c.observeAttempt("error", latency)
			c.logger.WarnContext(ctx, "upstream request error",
				slog.Int("attempt", attempt+1),
				slog.String("error", err.Error()))

			// A transport failure on the final allowed attempt fails
			// immediately with the underlying cause.
			if attempt >= c.policy.MaxRetries {
				return nil, &UpstreamError{Message: "upstream API request failed", Err: err}
			}
			if err := c.backoff(ctx, attempt, 0); err != nil {
				return nil, err
			}
			continue
		}

		c.observeAttempt(statusClass(status), latency)
		c.logger.DebugContext(ctx, "upstream response",
			slog.Int("status_code", status),
			slog.Duration("latency", latency))

		if status == http.StatusOK {
			var data interface{}
			if err := json.Unmarshal(body, &data); err != nil {
				return nil, &UpstreamError{
					StatusCode: status,
					Message:    "upstream returned invalid JSON",
					Err:        err,
				}
			}
			return data, nil
		}

		if retryableStatuses[status] && attempt < c.policy.MaxRetries {
			if err := c.backoff(ctx, attempt, status); err != nil {
				return nil, err
			}
			continue
		}

		return nil, &UpstreamError{
			StatusCode: status,
			Message:    fmt.Sprintf("upstream API failed with status %d", status),
		}
	}

	return nil, &UpstreamError{Message: "max retries exceeded"}
}

// do performs a single GET attempt under the per-attempt timeout.
func (c *Client) do(ctx context.Context, url string) ([]byte, int, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

// backoff sleeps for the jittered exponential delay before the next attempt.
// status is the retryable status that triggered the retry, or zero for a
// transport-level failure.
func (c *Client) backoff(ctx context.Context, attempt, status int) error {
	delay := c.policy.Delay(attempt, c.randFloat)

	reason := "transport_error"
	if status != 0 {
		reason = fmt.Sprintf("status_%d", status)
	}
	if c.metrics != nil {
		c.metrics.UpstreamRetries.WithLabelValues(reason).Inc()
	}

	c.logger.InfoContext(ctx, "retrying upstream request",
		slog.Int("attempt", attempt+1),
		slog.Int("status_code", status),
		slog.Duration("sleep_time", delay))

	return c.sleep(ctx, delay)
}

// observeAttempt records per-attempt metrics.
func (c *Client) observeAttempt(status string, latency time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.UpstreamRequests.WithLabelValues(status).Inc()
	c.metrics.UpstreamLatency.Observe(latency.Seconds())
}

// statusClass buckets a status code for metrics ("2xx", "4xx", ...).
func statusClass(status int) string {
	return fmt.Sprintf("%dxx", status/100)
}
