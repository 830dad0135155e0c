package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ligaproxy/internal/config"
)

// testProviderConfig returns a provider configuration that never rate-limits
// in tests.
func testProviderConfig(baseURL string) config.ProviderConfig {
	return config.ProviderConfig{
		Name:              "openliga",
		BaseURL:           baseURL,
		RateLimitRequests: 1000,
		RateLimitWindow:   time.Minute,
		MaxRetries:        3,
		BaseDelay:         time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
		JitterRange:       0,
		RequestTimeout:    5 * time.Second,
	}
}

// newTestClient builds a client whose backoff sleeps are recorded instead of
// executed and whose jitter draw is fixed at the midpoint.
func newTestClient(cfg config.ProviderConfig) (*Client, *[]time.Duration) {
	c := NewClient(cfg, nil, nil)
	sleeps := &[]time.Duration{}
	c.sleep = func(ctx context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return ctx.Err()
	}
	c.randFloat = func() float64 { return 0.5 }
	return c, sleeps
}

func TestClientRetriesTransientStatusesWithExponentialBackoff(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client, sleeps := newTestClient(testProviderConfig(server.URL))

	data, err := client.GetJSON(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"ok": true}, data)

	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, *sleeps)
}

func TestClientFailsAfterRetriesExhausted(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := testProviderConfig(server.URL)
	cfg.MaxRetries = 1
	client, sleeps := newTestClient(cfg)

	_, err := client.GetJSON(context.Background(), server.URL)
	require.Error(t, err)

	var upstreamErr *UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, http.StatusTooManyRequests, upstreamErr.StatusCode)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "one retry allowed")
	assert.Len(t, *sleeps, 1)
}

func TestClientDoesNotRetryNonRetryableStatus(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client, sleeps := newTestClient(testProviderConfig(server.URL))

	_, err := client.GetJSON(context.Background(), server.URL)
	require.Error(t, err)

	var upstreamErr *UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, http.StatusNotFound, upstreamErr.StatusCode)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Empty(t, *sleeps)
}

func TestClientRetriesTransportErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close() // every request now fails at the transport level

	cfg := testProviderConfig(url)
	cfg.MaxRetries = 2
	client, sleeps := newTestClient(cfg)

	_, err := client.GetJSON(context.Background(), url)
	require.Error(t, err)

	var upstreamErr *UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Zero(t, upstreamErr.StatusCode)
	assert.Error(t, upstreamErr.Unwrap())

	assert.Len(t, *sleeps, 2, "final attempt fails without another backoff")
}

func TestClientRejectsInvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	client, _ := newTestClient(testProviderConfig(server.URL))

	_, err := client.GetJSON(context.Background(), server.URL)
	require.Error(t, err)

	var upstreamErr *UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Contains(t, upstreamErr.Message, "invalid JSON")
}

func TestClientPropagatesCancellationDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(testProviderConfig(server.URL), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	client.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := client.GetJSON(ctx, server.URL)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryPolicyDelay(t *testing.T) {
	policy := RetryPolicy{
		BaseDelay:         time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
		JitterRange:       0.1,
	}
	midpoint := func() float64 { return 0.5 }

	tests := []struct {
		name    string
		attempt int
		rnd     func() float64
		want    time.Duration
	}{
		{name: "first attempt no jitter", attempt: 0, rnd: midpoint, want: time.Second},
		{name: "second attempt doubles", attempt: 1, rnd: midpoint, want: 2 * time.Second},
		{name: "third attempt doubles again", attempt: 2, rnd: midpoint, want: 4 * time.Second},
		{name: "capped at max delay", attempt: 10, rnd: midpoint, want: 30 * time.Second},
		{name: "negative jitter extreme", attempt: 0, rnd: func() float64 { return 0 }, want: 900 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Delay(tt.attempt, tt.rnd))
		})
	}
}

func TestRetryPolicyDelayStaysWithinJitterBounds(t *testing.T) {
	policy := RetryPolicy{
		BaseDelay:         time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
		JitterRange:       0.25,
	}

	for i := 0; i < 100; i++ {
		d := policy.Delay(1, func() float64 { return float64(i) / 100 })
		assert.GreaterOrEqual(t, d, 1500*time.Millisecond)
		assert.LessOrEqual(t, d, 2500*time.Millisecond)
	}
}
