package provider

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// acquireMargin is added to every computed wait so the oldest recorded
// acquisition has definitely left the window when the waiter re-checks.
const acquireMargin = 100 * time.Millisecond

// SlidingWindowLimiter bounds outbound calls to at most maxRequests per
// trailing window. It is shared by all operation executions in the process;
// Acquire blocks the calling goroutine until a slot is free without holding
// the lock across the wait, so concurrent callers keep making progress.
//
// The limiter enforces only the aggregate ceiling, not FIFO fairness: a
// newly arriving caller may grab a slot freed by pruning before an earlier
// waiter wakes up.
type SlidingWindowLimiter struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	stamps      []time.Time

	logger *slog.Logger

	// Injection points for tests.
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewSlidingWindowLimiter creates a limiter admitting maxRequests per window.
func NewSlidingWindowLimiter(maxRequests int, window time.Duration, logger *slog.Logger) *SlidingWindowLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlidingWindowLimiter{
		maxRequests: maxRequests,
		window:      window,
		logger:      logger.With(slog.String("component", "rate_limiter")),
		now:         time.Now,
		sleep:       sleepContext,
	}
}

// Acquire blocks until a slot is available inside the trailing window, then
// reserves it. It returns early with the context error if ctx is cancelled
// while waiting. There is no upper bound on the wait; callers arriving
// faster than the window drains simply queue up (back-pressure).
func (l *SlidingWindowLimiter) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()

		cut := 0
		for cut < len(l.stamps) && now.Sub(l.stamps[cut]) >= l.window {
			cut++
		}
		if cut > 0 {
			l.stamps = append(l.stamps[:0], l.stamps[cut:]...)
		}

		if len(l.stamps) < l.maxRequests {
			l.stamps = append(l.stamps, now)
			l.mu.Unlock()
			return nil
		}

		// Wait until the oldest recorded acquisition leaves the window,
		// then re-check: another caller may have taken the slot meanwhile.
		wait := l.window - now.Sub(l.stamps[0]) + acquireMargin
		l.mu.Unlock()

		l.logger.DebugContext(ctx, "waiting for rate limit slot",
			slog.Duration("sleep_time", wait))

		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// InFlight returns how many acquisitions are currently recorded inside the
// trailing window.
func (l *SlidingWindowLimiter) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	count := 0
	for _, ts := range l.stamps {
		if now.Sub(ts) < l.window {
			count++
		}
	}
	return count
}

// sleepContext sleeps for d or until the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
