package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the operation pipeline.
// A fresh instance is registered per Application so independent instances
// (for example in tests) never cross-contaminate.
type Metrics struct {
	OperationResults *prometheus.CounterVec
	UpstreamRequests *prometheus.CounterVec
	UpstreamRetries  *prometheus.CounterVec
	UpstreamLatency  prometheus.Histogram
	RateLimitWait    prometheus.Histogram
}

// NewMetrics creates and registers the pipeline metrics on the given
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		OperationResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ligaproxy",
			Name:      "operation_results_total",
			Help:      "Operation executions by operation name and outcome code.",
		}, []string{"operation", "outcome"}),
		UpstreamRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ligaproxy",
			Name:      "upstream_requests_total",
			Help:      "Upstream HTTP attempts by status class.",
		}, []string{"status"}),
		UpstreamRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ligaproxy",
			Name:      "upstream_retries_total",
			Help:      "Retry attempts against the upstream by trigger.",
		}, []string{"reason"}),
		UpstreamLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ligaproxy",
			Name:      "upstream_latency_seconds",
			Help:      "Latency of individual upstream HTTP attempts.",
			Buckets:   prometheus.DefBuckets,
		}),
		RateLimitWait: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ligaproxy",
			Name:      "rate_limit_wait_seconds",
			Help:      "Time spent waiting for an outbound rate limit slot.",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 15, 60},
		}),
	}
}
