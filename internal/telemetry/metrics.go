package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	JobsAdmitted     = prometheus.NewCounter(prometheus.CounterOpts{Name: "reels_admitted_total", Help: "Jobs accepted into the queue"})
	JobsRejected     = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "reels_rejected_total", Help: "Admissions rejected"}, []string{"reason"})
	JobsCompleted    = prometheus.NewCounter(prometheus.CounterOpts{Name: "reels_completed_total", Help: "Jobs finished successfully"})
	JobsFailed       = prometheus.NewCounter(prometheus.CounterOpts{Name: "reels_failed_total", Help: "Job attempts that failed"})
	JobsRetried      = prometheus.NewCounter(prometheus.CounterOpts{Name: "reels_retried_total", Help: "Failed jobs re-admitted for retry"})
	FramesRendered   = prometheus.NewCounter(prometheus.CounterOpts{Name: "reels_frames_rendered_total", Help: "Frames produced by the renderer"})
	FramesDegraded   = prometheus.NewCounter(prometheus.CounterOpts{Name: "reels_frames_degraded_total", Help: "Frames substituted with the seed placeholder"})
	CostUnits        = prometheus.NewCounter(prometheus.CounterOpts{Name: "reels_cost_units_total", Help: "Accumulated render cost units"})
	WebhookFailures  = prometheus.NewCounter(prometheus.CounterOpts{Name: "reels_webhook_failures_total", Help: "Callback deliveries that failed"})
	RenderDuration   = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "reels_render_duration_seconds", Help: "Wall time of one render attempt", Buckets: prometheus.ExponentialBuckets(0.5, 2, 10)})
	RateLimitRejects = prometheus.NewCounter(prometheus.CounterOpts{Name: "reels_rate_limit_rejects_total", Help: "Requests rejected by the API rate limiter"})
)

// Handler exposes the /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			JobsAdmitted,
			JobsRejected,
			JobsCompleted,
			JobsFailed,
			JobsRetried,
			FramesRendered,
			FramesDegraded,
			CostUnits,
			WebhookFailures,
			RenderDuration,
			RateLimitRejects,
		)
	})
	return promhttp.Handler()
}
