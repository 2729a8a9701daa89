package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// 业务指标。Init 之前为 nil，调用方必须先 Init。
var (
	JobViewsTotal                     prometheus.Counter
	JobsCreatedTotal                  prometheus.Counter
	ApplicationsSubmittedTotal        prometheus.Counter
	ApplicationDuplicateRejectedTotal prometheus.Counter
	AuthRateLimitedTotal              prometheus.Counter
	RateLimitWaitDuration             prometheus.Histogram
)

var initOnce sync.Once

// Init 注册 Prometheus 指标。重复调用是安全的（幂等）。
func Init() {
	initOnce.Do(func() {
		JobViewsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobportal_job_views_total",
			Help: "Total counted job detail views.",
		})
		JobsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobportal_jobs_created_total",
			Help: "Total job postings created.",
		})
		ApplicationsSubmittedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobportal_applications_submitted_total",
			Help: "Total job applications accepted by the store.",
		})
		ApplicationDuplicateRejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobportal_application_duplicate_rejected_total",
			Help: "Applications rejected because a (job, user) record already existed.",
		})
		AuthRateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobportal_auth_rate_limited_total",
			Help: "Auth requests rejected by the IP rate limiter.",
		})
		RateLimitWaitDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "jobportal_rate_limit_check_seconds",
			Help:    "Latency of rate limiter checks.",
			Buckets: prometheus.DefBuckets,
		})

		prometheus.MustRegister(
			JobViewsTotal,
			JobsCreatedTotal,
			ApplicationsSubmittedTotal,
			ApplicationDuplicateRejectedTotal,
			AuthRateLimitedTotal,
			RateLimitWaitDuration,
		)
	})
}
