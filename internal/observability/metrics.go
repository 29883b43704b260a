package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
	httpErrorsTotal       *prometheus.CounterVec
	authAttemptsTotal     *prometheus.CounterVec
	complaintsSubmitted   *prometheus.CounterVec
	complaintsResolved    *prometheus.CounterVec
	feedSubscribersActive prometheus.Gauge
	feedSnapshotsTotal    prometheus.Counter
	feedEventsTotal       *prometheus.CounterVec
	dashboardCacheTotal   *prometheus.CounterVec
	attachmentUploads     *prometheus.CounterVec
	attachmentRejected    *prometheus.CounterVec
	attachmentLatency     prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grievance_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		authAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_auth_attempts_total",
			Help: "Authentication operations by outcome.",
		}, []string{"operation", "outcome"})

		complaintsSubmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_complaints_submitted_total",
			Help: "Complaints lodged, by category.",
		}, []string{"category"})

		complaintsResolved = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_complaints_resolved_total",
			Help: "Complaints resolved, by resolver role.",
		}, []string{"role"})

		feedSubscribersActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "grievance_feed_subscribers_active",
			Help: "Number of live complaint feed subscribers.",
		})

		feedSnapshotsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grievance_feed_snapshots_total",
			Help: "Complaint snapshots delivered to live subscribers.",
		})

		feedEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_feed_events_total",
			Help: "Change events handled by the complaint feed, by origin.",
		}, []string{"origin"})

		dashboardCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_dashboard_cache_total",
			Help: "Dashboard cache lookups by result.",
		}, []string{"result"})

		attachmentUploads = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_attachment_uploads_total",
			Help: "Stored attachments by detected type.",
		}, []string{"type"})

		attachmentRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_attachment_rejected_total",
			Help: "Rejected attachments by reason.",
		}, []string{"reason"})

		attachmentLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "grievance_attachment_upload_seconds",
			Help:    "Time spent validating and storing attachments.",
			Buckets: prometheus.DefBuckets,
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			authAttemptsTotal,
			complaintsSubmitted,
			complaintsResolved,
			feedSubscribersActive,
			feedSnapshotsTotal,
			feedEventsTotal,
			dashboardCacheTotal,
			attachmentUploads,
			attachmentRejected,
			attachmentLatency,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// AuthAttempts exposes the authentication outcome counter.
func AuthAttempts() *prometheus.CounterVec {
	RegisterMetrics()
	return authAttemptsTotal
}

// ComplaintsSubmitted exposes the submission counter.
func ComplaintsSubmitted() *prometheus.CounterVec {
	RegisterMetrics()
	return complaintsSubmitted
}

// ComplaintsResolved exposes the resolution counter.
func ComplaintsResolved() *prometheus.CounterVec {
	RegisterMetrics()
	return complaintsResolved
}

// FeedSubscribers exposes the live subscriber gauge.
func FeedSubscribers() prometheus.Gauge {
	RegisterMetrics()
	return feedSubscribersActive
}

// FeedSnapshots exposes the delivered snapshot counter.
func FeedSnapshots() prometheus.Counter {
	RegisterMetrics()
	return feedSnapshotsTotal
}

// FeedEvents exposes the change event counter.
func FeedEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return feedEventsTotal
}

// DashboardCache exposes the dashboard cache lookup counter.
func DashboardCache() *prometheus.CounterVec {
	RegisterMetrics()
	return dashboardCacheTotal
}

// AttachmentUploads exposes the stored attachment counter.
func AttachmentUploads() *prometheus.CounterVec {
	RegisterMetrics()
	return attachmentUploads
}

// AttachmentRejected exposes the rejected attachment counter.
func AttachmentRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return attachmentRejected
}

// AttachmentLatency exposes the attachment processing histogram.
func AttachmentLatency() prometheus.Histogram {
	RegisterMetrics()
	return attachmentLatency
}
