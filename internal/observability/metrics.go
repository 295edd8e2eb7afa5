package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	adminRequestsTotal   *prometheus.CounterVec
	adminLatencySeconds  *prometheus.HistogramVec
	adminErrorsTotal     *prometheus.CounterVec
	shipmentsCreated     *prometheus.CounterVec
	statusSyncsTotal     *prometheus.CounterVec
	messagesPostedTotal  *prometheus.CounterVec
	uploadRequestsTotal  *prometheus.CounterVec
	uploadRejectedTotal  *prometheus.CounterVec
	uploadLatencySeconds prometheus.Histogram
	notificationsTotal   *prometheus.CounterVec
	loginAttemptsTotal   *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors exported by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		adminRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_requests_total",
			Help: "Total number of admin API requests served.",
		}, []string{"method", "route", "status"})

		adminLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "admin_latency_seconds",
			Help:    "Latency distribution for admin API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		adminErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_errors_total",
			Help: "Total number of error responses returned by admin endpoints.",
		}, []string{"method", "route", "status"})

		shipmentsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shipments_created_total",
			Help: "Shipments registered, split by how they were created.",
		}, []string{"source"})

		statusSyncsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shipment_status_syncs_total",
			Help: "Shipment status recomputations after event mutations.",
		}, []string{"trigger", "changed"})

		messagesPostedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shipment_messages_posted_total",
			Help: "Chat messages appended to shipment threads.",
		}, []string{"sender"})

		uploadRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "upload_requests_total",
			Help: "Accepted attachment uploads by detected type.",
		}, []string{"type"})

		uploadRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "upload_rejected_total",
			Help: "Rejected attachment uploads by reason.",
		}, []string{"reason"})

		uploadLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "upload_latency_seconds",
			Help:    "Time spent validating and storing uploads.",
			Buckets: prometheus.DefBuckets,
		})

		notificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shipment_notifications_total",
			Help: "Customer notification emails by outcome.",
		}, []string{"outcome"})

		loginAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Back-office sign-in attempts by outcome.",
		}, []string{"outcome"})

		prometheus.MustRegister(
			adminRequestsTotal,
			adminLatencySeconds,
			adminErrorsTotal,
			shipmentsCreated,
			statusSyncsTotal,
			messagesPostedTotal,
			uploadRequestsTotal,
			uploadRejectedTotal,
			uploadLatencySeconds,
			notificationsTotal,
			loginAttemptsTotal,
		)
	})
}

// AdminRequests exposes the counter for admin requests.
func AdminRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return adminRequestsTotal
}

// AdminLatency exposes the latency histogram for admin requests.
func AdminLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return adminLatencySeconds
}

// AdminErrors exposes the counter for admin error responses.
func AdminErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return adminErrorsTotal
}

// ShipmentsCreated counts new shipments by source (create, clone).
func ShipmentsCreated() *prometheus.CounterVec {
	RegisterMetrics()
	return shipmentsCreated
}

// StatusSyncs counts status recomputations by trigger and whether the status moved.
func StatusSyncs() *prometheus.CounterVec {
	RegisterMetrics()
	return statusSyncsTotal
}

// MessagesPosted counts chat messages by sender.
func MessagesPosted() *prometheus.CounterVec {
	RegisterMetrics()
	return messagesPostedTotal
}

// UploadRequests counts accepted uploads.
func UploadRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRequestsTotal
}

// UploadRejected counts rejected uploads.
func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejectedTotal
}

// UploadLatency exposes the upload latency histogram.
func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatencySeconds
}

// Notifications counts notification emails.
func Notifications() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsTotal
}

// LoginAttempts counts sign-in attempts.
func LoginAttempts() *prometheus.CounterVec {
	RegisterMetrics()
	return loginAttemptsTotal
}
