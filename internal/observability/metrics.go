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
	gradesIssuedTotal     *prometheus.CounterVec
	notificationsTotal    *prometheus.CounterVec
	streamClientsGauge    prometheus.Gauge
	pointsAwardedTotal    *prometheus.CounterVec
	badgesAwardedTotal    prometheus.Counter
	dashboardCacheResults *prometheus.CounterVec
	aiRequestSeconds      *prometheus.HistogramVec
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecolearn_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ecolearn_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecolearn_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		gradesIssuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecolearn_grades_issued_total",
			Help: "Grades recorded by teachers, by letter grade.",
		}, []string{"letter"})

		notificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecolearn_notifications_published_total",
			Help: "Notifications published, by type.",
		}, []string{"type"})

		streamClientsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ecolearn_notification_stream_clients",
			Help: "Currently connected SSE and websocket notification clients.",
		})

		pointsAwardedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecolearn_points_awarded_total",
			Help: "Points granted to students, by reason.",
		}, []string{"reason"})

		badgesAwardedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ecolearn_badges_awarded_total",
			Help: "Badges awarded to students.",
		})

		dashboardCacheResults = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecolearn_dashboard_cache_total",
			Help: "Student dashboard cache lookups, by result.",
		}, []string{"result"})

		aiRequestSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ecolearn_ai_request_seconds",
			Help:    "AI provider latency, by operation and outcome.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
		}, []string{"operation", "outcome"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			gradesIssuedTotal,
			notificationsTotal,
			streamClientsGauge,
			pointsAwardedTotal,
			badgesAwardedTotal,
			dashboardCacheResults,
			aiRequestSeconds,
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

// GradesIssued counts grades by letter.
func GradesIssued() *prometheus.CounterVec {
	RegisterMetrics()
	return gradesIssuedTotal
}

// NotificationsPublished counts notifications by type.
func NotificationsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsTotal
}

// StreamClients tracks connected notification stream clients.
func StreamClients() prometheus.Gauge {
	RegisterMetrics()
	return streamClientsGauge
}

// PointsAwarded counts points granted by reason.
func PointsAwarded() *prometheus.CounterVec {
	RegisterMetrics()
	return pointsAwardedTotal
}

// BadgesAwarded counts badge awards.
func BadgesAwarded() prometheus.Counter {
	RegisterMetrics()
	return badgesAwardedTotal
}

// DashboardCache counts dashboard cache hits and misses.
func DashboardCache() *prometheus.CounterVec {
	RegisterMetrics()
	return dashboardCacheResults
}

// AIRequests observes AI provider calls; failures are the "error" outcome.
func AIRequests() *prometheus.HistogramVec {
	RegisterMetrics()
	return aiRequestSeconds
}
