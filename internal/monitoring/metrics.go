package monitoring

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Store metrics
	StoreFailures       *prometheus.CounterVec
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	// Business metrics
	ReviewsCreated   prometheus.Counter
	RepliesCreated   prometheus.Counter
	PhotosUploaded   *prometheus.CounterVec
	UploadBytes      prometheus.Histogram
	UploadsRejected  *prometheus.CounterVec
	SavesRecorded    prometheus.Counter
}

var (
	metrics  *Metrics
	initOnce sync.Once
)

// Init initializes all Prometheus metrics
func Init() *Metrics {
	initOnce.Do(func() {
		metrics = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request duration in seconds",
					Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
				},
				[]string{"method", "path"},
			),
			HTTPRequestsInFlight: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "http_requests_in_flight",
					Help: "Number of HTTP requests currently being processed",
				},
			),

			StoreFailures: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "store_failures_total",
					Help: "Total number of failed store operations",
				},
				[]string{"operation"},
			),
			DBConnectionsActive: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "db_connections_active",
					Help: "Number of active database connections",
				},
			),
			DBConnectionsIdle: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "db_connections_idle",
					Help: "Number of idle database connections",
				},
			),

			ReviewsCreated: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "reviews_created_total",
					Help: "Total number of reviews created",
				},
			),
			RepliesCreated: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "replies_created_total",
					Help: "Total number of owner replies created",
				},
			),
			PhotosUploaded: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "photos_uploaded_total",
					Help: "Total number of photos stored",
				},
				[]string{"content_type"},
			),
			UploadBytes: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "photo_upload_bytes",
					Help:    "Size of stored photos in bytes",
					Buckets: prometheus.ExponentialBuckets(16*1024, 2, 10),
				},
			),
			UploadsRejected: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "photo_uploads_rejected_total",
					Help: "Total number of photo uploads rejected",
				},
				[]string{"kind"},
			),
			SavesRecorded: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "saves_recorded_total",
					Help: "Total number of saves recorded",
				},
			),
		}
	})
	return metrics
}

// Get returns the global metrics instance
func Get() *Metrics {
	return Init()
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// MetricsMiddleware is a Gin middleware for collecting HTTP metrics
func MetricsMiddleware() gin.HandlerFunc {
	m := Get()
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method

		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		duration := time.Since(start).Seconds()

		m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// RecordStoreFailure records a failed store call by operation name
func RecordStoreFailure(operation string) {
	Get().StoreFailures.WithLabelValues(operation).Inc()
}

// SetDBConnections sets database connection metrics
func SetDBConnections(active, idle int) {
	Get().DBConnectionsActive.Set(float64(active))
	Get().DBConnectionsIdle.Set(float64(idle))
}

func RecordReviewCreated() {
	Get().ReviewsCreated.Inc()
}

func RecordReplyCreated() {
	Get().RepliesCreated.Inc()
}

// RecordPhotoUploaded records one stored photo
func RecordPhotoUploaded(contentType string, size int64) {
	m := Get()
	m.PhotosUploaded.WithLabelValues(contentType).Inc()
	m.UploadBytes.Observe(float64(size))
}

// RecordUploadRejected records an upload rejected for the given error kind
func RecordUploadRejected(kind string) {
	Get().UploadsRejected.WithLabelValues(kind).Inc()
}

func RecordSave() {
	Get().SavesRecorded.Inc()
}
