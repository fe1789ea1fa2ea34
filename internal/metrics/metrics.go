// Package metrics provides Prometheus metrics for memfs.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fruitsalade/memfs/pkg/namespace"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memfs_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "memfs_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Namespace operation metrics
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memfs_operations_total",
			Help: "Total namespace operations by result",
		},
		[]string{"op", "result"},
	)

	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "memfs_operation_duration_seconds",
			Help:    "Namespace operation duration in seconds",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"op"},
	)

	entitiesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "memfs_entities",
			Help: "Number of entities in the namespace, drives included",
		},
	)

	contentBytesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "memfs_content_bytes_written_total",
			Help: "Total bytes written to text files",
		},
	)

	// Snapshot metrics
	snapshotBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memfs_snapshot_bytes_total",
			Help: "Total encoded snapshot bytes moved to or from a store",
		},
		[]string{"direction"},
	)

	snapshotEntities = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "memfs_snapshot_entities",
			Help: "Entities in the last snapshot saved or loaded",
		},
		[]string{"direction"},
	)

	// Storage backend metrics
	storageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "memfs_storage_operation_duration_seconds",
			Help:    "Storage backend operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	storageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memfs_storage_operations_total",
			Help: "Total storage backend operations",
		},
		[]string{"backend", "operation", "status"},
	)

	storageRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memfs_storage_retries_total",
			Help: "Storage operations retried after a transient failure",
		},
		[]string{"operation"},
	)

	// Database metrics
	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "memfs_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)

	// SSE metrics
	sseConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "memfs_sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)

	sseEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memfs_sse_events_total",
			Help: "Total SSE events published",
		},
		[]string{"type"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordOperation records a namespace operation. result is "ok" or an
// error code from namespace.ErrorCode.
func RecordOperation(op, result string, duration time.Duration) {
	operationsTotal.WithLabelValues(op, result).Inc()
	operationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// SetEntities sets the current entity count.
func SetEntities(count int) {
	entitiesTotal.Set(float64(count))
}

// RecordContentWrite records bytes written to a text file.
func RecordContentWrite(bytes int64) {
	contentBytesWritten.Add(float64(bytes))
}

// RecordSnapshot records an encoded snapshot moving in direction "save" or
// "load".
func RecordSnapshot(direction string, bytes int64, entities int) {
	snapshotBytes.WithLabelValues(direction).Add(float64(bytes))
	snapshotEntities.WithLabelValues(direction).Set(float64(entities))
}

// RecordStorageOperation records a storage backend call.
func RecordStorageOperation(backend, operation string, duration time.Duration, success bool) {
	storageOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	status := "success"
	if !success {
		status = "error"
	}
	storageOperationsTotal.WithLabelValues(backend, operation, status).Inc()
}

// RecordStorageRetry records a retried storage operation.
func RecordStorageRetry(operation string) {
	storageRetriesTotal.WithLabelValues(operation).Inc()
}

// RecordDBQuery records a database query duration.
func RecordDBQuery(query string, duration time.Duration) {
	dbQueryDuration.WithLabelValues(query).Observe(duration.Seconds())
}

// SetSSEConnectionsActive sets the number of active SSE connections.
func SetSSEConnectionsActive(count int64) {
	sseConnectionsActive.Set(float64(count))
}

// RecordSSEEvent records an SSE event publication.
func RecordSSEEvent(eventType string) {
	sseEventsTotal.WithLabelValues(eventType).Inc()
}

// Observer returns a namespace observer that records every operation.
func Observer() namespace.Observer {
	return namespace.ObserverFunc(func(ev namespace.Event) {
		RecordOperation(string(ev.Op), namespace.ErrorCode(ev.Err), ev.Duration)
		if ev.Err != nil {
			return
		}
		if ev.Op == namespace.OpWrite {
			RecordContentWrite(ev.Size)
		}
		SetEntities(ev.Entities)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware returns HTTP middleware that records request metrics. Requests
// are labelled by route pattern to keep cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		RecordHTTPRequest(r.Method, path, rw.statusCode, time.Since(start))
	})
}
