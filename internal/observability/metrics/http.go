package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	checklistSubmissionsTotal *prometheus.CounterVec
	approvalsTotal            *prometheus.CounterVec
	consumptionRejectedTotal  *prometheus.CounterVec
	documentUploadsTotal      *prometheus.CounterVec
	waitTimeoutsTotal         *prometheus.CounterVec
	projectActivationsTotal   *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "locus",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "locus",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "locus",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	checklistSubmissionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "locus",
			Subsystem: "checklist",
			Name:      "submissions_total",
			Help:      "Total submitted checklist completions by template type.",
		},
		[]string{"service", "type"},
	)
	approvalsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "locus",
			Subsystem: "checklist",
			Name:      "reviews_total",
			Help:      "Total inspector reviews by outcome.",
		},
		[]string{"service", "outcome"},
	)
	consumptionRejectedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "locus",
			Subsystem: "ledger",
			Name:      "consumption_rejected_total",
			Help:      "Total consumption reports rejected for insufficient balance.",
		},
		[]string{"service"},
	)
	documentUploadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "locus",
			Subsystem: "documents",
			Name:      "uploads_total",
			Help:      "Total delivery documents accepted for recognition.",
		},
		[]string{"service", "mime"},
	)
	waitTimeoutsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "locus",
			Subsystem: "documents",
			Name:      "wait_timeouts_total",
			Help:      "Total long-poll status requests that timed out before recognition finished.",
		},
		[]string{"service"},
	)
	projectActivationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "locus",
			Subsystem: "projects",
			Name:      "activations_total",
			Help:      "Total project activations.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		checklistSubmissionsTotal,
		approvalsTotal,
		consumptionRejectedTotal,
		documentUploadsTotal,
		waitTimeoutsTotal,
		projectActivationsTotal,
	)

	return &HTTPServerMetrics{
		registry:                  registry,
		requestTotal:              requestTotal,
		requestDuration:           requestDuration,
		requestInFlight:           requestInFlight,
		checklistSubmissionsTotal: checklistSubmissionsTotal,
		approvalsTotal:            approvalsTotal,
		consumptionRejectedTotal:  consumptionRejectedTotal,
		documentUploadsTotal:      documentUploadsTotal,
		waitTimeoutsTotal:         waitTimeoutsTotal,
		projectActivationsTotal:   projectActivationsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath collapses resource identifiers so the path label stays low-cardinality.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/projects/"):
		return "/v1/projects/{id}" + trailingAction(path, "/v1/projects/")
	case strings.HasPrefix(path, "/v1/checklists/"):
		return "/v1/checklists/{id}" + trailingAction(path, "/v1/checklists/")
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{id}" + trailingAction(path, "/v1/documents/")
	case strings.HasPrefix(path, "/v1/work-items/"):
		return "/v1/work-items/{id}" + trailingAction(path, "/v1/work-items/")
	default:
		return path
	}
}

func trailingAction(path, prefix string) string {
	rest := strings.TrimPrefix(path, prefix)
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		return rest[idx:]
	}
	return ""
}

func (m *HTTPServerMetrics) RecordChecklistSubmission(service, templateType string) {
	if templateType == "" {
		templateType = "unknown"
	}
	m.checklistSubmissionsTotal.WithLabelValues(service, templateType).Inc()
}

func (m *HTTPServerMetrics) RecordReview(service, outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.approvalsTotal.WithLabelValues(service, outcome).Inc()
}

func (m *HTTPServerMetrics) RecordConsumptionRejected(service string) {
	m.consumptionRejectedTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordDocumentUpload(service, mime string) {
	if mime == "" {
		mime = "unknown"
	}
	m.documentUploadsTotal.WithLabelValues(service, mime).Inc()
}

func (m *HTTPServerMetrics) RecordRecognitionWaitTimeout(service string) {
	m.waitTimeoutsTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordProjectActivation(service string) {
	m.projectActivationsTotal.WithLabelValues(service).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
