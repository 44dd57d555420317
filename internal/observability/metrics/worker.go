package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	recognitionTotal    *prometheus.CounterVec
	recognitionDuration *prometheus.HistogramVec
	recognitionInFlight prometheus.Gauge
	queueLag            *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	recognitionTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "locus",
			Subsystem: "worker",
			Name:      "recognition_jobs_total",
			Help:      "Total recognition jobs by outcome.",
		},
		[]string{"service", "status"},
	)
	recognitionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "locus",
			Subsystem: "worker",
			Name:      "recognition_duration_seconds",
			Help:      "Recognition job duration in seconds by outcome.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	recognitionInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "locus",
			Subsystem: "worker",
			Name:      "recognition_in_flight",
			Help:      "Number of in-flight recognition jobs.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "locus",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between document upload and recognition start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	registry.MustRegister(recognitionTotal, recognitionDuration, recognitionInFlight, queueLag)

	return &WorkerMetrics{
		registry:            registry,
		recognitionTotal:    recognitionTotal,
		recognitionDuration: recognitionDuration,
		recognitionInFlight: recognitionInFlight,
		queueLag:            queueLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartRecognition() {
	m.recognitionInFlight.Inc()
}

func (m *WorkerMetrics) FinishRecognition(service string, duration time.Duration, err error) {
	m.recognitionInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.recognitionTotal.WithLabelValues(service, status).Inc()
	m.recognitionDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}
