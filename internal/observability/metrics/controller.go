package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okulov/classify-console/internal/core/domain"
)

// ControllerMetrics observes job-controller activity: stream frames, job
// outcomes, save results and stall warnings. One registry per process.
type ControllerMetrics struct {
	registry *prometheus.Registry

	framesTotal        *prometheus.CounterVec
	jobsTotal          *prometheus.CounterVec
	jobDuration        *prometheus.HistogramVec
	savesTotal         *prometheus.CounterVec
	saveDuration       prometheus.Histogram
	stallWarningsTotal prometheus.Counter
}

func NewControllerMetrics(service string) *ControllerMetrics {
	registry := prometheus.NewRegistry()

	framesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "classify",
			Subsystem: "stream",
			Name:      "frames_total",
			Help:      "Total stream frames received, by event kind.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
		[]string{"kind"},
	)
	jobsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "classify",
			Subsystem: "jobs",
			Name:      "finished_total",
			Help:      "Total finished jobs, by terminal outcome.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
		[]string{"outcome"},
	)
	jobDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "classify",
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "Job duration from submission to terminal state.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
		[]string{"outcome"},
	)
	savesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "classify",
			Subsystem: "saves",
			Name:      "total",
			Help:      "Total edit-save attempts, by resulting status.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
		[]string{"status"},
	)
	saveDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "classify",
			Subsystem: "saves",
			Name:      "duration_seconds",
			Help:      "Edit-save round-trip duration in seconds.",
			Buckets:   prometheus.DefBuckets,
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	stallWarningsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "classify",
			Subsystem: "stream",
			Name:      "stall_warnings_total",
			Help:      "Total watchdog warnings for a silent stream.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(framesTotal, jobsTotal, jobDuration, savesTotal, saveDuration, stallWarningsTotal)

	return &ControllerMetrics{
		registry:           registry,
		framesTotal:        framesTotal,
		jobsTotal:          jobsTotal,
		jobDuration:        jobDuration,
		savesTotal:         savesTotal,
		saveDuration:       saveDuration,
		stallWarningsTotal: stallWarningsTotal,
	}
}

func (m *ControllerMetrics) FrameObserved(kind domain.EventKind) {
	label := string(kind)
	if !kind.Known() {
		// One bucket for whatever new kinds the backend starts emitting.
		label = "unknown"
	}
	m.framesTotal.WithLabelValues(label).Inc()
}

func (m *ControllerMetrics) JobFinished(outcome domain.JobStatus, elapsed time.Duration) {
	m.jobsTotal.WithLabelValues(string(outcome)).Inc()
	m.jobDuration.WithLabelValues(string(outcome)).Observe(elapsed.Seconds())
}

func (m *ControllerMetrics) SaveObserved(status domain.SaveStatus, elapsed time.Duration) {
	m.savesTotal.WithLabelValues(string(status)).Inc()
	if status == domain.SaveSaved || status == domain.SaveError {
		m.saveDuration.Observe(elapsed.Seconds())
	}
}

func (m *ControllerMetrics) StallWarned() {
	m.stallWarningsTotal.Inc()
}

func (m *ControllerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
