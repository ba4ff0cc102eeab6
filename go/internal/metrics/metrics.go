package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "courtside"

// Recorder collects scoreboard metrics into its own Prometheus registry.
// Every method is safe to call on a nil Recorder so components can run without metrics.
type Recorder struct {
	registry *prometheus.Registry

	publishes      *prometheus.CounterVec
	publishLatency prometheus.Histogram
	ticks          prometheus.Counter
	commands       *prometheus.CounterVec
	feedbackSent   *prometheus.CounterVec
	feedbackDrops  *prometheus.CounterVec
	connections    *prometheus.GaugeVec
	sessions       prometheus.Gauge
}

// NewRecorder creates a recorder with all collectors registered
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_writes_total",
			Help:      "Match document writes issued by the replicator, by result.",
		}, []string{"result"}),
		publishLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_write_duration_seconds",
			Help:      "Latency of match document writes.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clock_ticks_total",
			Help:      "Clock ticks processed across all host sessions.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Operator commands by kind and result.",
		}, []string{"kind", "result"}),
		feedbackSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_signals_total",
			Help:      "Feedback signals delivered to a sink, by kind and result.",
		}, []string{"kind", "result"}),
		feedbackDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_dropped_total",
			Help:      "Feedback signals dropped because the queue was full.",
		}, []string{"kind"}),
		connections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "viewer_connections",
			Help:      "Open viewer websocket connections by role.",
		}, []string{"role"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "host_sessions",
			Help:      "Open host sessions.",
		}),
	}

	r.registry.MustRegister(
		r.publishes,
		r.publishLatency,
		r.ticks,
		r.commands,
		r.feedbackSent,
		r.feedbackDrops,
		r.connections,
		r.sessions,
		prometheus.NewGoCollector(),
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// RecordPublish records one replicator write
func (r *Recorder) RecordPublish(duration time.Duration, err error) {
	if r == nil {
		return
	}
	r.publishes.WithLabelValues(result(err)).Inc()
	r.publishLatency.Observe(duration.Seconds())
}

// RecordTick records one processed clock tick
func (r *Recorder) RecordTick() {
	if r == nil {
		return
	}
	r.ticks.Inc()
}

// RecordCommand records one operator command
func (r *Recorder) RecordCommand(kind string, err error) {
	if r == nil {
		return
	}
	r.commands.WithLabelValues(kind, result(err)).Inc()
}

// RecordFeedback records delivery of a feedback signal to a sink
func (r *Recorder) RecordFeedback(kind string, err error) {
	if r == nil {
		return
	}
	r.feedbackSent.WithLabelValues(kind, result(err)).Inc()
}

// RecordFeedbackDropped records a signal dropped on a full queue
func (r *Recorder) RecordFeedbackDropped(kind string) {
	if r == nil {
		return
	}
	r.feedbackDrops.WithLabelValues(kind).Inc()
}

// ConnectionOpened increments the open connection gauge for a viewer role
func (r *Recorder) ConnectionOpened(role string) {
	if r == nil {
		return
	}
	r.connections.WithLabelValues(role).Inc()
}

// ConnectionClosed decrements the open connection gauge for a viewer role
func (r *Recorder) ConnectionClosed(role string) {
	if r == nil {
		return
	}
	r.connections.WithLabelValues(role).Dec()
}

func (r *Recorder) SessionOpened() {
	if r == nil {
		return
	}
	r.sessions.Inc()
}

func (r *Recorder) SessionClosed() {
	if r == nil {
		return
	}
	r.sessions.Dec()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
