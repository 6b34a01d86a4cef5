package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aretw0/nexus-bootstrap/pkg/domain"
	"github.com/aretw0/nexus-bootstrap/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nexus_bootstrap"

// Metrics records the progress of a bootstrap run.
type Metrics struct {
	registry *prometheus.Registry

	commands        *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	stages          *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	heartbeats      prometheus.Counter
	lastHeartbeat   prometheus.Gauge
	nodeUp          prometheus.Gauge
	info            *prometheus.GaugeVec
}

var (
	_ ports.OutcomeObserver = (*Metrics)(nil)
	_ ports.HeartbeatSink   = (*Metrics)(nil)
	_ ports.StageObserver   = (*Metrics)(nil)
)

// NewMetrics creates and registers the bootstrap collectors plus the Go and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "External commands run, by stage and result.",
		}, []string{"stage", "result"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Duration of external commands.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"stage"}),
		stages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stages_total",
			Help:      "Completed bootstrap stages, by result and error kind.",
		}, []string{"stage", "result", "kind"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of bootstrap stages.",
			Buckets:   []float64{0.01, 0.1, 1, 10, 60, 300, 900},
		}, []string{"stage"}),
		heartbeats: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heartbeats_total",
			Help:      "Supervisor heartbeats emitted.",
		}),
		lastHeartbeat: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_heartbeat_timestamp_seconds",
			Help:      "Unix time of the latest heartbeat.",
		}),
		nodeUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "node_up",
			Help:      "1 while the node process is running.",
		}),
		info: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "info",
			Help:      "Detected environment and identity mode of this run.",
		}, []string{"environment", "mode"}),
	}

	m.registry.MustRegister(
		m.commands, m.commandDuration, m.stages, m.stageDuration,
		m.heartbeats, m.lastHeartbeat, m.nodeUp, m.info,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry backing Handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveOutcome implements ports.OutcomeObserver.
func (m *Metrics) ObserveOutcome(_ context.Context, o domain.CommandOutcome) {
	result := "success"
	switch {
	case o.TimedOut:
		result = "timeout"
	case o.ExitCode < 0:
		result = "error"
	case o.ExitCode != 0:
		result = "failure"
	}
	stage := string(o.Command.Stage)
	m.commands.WithLabelValues(stage, result).Inc()
	m.commandDuration.WithLabelValues(stage).Observe(o.Duration.Seconds())
}

// Beat implements ports.HeartbeatSink.
func (m *Metrics) Beat(_ context.Context, hb ports.Heartbeat) error {
	m.heartbeats.Inc()
	m.lastHeartbeat.Set(float64(hb.At.Unix()))
	m.SetNodeUp(hb.ChildAlive)
	return nil
}

// SetNodeUp flips the node_up gauge.
func (m *Metrics) SetNodeUp(up bool) {
	if up {
		m.nodeUp.Set(1)
		return
	}
	m.nodeUp.Set(0)
}

// SetInfo records the run's environment and mode.
func (m *Metrics) SetInfo(env domain.Environment, mode domain.Mode) {
	m.info.Reset()
	m.info.WithLabelValues(env.String(), string(mode)).Set(1)
}

// StageStarted implements ports.StageObserver.
func (m *Metrics) StageStarted(context.Context, domain.Stage) {}

// StageFinished implements ports.StageObserver.
func (m *Metrics) StageFinished(_ context.Context, stage domain.Stage, took time.Duration, err error) {
	result, kind := "success", ""
	if err != nil {
		result = "failure"
		if !domain.IsFatal(err) {
			result = "tolerated"
		}
		var se *domain.StageError
		if errors.As(err, &se) && se.Kind != nil {
			kind = se.Kind.Error()
		}
	}
	m.stages.WithLabelValues(string(stage), result, kind).Inc()
	m.stageDuration.WithLabelValues(string(stage)).Observe(took.Seconds())
}
