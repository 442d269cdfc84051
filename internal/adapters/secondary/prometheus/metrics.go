package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"status-notification/internal/core/domain"
	ports "status-notification/internal/core/ports/output"
)

const namespace = "status_notification"

// Metrics implements ports.MetricsRecorder on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	heartbeats    *prometheus.CounterVec
	notifications *prometheus.CounterVec
	cycles        *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	subObjects    *prometheus.GaugeVec
	lastCycle     prometheus.Gauge
}

var _ ports.MetricsRecorder = (*Metrics)(nil)

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		heartbeats: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heartbeats_total",
			Help:      "Heartbeats received, by outcome.",
		}, []string{"outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications attempted, by kind and result.",
		}, []string{"kind", "result"}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watchdog_cycles_total",
			Help:      "Watchdog cycles run, by result.",
		}, []string{"result"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "watchdog_cycle_duration_seconds",
			Help:      "Time spent in one watchdog cycle.",
			Buckets:   prometheus.DefBuckets,
		}),
		subObjects: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sub_objects",
			Help:      "Sub-objects seen in the last watchdog cycle, by state.",
		}, []string{"state"}),
		lastCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watchdog_last_cycle_timestamp_seconds",
			Help:      "Unix time of the last completed watchdog cycle.",
		}),
	}

	m.registry.MustRegister(
		m.heartbeats,
		m.notifications,
		m.cycles,
		m.cycleDuration,
		m.subObjects,
		m.lastCycle,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) HeartbeatReceived(outcome string) {
	m.heartbeats.WithLabelValues(outcome).Inc()
}

func (m *Metrics) NotificationSent(kind string, err error) {
	m.notifications.WithLabelValues(kind, result(err)).Inc()
}

func (m *Metrics) CycleCompleted(stats domain.CycleStats, took time.Duration, err error) {
	m.cycles.WithLabelValues(result(err)).Inc()
	m.cycleDuration.Observe(took.Seconds())
	if err != nil {
		return
	}
	m.subObjects.WithLabelValues(string(domain.StatusActive)).Set(float64(stats.Active))
	m.subObjects.WithLabelValues(string(domain.StatusInactive)).Set(float64(stats.Inactive))
	m.subObjects.WithLabelValues("paused").Set(float64(stats.Paused))
	m.lastCycle.SetToCurrentTime()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
