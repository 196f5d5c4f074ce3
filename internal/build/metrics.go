package build

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records build measurements in a Prometheus registry. A nil
// *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	phaseDuration *prometheus.HistogramVec
	artifacts     *prometheus.CounterVec
	artifactBytes *prometheus.GaugeVec
}

// NewMetrics registers the build metrics in reg, or in a fresh registry
// when reg is nil.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		phaseDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "aadt",
			Subsystem: "build",
			Name:      "phase_duration_seconds",
			Help:      "Duration of each build phase in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"phase", "status"}),

		artifacts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aadt",
			Subsystem: "build",
			Name:      "artifacts_total",
			Help:      "Total number of packaged artifacts",
		}, []string{"target"}),

		artifactBytes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "aadt",
			Subsystem: "build",
			Name:      "artifact_size_bytes",
			Help:      "Size of the most recent artifact per target",
		}, []string{"target"}),
	}
}

// Registry returns the registry the metrics are registered in.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) observePhase(phase string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.phaseDuration.WithLabelValues(phase, status).Observe(d.Seconds())
}

func (m *Metrics) observeArtifact(target DistType, size int64) {
	if m == nil {
		return
	}
	m.artifacts.WithLabelValues(string(target)).Inc()
	m.artifactBytes.WithLabelValues(string(target)).Set(float64(size))
}

// WriteToTextfile writes the metrics in the text exposition format, for
// node_exporter's textfile collector.
func (m *Metrics) WriteToTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
