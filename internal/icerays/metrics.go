package icerays

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts trace events on its own registry. A nil *Metrics records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	generated    prometheus.Counter
	segments     prometheus.Counter
	interactions *prometheus.CounterVec
	spawned      prometheus.Counter
	suppressed   prometheus.Counter
	retired      *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		generated: f.NewCounter(prometheus.CounterOpts{
			Name: "icerays_rays_generated_total",
			Help: "Rays created by the study before tracing",
		}),
		segments: f.NewCounter(prometheus.CounterOpts{
			Name: "icerays_segments_total",
			Help: "Segments handed to the kernel pipeline",
		}),
		interactions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "icerays_interactions_total",
			Help: "Interface crossings by Snell outcome",
		}, []string{"outcome"}),
		spawned: f.NewCounter(prometheus.CounterOpts{
			Name: "icerays_rays_spawned_total",
			Help: "Reflected rays created during the trace",
		}),
		suppressed: f.NewCounter(prometheus.CounterOpts{
			Name: "icerays_spawns_suppressed_total",
			Help: "Reflected rays not created because they would be under the kill threshold",
		}),
		retired: f.NewCounterVec(prometheus.CounterOpts{
			Name: "icerays_rays_retired_total",
			Help: "Rays that finished tracing by reason",
		}, []string{"reason"}),
	}
}

func (m *Metrics) generate(n int) {
	if m != nil {
		m.generated.Add(float64(n))
	}
}

func (m *Metrics) segment() {
	if m != nil {
		m.segments.Inc()
	}
}

func (m *Metrics) interaction(o SnellOutcome) {
	if m != nil {
		m.interactions.WithLabelValues(o.String()).Inc()
	}
}

func (m *Metrics) spawn() {
	if m != nil {
		m.spawned.Inc()
	}
}

func (m *Metrics) suppress() {
	if m != nil {
		m.suppressed.Inc()
	}
}

func (m *Metrics) retire(reason RetireReason) {
	if m != nil {
		m.retired.WithLabelValues(reason.String()).Inc()
	}
}

// WriteTextfile dumps the registry in the Prometheus text format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
