package icerays

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()
	m.generate(3)
	m.segment()
	m.segment()
	m.interaction(SnellRefract)
	m.interaction(SnellInternalReflection)
	m.interaction(SnellRefract)
	m.spawn()
	m.suppress()
	m.retire(RetireExited)
	m.retire(RetireKilled)

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"generated", testutil.ToFloat64(m.generated), 3},
		{"segments", testutil.ToFloat64(m.segments), 2},
		{"refract", testutil.ToFloat64(m.interactions.WithLabelValues("refract")), 2},
		{"internal reflection", testutil.ToFloat64(m.interactions.WithLabelValues("internal_reflection")), 1},
		{"spawned", testutil.ToFloat64(m.spawned), 1},
		{"suppressed", testutil.ToFloat64(m.suppressed), 1},
		{"exited", testutil.ToFloat64(m.retired.WithLabelValues("exited")), 1},
		{"killed", testutil.ToFloat64(m.retired.WithLabelValues("killed")), 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Fatalf("%s = %g, want %g", c.name, c.got, c.want)
		}
	}
	if n := testutil.CollectAndCount(m.retired); n != 2 {
		t.Fatalf("retired has %d series, want 2", n)
	}
}

func TestMetricsNil(t *testing.T) {
	var m *Metrics
	m.generate(1)
	m.segment()
	m.interaction(SnellParallel)
	m.spawn()
	m.suppress()
	m.retire(RetireSegmentLimit)
}

func TestMetricsWriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.generate(16)
	m.retire(RetireExited)
	path := filepath.Join(t.TempDir(), "metrics.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"icerays_rays_generated_total 16",
		`icerays_rays_retired_total{reason="exited"} 1`,
		"# HELP icerays_segments_total",
	} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("metrics file lacks %q:\n%s", want, data)
		}
	}
}
