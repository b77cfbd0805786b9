package icerays

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"gonum.org/v1/gonum/spatial/r3"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type tracerSetup struct {
	grid   *Grid
	tracer *Tracer
	alloc  *IdentityAllocator
}

// newTracer builds a tracer over the unit cube with a plane interface at x=0.5
// (air for x < 0.5, ice beyond) and all four kernels.
func newTracer(t *testing.T, res, workers int, width Real, att0, att1 []Real, gate *ThresholdGate) tracerSetup {
	t.Helper()
	g := unitGrid(t, res)
	engine := newEngine(t, 1.0, 1.31, att0, att1, gate)
	pipeline, err := NewPipeline(
		[]KernelKind{KindThreshold, KindInteraction, KindDeposition, KindFlux},
		map[KernelKind]Kernel{
			KindThreshold:   &ThresholdKernel{Gate: gate},
			KindInteraction: engine,
			KindDeposition:  DepositionKernel{},
			KindFlux:        FluxKernel{},
		})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	alloc, err := NewIdentityAllocator(SerialComm{}, 1000, workers, 10000)
	if err != nil {
		t.Fatalf("NewIdentityAllocator: %v", err)
	}
	return tracerSetup{
		grid:  g,
		alloc: alloc,
		tracer: &Tracer{
			Grid:     g,
			Fields:   NewNodalField(g, PlaneProfile(r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, r3.Vec{X: 1}, width)),
			Pipeline: pipeline,
			Tally:    NewTally(g.NumCells(), len(att0)),
			Metrics:  NewMetrics(),
			Events:   NewEventLog(),
			Logger:   quietLogger,
		},
	}
}

func TestTraceNormalIncidence(t *testing.T) {
	s := newTracer(t, 4, 1, 1, []Real{0}, []Real{0}, nil)
	ray := NewRay(1, r3.Vec{Y: 0.3, Z: 0.3}, r3.Vec{X: 1}, []Real{1})

	recs, err := s.tracer.Trace(context.Background(), []*Ray{ray}, s.alloc)
	if err != nil {
		t.Fatalf("Trace: %v", err)
	}
	if len(recs) != 1 || recs[0].Ray != ray || recs[0].Reason != RetireExited {
		t.Fatalf("records %+v", recs)
	}
	if ray.Energy[0] != 1 || !nearly(ray.Distance, 1, 1e-12) {
		t.Fatalf("energy %v distance %g", ray.Energy, ray.Distance)
	}
	if !vecAlmostEq(ray.Position, r3.Vec{X: 1, Y: 0.3, Z: 0.3}, 1e-12) {
		t.Fatalf("final position %v", ray.Position)
	}
	tl := s.tracer.Tally
	if tl.FluxAt(FaceRight, 0) != 1 || tl.TotalFlux() != 1 {
		t.Fatalf("flux %v, want 1 through the right face", tl.Flux)
	}
	if !nearly(tl.TotalPathEnergy(), 1, 1e-12) {
		t.Fatalf("path energy %g, want 1", tl.TotalPathEnergy())
	}
	m := s.tracer.Metrics
	if got := testutil.ToFloat64(m.interactions.WithLabelValues("parallel")); got != 1 {
		t.Fatalf("parallel interactions %g", got)
	}
	if got := testutil.ToFloat64(m.segments); got != 5 {
		t.Fatalf("segments %g, want 5 (4 cells plus the redirect)", got)
	}
	if s.tracer.Events.Counts()[Exited] != 1 {
		t.Fatalf("events %v", s.tracer.Events.Counts())
	}
}

func TestTraceConservesEnergy(t *testing.T) {
	s := newTracer(t, 5, 3, 0.1, []Real{0.3}, []Real{1.5}, nil)
	study := &UniformStudy{
		Boundaries: []Face{FaceLeft},
		Direction:  r3.Vec{X: 1, Y: 0.1, Z: 0.05},
		Intensity:  []Real{1},
		Splits:     [][2]int{{4, 4}},
	}
	rays, _ := study.Generate(SerialComm{}, s.grid)
	var initial Real
	for _, r := range rays {
		initial += r.TotalEnergy()
	}

	recs, err := s.tracer.Trace(context.Background(), rays, s.alloc)
	if err != nil {
		t.Fatalf("Trace: %v", err)
	}
	if uint64(len(recs)) != uint64(len(rays))+s.alloc.Spawned() {
		t.Fatalf("%d records for %d rays and %d spawned", len(recs), len(rays), s.alloc.Spawned())
	}
	if s.alloc.Spawned() != 16 {
		t.Fatalf("spawned %d reflected rays, want one per generated ray", s.alloc.Spawned())
	}
	seen := map[uint64]bool{}
	for _, rec := range recs {
		if rec.Reason != RetireExited {
			t.Fatalf("ray %d retired as %s", rec.Ray.ID, rec.Reason)
		}
		if seen[rec.Ray.ID] {
			t.Fatalf("duplicate ray id %d", rec.Ray.ID)
		}
		seen[rec.Ray.ID] = true
		if rec.Ray.Generation > 0 && rec.Ray.ID <= s.alloc.MaxGenerated() {
			t.Fatalf("spawned ray %d reuses the generated id range", rec.Ray.ID)
		}
	}
	tl := s.tracer.Tally
	if got := tl.TotalFlux() + tl.TotalAbsorbed(); !nearly(got, initial, 1e-9*initial) {
		t.Fatalf("flux %g + absorbed %g = %g, want %g", tl.TotalFlux(), tl.TotalAbsorbed(), got, initial)
	}
	if tl.FluxAt(FaceLeft, 0) <= 0 || tl.TotalAbsorbed() <= 0 {
		t.Fatalf("no reflected flux or no absorption: left %g absorbed %g", tl.FluxAt(FaceLeft, 0), tl.TotalAbsorbed())
	}
}

func TestTraceInterfaceOnCellFaces(t *testing.T) {
	// the interface sits on the x=0.3 nodes, so every crossing lands on a segment end
	s := newTracer(t, 10, 2, 0.1, []Real{0}, []Real{0}, nil)
	s.tracer.Fields = NewNodalField(s.grid, PlaneProfile(r3.Vec{X: 0.3, Y: 0.5, Z: 0.5}, r3.Vec{X: 1}, 0.1))
	study := &UniformStudy{
		Boundaries: []Face{FaceLeft},
		Direction:  r3.Vec{X: 1, Y: 0.2, Z: 0.1},
		Intensity:  []Real{1},
		Splits:     [][2]int{{3, 3}},
	}
	rays, _ := study.Generate(SerialComm{}, s.grid)

	if _, err := s.tracer.Trace(context.Background(), rays, s.alloc); err != nil {
		t.Fatalf("Trace: %v", err)
	}
	if got := testutil.ToFloat64(s.tracer.Metrics.interactions.WithLabelValues("refract")); got != 9 {
		t.Fatalf("refract interactions = %g, want 9", got)
	}
	if s.alloc.Spawned() != 9 {
		t.Fatalf("spawned %d reflected rays, want 9", s.alloc.Spawned())
	}
}

func TestTraceSegmentLimit(t *testing.T) {
	s := newTracer(t, 4, 1, 1, []Real{0}, []Real{0}, nil)
	s.tracer.MaxSegments = 2
	ray := NewRay(1, r3.Vec{Y: 0.3, Z: 0.3}, r3.Vec{X: 1}, []Real{1})
	recs, err := s.tracer.Trace(context.Background(), []*Ray{ray}, s.alloc)
	if err != nil {
		t.Fatal(err)
	}
	if recs[0].Reason != RetireSegmentLimit || !nearly(ray.Position.X, 0.5, 1e-12) {
		t.Fatalf("reason %s at %v", recs[0].Reason, ray.Position)
	}
	if got := testutil.ToFloat64(s.tracer.Metrics.retired.WithLabelValues("segment_limit")); got != 1 {
		t.Fatalf("segment_limit retirements %g", got)
	}
}

func TestTraceKillsExhaustedRays(t *testing.T) {
	gate := &ThresholdGate{Threshold: []Real{0.5}}
	s := newTracer(t, 4, 2, 1, []Real{0}, []Real{5}, gate)
	ray := NewRay(1, r3.Vec{Y: 0.3, Z: 0.3}, r3.Vec{X: 1}, []Real{1})
	recs, err := s.tracer.Trace(context.Background(), []*Ray{ray}, s.alloc)
	if err != nil {
		t.Fatal(err)
	}
	if recs[0].Reason != RetireKilled || ray.Continue {
		t.Fatalf("reason %s continue %v", recs[0].Reason, ray.Continue)
	}
	if got := s.tracer.Tally.FluxAt(FaceRight, 0); got != 0 {
		t.Fatalf("killed ray reached the flux tally: %g", got)
	}
	if !nearly(s.tracer.Tally.TotalAbsorbed()+ray.TotalEnergy(), 1, 1e-12) {
		t.Fatalf("absorbed %g + left %g != 1", s.tracer.Tally.TotalAbsorbed(), ray.TotalEnergy())
	}
}

func TestTraceCancelled(t *testing.T) {
	s := newTracer(t, 4, 2, 1, []Real{0}, []Real{0}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rays := []*Ray{
		NewRay(1, r3.Vec{Y: 0.3, Z: 0.3}, r3.Vec{X: 1}, []Real{1}),
		NewRay(2, r3.Vec{Y: 0.6, Z: 0.3}, r3.Vec{X: 1}, []Real{1}),
	}
	if _, err := s.tracer.Trace(ctx, rays, s.alloc); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestTraceKernelError(t *testing.T) {
	s := newTracer(t, 4, 1, 1, []Real{0}, []Real{0}, nil)
	boom := errors.New("boom")
	var trace []KernelKind
	s.tracer.Pipeline = Pipeline{recordKernel{kind: KindFlux, trace: &trace, err: boom}}
	ray := NewRay(1, r3.Vec{Y: 0.3, Z: 0.3}, r3.Vec{X: 1}, []Real{1})
	if _, err := s.tracer.Trace(context.Background(), []*Ray{ray}, s.alloc); !errors.Is(err, boom) {
		t.Fatalf("want kernel error, got %v", err)
	}
}

func TestTraceStartOutsideDomain(t *testing.T) {
	s := newTracer(t, 2, 1, 1, []Real{0}, []Real{0}, nil)
	ray := NewRay(1, r3.Vec{X: -1}, r3.Vec{X: -1}, []Real{1})
	recs, err := s.tracer.Trace(context.Background(), []*Ray{ray}, s.alloc)
	if err != nil {
		t.Fatal(err)
	}
	if recs[0].Reason != RetireExited || ray.Distance != 0 || math.IsNaN(ray.Position.X) {
		t.Fatalf("ray outside the domain: %+v", recs[0])
	}
}

func TestRetireReasonString(t *testing.T) {
	for r, want := range map[RetireReason]string{RetireExited: "exited", RetireKilled: "killed", RetireSegmentLimit: "segment_limit"} {
		if r.String() != want {
			t.Fatalf("%d.String() = %q", r, r.String())
		}
	}
}
