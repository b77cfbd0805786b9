package icerays

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/spatial/r3"
)

// KernelKind names a per-segment behaviour.
type KernelKind uint8

const (
	KindThreshold KernelKind = iota
	KindInteraction
	KindDeposition
	KindFlux
)

var kindNames = map[KernelKind]string{
	KindThreshold:   "threshold",
	KindInteraction: "interaction",
	KindDeposition:  "deposition",
	KindFlux:        "flux",
}

func (k KernelKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kernel(%d)", uint8(k))
}

// ParseKernelKind maps a configured kernel name to its kind.
func ParseKernelKind(name string) (KernelKind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, configErrorf("unknown kernel %q", name)
}

// BoundaryHit is set on a segment that ends on the domain boundary.
// Faces has more than one entry on edges and corners.
type BoundaryHit struct {
	Faces []Face
}

// Segment is the part of a ray path inside one element, consumed once.
type Segment struct {
	Start, End r3.Vec
	Elem       Element
	Boundary   *BoundaryHit
}

func (s Segment) Length() Real { return dist(s.Start, s.End) }

// Kernel acts on a ray for one traced segment. It owns the ray only for the duration
// of the call and must not keep a reference to it.
type Kernel interface {
	Kind() KernelKind
	OnSegment(tc *TraceContext, ray *Ray, seg Segment) error
}

// Pipeline runs kernels in a fixed order for every segment.
type Pipeline []Kernel

// NewPipeline orders the available kernels; every kind in order must be in the table.
func NewPipeline(order []KernelKind, table map[KernelKind]Kernel) (Pipeline, error) {
	p := make(Pipeline, 0, len(order))
	seen := make(map[KernelKind]bool, len(order))
	for _, kind := range order {
		if seen[kind] {
			return nil, configErrorf("kernel %s listed twice", kind)
		}
		seen[kind] = true
		k, ok := table[kind]
		if !ok || k == nil {
			return nil, configErrorf("kernel %s is not available", kind)
		}
		p = append(p, k)
	}
	return p, nil
}

func (p Pipeline) OnSegment(tc *TraceContext, ray *Ray, seg Segment) error {
	for _, k := range p {
		if err := k.OnSegment(tc, ray, seg); err != nil {
			return fmt.Errorf("%s kernel on ray %d in element %d: %w", k.Kind(), ray.ID, seg.Elem.ID(), err)
		}
	}
	return nil
}

// TraceContext is the per-worker state handed to kernels: nothing in it is shared
// between workers except the tally, metrics and event log, which are safe for concurrent use.
type TraceContext struct {
	Worker  int
	Block   *IdentityBlock
	Fields  FieldSource
	Tally   *Tally
	Metrics *Metrics
	Events  *EventLog
	Logger  *slog.Logger

	spawned []*Ray
}

// Spawn queues a ray created during the trace; the worker traces it after the current one.
func (tc *TraceContext) Spawn(r *Ray) {
	tc.spawned = append(tc.spawned, r)
	tc.Metrics.spawn()
	tc.Events.Log(Spawn, r, r.Position)
}

func (tc *TraceContext) takeSpawned() []*Ray {
	s := tc.spawned
	tc.spawned = nil
	return s
}
