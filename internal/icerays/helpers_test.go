package icerays

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func nearly(a, b, tol Real) bool { return math.Abs(a-b) <= tol }

func vecAlmostEq(a, b r3.Vec, tol Real) bool { return r3.Norm(r3.Sub(a, b)) <= tol }

// linearField is offset + grad·p everywhere, for any element.
type linearField struct {
	grad   r3.Vec
	offset Real
}

func (f linearField) Sampler(Element) FieldSampler { return f }
func (f linearField) Value(p r3.Vec) Real          { return f.offset + r3.Dot(f.grad, p) }
func (f linearField) Gradient(r3.Vec) r3.Vec       { return f.grad }

type testElem struct{ id int }

func (e testElem) ID() int                  { return e.id }
func (e testElem) Bounds() (r3.Vec, r3.Vec) { return r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1} }
func (e testElem) Contains(r3.Vec) bool     { return true }

// newTestContext returns a single-worker context over fields with a one-element tally.
func newTestContext(t *testing.T, fields FieldSource, groups int) *TraceContext {
	t.Helper()
	alloc, err := NewIdentityAllocator(SerialComm{}, 0, 1, 16)
	if err != nil {
		t.Fatalf("allocator: %v", err)
	}
	return &TraceContext{
		Block:   alloc.Block(0),
		Fields:  fields,
		Tally:   NewTally(1, groups),
		Metrics: NewMetrics(),
		Events:  NewEventLog(),
	}
}
