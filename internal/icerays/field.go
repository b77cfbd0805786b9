package icerays

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Element is the host's mesh element: an id, a bounding box and point containment.
type Element interface {
	ID() int
	Bounds() (min, max r3.Vec)
	Contains(p r3.Vec) bool
}

// FieldSampler evaluates the phase field inside the element it was created for.
// Sampling outside that element is a contract violation and panics with a *PreconditionError.
type FieldSampler interface {
	Value(p r3.Vec) Real
	Gradient(p r3.Vec) r3.Vec
}

// FieldSource hands out samplers bound to one element.
type FieldSource interface {
	Sampler(elem Element) FieldSampler
}

// Profile is an analytic phase distribution used to initialise nodal values.
type Profile func(p r3.Vec) Real

// PlaneProfile is linear across a plane through center with unit normal n:
// 0.5 on the plane, growing by 1 every width along n (phase 1 on the +n side).
func PlaneProfile(center, n r3.Vec, width Real) Profile {
	n = unit(n)
	return func(p r3.Vec) Real {
		return 0.5 + r3.Dot(n, r3.Sub(p, center))/width
	}
}

// SphereProfile is a diffuse sphere: ~1 inside radius, ~0 outside, width sets the interface thickness.
func SphereProfile(center r3.Vec, radius, width Real) Profile {
	return func(p r3.Vec) Real {
		return 0.5 * (1 - math.Tanh((dist(center, p)-radius)/width))
	}
}

// SlabProfile is a diffuse layer of the given half thickness around a plane.
func SlabProfile(center, n r3.Vec, halfThickness, width Real) Profile {
	n = unit(n)
	return func(p r3.Vec) Real {
		return 0.5 * (1 - math.Tanh((math.Abs(r3.Dot(n, r3.Sub(p, center)))-halfThickness)/width))
	}
}

// NodalField is a continuous trilinear (Q1) field stored at grid nodes.
type NodalField struct {
	grid   *Grid
	values []Real // (Nx+1)*(Ny+1)*(Nz+1), k fastest
}

// NewNodalField samples profile at every node of g.
func NewNodalField(g *Grid, profile Profile) *NodalField {
	f := &NodalField{grid: g, values: make([]Real, (g.Nx+1)*(g.Ny+1)*(g.Nz+1))}
	for i := 0; i <= g.Nx; i++ {
		for j := 0; j <= g.Ny; j++ {
			for k := 0; k <= g.Nz; k++ {
				p := r3.Vec{
					X: g.Min.X + Real(i)*g.h.X,
					Y: g.Min.Y + Real(j)*g.h.Y,
					Z: g.Min.Z + Real(k)*g.h.Z,
				}
				f.values[f.node(i, j, k)] = profile(p)
			}
		}
	}
	return f
}

func (f *NodalField) node(i, j, k int) int {
	return (i*(f.grid.Ny+1)+j)*(f.grid.Nz+1) + k
}

// Sampler binds the field to a cell of its grid.
func (f *NodalField) Sampler(elem Element) FieldSampler {
	c, ok := elem.(Cell)
	if !ok {
		panic(&PreconditionError{What: fmt.Sprintf("nodal field cannot sample element %T", elem)})
	}
	s := &cellSampler{cell: c}
	for n := 0; n < 8; n++ {
		s.v[n] = f.values[f.node(c.I+n>>2&1, c.J+n>>1&1, c.K+n&1)]
	}
	return s
}

// cellSampler holds the 8 nodal values of one cell; corner n has offsets (n>>2, n>>1, n) & 1.
type cellSampler struct {
	cell Cell
	v    [8]Real
}

func (s *cellSampler) local(p r3.Vec) (x, y, z Real) {
	if !s.cell.Contains(p) {
		panic(&PreconditionError{What: fmt.Sprintf("point %+v is outside element %d", p, s.cell.id)})
	}
	lo, hi := s.cell.Bounds()
	clamp := func(t Real) Real { return math.Max(0, math.Min(1, t)) }
	x = clamp((p.X - lo.X) / (hi.X - lo.X))
	y = clamp((p.Y - lo.Y) / (hi.Y - lo.Y))
	z = clamp((p.Z - lo.Z) / (hi.Z - lo.Z))
	return x, y, z
}

func (s *cellSampler) Value(p r3.Vec) Real {
	x, y, z := s.local(p)
	var val Real
	for n := 0; n < 8; n++ {
		val += s.v[n] * weight(x, n>>2&1) * weight(y, n>>1&1) * weight(z, n&1)
	}
	return val
}

func (s *cellSampler) Gradient(p r3.Vec) r3.Vec {
	x, y, z := s.local(p)
	lo, hi := s.cell.Bounds()
	var gx, gy, gz Real
	for n := 0; n < 8; n++ {
		a, b, c := n>>2&1, n>>1&1, n&1
		gx += s.v[n] * dweight(a) * weight(y, b) * weight(z, c)
		gy += s.v[n] * weight(x, a) * dweight(b) * weight(z, c)
		gz += s.v[n] * weight(x, a) * weight(y, b) * dweight(c)
	}
	return r3.Vec{X: gx / (hi.X - lo.X), Y: gy / (hi.Y - lo.Y), Z: gz / (hi.Z - lo.Z)}
}

// 1D linear shape function and its derivative on [0,1].
func weight(t Real, side int) Real {
	if side == 1 {
		return t
	}
	return 1 - t
}

func dweight(side int) Real {
	if side == 1 {
		return 1
	}
	return -1
}
