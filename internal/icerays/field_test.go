package icerays

import (
	"errors"
	"fmt"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestNodalFieldLinearIsExact(t *testing.T) {
	g := unitGrid(t, 4)
	f := NewNodalField(g, PlaneProfile(r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, r3.Vec{X: 2}, 1))
	for _, p := range []r3.Vec{{X: 0.1, Y: 0.2, Z: 0.3}, {X: 0.5, Y: 0.5, Z: 0.5}, {X: 0.93, Y: 0.01, Z: 0.77}} {
		c, ok := g.Locate(p, r3.Vec{X: 1})
		if !ok {
			t.Fatalf("%v not located", p)
		}
		s := f.Sampler(c)
		if v := s.Value(p); !nearly(v, p.X, 1e-12) {
			t.Fatalf("value at %v = %g, want %g", p, v, p.X)
		}
		if gr := s.Gradient(p); !vecAlmostEq(gr, r3.Vec{X: 1}, 1e-12) {
			t.Fatalf("gradient at %v = %v", p, gr)
		}
	}
}

func TestNodalFieldTrilinear(t *testing.T) {
	g := unitGrid(t, 1)
	f := NewNodalField(g, func(p r3.Vec) Real { return p.X * p.Y * p.Z })
	s := f.Sampler(g.Cell(0))
	p := r3.Vec{X: 0.5, Y: 0.25, Z: 0.75}
	if v := s.Value(p); !nearly(v, 0.5*0.25*0.75, 1e-12) {
		t.Fatalf("xyz at %v = %g", p, v)
	}
	if gr := s.Gradient(p); !vecAlmostEq(gr, r3.Vec{X: 0.25 * 0.75, Y: 0.5 * 0.75, Z: 0.5 * 0.25}, 1e-12) {
		t.Fatalf("gradient = %v", gr)
	}
}

func TestSamplerOutsideElementPanics(t *testing.T) {
	g := unitGrid(t, 2)
	f := NewNodalField(g, SphereProfile(r3.Vec{}, 0.5, 0.1))
	s := f.Sampler(g.Cell(0))
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrPrecondition) {
			t.Fatalf("want a precondition panic, got %v", r)
		}
	}()
	s.Value(r3.Vec{X: 0.9, Y: 0.9, Z: 0.9})
}

func TestSamplerRejectsForeignElement(t *testing.T) {
	g := unitGrid(t, 1)
	f := NewNodalField(g, SphereProfile(r3.Vec{}, 0.5, 0.1))
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("foreign element accepted")
		} else if err, ok := r.(error); !ok || !errors.Is(err, ErrPrecondition) {
			t.Fatalf("unexpected panic %v", r)
		}
	}()
	f.Sampler(testElem{})
}

func TestProfiles(t *testing.T) {
	c := r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}
	tests := []struct {
		profile Profile
		p       r3.Vec
		want    Real
		tol     Real
	}{
		{PlaneProfile(c, r3.Vec{Y: 1}, 0.1), c, 0.5, 1e-12},
		{PlaneProfile(c, r3.Vec{Y: 1}, 0.1), r3.Vec{X: 0.5, Y: 0.6, Z: 0.5}, 1.5, 1e-12},
		{SphereProfile(c, 0.25, 0.01), c, 1, 1e-9},
		{SphereProfile(c, 0.25, 0.01), r3.Vec{X: 0.75, Y: 0.5, Z: 0.5}, 0.5, 1e-12},
		{SphereProfile(c, 0.25, 0.01), r3.Vec{}, 0, 1e-9},
		{SlabProfile(c, r3.Vec{Z: 3}, 0.1, 0.01), c, 1, 1e-8},
		{SlabProfile(c, r3.Vec{Z: 3}, 0.1, 0.01), r3.Vec{X: 0.5, Y: 0.5, Z: 0.4}, 0.5, 1e-12},
		{SlabProfile(c, r3.Vec{Z: 3}, 0.1, 0.01), r3.Vec{X: 0.5, Y: 0.5, Z: 0.9}, 0, 1e-9},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			if got := tt.profile(tt.p); !nearly(got, tt.want, tt.tol) {
				t.Fatalf("profile(%v) = %g, want %g", tt.p, got, tt.want)
			}
		})
	}
}
