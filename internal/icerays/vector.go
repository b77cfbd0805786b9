package icerays

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// along returns p + t*d.
func along(p, d r3.Vec, t Real) r3.Vec { return r3.Add(p, r3.Scale(t, d)) }

// unit returns a unit-length version of v; the zero vector stays zero.
func unit(v r3.Vec) r3.Vec {
	l := r3.Norm(v)
	if l == 0 {
		return v
	}
	return r3.Scale(1/l, v)
}

// isUnit reports whether v has unit length within the fuzzy tolerance used for directions.
func isUnit(v r3.Vec) bool { return math.Abs(r3.Norm(v)-1) <= Tolerance }

func dist(a, b r3.Vec) Real { return r3.Norm(r3.Sub(b, a)) }

func vecFinite(v r3.Vec) bool { return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z) }

func component(v r3.Vec, axis int) Real {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

func setComponent(v *r3.Vec, axis int, x Real) {
	switch axis {
	case 0:
		v.X = x
	case 1:
		v.Y = x
	default:
		v.Z = x
	}
}
