package icerays

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// SnellOutcome classifies what happens to a ray at an interface.
type SnellOutcome uint8

const (
	SnellInternalReflection SnellOutcome = iota // beyond the critical angle, nothing is transmitted
	SnellParallel                               // direction parallel to the normal, passes straight
	SnellRefract                                // regular refraction
)

func (o SnellOutcome) String() string {
	switch o {
	case SnellInternalReflection:
		return "internal_reflection"
	case SnellParallel:
		return "parallel"
	case SnellRefract:
		return "refract"
	}
	return "unknown"
}

// Snell returns the interaction type and, unless it is total internal reflection,
// the refracted direction for a ray crossing from index n1 into index n2.
// direction and normal must be unit; normal should face the incident ray (see OrientNormal).
func Snell(direction, normal r3.Vec, n1, n2 Real) (SnellOutcome, r3.Vec) {
	c := math.Abs(r3.Dot(direction, normal))
	if fuzzyEqual(c, 1) {
		return SnellParallel, direction
	}

	r := n1 / n2
	k := 1 - r*r*(1-c*c)
	if r <= 1 || k >= 0 {
		refracted := r3.Add(r3.Scale(r, direction), r3.Scale(r*c-math.Sqrt(k), normal))
		return SnellRefract, unit(refracted)
	}
	return SnellInternalReflection, r3.Vec{}
}

// ReflectionCoefficient is the unpolarized Fresnel power reflection coefficient: the mean of
// the s and p coefficients built from the cosines of incident and other against normal.
func ReflectionCoefficient(incident, other, normal r3.Vec, n1, n2 Real) Real {
	ci := math.Abs(r3.Dot(incident, normal))
	ct := math.Abs(r3.Dot(other, normal))
	rs := (n1*ci - n2*ct) / (n1*ci + n2*ct)
	rp := (n1*ct - n2*ci) / (n1*ct + n2*ci)
	return 0.5 * (rs*rs + rp*rp)
}

// ReflectedDirection mirrors direction about the plane with the given unit normal.
func ReflectedDirection(direction, normal r3.Vec) r3.Vec {
	return r3.Sub(direction, r3.Scale(2*r3.Dot(direction, normal), normal))
}

// OrientNormal flips normal so that it faces the incident direction (direction·normal <= 0).
func OrientNormal(normal, direction r3.Vec) r3.Vec {
	if r3.Dot(direction, normal) > 0 {
		return r3.Scale(-1, normal)
	}
	return normal
}
