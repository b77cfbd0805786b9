package icerays

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// AuxFlags holds small named integers attached to a ray, e.g. AuxJustInteracted.
type AuxFlags map[string]int

func (a AuxFlags) Get(name string) int { return a[name] }

// Ray is the mutable per-ray record. A ray is owned by exactly one worker at a time.
type Ray struct {
	ID         uint64
	Parent     uint64 // id of the ray this one was split from; 0 for generated rays
	Generation int    // number of splits in the ancestry
	Position   r3.Vec
	Direction  r3.Vec // unit
	Energy     []Real // per energy group
	Continue   bool
	Aux        AuxFlags
	Distance   Real // path length traced so far

	trajectoryChanged bool
}

// NewRay creates a live ray; direction is normalized.
func NewRay(id uint64, position, direction r3.Vec, energy []Real) *Ray {
	e := make([]Real, len(energy))
	copy(e, energy)
	return &Ray{
		ID:        id,
		Position:  position,
		Direction: unit(direction),
		Energy:    e,
		Continue:  true,
	}
}

// SetAux sets a named flag, allocating the map lazily.
func (r *Ray) SetAux(name string, v int) {
	if r.Aux == nil {
		r.Aux = make(AuxFlags, 1)
	}
	r.Aux[name] = v
}

// ClearAux resets a named flag.
func (r *Ray) ClearAux(name string) {
	if r.Aux != nil {
		delete(r.Aux, name)
	}
}

// ChangeTrajectory redirects the ray from point p along direction d.
// The tracer continues from the new position on its next segment.
func (r *Ray) ChangeTrajectory(p, d r3.Vec) {
	r.Position = p
	r.Direction = unit(d)
	r.trajectoryChanged = true
}

// TrajectoryChanged reports whether a kernel redirected the ray during the current segment.
func (r *Ray) TrajectoryChanged() bool { return r.trajectoryChanged }

func (r *Ray) resetTrajectoryChanged() { r.trajectoryChanged = false }

// Kill marks the ray terminal.
func (r *Ray) Kill() { r.Continue = false }

// TotalEnergy sums the energy over all groups.
func (r *Ray) TotalEnergy() Real { return floats.Sum(r.Energy) }

// ScaleEnergy multiplies every group by f.
func (r *Ray) ScaleEnergy(f Real) { floats.Scale(f, r.Energy) }

// split moves the fraction R of every group into a new child ray with the given id;
// the parent keeps E - R*E so both halves add back to the parent energy.
func (r *Ray) split(id uint64, at, direction r3.Vec, R Real) *Ray {
	child := NewRay(id, at, direction, r.Energy)
	child.Parent = r.ID
	child.Generation = r.Generation + 1
	child.Distance = r.Distance
	floats.Scale(R, child.Energy)
	floats.Sub(r.Energy, child.Energy)
	return child
}

func (r *Ray) String() string {
	return fmt.Sprintf("ray %d at (%g, %g, %g) dir (%g, %g, %g) energy %v continue=%v",
		r.ID, r.Position.X, r.Position.Y, r.Position.Z,
		r.Direction.X, r.Direction.Y, r.Direction.Z, r.Energy, r.Continue)
}
