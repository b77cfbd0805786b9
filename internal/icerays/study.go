package icerays

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// Study generates the batch of rays traced in one pass.
type Study interface {
	Validate(groups int, g *Grid) error
	// Generate returns the rays owned by comm's rank and the largest id among them.
	Generate(comm Communicator, g *Grid) ([]*Ray, uint64)
}

// SimpleStudy starts one ray per explicit start point.
// Every process numbers from its own slice of the id space, MaxUint64/P*p, and keeps the
// rays whose index modulo P is its rank.
type SimpleStudy struct {
	StartPoints []r3.Vec
	Directions  []r3.Vec // need not be normalized
	Energy      []Real   // per group, copied onto every ray
}

func (s *SimpleStudy) Validate(groups int, g *Grid) error {
	var errs []error
	if len(s.StartPoints) != len(s.Directions) {
		errs = append(errs, configErrorf("start_points has %d entries, directions has %d", len(s.StartPoints), len(s.Directions)))
	}
	if len(s.Energy) != groups {
		errs = append(errs, configErrorf("energy size %d does not equal number of energy groups %d", len(s.Energy), groups))
	}
	for i, p := range s.StartPoints {
		if !g.Contains(p) {
			errs = append(errs, configErrorf("start_points[%d] = %v is outside the domain", i, p))
		}
	}
	for i, d := range s.Directions {
		if r3.Norm(d) == 0 || !vecFinite(d) {
			errs = append(errs, configErrorf("directions[%d] = %v is not a usable direction", i, d))
		}
	}
	return errors.Join(errs...)
}

func (s *SimpleStudy) Generate(comm Communicator, _ *Grid) ([]*Ray, uint64) {
	size, rank := uint64(comm.Size()), uint64(comm.Rank())
	next := math.MaxUint64 / size * rank
	var (
		rays  []*Ray
		maxID uint64
	)
	for i, p := range s.StartPoints {
		if uint64(i)%size != rank {
			continue
		}
		r := NewRay(next, p, s.Directions[i], s.Energy)
		maxID = next
		next++
		rays = append(rays, r)
	}
	return rays, maxID
}

// UniformStudy covers planar domain faces with a regular lattice of parallel rays.
// Each face is split into Splits[i][0] x Splits[i][1] patches and a ray starts at every
// patch centre carrying Intensity[g] times the patch area. Ids are global across faces and
// processes: every process counts every ray and keeps the ones whose id modulo P is its rank.
type UniformStudy struct {
	Boundaries []Face
	Direction  r3.Vec
	Intensity  []Real
	Splits     [][2]int
}

func (s *UniformStudy) Validate(groups int, _ *Grid) error {
	var errs []error
	if len(s.Intensity) != groups {
		errs = append(errs, configErrorf("intensity should be of the same size as the number of energy groups, %d, got %d", groups, len(s.Intensity)))
	}
	if len(s.Splits) != len(s.Boundaries) {
		errs = append(errs, configErrorf("splits should be the same length as boundary, %d, got %d", len(s.Boundaries), len(s.Splits)))
	}
	if len(s.Boundaries) == 0 {
		errs = append(errs, configErrorf("uniform study needs at least one boundary"))
	}
	if r3.Norm(s.Direction) == 0 || !vecFinite(s.Direction) {
		errs = append(errs, configErrorf("direction %v is not a usable direction", s.Direction))
	}
	for i, f := range s.Boundaries {
		if f >= NumFaces {
			errs = append(errs, configErrorf("boundary[%d] is not a domain face", i))
			continue
		}
		if r3.Dot(s.Direction, f.Inward()) <= 0 {
			errs = append(errs, configErrorf("direction %v does not point into the domain through %s", s.Direction, f))
		}
	}
	for i, sp := range s.Splits {
		if sp[0] < 1 || sp[1] < 1 {
			errs = append(errs, configErrorf("splits[%d] = %v must be positive", i, sp))
		}
	}
	return errors.Join(errs...)
}

func (s *UniformStudy) Generate(comm Communicator, g *Grid) ([]*Ray, uint64) {
	size, rank := uint64(comm.Size()), uint64(comm.Rank())
	var (
		rays  []*Ray
		maxID uint64
		id    uint64
	)
	energy := make([]Real, len(s.Intensity))
	for b, f := range s.Boundaries {
		lo, hi := g.FaceBounds(f)
		a0, a1 := (f.Axis()+1)%3, (f.Axis()+2)%3
		n0, n1 := s.Splits[b][0], s.Splits[b][1]
		d0 := (component(hi, a0) - component(lo, a0)) / Real(n0)
		d1 := (component(hi, a1) - component(lo, a1)) / Real(n1)
		floats.ScaleTo(energy, d0*d1, s.Intensity)

		start := lo
		for i := 0; i < n0; i++ {
			setComponent(&start, a0, component(lo, a0)+(Real(i)+0.5)*d0)
			for j := 0; j < n1; j++ {
				setComponent(&start, a1, component(lo, a1)+(Real(j)+0.5)*d1)
				if id%size == rank {
					rays = append(rays, NewRay(id, start, s.Direction, energy))
					maxID = id
				}
				id++
			}
		}
	}
	return rays, maxID
}
