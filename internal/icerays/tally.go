package icerays

import (
	"sync"

	"gonum.org/v1/gonum/floats"
)

// Tally accumulates per-element deposition and per-face boundary flux for one process.
// A nil *Tally discards everything.
type Tally struct {
	Groups     int
	Absorbed   []Real // per element: energy removed by attenuation
	PathEnergy []Real // per element: sum of distance * energy over traversing rays
	Flux       []Real // NumFaces*Groups: energy leaving through each face, per group

	locks  cellLocks
	fluxMu sync.Mutex
}

// cellLocks stripes the per-element accumulators over NumShards mutexes.
type cellLocks [NumShards]sync.Mutex

func (l *cellLocks) lock(elem int)   { l[elem&(NumShards-1)].Lock() }
func (l *cellLocks) unlock(elem int) { l[elem&(NumShards-1)].Unlock() }

func NewTally(cells, groups int) *Tally {
	return &Tally{
		Groups:     groups,
		Absorbed:   make([]Real, cells),
		PathEnergy: make([]Real, cells),
		Flux:       make([]Real, int(NumFaces)*groups),
	}
}

func (t *Tally) AddAbsorbed(elem int, v Real) {
	if t == nil || v == 0 {
		return
	}
	t.locks.lock(elem)
	t.Absorbed[elem] += v
	t.locks.unlock(elem)
}

func (t *Tally) AddPathEnergy(elem int, v Real) {
	if t == nil || v == 0 {
		return
	}
	t.locks.lock(elem)
	t.PathEnergy[elem] += v
	t.locks.unlock(elem)
}

// AddFlux adds factor*energy[g] to face f for every group.
func (t *Tally) AddFlux(f Face, energy []Real, factor Real) {
	if t == nil {
		return
	}
	t.fluxMu.Lock()
	floats.AddScaled(t.Flux[int(f)*t.Groups:int(f+1)*t.Groups], factor, energy)
	t.fluxMu.Unlock()
}

// FluxAt returns the accumulated flux of group g through face f.
func (t *Tally) FluxAt(f Face, g int) Real { return t.Flux[int(f)*t.Groups+g] }

func (t *Tally) TotalAbsorbed() Real   { return floats.Sum(t.Absorbed) }
func (t *Tally) TotalPathEnergy() Real { return floats.Sum(t.PathEnergy) }
func (t *Tally) TotalFlux() Real       { return floats.Sum(t.Flux) }

// Reset zeroes every accumulator before a pass.
func (t *Tally) Reset() {
	for _, s := range [][]Real{t.Absorbed, t.PathEnergy, t.Flux} {
		for i := range s {
			s[i] = 0
		}
	}
}

// Reduce sums the tally over all processes. Collective.
func (t *Tally) Reduce(comm Communicator) {
	na, np := len(t.Absorbed), len(t.PathEnergy)
	packed := make([]Real, 0, na+np+len(t.Flux))
	packed = append(packed, t.Absorbed...)
	packed = append(packed, t.PathEnergy...)
	packed = append(packed, t.Flux...)
	sum := comm.SumFloat64s(packed)
	copy(t.Absorbed, sum[:na])
	copy(t.PathEnergy, sum[na:na+np])
	copy(t.Flux, sum[na+np:])
}
