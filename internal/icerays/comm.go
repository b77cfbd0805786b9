package icerays

import (
	"sync"

	"gonum.org/v1/gonum/floats"
)

// Communicator is the collective-operation surface the core needs from a distributed run.
// Both reductions are collective: every rank must call them in the same order.
type Communicator interface {
	Rank() int
	Size() int
	MaxUint64(v uint64) uint64
	SumFloat64s(v []Real) []Real
}

// SerialComm is the single-process communicator.
type SerialComm struct{}

func (SerialComm) Rank() int                   { return 0 }
func (SerialComm) Size() int                   { return 1 }
func (SerialComm) MaxUint64(v uint64) uint64   { return v }
func (SerialComm) SumFloat64s(v []Real) []Real { return append([]Real(nil), v...) }

// NewLocalCluster returns size communicators that reduce through shared memory,
// one per rank, for running several processes' worth of work inside one binary.
func NewLocalCluster(size int) []Communicator {
	if size < 1 {
		size = 1
	}
	g := &localGroup{size: size, slots: make([]any, size)}
	g.cond = sync.NewCond(&g.mu)
	comms := make([]Communicator, size)
	for r := range comms {
		comms[r] = &localComm{rank: r, group: g}
	}
	return comms
}

type localGroup struct {
	size    int
	mu      sync.Mutex
	cond    *sync.Cond
	arrived int
	gen     uint64
	slots   []any
	result  any
}

// allReduce blocks until every rank contributed, then hands all of them the reduced value.
func (g *localGroup) allReduce(rank int, v any, reduce func([]any) any) any {
	g.mu.Lock()
	defer g.mu.Unlock()
	gen := g.gen
	g.slots[rank] = v
	g.arrived++
	if g.arrived == g.size {
		g.result = reduce(g.slots)
		g.arrived = 0
		g.slots = make([]any, g.size)
		g.gen++
		g.cond.Broadcast()
		return g.result
	}
	for gen == g.gen {
		g.cond.Wait()
	}
	return g.result
}

type localComm struct {
	rank  int
	group *localGroup
}

func (c *localComm) Rank() int { return c.rank }
func (c *localComm) Size() int { return c.group.size }

func (c *localComm) MaxUint64(v uint64) uint64 {
	return c.group.allReduce(c.rank, v, func(all []any) any {
		var m uint64
		for _, x := range all {
			if u := x.(uint64); u > m {
				m = u
			}
		}
		return m
	}).(uint64)
}

func (c *localComm) SumFloat64s(v []Real) []Real {
	out := c.group.allReduce(c.rank, v, func(all []any) any {
		sum := make([]Real, len(all[0].([]Real)))
		for _, x := range all {
			floats.Add(sum, x.([]Real))
		}
		return sum
	}).([]Real)
	return append([]Real(nil), out...)
}
