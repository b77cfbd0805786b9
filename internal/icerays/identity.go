package icerays

import (
	"fmt"
	"math"
)

// IdentityAllocator hands out disjoint id blocks to every worker context of every process.
// It needs one collective max reduction at construction and no coordination afterwards.
type IdentityAllocator struct {
	process   int
	processes int
	contexts  int
	capacity  uint64
	maxID     uint64
	blocks    []*IdentityBlock
}

// NewIdentityAllocator reduces localMax (largest id assigned during batch generation on this
// process) across comm and reserves one block of capacity ids per context.
// It is a collective call: every process must call it.
func NewIdentityAllocator(comm Communicator, localMax uint64, contexts int, capacity uint64) (*IdentityAllocator, error) {
	if contexts <= 0 {
		return nil, configErrorf("identity allocator needs at least one context, got %d", contexts)
	}
	if capacity == 0 {
		return nil, configErrorf("identity block capacity must be positive")
	}
	m := comm.MaxUint64(localMax)
	a := &IdentityAllocator{
		process:   comm.Rank(),
		processes: comm.Size(),
		contexts:  contexts,
		capacity:  capacity,
		maxID:     m,
	}
	// The highest id of the last block on the last process must fit in uint64.
	span := uint64(a.processes) * uint64(contexts)
	if m == math.MaxUint64 || capacity > (math.MaxUint64-m)/span {
		return nil, fmt.Errorf("%w: %d processes x %d contexts x %d ids do not fit above max id %d",
			ErrIdentityExhausted, a.processes, contexts, capacity, m)
	}
	a.blocks = make([]*IdentityBlock, contexts)
	for k := range a.blocks {
		a.blocks[k] = &IdentityBlock{
			process:  a.process,
			context:  k,
			base:     a.Base(a.process, k),
			capacity: capacity,
		}
	}
	return a, nil
}

// MaxGenerated is the reduced maximum batch id M.
func (a *IdentityAllocator) MaxGenerated() uint64 { return a.maxID }

// Base returns the first id of context k on process p: M + 1 + p*T*C + k*C.
func (a *IdentityAllocator) Base(p, k int) uint64 {
	return a.maxID + 1 + uint64(p)*uint64(a.contexts)*a.capacity + uint64(k)*a.capacity
}

// Contexts is the number of worker contexts per process.
func (a *IdentityAllocator) Contexts() int { return a.contexts }

// Block returns the block owned by local context k.
func (a *IdentityAllocator) Block(k int) *IdentityBlock { return a.blocks[k] }

// Spawned returns how many ids all local blocks have handed out.
func (a *IdentityAllocator) Spawned() uint64 {
	var n uint64
	for _, b := range a.blocks {
		n += b.next
	}
	return n
}

// IdentityBlock is a contiguous id range [base, base+capacity) owned by one worker context.
// It is not safe for concurrent use; each worker owns its own.
type IdentityBlock struct {
	process, context int
	base, capacity   uint64
	next             uint64
}

// Next returns the next unused id. Running out means the capacity is mis-sized for the run.
func (b *IdentityBlock) Next() (uint64, error) {
	if b.next >= b.capacity {
		return 0, &BlockExhaustedError{Process: b.process, Context: b.context, Base: b.base, Capacity: b.capacity}
	}
	id := b.base + b.next
	b.next++
	return id, nil
}

func (b *IdentityBlock) Base() uint64     { return b.base }
func (b *IdentityBlock) Used() uint64     { return b.next }
func (b *IdentityBlock) Capacity() uint64 { return b.capacity }
