package accel

import (
	"sync"
)

// errBarrierBroken unwinds the threads of a block when one of its threads
// failed and will never reach the barrier.
var errBarrierBroken = NewExecutionError("SyncBlockThreads", "block barrier broken by a failed thread", nil)

// barrier is a reusable barrier for the threads of one block.
type barrier struct {
	mu         sync.Mutex
	cond       sync.Cond
	parties    int
	waiting    int
	generation uint64
	broken     bool
}

func newBarrier(parties int) *barrier {
	b := &barrier{parties: parties}
	b.cond.L = &b.mu
	return b
}

// wait blocks until all parties arrived. It panics with errBarrierBroken if
// the barrier is broken while waiting, or was broken before.
func (b *barrier) wait() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.broken {
		panic(errBarrierBroken)
	}
	gen := b.generation
	b.waiting++
	if b.waiting == b.parties {
		b.waiting = 0
		b.generation++
		b.cond.Broadcast()
		return
	}
	for gen == b.generation && !b.broken {
		b.cond.Wait()
	}
	if gen == b.generation {
		panic(errBarrierBroken)
	}
}

// breakBarrier releases every waiting party with errBarrierBroken.
func (b *barrier) breakBarrier() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.broken = true
	b.cond.Broadcast()
}
