package accel

import (
	"fmt"
	"sync"
)

// WorkDiv describes how a kernel launch is divided: GridBlocks blocks of
// BlockThreads threads, each thread nominally handling ThreadElems elements.
type WorkDiv struct {
	GridBlocks   int
	BlockThreads int
	ThreadElems  int
}

// Threads returns the total number of threads in the grid.
func (wd WorkDiv) Threads() int {
	return wd.GridBlocks * wd.BlockThreads
}

// String implements fmt.Stringer.
func (wd WorkDiv) String() string {
	return fmt.Sprintf("grid=%d block=%d elems=%d", wd.GridBlocks, wd.BlockThreads, wd.ThreadElems)
}

// Validate checks wd against the device properties.
func (wd WorkDiv) Validate(props *Properties) error {
	switch {
	case wd.GridBlocks < 1:
		return NewConfigError("Launch", "grid must have at least one block", wd)
	case wd.BlockThreads < 1:
		return NewConfigError("Launch", "block must have at least one thread", wd)
	case wd.ThreadElems < 0:
		return NewConfigError("Launch", "elements per thread must not be negative", wd)
	case wd.BlockThreads > props.MaxThreadsPerBlock:
		return NewConfigError("Launch",
			fmt.Sprintf("block of %d threads exceeds the %s device limit of %d",
				wd.BlockThreads, props.Backend, props.MaxThreadsPerBlock), wd)
	}
	return nil
}

// Kernel is the function run by every thread of a launch. Implementations
// are called concurrently and must only write to disjoint locations.
type Kernel func(ctx *Ctx)

// Ctx identifies a thread's position within the execution hierarchy and
// gives it access to its block's barrier and shared scratch.
type Ctx struct {
	BlockIdx    int // Block index within the grid
	ThreadIdx   int // Thread index within the block
	BlockDim    int // Threads per block
	GridDim     int // Blocks per grid
	ThreadElems int // Elements per thread of the launch

	dev   *Device
	block *blockState
}

// blockState is shared by the threads of one block for the block lifetime.
type blockState struct {
	barrier *barrier // nil for single-thread blocks

	mu      sync.Mutex
	scratch map[int]any
}

// Global returns the global thread index
func (c *Ctx) Global() int {
	return c.BlockIdx*c.BlockDim + c.ThreadIdx
}

// GridThreads returns the total number of threads in the grid.
func (c *Ctx) GridThreads() int {
	return c.GridDim * c.BlockDim
}

// Device returns the device running the thread.
func (c *Ctx) Device() *Device {
	return c.dev
}

// SyncBlockThreads blocks until every thread of the block called it.
// All threads of a block must call it the same number of times.
func (c *Ctx) SyncBlockThreads() {
	if c.block.barrier != nil {
		c.block.barrier.wait()
	}
}

// SharedScratch returns the block-scoped scratch slice identified by id,
// allocating n elements on first request. Every thread of the block gets the
// same slice; it is discarded when the block finishes.
//
// Requesting the same id with a different element type panics.
func SharedScratch[T any](c *Ctx, id int, n int) []T {
	b := c.block
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.scratch == nil {
		b.scratch = make(map[int]any)
	}
	if s, found := b.scratch[id]; found {
		return s.([]T)
	}
	s := make([]T, n)
	b.scratch[id] = s
	return s
}
