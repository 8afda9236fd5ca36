package accel

import (
	"fmt"
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// execute runs kernel k over the work division wd and returns when every
// thread finished. It implements the core kernel execution logic shared by
// all backends; backends differ only in their Properties.
func (d *Device) execute(wd WorkDiv, k Kernel) error {
	gridSize := wd.GridBlocks

	// Determine parallelism strategy
	numWorkers := d.props.Workers
	if gridSize < numWorkers {
		numWorkers = gridSize
	}
	if numWorkers <= 1 {
		for blockID := 0; blockID < gridSize; blockID++ {
			if err := d.runBlock(wd, blockID, k); err != nil {
				return err
			}
		}
		return nil
	}

	// Cache-aware scheduling: each worker processes a contiguous run of blocks
	blocksPerWorker := (gridSize + numWorkers - 1) / numWorkers
	workerErrs := make([]error, numWorkers)
	var wg sync.WaitGroup
	for workerID := 0; workerID < numWorkers; workerID++ {
		startBlock := workerID * blocksPerWorker
		endBlock := min(startBlock+blocksPerWorker, gridSize)
		if startBlock >= endBlock {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for blockID := startBlock; blockID < endBlock; blockID++ {
				if err := d.runBlock(wd, blockID, k); err != nil {
					workerErrs[workerID] = err
					return
				}
			}
		}()
	}
	wg.Wait()
	for _, err := range workerErrs {
		if err != nil {
			return err
		}
	}
	return nil
}

// runBlock executes all threads of one block. Single-thread blocks run
// inline; otherwise each thread gets its own goroutine so the block barrier
// can make progress.
func (d *Device) runBlock(wd WorkDiv, blockIdx int, k Kernel) error {
	block := &blockState{}
	newCtx := func(threadIdx int) *Ctx {
		return &Ctx{
			BlockIdx:    blockIdx,
			ThreadIdx:   threadIdx,
			BlockDim:    wd.BlockThreads,
			GridDim:     wd.GridBlocks,
			ThreadElems: wd.ThreadElems,
			dev:         d,
			block:       block,
		}
	}
	if wd.BlockThreads == 1 {
		return runThread(newCtx(0), k)
	}

	block.barrier = newBarrier(wd.BlockThreads)
	threadErrs := make([]error, wd.BlockThreads)
	var wg sync.WaitGroup
	wg.Add(wd.BlockThreads)
	for threadIdx := 0; threadIdx < wd.BlockThreads; threadIdx++ {
		go func() {
			defer wg.Done()
			if err := runThread(newCtx(threadIdx), k); err != nil {
				threadErrs[threadIdx] = err
				block.barrier.breakBarrier()
			}
		}()
	}
	wg.Wait()

	// Report the thread that failed first, not the ones unwound by the
	// broken barrier.
	var brokenErr error
	for _, err := range threadErrs {
		if err == nil {
			continue
		}
		if errors.Is(err, errBarrierBroken) {
			brokenErr = err
			continue
		}
		return err
	}
	return brokenErr
}

// runThread calls the kernel for one thread and converts a panic into an
// execution error.
func runThread(ctx *Ctx, k Kernel) error {
	exception := exceptions.Try(func() { k(ctx) })
	if exception == nil {
		return nil
	}
	err, ok := exception.(error)
	if !ok {
		err = errors.Errorf("%v", exception)
	}
	if errors.Is(err, errBarrierBroken) {
		return err
	}
	return NewExecutionError("Kernel",
		fmt.Sprintf("block %d thread %d panicked: %v", ctx.BlockIdx, ctx.ThreadIdx, err),
		errors.WithStack(ErrKernelFailed))
}
