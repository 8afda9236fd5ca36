// Package kernels holds the device kernels behind the reduce and transform
// packages.
package kernels

import (
	"github.com/LynnColeArt/gudapar/access"
	"github.com/LynnColeArt/gudapar/accel"
	"github.com/LynnColeArt/gudapar/op"
	"github.com/LynnColeArt/gudapar/seq"
)

// Shared scratch slots of the reduce kernels.
const (
	accSlot = iota
	validSlot
)

// Reduce describes one reduction pass: the first N elements of Src are
// transformed and folded, and each block writes its partial result to
// Dst[blockIdx]. Valid[blockIdx] records whether the block saw any element;
// Dst is left untouched for blocks that did not.
type Reduce[T, R any] struct {
	Policy    access.Policy
	Src       seq.Source[T]
	Dst       seq.Sink[R]
	Valid     seq.Sink[bool]
	N         int
	Transform op.Unary[T, R]
	Reduce    op.Binary[R]
	// Unroll folds four elements per loop iteration.
	Unroll bool
}

// fold transforms and folds the indices of r in order. ok is false when r is
// empty, there being no identity element to return.
func (k *Reduce[T, R]) fold(ctx *accel.Ctx, r access.IndexRange) (acc R, ok bool) {
	if r.Empty() {
		return acc, false
	}
	src, transform, reduce := k.Src, k.Transform, k.Reduce
	i := r.Start
	acc = transform(ctx, src.At(i))
	i += r.Step
	if k.Unroll {
		step := r.Step
		for ; i+(accel.LoopUnrollFactor-1)*step < r.End; i += accel.LoopUnrollFactor * step {
			e0 := transform(ctx, src.At(i))
			e1 := transform(ctx, src.At(i+step))
			e2 := transform(ctx, src.At(i+2*step))
			e3 := transform(ctx, src.At(i+3*step))
			acc = reduce(ctx, reduce(ctx, reduce(ctx, reduce(ctx, acc, e0), e1), e2), e3)
		}
	}
	for ; i < r.End; i += r.Step {
		acc = reduce(ctx, acc, transform(ctx, src.At(i)))
	}
	return acc, true
}

// BlockKernel returns the block reduction kernel.
//
// Each thread folds its index range, publishes the result in the block's
// shared scratch, and the block then halves the scratch until slot 0 holds
// the block result. Slot i absorbs slot i+ceil(active/2) each round, so the
// reduce operator must be commutative as well as associative.
func (k *Reduce[T, R]) BlockKernel() accel.Kernel {
	return func(ctx *accel.Ctx) {
		acc, ok := k.fold(ctx, access.Range(k.Policy, ctx, k.N))

		scratch := accel.SharedScratch[R](ctx, accSlot, ctx.BlockDim)
		valid := accel.SharedScratch[bool](ctx, validSlot, ctx.BlockDim)
		rank := ctx.ThreadIdx
		if ok {
			scratch[rank] = acc
			valid[rank] = true
		}
		ctx.SyncBlockThreads()

		// Threads without elements keep going: every round ends on a barrier
		// the whole block must reach.
		for active := ctx.BlockDim; active > 1; {
			half := (active + 1) / 2
			if partner := rank + half; partner < active && valid[partner] {
				if valid[rank] {
					scratch[rank] = k.Reduce(ctx, scratch[rank], scratch[partner])
				} else {
					scratch[rank] = scratch[partner]
					valid[rank] = true
				}
			}
			ctx.SyncBlockThreads()
			active = half
		}

		if rank == 0 {
			if valid[0] {
				k.Dst.Set(ctx.BlockIdx, scratch[0])
			}
			k.Valid.Set(ctx.BlockIdx, valid[0])
		}
	}
}

// SmallKernel returns a kernel whose thread (0, 0) folds all N elements in
// order and writes the result to Dst[0]. It is meant for a 1x1 launch.
func (k *Reduce[T, R]) SmallKernel() accel.Kernel {
	return func(ctx *accel.Ctx) {
		if ctx.Global() != 0 {
			return
		}
		acc, ok := k.fold(ctx, access.IndexRange{Start: 0, End: k.N, Step: 1})
		if ok {
			k.Dst.Set(0, acc)
		}
		k.Valid.Set(0, ok)
	}
}
