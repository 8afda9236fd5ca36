package kernels

import (
	"github.com/LynnColeArt/gudapar/access"
	"github.com/LynnColeArt/gudapar/accel"
	"github.com/LynnColeArt/gudapar/op"
	"github.com/LynnColeArt/gudapar/seq"
)

// Transform describes Dst[i] = Fn(Src[i]) for i in [0, N). Src and Dst may
// be the same sequence.
type Transform[T, R any] struct {
	Policy access.Policy
	Src    seq.Source[T]
	Dst    seq.Sink[R]
	N      int
	Fn     op.Unary[T, R]
}

// BlockKernel returns the transform kernel. Threads never synchronize.
func (k *Transform[T, R]) BlockKernel() accel.Kernel {
	return func(ctx *accel.Ctx) {
		r := access.Range(k.Policy, ctx, k.N)
		for i := r.Start; i < r.End; i += r.Step {
			k.Dst.Set(i, k.Fn(ctx, k.Src.At(i)))
		}
	}
}
