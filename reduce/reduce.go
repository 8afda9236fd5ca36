// Package reduce implements device-wide reduce and transform-reduce.
//
// Problems smaller than the block size or SmallProblemThreshold are folded by
// a single thread. Larger ones run in two phases: every block of the grid
// folds its share into one partial value, then a single block folds the
// partials. The result is copied back to the host and the queue is waited
// before returning, whatever the queue kind.
//
// Reduce operators must be associative and commutative; the block tree
// combines partials out of element order. Floating-point results may differ
// in the last bits between backends.
package reduce

import (
	"fmt"

	"github.com/LynnColeArt/gudapar/access"
	"github.com/LynnColeArt/gudapar/accel"
	"github.com/LynnColeArt/gudapar/internal/kernels"
	"github.com/LynnColeArt/gudapar/op"
	"github.com/LynnColeArt/gudapar/seq"
	"github.com/LynnColeArt/gudapar/workdiv"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ErrEmptyReduce is the configuration error returned for n == 0: there is no
// generic identity element to return.
var ErrEmptyReduce = accel.NewConfigError("Reduce", "cannot reduce zero elements", 0)

type options struct {
	unroll         bool
	policy         access.Policy
	smallThreshold int
}

// Option configures a reduction.
type Option func(*options)

// WithUnroll enables folding four elements per loop iteration in each thread.
func WithUnroll(unroll bool) Option {
	return func(o *options) { o.unroll = unroll }
}

// WithPolicy overrides the memory-access policy of the device kind.
func WithPolicy(p access.Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithSmallThreshold sets the size below which a single thread folds
// everything. Defaults to accel.SmallProblemThreshold.
func WithSmallThreshold(n int) Option {
	return func(o *options) { o.smallThreshold = n }
}

// Reduce folds the first n elements of src with reduceFn.
//
// reduceFn is either func(a, b T) T or func(ctx *accel.Ctx, a, b T) T.
//
// Example:
//
//	sum, err := reduce.Reduce[int](dev, q, len(data), seq.Slice[int](data),
//		func(a, b int) int { return a + b })
func Reduce[T any, B op.BinaryFunc[T]](dev *accel.Device, q *accel.Queue, n int, src seq.Source[T], reduceFn B, opts ...Option) (T, error) {
	reduce, err := op.BindBinary[T](reduceFn)
	if err != nil {
		var zero T
		return zero, err
	}
	return transformReduce(dev, q, n, src, op.Identity[T](), reduce, opts)
}

// TransformReduce folds transformFn(src[i]) for i in [0, n) with reduceFn,
// without materializing the transformed sequence.
//
// transformFn is either func(T) R or func(*accel.Ctx, T) R; reduceFn is
// either func(a, b R) R or func(*accel.Ctx, a, b R) R.
func TransformReduce[T, R any, U op.UnaryFunc[T, R], B op.BinaryFunc[R]](dev *accel.Device, q *accel.Queue, n int, src seq.Source[T], transformFn U, reduceFn B, opts ...Option) (R, error) {
	var zero R
	transform, err := op.BindUnary[T, R](transformFn)
	if err != nil {
		return zero, err
	}
	reduce, err := op.BindBinary[R](reduceFn)
	if err != nil {
		return zero, err
	}
	return transformReduce(dev, q, n, src, transform, reduce, opts)
}

func checkArgs[T any](opName string, dev *accel.Device, q *accel.Queue, n int, src seq.Source[T]) error {
	switch {
	case dev == nil || q == nil:
		return accel.NewInvalidArgError(opName, "nil device or queue")
	case q.Device() != dev:
		return accel.NewInvalidArgError(opName, fmt.Sprintf("queue belongs to %s, not %s", q.Device(), dev))
	case n < 0:
		return accel.NewInvalidArgError(opName, fmt.Sprintf("negative problem size %d", n))
	case src == nil:
		return accel.NewInvalidArgError(opName, "nil source")
	case src.Len() < n:
		return accel.NewInvalidArgError(opName, fmt.Sprintf("source has %d elements, need %d", src.Len(), n))
	}
	return nil
}

func transformReduce[T, R any](dev *accel.Device, q *accel.Queue, n int, src seq.Source[T],
	transform op.Unary[T, R], reduce op.Binary[R], opts []Option) (R, error) {
	var zero R
	if err := checkArgs("TransformReduce", dev, q, n, src); err != nil {
		return zero, err
	}
	if n == 0 {
		return zero, ErrEmptyReduce
	}

	props := dev.Properties()
	o := options{policy: access.ForKind(props.Kind), smallThreshold: accel.SmallProblemThreshold}
	for _, opt := range opts {
		opt(&o)
	}
	blockSize := workdiv.BlockSize(props.Kind)

	r := &run[T, R]{dev: dev, q: q}
	defer r.release()
	var result R
	var err error
	if n < blockSize || n < o.smallThreshold {
		klog.V(1).Infof("reduce: %d elements on %s, single-thread path", n, dev)
		result, err = r.small(n, src, transform, reduce, o)
	} else {
		result, err = r.twoPhase(n, src, transform, reduce, o)
	}
	if err != nil {
		return zero, errors.WithMessagef(err, "reduce of %d elements on %s", n, dev)
	}
	return result, nil
}

// run tracks the device buffers of one reduction.
type run[T, R any] struct {
	dev     *accel.Device
	q       *accel.Queue
	buffers []interface{ Free() error }
}

func alloc[E, T, R any](r *run[T, R], n int) (*accel.Buffer[E], error) {
	buf, err := accel.Alloc[E](r.dev, n)
	if err != nil {
		return nil, err
	}
	r.buffers = append(r.buffers, buf)
	return buf, nil
}

// release waits for any pending work that may still use the buffers, then
// frees them.
func (r *run[T, R]) release() {
	if err := r.q.Wait(); err != nil {
		klog.Warningf("reduce: discarding queue error during cleanup: %+v", err)
	}
	for _, buf := range r.buffers {
		if err := buf.Free(); err != nil {
			klog.Warningf("reduce: failed to free device buffer on %s: %+v", r.dev, err)
		}
	}
}

func (r *run[T, R]) small(n int, src seq.Source[T], transform op.Unary[T, R], reduce op.Binary[R], o options) (R, error) {
	var zero R
	result, err := alloc[R](r, 1)
	if err != nil {
		return zero, err
	}
	valid, err := alloc[bool](r, 1)
	if err != nil {
		return zero, err
	}
	k := &kernels.Reduce[T, R]{
		Policy:    o.policy,
		Src:       src,
		Dst:       result,
		Valid:     valid,
		N:         n,
		Transform: transform,
		Reduce:    reduce,
		Unroll:    o.unroll,
	}
	if err := r.q.Launch(accel.WorkDiv{GridBlocks: 1, BlockThreads: 1, ThreadElems: n}, k.SmallKernel()); err != nil {
		return zero, err
	}
	return r.fetch(result, valid, nil)
}

func (r *run[T, R]) twoPhase(n int, src seq.Source[T], transform op.Unary[T, R], reduce op.Binary[R], o options) (R, error) {
	var zero R
	wd := workdiv.For(r.dev.Properties(), n)
	klog.V(1).Infof("reduce: %d elements on %s, two-phase path %s policy=%s", n, r.dev, wd, o.policy)

	partials, err := alloc[R](r, wd.GridBlocks)
	if err != nil {
		return zero, err
	}
	partialsValid, err := alloc[bool](r, wd.GridBlocks)
	if err != nil {
		return zero, err
	}
	result, err := alloc[R](r, 1)
	if err != nil {
		return zero, err
	}
	resultValid, err := alloc[bool](r, 1)
	if err != nil {
		return zero, err
	}

	phase1 := &kernels.Reduce[T, R]{
		Policy:    o.policy,
		Src:       src,
		Dst:       partials,
		Valid:     partialsValid,
		N:         n,
		Transform: transform,
		Reduce:    reduce,
		Unroll:    o.unroll,
	}
	if err := r.q.Launch(wd, phase1.BlockKernel()); err != nil {
		return zero, err
	}

	// Partials are already transformed: the second pass folds them as is,
	// in a single block.
	phase2 := &kernels.Reduce[R, R]{
		Policy:    o.policy,
		Src:       partials,
		Dst:       result,
		Valid:     resultValid,
		N:         wd.GridBlocks,
		Transform: op.Identity[R](),
		Reduce:    reduce,
		Unroll:    o.unroll,
	}
	final := accel.WorkDiv{
		GridBlocks:   1,
		BlockThreads: wd.BlockThreads,
		ThreadElems:  (wd.GridBlocks + wd.BlockThreads - 1) / wd.BlockThreads,
	}
	if err := r.q.Launch(final, phase2.BlockKernel()); err != nil {
		return zero, err
	}
	return r.fetch(result, resultValid, partialsValid)
}

// fetch copies the result to the host and waits for the queue. A block
// that saw no element means the work division was wrong; partialsValid, when
// given, is checked for that.
func (r *run[T, R]) fetch(result *accel.Buffer[R], valid, partialsValid *accel.Buffer[bool]) (R, error) {
	var zero R
	host := make([]R, 1)
	hostValid := make([]bool, 1)
	if err := accel.Memcpy(r.q, host, result.Data(), accel.MemcpyDeviceToHost); err != nil {
		return zero, err
	}
	if err := accel.Memcpy(r.q, hostValid, valid.Data(), accel.MemcpyDeviceToHost); err != nil {
		return zero, err
	}
	var blocksValid []bool
	if partialsValid != nil {
		blocksValid = make([]bool, partialsValid.Len())
		if err := accel.Memcpy(r.q, blocksValid, partialsValid.Data(), accel.MemcpyDeviceToHost); err != nil {
			return zero, err
		}
	}
	if err := r.q.Wait(); err != nil {
		return zero, err
	}
	for b, ok := range blocksValid {
		if !ok {
			return zero, accel.NewConfigError("Reduce",
				fmt.Sprintf("block %d of %d had no element to reduce", b, len(blocksValid)), b)
		}
	}
	if !hostValid[0] {
		return zero, accel.NewConfigError("Reduce", "final block had no element to reduce", nil)
	}
	return host[0], nil
}
