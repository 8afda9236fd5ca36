// Package transform applies an element-wise operator across a device.
package transform

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

// Transform writes fn(src[i]) to dst[i] for every i in [0, n). dst may alias
// src for an in-place transform. The call returns once the queue has
// finished the work, whatever its kind.
//
// fn is either func(T) R or func(*accel.Ctx, T) R.
func Transform[T, R any, F op.UnaryFunc[T, R]](dev *accel.Device, q *accel.Queue, n int, src seq.Source[T], dst seq.Sink[R], fn F) error {
	bound, err := op.BindUnary[T, R](fn)
	if err != nil {
		return err
	}
	switch {
	case dev == nil || q == nil:
		return accel.NewInvalidArgError("Transform", "nil device or queue")
	case q.Device() != dev:
		return accel.NewInvalidArgError("Transform", fmt.Sprintf("queue belongs to %s, not %s", q.Device(), dev))
	case n < 0:
		return accel.NewInvalidArgError("Transform", fmt.Sprintf("negative problem size %d", n))
	case n == 0:
		return nil
	case src == nil || dst == nil:
		return accel.NewInvalidArgError("Transform", "nil source or destination")
	case src.Len() < n:
		return accel.NewInvalidArgError("Transform", fmt.Sprintf("source has %d elements, need %d", src.Len(), n))
	case dst.Len() < n:
		return accel.NewInvalidArgError("Transform", fmt.Sprintf("destination has %d elements, need %d", dst.Len(), n))
	}

	props := dev.Properties()
	wd := workdiv.For(props, n)
	k := &kernels.Transform[T, R]{
		Policy: access.ForKind(props.Kind),
		Src:    src,
		Dst:    dst,
		N:      n,
		Fn:     bound,
	}
	klog.V(1).Infof("transform: %d elements on %s, %s", n, dev, wd)
	if err := q.Launch(wd, k.BlockKernel()); err != nil {
		return errors.WithMessagef(err, "transform of %d elements on %s", n, dev)
	}
	if err := q.Wait(); err != nil {
		return errors.WithMessagef(err, "transform of %d elements on %s", n, dev)
	}
	return nil
}
