package gudapar

import (
	"sync"

	"github.com/LynnColeArt/gudapar/accel"
	"github.com/LynnColeArt/gudapar/op"
	"github.com/LynnColeArt/gudapar/reduce"
	"github.com/LynnColeArt/gudapar/seq"
	"github.com/LynnColeArt/gudapar/transform"
	"k8s.io/klog/v2"
)

// Global runtime state
var (
	muDefault     sync.Mutex
	defaultDevice *accel.Device
)

// DefaultDevice returns the device used by the package-level functions,
// opening it with accel.New on first use.
func DefaultDevice() (*accel.Device, error) {
	muDefault.Lock()
	defer muDefault.Unlock()
	if defaultDevice != nil {
		return defaultDevice, nil
	}
	dev, err := accel.New()
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("gudapar: default device %s", dev.Describe())
	defaultDevice = dev
	return dev, nil
}

// SetDefaultDevice replaces the device used by the package-level functions.
// A nil dev makes the next call open one from the environment again.
func SetDefaultDevice(dev *accel.Device) {
	muDefault.Lock()
	defer muDefault.Unlock()
	defaultDevice = dev
}

// withQueue runs fn on the default device with a queue of its own, so
// concurrent callers never wait on each other's work.
func withQueue(fn func(dev *accel.Device, q *accel.Queue) error) error {
	dev, err := DefaultDevice()
	if err != nil {
		return err
	}
	q := dev.NewQueue()
	err = fn(dev, q)
	if closeErr := q.Close(); err == nil {
		err = closeErr
	}
	return err
}

// Reduce folds the first n elements of src with reduceFn on the default
// device. See reduce.Reduce.
func Reduce[T any, B op.BinaryFunc[T]](n int, src seq.Source[T], reduceFn B, opts ...reduce.Option) (result T, err error) {
	err = withQueue(func(dev *accel.Device, q *accel.Queue) error {
		result, err = reduce.Reduce[T](dev, q, n, src, reduceFn, opts...)
		return err
	})
	return
}

// TransformReduce folds transformFn(src[i]) for i in [0, n) with reduceFn on
// the default device. See reduce.TransformReduce.
func TransformReduce[T, R any, U op.UnaryFunc[T, R], B op.BinaryFunc[R]](n int, src seq.Source[T], transformFn U, reduceFn B, opts ...reduce.Option) (result R, err error) {
	err = withQueue(func(dev *accel.Device, q *accel.Queue) error {
		result, err = reduce.TransformReduce[T, R](dev, q, n, src, transformFn, reduceFn, opts...)
		return err
	})
	return
}

// Transform writes fn(src[i]) to dst[i] for i in [0, n) on the default
// device. See transform.Transform.
func Transform[T, R any, F op.UnaryFunc[T, R]](n int, src seq.Source[T], dst seq.Sink[R], fn F) error {
	return withQueue(func(dev *accel.Device, q *accel.Queue) error {
		return transform.Transform[T, R](dev, q, n, src, dst, fn)
	})
}
