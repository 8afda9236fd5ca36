package accel

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/dustin/go-humanize"
)

// MemcpyKind specifies the direction of memory transfer.
// All device memory is host-accessible on CPU backends; the kind is kept so
// callers state the intended direction, and it is reported in logs.
type MemcpyKind int

const (
	MemcpyHostToHost     MemcpyKind = iota // Host to host transfer
	MemcpyHostToDevice                     // Host to device transfer
	MemcpyDeviceToHost                     // Device to host transfer
	MemcpyDeviceToDevice                   // Device to device transfer
)

// String returns the transfer direction.
func (k MemcpyKind) String() string {
	switch k {
	case MemcpyHostToHost:
		return "HostToHost"
	case MemcpyHostToDevice:
		return "HostToDevice"
	case MemcpyDeviceToHost:
		return "DeviceToHost"
	case MemcpyDeviceToDevice:
		return "DeviceToDevice"
	default:
		return fmt.Sprintf("MemcpyKind(%d)", int(k))
	}
}

// MemoryPool accounts device memory against the device limit.
type MemoryPool struct {
	mu         sync.Mutex
	limit      int64
	totalAlloc int64
	peakAlloc  int64
}

// NewMemoryPool creates a pool that refuses allocations beyond limit bytes.
func NewMemoryPool(limit uint64) *MemoryPool {
	return &MemoryPool{limit: int64(limit)}
}

// reserve accounts size bytes, rounded up to MemoryAlignment.
func (mp *MemoryPool) reserve(size int64) (int64, error) {
	aligned := (size + MemoryAlignment - 1) &^ (MemoryAlignment - 1)
	mp.mu.Lock()
	defer mp.mu.Unlock()
	if mp.totalAlloc+aligned > mp.limit {
		return 0, NewMemoryError("Alloc",
			fmt.Sprintf("cannot allocate %s, %s of %s in use",
				humanize.IBytes(uint64(aligned)), humanize.IBytes(uint64(mp.totalAlloc)), humanize.IBytes(uint64(mp.limit))),
			ErrOutOfMemory)
	}
	mp.totalAlloc += aligned
	if mp.totalAlloc > mp.peakAlloc {
		mp.peakAlloc = mp.totalAlloc
	}
	return aligned, nil
}

func (mp *MemoryPool) release(aligned int64) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.totalAlloc -= aligned
}

// Stats returns memory pool statistics
func (mp *MemoryPool) Stats() (allocated, peak int64) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.totalAlloc, mp.peakAlloc
}

// Buffer is a typed, device-resident sequence of n elements.
// Kernels read and write it through At and Set from many threads; callers
// must keep writes disjoint.
type Buffer[T any] struct {
	dev     *Device
	data    []T
	aligned int64
	freed   bool
	mu      sync.Mutex
}

// Alloc allocates a buffer of n elements on dev.
//
// Example:
//
//	buf, err := accel.Alloc[float32](dev, 1024)
//	if err != nil {
//		return err
//	}
//	defer buf.Free()
func Alloc[T any](dev *Device, n int) (*Buffer[T], error) {
	if n < 0 {
		return nil, ErrInvalidSize
	}
	var zero T
	aligned, err := dev.memory.reserve(int64(n) * int64(unsafe.Sizeof(zero)))
	if err != nil {
		return nil, err
	}
	return &Buffer[T]{dev: dev, data: make([]T, n), aligned: aligned}, nil
}

// At returns element i.
func (b *Buffer[T]) At(i int) T { return b.data[i] }

// Set stores v at element i.
func (b *Buffer[T]) Set(i int, v T) { b.data[i] = v }

// Len returns the number of elements.
func (b *Buffer[T]) Len() int { return len(b.data) }

// Data returns a slice view of the buffer. It shares memory with the buffer.
func (b *Buffer[T]) Data() []T { return b.data }

// Device returns the device owning the buffer.
func (b *Buffer[T]) Device() *Device { return b.dev }

// Free releases the buffer memory back to the device. Freeing twice returns
// ErrDoubleFree.
func (b *Buffer[T]) Free() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.freed {
		return ErrDoubleFree
	}
	b.freed = true
	b.dev.memory.release(b.aligned)
	b.data = nil
	return nil
}

// Memcpy enqueues a copy of len(src) elements from src into dst on q.
// The copy is only guaranteed to be visible after q.Wait returns.
//
// Example:
//
//	host := make([]float32, 1)
//	accel.Memcpy(q, host, result.Data(), accel.MemcpyDeviceToHost)
//	err := q.Wait()
func Memcpy[T any](q *Queue, dst, src []T, kind MemcpyKind) error {
	if len(dst) < len(src) {
		return NewInvalidArgError("Memcpy",
			fmt.Sprintf("%s copy of %d elements into %d", kind, len(src), len(dst)))
	}
	return q.Enqueue(fmt.Sprintf("Memcpy%s", kind), func() error {
		copy(dst, src)
		return nil
	})
}
