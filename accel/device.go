// Package accel is the accelerator abstraction the parallel algorithms run on.
//
// A Device executes kernels over a one-dimensional grid of blocks, each block a
// group of threads that can synchronize on a barrier and share block-scoped
// scratch memory. Devices are emulated on the CPU with goroutines; the backend
// decides how blocks and threads map onto them:
//
//	serial   one goroutine runs every block and thread in order
//	blocks   blocks run in parallel, one thread per block
//	threads  one block whose threads run in parallel
//	simd     one block of SIMD-lane threads
//	gpu      many blocks of many threads, multiprocessor count from config
//
// Example usage:
//
//	dev, _ := accel.NewWithConfig("gpu:sm=8")
//	q := accel.NewQueue(dev, accel.Blocking)
//	defer q.Close()
//
//	out, _ := accel.Alloc[float32](dev, n)
//	defer out.Free()
//
//	q.Launch(accel.WorkDiv{GridBlocks: 4, BlockThreads: 256}, func(ctx *accel.Ctx) {
//		for i := ctx.Global(); i < n; i += ctx.GridThreads() {
//			out.Set(i, 1)
//		}
//	})
//	err := q.Wait()
package accel

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"k8s.io/klog/v2"
)

// Properties describes a device. It is populated once when the device is
// opened and passed by pointer to whoever needs to size work for it.
type Properties struct {
	Backend string // Backend name, see Backends
	Kind    Kind
	Name    string // Human-readable device name

	// NumCores is the hardware concurrency of the host.
	NumCores int
	// Workers is the number of goroutines that run blocks concurrently.
	Workers int
	// MultiProcessorCount is the number of streaming multiprocessors,
	// meaningful for MassivelyParallel devices.
	MultiProcessorCount int
	// MaxThreadsPerBlock bounds WorkDiv.BlockThreads.
	MaxThreadsPerBlock int
	// SIMDLanes is the float32 width of the widest vector unit.
	SIMDLanes int

	TotalMem uint64 // Memory limit in bytes
	Features CPUFeatures
}

// Device represents a compute device: one of the CPU backends with its
// properties and memory accounting.
type Device struct {
	id        int
	props     Properties
	memory    *MemoryPool
	queueKind QueueKind
}

var (
	backendNames = []string{"serial", "blocks", "threads", "simd", "gpu"}
	backendKinds = map[string]Kind{
		"serial":  Sequential,
		"blocks":  GridBlockParallel,
		"threads": BlockThreadParallel,
		"simd":    BlockThreadParallel,
		"gpu":     MassivelyParallel,
	}
	nextDeviceID atomic.Int32
)

// Backends returns the names of the available backends, the first one being
// the default.
func Backends() []string {
	return append([]string(nil), backendNames...)
}

// Devices opens one device per backend with default options, in the order
// of Backends.
func Devices() []*Device {
	devices := make([]*Device, 0, len(backendNames))
	for _, name := range backendNames {
		devices = append(devices, Open(Config{Backend: name}))
	}
	return devices
}

// Open opens a device for the given configuration. Properties not set in cfg
// are filled from the host.
func Open(cfg Config) *Device {
	kind, known := backendKinds[cfg.Backend]
	if !known {
		if cfg.Backend != "" {
			klog.Warningf("accel: unknown backend %q, opening %q", cfg.Backend, backendNames[0])
		}
		cfg.Backend = backendNames[0]
		kind = backendKinds[cfg.Backend]
	}
	numCores := runtime.NumCPU()
	features := DetectCPUFeatures()
	props := Properties{
		Backend:             cfg.Backend,
		Kind:                kind,
		NumCores:            numCores,
		Workers:             numCores,
		MultiProcessorCount: 1,
		MaxThreadsPerBlock:  1,
		SIMDLanes:           features.Float32Lanes(),
		TotalMem:            DefaultTotalMem,
		Features:            features,
	}
	switch cfg.Backend {
	case "serial":
		props.Name = "CPU (serial)"
		props.Workers = 1
	case "blocks":
		props.Name = "CPU (parallel blocks)"
	case "threads":
		props.Name = "CPU (threaded block)"
		props.MaxThreadsPerBlock = MaxThreadsPerBlock
	case "simd":
		props.Name = fmt.Sprintf("CPU (SIMD block, %d lanes)", props.SIMDLanes)
		props.MaxThreadsPerBlock = MaxThreadsPerBlock
		// One block at a time, its threads standing in for vector lanes.
		props.Workers = 1
	case "gpu":
		props.Name = "Emulated GPU"
		props.MaxThreadsPerBlock = MaxThreadsPerBlock
		props.MultiProcessorCount = numCores
	}
	if cfg.Workers > 0 && cfg.Backend != "serial" {
		props.Workers = cfg.Workers
	}
	if cfg.Multiprocs > 0 {
		props.MultiProcessorCount = cfg.Multiprocs
	}
	if cfg.TotalMem > 0 {
		props.TotalMem = cfg.TotalMem
	}
	return &Device{
		id:        int(nextDeviceID.Add(1)) - 1,
		props:     props,
		memory:    NewMemoryPool(props.TotalMem),
		queueKind: cfg.QueueKind,
	}
}

// OpenKind opens a device of the given kind with default options.
func OpenKind(kind Kind) *Device {
	for _, name := range backendNames {
		if backendKinds[name] == kind {
			return Open(Config{Backend: name})
		}
	}
	return Open(Config{})
}

// ID returns the device identifier, unique within the process.
func (d *Device) ID() int { return d.id }

// Kind returns the accelerator kind of the device.
func (d *Device) Kind() Kind { return d.props.Kind }

// Properties returns the device properties. The returned struct must not be
// modified.
func (d *Device) Properties() *Properties { return &d.props }

// Memory returns the device memory pool.
func (d *Device) Memory() *MemoryPool { return d.memory }

// NewQueue creates a queue of the kind the device was configured with.
func (d *Device) NewQueue() *Queue { return NewQueue(d, d.queueKind) }

// String implements fmt.Stringer.
func (d *Device) String() string {
	return fmt.Sprintf("%s#%d", d.props.Backend, d.id)
}

// Describe returns a multi-line description of the device.
func (d *Device) Describe() string {
	p := &d.props
	allocated, peak := d.memory.Stats()
	return fmt.Sprintf("%s [%s, backend %q]\n"+
		"  cores=%d workers=%d multiprocessors=%d maxThreadsPerBlock=%d\n"+
		"  simd=%d lanes (%s)\n"+
		"  memory: %s limit, %s allocated, %s peak",
		p.Name, p.Kind, p.Backend,
		p.NumCores, p.Workers, p.MultiProcessorCount, p.MaxThreadsPerBlock,
		p.SIMDLanes, p.Features,
		humanize.IBytes(p.TotalMem), humanize.IBytes(uint64(allocated)), humanize.IBytes(uint64(peak)))
}
