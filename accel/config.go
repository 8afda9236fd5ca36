// Package accel configuration constants
package accel

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Thread and block dimensions
const (
	// Default block size for massively parallel devices
	DefaultBlockSize = 256

	// Block size for block-thread parallel devices (threads and SIMD lanes)
	BlockThreadBlockSize = 16

	// Maximum threads per block (CUDA compatibility)
	MaxThreadsPerBlock = 1024

	// Blocks launched per multiprocessor on massively parallel devices
	DefaultGridMultiplier = 8
)

// Algorithm tuning parameters
const (
	// Problems smaller than this are folded by a single thread
	SmallProblemThreshold = 1024

	// Unroll factor for the per-thread fold
	LoopUnrollFactor = 4
)

// Memory parameters
const (
	// Memory alignment for allocations (cache line)
	MemoryAlignment = 64

	// Default memory limit when none is configured
	DefaultTotalMem = 16 * 1024 * 1024 * 1024
)

// ConfigEnvVar is the environment variable with the default device
// configuration.
//
// The format is "<backend>[:<key>=<value>,...]". Backends are the names
// returned by Backends(). Keys:
//
//	workers=N   goroutines running blocks concurrently
//	sm=N        emulated multiprocessor count (gpu backend)
//	mem=SIZE    memory limit, e.g. "512MiB" or "2GB"
//	queue=K     default queue kind: "blocking" or "async"
const ConfigEnvVar = "GUDAPAR_BACKEND"

// DefaultConfig is used by New when ConfigEnvVar is not set.
var DefaultConfig string

// Config is the parsed form of a configuration string.
type Config struct {
	Backend    string
	Workers    int
	Multiprocs int
	TotalMem   uint64
	QueueKind  QueueKind
}

// ParseConfig parses a configuration string. An empty string selects the
// first backend with default options.
func ParseConfig(config string) (Config, error) {
	cfg := Config{}
	name, options := config, ""
	if idx := strings.Index(config, ":"); idx != -1 {
		name, options = config[:idx], config[idx+1:]
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = backendNames[0]
	}
	if _, found := backendKinds[name]; !found {
		return cfg, NewInvalidArgError("ParseConfig",
			fmt.Sprintf("unknown backend %q in configuration %q, known backends: %s",
				name, config, strings.Join(backendNames, ", ")))
	}
	cfg.Backend = name
	if options == "" {
		return cfg, nil
	}
	for _, part := range strings.Split(options, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return cfg, NewInvalidArgError("ParseConfig", fmt.Sprintf("option %q is not in key=value form", part))
		}
		switch key {
		case "workers", "sm":
			n, err := strconv.Atoi(value)
			if err != nil || n <= 0 {
				return cfg, NewInvalidArgError("ParseConfig", fmt.Sprintf("option %q needs a positive integer", part))
			}
			if key == "workers" {
				cfg.Workers = n
			} else {
				cfg.Multiprocs = n
			}
		case "mem":
			n, err := humanize.ParseBytes(value)
			if err != nil || n == 0 {
				return cfg, NewInvalidArgError("ParseConfig", fmt.Sprintf("option %q needs a byte size", part))
			}
			cfg.TotalMem = n
		case "queue":
			switch value {
			case "blocking":
				cfg.QueueKind = Blocking
			case "async":
				cfg.QueueKind = NonBlocking
			default:
				return cfg, NewInvalidArgError("ParseConfig", fmt.Sprintf("unknown queue kind %q", value))
			}
		default:
			return cfg, NewInvalidArgError("ParseConfig", fmt.Sprintf("unknown option %q", key))
		}
	}
	return cfg, nil
}

// New opens the default device.
//
// The configuration comes from:
//
//  1. The environment variable GUDAPAR_BACKEND, if defined.
//  2. DefaultConfig, if not empty.
//  3. The first backend ("serial") with default options.
func New() (*Device, error) {
	if config, found := os.LookupEnv(ConfigEnvVar); found {
		return NewWithConfig(config)
	}
	return NewWithConfig(DefaultConfig)
}

// NewWithConfig opens a device from a configuration string. See ConfigEnvVar
// for the format.
func NewWithConfig(config string) (*Device, error) {
	cfg, err := ParseConfig(config)
	if err != nil {
		return nil, err
	}
	return Open(cfg), nil
}
