package accel

import (
	"fmt"
	"strings"
)

// Kind classifies an accelerator by how it maps grids, blocks and threads onto
// hardware. Work division and memory-access policies are selected per Kind.
type Kind int

const (
	// Sequential runs a single thread that processes everything.
	Sequential Kind = iota
	// GridBlockParallel runs blocks in parallel, with one thread per block.
	GridBlockParallel
	// BlockThreadParallel runs a single block whose threads run in parallel.
	BlockThreadParallel
	// MassivelyParallel runs many blocks of many threads, GPU style.
	MassivelyParallel
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Sequential:
		return "Sequential"
	case GridBlockParallel:
		return "GridBlockParallel"
	case BlockThreadParallel:
		return "BlockThreadParallel"
	case MassivelyParallel:
		return "MassivelyParallel"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind converts a kind name (case-insensitive) back to a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range []Kind{Sequential, GridBlockParallel, BlockThreadParallel, MassivelyParallel} {
		if strings.EqualFold(k.String(), s) {
			return k, nil
		}
	}
	return 0, NewInvalidArgError("ParseKind", fmt.Sprintf("unknown accelerator kind %q", s))
}
