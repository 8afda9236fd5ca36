// Package workdiv picks block and grid sizes per accelerator kind.
//
//	kind                 block  grid
//	Sequential           1      1
//	GridBlockParallel    1      hardware concurrency
//	BlockThreadParallel  16     1
//	MassivelyParallel    256    multiprocessors * 8
//
// Grid sizes are further capped by MaxGridSize so no block is launched for
// elements that do not exist.
package workdiv

import (
	"github.com/LynnColeArt/gudapar/accel"
)

// BlockSize returns the number of threads per block for kind. It is a
// constant per kind.
func BlockSize(kind accel.Kind) int {
	switch kind {
	case accel.BlockThreadParallel:
		return accel.BlockThreadBlockSize
	case accel.MassivelyParallel:
		return accel.DefaultBlockSize
	default:
		return 1
	}
}

// GridSize returns the uncapped number of blocks for a device. It only
// depends on the device properties.
func GridSize(props *accel.Properties) int {
	switch props.Kind {
	case accel.GridBlockParallel:
		return max(props.NumCores, 1)
	case accel.MassivelyParallel:
		return max(props.MultiProcessorCount*accel.DefaultGridMultiplier, 1)
	default:
		return 1
	}
}

// MaxGridSize is the largest useful grid for n elements and blockSize
// threads per block: ((n+1)/2 - 1)/blockSize + 1, at least 1.
func MaxGridSize(n, blockSize int) int {
	if n <= 2 {
		return 1
	}
	return ((n+1)/2-1)/blockSize + 1
}

// For returns the work division used for n elements on a device.
func For(props *accel.Properties, n int) accel.WorkDiv {
	blockSize := BlockSize(props.Kind)
	gridSize := min(GridSize(props), MaxGridSize(n, blockSize))
	threads := gridSize * blockSize
	return accel.WorkDiv{
		GridBlocks:   gridSize,
		BlockThreads: blockSize,
		ThreadElems:  max((n+threads-1)/threads, 1),
	}
}
