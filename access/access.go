// Package access maps a thread's position in the grid to the problem indices
// it visits.
//
// For every policy the union over all grid threads of
// {Start, Start+Step, Start+2*Step, ...} ∩ [0, n) is exactly [0, n), each
// index visited once. A thread whose range is empty still has to take part in
// its block's barriers.
package access

import (
	"fmt"

	"github.com/LynnColeArt/gudapar/accel"
)

// Thread is the position of a thread in the grid. *accel.Ctx implements it.
type Thread interface {
	Global() int
	GridThreads() int
}

// Policy maps a thread and a problem size to an index range.
type Policy interface {
	StartIndex(t Thread, n int) int
	EndIndex(t Thread, n int) int
	StepSize(t Thread) int

	// ThreadOrderCompliant reports whether the indices are handed out in
	// thread order: thread t only visits indices below those of thread t+1.
	// Non-commutative operators need it.
	ThreadOrderCompliant() bool

	fmt.Stringer
}

// IndexRange is the [Start, End) range a thread visits with stride Step.
type IndexRange struct {
	Start, End, Step int
}

// Range evaluates p for thread t.
func Range(p Policy, t Thread, n int) IndexRange {
	return IndexRange{Start: p.StartIndex(t, n), End: p.EndIndex(t, n), Step: p.StepSize(t)}
}

// Empty reports whether the range has no index.
func (r IndexRange) Empty() bool {
	return r.Start >= r.End
}

// Count returns the number of indices in the range.
func (r IndexRange) Count() int {
	if r.Empty() {
		return 0
	}
	return (r.End-r.Start-1)/r.Step + 1
}

// Linear gives thread t of G the contiguous chunk [n*t/G, n*(t+1)/G).
// Chunk sizes differ by at most one element.
type Linear struct{}

func chunkBound(t, threads, n int) int {
	return int(int64(n) * int64(t) / int64(threads))
}

func (Linear) StartIndex(t Thread, n int) int {
	return chunkBound(t.Global(), t.GridThreads(), n)
}

func (Linear) EndIndex(t Thread, n int) int {
	return chunkBound(t.Global()+1, t.GridThreads(), n)
}

func (Linear) StepSize(Thread) int        { return 1 }
func (Linear) ThreadOrderCompliant() bool { return true }
func (Linear) String() string             { return "Linear" }

// GridStriding starts thread t at index t and strides by the grid thread
// count, so neighbouring threads touch neighbouring elements.
type GridStriding struct{}

func (GridStriding) StartIndex(t Thread, _ int) int { return t.Global() }
func (GridStriding) EndIndex(_ Thread, n int) int   { return n }
func (GridStriding) StepSize(t Thread) int          { return t.GridThreads() }
func (GridStriding) ThreadOrderCompliant() bool     { return false }
func (GridStriding) String() string                 { return "GridStriding" }

// ForKind returns the default policy for an accelerator kind: Linear for
// CPU kinds that run one thread per block, GridStriding otherwise.
func ForKind(kind accel.Kind) Policy {
	switch kind {
	case accel.Sequential, accel.GridBlockParallel:
		return Linear{}
	default:
		return GridStriding{}
	}
}
