package access

import (
	"fmt"
	"testing"

	"github.com/LynnColeArt/gudapar/accel"
	"github.com/stretchr/testify/assert"
)

type pos struct{ global, threads int }

func (p pos) Global() int      { return p.global }
func (p pos) GridThreads() int { return p.threads }

// TestPartitionCoverage marks every visited index and checks that each one
// was visited exactly once.
func TestPartitionCoverage(t *testing.T) {
	sizes := []int{0, 1, 2, 15, 16, 17, 255, 256, 257, 1023, 1024, 1025, 6400}
	geometries := []struct{ grid, block int }{
		{1, 1}, {1, 16}, {3, 1}, {4, 256}, {7, 5}, {64, 256}, {13, 3},
	}
	for _, p := range []Policy{Linear{}, GridStriding{}} {
		for _, g := range geometries {
			for _, n := range sizes {
				name := fmt.Sprintf("%s/grid=%d/block=%d/n=%d", p, g.grid, g.block, n)
				marks := make([]int, n)
				threads := g.grid * g.block
				for b := 0; b < g.grid; b++ {
					for th := 0; th < g.block; th++ {
						ctx := &accel.Ctx{BlockIdx: b, ThreadIdx: th, BlockDim: g.block, GridDim: g.grid}
						r := Range(p, ctx, n)
						count := 0
						for i := r.Start; i < r.End; i += r.Step {
							marks[i]++
							count++
						}
						if count != r.Count() {
							t.Fatalf("%s: thread %d Count()=%d, visited %d", name, ctx.Global(), r.Count(), count)
						}
					}
				}
				for i, m := range marks {
					if m != 1 {
						t.Fatalf("%s: index %d visited %d times (threads=%d)", name, i, m, threads)
					}
				}
			}
		}
	}
}

func TestLinearChunksAreBalanced(t *testing.T) {
	const n, threads = 1000, 7
	minCount, maxCount := n, 0
	prevEnd := 0
	for th := 0; th < threads; th++ {
		r := Range(Linear{}, pos{th, threads}, n)
		assert.Equal(t, prevEnd, r.Start, "chunks must be contiguous and in thread order")
		prevEnd = r.End
		minCount = min(minCount, r.Count())
		maxCount = max(maxCount, r.Count())
	}
	assert.Equal(t, n, prevEnd)
	assert.LessOrEqual(t, maxCount-minCount, 1)
}

func TestGridStridingRange(t *testing.T) {
	r := Range(GridStriding{}, pos{3, 8}, 20)
	assert.Equal(t, IndexRange{Start: 3, End: 20, Step: 8}, r)
	assert.Equal(t, 3, r.Count()) // 3, 11, 19

	idle := Range(GridStriding{}, pos{30, 32}, 20)
	assert.True(t, idle.Empty())
	assert.Zero(t, idle.Count())
}

func TestForKind(t *testing.T) {
	assert.Equal(t, Policy(Linear{}), ForKind(accel.Sequential))
	assert.Equal(t, Policy(Linear{}), ForKind(accel.GridBlockParallel))
	assert.Equal(t, Policy(GridStriding{}), ForKind(accel.BlockThreadParallel))
	assert.Equal(t, Policy(GridStriding{}), ForKind(accel.MassivelyParallel))
	assert.True(t, Linear{}.ThreadOrderCompliant())
	assert.False(t, GridStriding{}.ThreadOrderCompliant())
}
