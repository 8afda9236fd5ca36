package kernels

import (
	"fmt"
	"testing"

	"github.com/LynnColeArt/gudapar/access"
	"github.com/LynnColeArt/gudapar/accel"
	"github.com/LynnColeArt/gudapar/op"
	"github.com/LynnColeArt/gudapar/seq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func launch(t *testing.T, dev *accel.Device, wd accel.WorkDiv, k accel.Kernel) {
	t.Helper()
	q := accel.NewQueue(dev, accel.Blocking)
	defer q.Close()
	require.NoError(t, q.Launch(wd, k))
	require.NoError(t, q.Wait())
}

func sumArgs(n, grid int, p access.Policy, unroll bool) (*Reduce[int, int], []int, []bool) {
	partials := make([]int, grid)
	valid := make([]bool, grid)
	return &Reduce[int, int]{
		Policy:    p,
		Src:       seq.Iota[int]{Start: 1, N: n},
		Dst:       seq.Slice[int](partials),
		Valid:     seq.Slice[bool](valid),
		N:         n,
		Transform: op.Identity[int](),
		Reduce:    func(_ *accel.Ctx, a, b int) int { return a + b },
		Unroll:    unroll,
	}, partials, valid
}

func TestBlockReduceGeometries(t *testing.T) {
	dev := accel.OpenKind(accel.MassivelyParallel)
	geometries := []struct{ grid, block int }{
		{1, 1}, {1, 2}, {1, 3}, {1, 16}, {2, 5}, {4, 256}, {13, 256}, {3, 7},
	}
	sizes := []int{1, 2, 3, 10, 100, 777, 1024, 6400}
	for _, p := range []access.Policy{access.Linear{}, access.GridStriding{}} {
		for _, unroll := range []bool{false, true} {
			for _, g := range geometries {
				for _, n := range sizes {
					name := fmt.Sprintf("%s/unroll=%v/grid=%d/block=%d/n=%d", p, unroll, g.grid, g.block, n)
					t.Run(name, func(t *testing.T) {
						k, partials, valid := sumArgs(n, g.grid, p, unroll)
						launch(t, dev, accel.WorkDiv{GridBlocks: g.grid, BlockThreads: g.block, ThreadElems: 1}, k.BlockKernel())
						total := 0
						for b := range partials {
							if valid[b] {
								total += partials[b]
							}
						}
						assert.Equal(t, n*(n+1)/2, total)
					})
				}
			}
		}
	}
}

// Blocks whose threads all fall past n report themselves invalid instead of
// writing a garbage partial.
func TestBlockReduceMarksVacuousBlocks(t *testing.T) {
	dev := accel.OpenKind(accel.MassivelyParallel)
	k, partials, valid := sumArgs(5, 4, access.GridStriding{}, false)
	for i := range partials {
		partials[i] = -1
	}
	launch(t, dev, accel.WorkDiv{GridBlocks: 4, BlockThreads: 4, ThreadElems: 1}, k.BlockKernel())
	assert.Equal(t, []bool{true, true, false, false}, valid)
	assert.Equal(t, []int{1 + 2 + 3 + 4, 5, -1, -1}, partials)
}

func TestSmallKernel(t *testing.T) {
	dev := accel.OpenKind(accel.Sequential)
	for _, n := range []int{0, 1, 5, 1023} {
		k, partials, valid := sumArgs(n, 1, access.Linear{}, true)
		launch(t, dev, accel.WorkDiv{GridBlocks: 1, BlockThreads: 1, ThreadElems: n}, k.SmallKernel())
		assert.Equal(t, n > 0, valid[0])
		assert.Equal(t, n*(n+1)/2, partials[0])
	}
}

func TestTransformKernel(t *testing.T) {
	dev := accel.OpenKind(accel.MassivelyParallel)
	const n = 1000
	data := seq.Collect[int](seq.Iota[int]{N: n})
	for _, p := range []access.Policy{access.Linear{}, access.GridStriding{}} {
		buf := seq.Slice[int](append([]int(nil), data...))
		k := &Transform[int, int]{
			Policy: p,
			Src:    buf,
			Dst:    buf, // in place
			N:      n,
			Fn:     func(_ *accel.Ctx, x int) int { return x * x },
		}
		launch(t, dev, accel.WorkDiv{GridBlocks: 3, BlockThreads: 64, ThreadElems: 6}, k.BlockKernel())
		for i, v := range buf {
			if v != i*i {
				t.Fatalf("%s: buf[%d]=%d, want %d", p, i, v, i*i)
			}
		}
	}
}
