package transform

import (
	"fmt"
	"testing"

	"github.com/LynnColeArt/gudapar/accel"
	"github.com/LynnColeArt/gudapar/seq"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformAllBackends(t *testing.T) {
	for _, backend := range accel.Backends() {
		for _, n := range []int{1, 255, 6400, 100_000} {
			t.Run(fmt.Sprintf("%s/n=%d", backend, n), func(t *testing.T) {
				dev := must.M1(accel.NewWithConfig(backend + ":sm=2"))
				q := accel.NewQueue(dev, accel.NonBlocking)
				defer q.Close()

				dst := make([]float64, n)
				err := Transform[int, float64](dev, q, n, seq.Iota[int]{N: n}, seq.Slice[float64](dst),
					func(x int) float64 { return float64(x) / 2 })
				require.NoError(t, err)
				for i, v := range dst {
					if v != float64(i)/2 {
						t.Fatalf("dst[%d] = %v, want %v", i, v, float64(i)/2)
					}
				}
			})
		}
	}
}

func TestTransformIdentityIsIdempotent(t *testing.T) {
	dev := accel.OpenKind(accel.MassivelyParallel)
	q := dev.NewQueue()
	defer q.Close()
	const n = 4097
	want := seq.Collect[int64](seq.Iota[int64]{Start: 10, N: n})
	data := seq.Collect[int64](seq.Iota[int64]{Start: 10, N: n})
	identity := func(x int64) int64 { return x }
	for range 2 {
		require.NoError(t, Transform[int64, int64](dev, q, n, seq.Slice[int64](data), seq.Slice[int64](data), identity))
	}
	assert.Equal(t, want, data)
}

func TestTransformInPlaceWithContext(t *testing.T) {
	dev := accel.OpenKind(accel.BlockThreadParallel)
	q := dev.NewQueue()
	defer q.Close()
	data := seq.Collect[int](seq.Iota[int]{N: 1000})
	err := Transform[int, int](dev, q, len(data), seq.Slice[int](data), seq.Slice[int](data),
		func(ctx *accel.Ctx, x int) int { return x * x })
	require.NoError(t, err)
	for i, v := range data {
		assert.Equal(t, i*i, v)
	}
}

func TestTransformArguments(t *testing.T) {
	dev := accel.OpenKind(accel.Sequential)
	q := dev.NewQueue()
	defer q.Close()
	inc := func(x int) int { return x + 1 }

	// n == 0 leaves dst alone.
	dst := []int{42}
	require.NoError(t, Transform[int, int](dev, q, 0, seq.Iota[int]{N: 0}, seq.Slice[int](dst), inc))
	assert.Equal(t, []int{42}, dst)
	require.NoError(t, Transform[int, int](dev, q, 0, nil, nil, inc))

	err := Transform[int, int](dev, q, 2, seq.Iota[int]{N: 2}, seq.Slice[int](dst), inc)
	assert.True(t, accel.IsInvalidArgError(err), "short destination: %v", err)

	err = Transform[int, int](dev, q, 3, seq.Iota[int]{N: 2}, seq.Slice[int](make([]int, 3)), inc)
	assert.True(t, accel.IsInvalidArgError(err), "short source: %v", err)

	err = Transform[int, int](dev, accel.OpenKind(accel.Sequential).NewQueue(), 1, seq.Iota[int]{N: 1}, seq.Slice[int](dst), inc)
	assert.True(t, accel.IsInvalidArgError(err), "foreign queue: %v", err)
}

func TestTransformPanicIsExecutionError(t *testing.T) {
	dev := accel.OpenKind(accel.MassivelyParallel)
	q := dev.NewQueue()
	defer q.Close()
	dst := make([]int, 5000)
	err := Transform[int, int](dev, q, len(dst), seq.Iota[int]{N: len(dst)}, seq.Slice[int](dst),
		func(x int) int {
			if x == 4321 {
				panic("boom")
			}
			return x
		})
	require.Error(t, err)
	assert.True(t, accel.IsExecutionError(err))
}
