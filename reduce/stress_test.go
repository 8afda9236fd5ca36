package reduce

import (
	"math"
	"math/rand"
	"testing"

	"github.com/LynnColeArt/gudapar/accel"
	"github.com/LynnColeArt/gudapar/internal/tolerance"
	"github.com/LynnColeArt/gudapar/seq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Numerical thresholds
const (
	cancellationBase = 1 << 20
	denormalBase     = 1e-40
)

// stressInput is a numerically challenging input, with a check of the sum
// the engine computed for it.
type stressInput struct {
	name  string
	gen   func(n int) []float32
	check func(t *testing.T, data []float32, sum float32)
}

func sequentialSum(data []float32) float64 {
	var s float64
	for _, v := range data {
		s += float64(v)
	}
	return s
}

var stressInputs = []stressInput{
	{
		name: "CatastrophicCancellation",
		gen: func(n int) []float32 {
			data := make([]float32, n)
			for i := range data {
				// A power of two keeps every partial sum exact.
				if i%2 == 0 {
					data[i] = cancellationBase
				} else {
					data[i] = -cancellationBase
				}
			}
			return data
		},
		check: func(t *testing.T, data []float32, sum float32) {
			// An odd length leaves one positive term uncancelled.
			assert.Equal(t, float32(cancellationBase*(len(data)%2)), sum)
		},
	},
	{
		name: "DenormalHeavy",
		gen: func(n int) []float32 {
			data := make([]float32, n)
			for i := range data {
				data[i] = float32(denormalBase) * float32(1+i%7)
			}
			return data
		},
		check: func(t *testing.T, data []float32, sum float32) {
			want := float32(sequentialSum(data))
			assert.True(t, tolerance.NearEqual(want, sum, tolerance.Accumulated[float32](len(data))),
				tolerance.Describe(want, sum))
		},
	},
	{
		name: "NaNInfection",
		gen: func(n int) []float32 {
			data := make([]float32, n)
			for i := range data {
				data[i] = rand.Float32()
			}
			data[n/3] = float32(math.NaN())
			return data
		},
		check: func(t *testing.T, data []float32, sum float32) {
			assert.True(t, math.IsNaN(float64(sum)), "NaN must propagate, got %v", sum)
		},
	},
	{
		name: "OppositeInfinities",
		gen: func(n int) []float32 {
			data := make([]float32, n)
			data[1] = float32(math.Inf(1))
			data[n-1] = float32(math.Inf(-1))
			return data
		},
		check: func(t *testing.T, data []float32, sum float32) {
			assert.True(t, math.IsNaN(float64(sum)), "Inf + -Inf is NaN, got %v", sum)
		},
	},
	{
		name: "SingleInfinity",
		gen: func(n int) []float32 {
			data := make([]float32, n)
			for i := range data {
				data[i] = 1
			}
			data[n/2] = float32(math.Inf(1))
			return data
		},
		check: func(t *testing.T, data []float32, sum float32) {
			assert.True(t, math.IsInf(float64(sum), 1))
		},
	},
}

func TestStressInputs(t *testing.T) {
	for _, in := range stressInputs {
		for _, dev := range accel.Devices() {
			t.Run(in.name+"/"+dev.Properties().Backend, func(t *testing.T) {
				q := dev.NewQueue()
				defer q.Close()
				for _, n := range []int{33_333, 33_334} {
					data := in.gen(n)
					sum, err := Reduce[float32](dev, q, len(data), seq.Slice[float32](data),
						func(a, b float32) float32 { return a + b })
					require.NoError(t, err)
					in.check(t, data, sum)
				}
			})
		}
	}
}

// Many reductions in flight on one device, each on its own queue.
func TestConcurrentReductions(t *testing.T) {
	dev := accel.OpenKind(accel.MassivelyParallel)
	errs := make(chan error, 16)
	for i := range 16 {
		go func() {
			q := accel.NewQueue(dev, accel.NonBlocking)
			defer q.Close()
			n := 2000 + 997*i
			got, err := Reduce[int64](dev, q, n, seq.Iota[int64]{Start: 1, N: n}, add)
			if err == nil && got != int64(n)*int64(n+1)/2 {
				err = accel.NewExecutionError("Reduce", "wrong sum", nil)
			}
			errs <- err
		}()
	}
	for range 16 {
		assert.NoError(t, <-errs)
	}
	allocated, _ := dev.Memory().Stats()
	assert.Zero(t, allocated)
}
