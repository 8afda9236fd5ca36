package seq

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdapters(t *testing.T) {
	assert.Equal(t, []int{5, 6, 7}, Collect[int](Iota[int]{Start: 5, N: 3}))
	assert.Equal(t, []float64{0.5, 1.5}, Collect[float64](Iota[float64]{Start: 0.5, N: 2}))
	assert.Equal(t, []string{"x", "x"}, Collect[string](Constant[string]{Value: "x", N: 2}))

	doubled := Map[int, int](Iota[int]{Start: 1, N: 4}, func(x int) int { return 2 * x })
	assert.Equal(t, 4, doubled.Len())
	assert.Equal(t, []int{2, 4, 6, 8}, Collect(doubled))

	s := make(Slice[int], 3)
	s.Set(1, 9)
	assert.Equal(t, 9, s.At(1))
	assert.Equal(t, 3, s.Len())
	assert.Empty(t, Collect[int](Slice[int](nil)))
}
