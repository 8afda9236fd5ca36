package gudapar

import (
	"github.com/LynnColeArt/gudapar/reduce"
	"github.com/LynnColeArt/gudapar/seq"
	"golang.org/x/exp/constraints"
)

// Number is an element type the slice reductions accept.
type Number interface {
	constraints.Integer | constraints.Float
}

// Common folds over slices on the default device. These are building
// blocks for norms, pooling and statistics.

// Sum computes the sum of all elements in x. The sum of no elements is 0.
func Sum[T Number](x []T) (T, error) {
	if len(x) == 0 {
		return 0, nil
	}
	return Reduce[T](len(x), seq.Slice[T](x), func(a, b T) T { return a + b })
}

// Max returns the maximum value in x. An empty x returns
// reduce.ErrEmptyReduce.
func Max[T constraints.Ordered](x []T) (T, error) {
	return Reduce[T](len(x), seq.Slice[T](x), func(a, b T) T { return max(a, b) })
}

// Min returns the minimum value in x. An empty x returns
// reduce.ErrEmptyReduce.
func Min[T constraints.Ordered](x []T) (T, error) {
	return Reduce[T](len(x), seq.Slice[T](x), func(a, b T) T { return min(a, b) })
}

// Product computes the product of all elements. The product of no elements
// is 1.
func Product[T Number](x []T) (T, error) {
	if len(x) == 0 {
		return 1, nil
	}
	return Reduce[T](len(x), seq.Slice[T](x), func(a, b T) T { return a * b })
}

// SumSquares computes the sum of squares of all elements, accumulated in
// float64.
// Useful for L2 norm computation
func SumSquares[T Number](x []T) (float64, error) {
	if len(x) == 0 {
		return 0, nil
	}
	return TransformReduce[T, float64](len(x), seq.Slice[T](x),
		func(v T) float64 { return float64(v) * float64(v) },
		func(a, b float64) float64 { return a + b })
}

// Mean computes the arithmetic mean of all elements, accumulated in float64
// so integer inputs do not overflow. An empty x returns
// reduce.ErrEmptyReduce.
func Mean[T Number](x []T) (float64, error) {
	if len(x) == 0 {
		return 0, reduce.ErrEmptyReduce
	}
	sum, err := TransformReduce[T, float64](len(x), seq.Slice[T](x),
		func(v T) float64 { return float64(v) },
		func(a, b float64) float64 { return a + b })
	if err != nil {
		return 0, err
	}
	return sum / float64(len(x)), nil
}
