// Package seq defines the random-access sequences the parallel algorithms
// read from and write to, plus a few adapters.
//
// Any type with At and Len is a Source; accel.Buffer satisfies both Source
// and Sink, and so does Slice.
package seq

import "golang.org/x/exp/constraints"

// Source is a random-access sequence of Len elements.
type Source[T any] interface {
	At(i int) T
	Len() int
}

// Sink is a random-access destination. Concurrent Set calls on distinct
// indices must be safe.
type Sink[T any] interface {
	Set(i int, v T)
	Len() int
}

// Slice adapts a Go slice to Source and Sink.
type Slice[T any] []T

func (s Slice[T]) At(i int) T     { return s[i] }
func (s Slice[T]) Set(i int, v T) { s[i] = v }
func (s Slice[T]) Len() int       { return len(s) }

// Iota is the counting sequence Start, Start+1, ... of length N.
type Iota[T constraints.Integer | constraints.Float] struct {
	Start T
	N     int
}

func (s Iota[T]) At(i int) T { return s.Start + T(i) }
func (s Iota[T]) Len() int   { return s.N }

// Constant repeats Value N times.
type Constant[T any] struct {
	Value T
	N     int
}

func (s Constant[T]) At(int) T { return s.Value }
func (s Constant[T]) Len() int { return s.N }

// mapped applies fn lazily on access.
type mapped[T, R any] struct {
	src Source[T]
	fn  func(T) R
}

func (s mapped[T, R]) At(i int) R { return s.fn(s.src.At(i)) }
func (s mapped[T, R]) Len() int   { return s.src.Len() }

// Map returns a Source whose element i is fn(src.At(i)).
func Map[T, R any](src Source[T], fn func(T) R) Source[R] {
	return mapped[T, R]{src: src, fn: fn}
}

// Collect copies src into a new slice.
func Collect[T any](src Source[T]) []T {
	out := make([]T, src.Len())
	for i := range out {
		out[i] = src.At(i)
	}
	return out
}
