// Package op adapts user operators to the single calling convention the
// kernels use.
//
// Operators come in two shapes: plain functions, f(x) or f(a, b), and
// context-aware ones that also receive the calling thread's *accel.Ctx,
// f(ctx, x) or f(ctx, a, b). The shape is resolved once, when the operator is
// bound, and the kernels only ever see Unary or Binary.
package op

import (
	"fmt"

	"github.com/LynnColeArt/gudapar/accel"
)

// UnaryFunc lists the accepted unary operator shapes.
type UnaryFunc[T, R any] interface {
	func(T) R | func(*accel.Ctx, T) R
}

// BinaryFunc lists the accepted binary operator shapes. Reduction operators
// must be associative; this is not checked.
type BinaryFunc[T any] interface {
	func(T, T) T | func(*accel.Ctx, T, T) T
}

// Unary is the bound form of a unary operator.
type Unary[T, R any] func(ctx *accel.Ctx, x T) R

// Binary is the bound form of a binary operator.
type Binary[T any] func(ctx *accel.Ctx, a, b T) T

// BindUnary resolves the shape of f and returns it as a Unary.
func BindUnary[T, R any, F UnaryFunc[T, R]](f F) (Unary[T, R], error) {
	switch fn := any(f).(type) {
	case func(T) R:
		if fn != nil {
			return func(_ *accel.Ctx, x T) R { return fn(x) }, nil
		}
	case func(*accel.Ctx, T) R:
		if fn != nil {
			return fn, nil
		}
	}
	return nil, accel.NewInvalidArgError("BindUnary", fmt.Sprintf("nil unary operator %T", f))
}

// BindBinary resolves the shape of f and returns it as a Binary.
func BindBinary[T any, F BinaryFunc[T]](f F) (Binary[T], error) {
	switch fn := any(f).(type) {
	case func(T, T) T:
		if fn != nil {
			return func(_ *accel.Ctx, a, b T) T { return fn(a, b) }, nil
		}
	case func(*accel.Ctx, T, T) T:
		if fn != nil {
			return fn, nil
		}
	}
	return nil, accel.NewInvalidArgError("BindBinary", fmt.Sprintf("nil binary operator %T", f))
}

// Identity returns the pass-through operator.
func Identity[T any]() Unary[T, T] {
	return func(_ *accel.Ctx, x T) T { return x }
}
