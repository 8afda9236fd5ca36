// Package gudapar provides data-parallel transform, reduce and
// transform-reduce over accelerator devices emulated on the CPU.
//
// Devices come in four kinds, from a single sequential thread to a
// GPU-like grid of blocks of threads; the accel package describes them and
// runs kernels on them. The reduce and transform packages hold the
// algorithms, and this package wraps them over a default device:
//
//	total, err := gudapar.Sum(values)
//	best, err := gudapar.Max(values)
//	n2, err := gudapar.TransformReduce[float32, float64](len(x), seq.Slice[float32](x),
//		func(v float32) float64 { return float64(v) * float64(v) },
//		func(a, b float64) float64 { return a + b })
//
// The default device is chosen by the GUDAPAR_BACKEND environment variable,
// e.g. GUDAPAR_BACKEND="gpu:sm=8" (see accel.ConfigEnvVar).
package gudapar
