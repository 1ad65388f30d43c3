package utils

import (
	"math"
)

// Arange returns start, start+step, ... for every value strictly below stop
// (above stop for a negative step). Values are computed as start + k*step so
// that long ranges do not accumulate rounding error. A stop that lands within
// rounding of a step boundary is excluded.
func Arange(start, stop, step float64) []float64 {
	if step == 0 || math.IsNaN(step) {
		return nil
	}
	n := int(math.Ceil((stop-start)/step - 1e-9))
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	for k := range out {
		out[k] = start + float64(k)*step
	}
	return out
}

// Linspace returns n evenly spaced values from start to stop inclusive.
func Linspace(start, stop float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{start}
	}
	out := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for k := range out {
		out[k] = start + float64(k)*step
	}
	out[n-1] = stop
	return out
}
