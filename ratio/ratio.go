// Package ratio forces percentage groups to sum to exactly 100.
package ratio

import "math"

const Total = 100

// Normalize returns a copy of values rescaled to sum to Total.
//
// Negative values count as 0. A group already summing to Total is returned
// unchanged. All but the last value are scaled and rounded; the last value
// takes Total minus the rest. When rounding would push the rest over Total
// the scaled values are floored instead. An all-zero group becomes an even
// split with the remainder on the last value.
func Normalize(values []int) []int {
	n := len(values)
	out := make([]int, n)
	if n == 0 {
		return out
	}

	sum := 0
	for i, v := range values {
		if v < 0 {
			v = 0
		}
		out[i] = v
		sum += v
	}

	if sum == Total {
		return out
	}
	if sum == 0 {
		share := Total / n
		for i := range out {
			out[i] = share
		}
		out[n-1] = Total - share*(n-1)
		return out
	}

	scale := float64(Total) / float64(sum)
	scaled := make([]int, n)
	rest := scaleRest(out, scaled, scale, math.Round)
	if rest > Total {
		rest = scaleRest(out, scaled, scale, math.Floor)
	}
	scaled[n-1] = Total - rest
	return scaled
}

func scaleRest(in, out []int, scale float64, round func(float64) float64) int {
	rest := 0
	for i := 0; i < len(in)-1; i++ {
		out[i] = int(round(float64(in[i]) * scale))
		rest += out[i]
	}
	return rest
}

// Apply normalizes the pointed-to fields in place, in declaration order.
func Apply(fields ...*int) {
	values := make([]int, len(fields))
	for i, f := range fields {
		values[i] = *f
	}
	for i, v := range Normalize(values) {
		*fields[i] = v
	}
}

// Sum adds values as Normalize sees them.
func Sum(values []int) int {
	s := 0
	for _, v := range values {
		if v > 0 {
			s += v
		}
	}
	return s
}
