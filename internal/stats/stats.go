// Package stats provides the statistic functions injected into the window
// aggregator. Each is a pure function over the values of one window.
package stats

import "math"

// ZeroPolicy controls how GeometricMean treats zero-valued inputs.
type ZeroPolicy int

const (
	// ZeroExcluded drops zeros from the log-domain sum. This is the default
	// for bacteria counts, where a zero is a censored reading rather than a
	// true measurement.
	ZeroExcluded ZeroPolicy = iota
	// ZeroPropagates forces the result to 0 when any zero is present.
	ZeroPropagates
)

// Mean is the arithmetic mean. NaN on empty input.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// GeometricMean returns exp of the mean log of the positive inputs.
// A negative value anywhere makes the result NaN under either policy:
// negative concentrations are invalid data and must not be coerced.
// Zeros follow the policy; if nothing positive remains, the result is NaN.
func GeometricMean(policy ZeroPolicy) func(values []float64) float64 {
	return func(values []float64) float64 {
		logSum := 0.0
		positive := 0
		sawZero := false
		for _, v := range values {
			switch {
			case v < 0:
				return math.NaN()
			case v == 0:
				sawZero = true
			default:
				logSum += math.Log(v)
				positive++
			}
		}
		if sawZero && policy == ZeroPropagates {
			return 0
		}
		if positive == 0 {
			return math.NaN()
		}
		return math.Exp(logSum / float64(positive))
	}
}

// Proportion counts values satisfying success over the window size.
// The result is a point estimate; hypothesis testing over it is the
// caller's business.
func Proportion(success func(float64) bool) func(values []float64) float64 {
	return func(values []float64) float64 {
		if len(values) == 0 {
			return math.NaN()
		}
		hits := 0
		for _, v := range values {
			if success(v) {
				hits++
			}
		}
		return float64(hits) / float64(len(values))
	}
}

// Exceedance is the fraction of values strictly above the regulatory
// threshold.
func Exceedance(threshold float64) func(values []float64) float64 {
	return Proportion(func(v float64) bool { return v > threshold })
}

// Compliance is the fraction of values at or below the threshold.
func Compliance(threshold float64) func(values []float64) float64 {
	return Proportion(func(v float64) bool { return v <= threshold })
}
