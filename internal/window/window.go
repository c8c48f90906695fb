package window

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

// Sample is a single timestamped observation. Samples are immutable inputs;
// Compute never retains or modifies the slice it is handed.
type Sample struct {
	Time  time.Time
	Value float64
}

// Result is the trailing-window statistic for one input sample, emitted in
// input order. Defined is false when the sample has insufficient trailing
// history, which is distinct from a statistic that evaluated to NaN over a
// fully covered window (Defined true, Value NaN).
type Result struct {
	Time    time.Time
	Value   float64
	Defined bool
}

// Statistic reduces the values falling inside one window to a single number.
// It must be total over any non-empty input; a NaN return marks that window
// invalid without affecting the others.
type Statistic func(values []float64) float64

// Inputs below this size are computed serially regardless of the requested
// worker count; goroutine startup dominates otherwise.
const parallelThreshold = 2048

// Compute evaluates stat over the trailing window ending at each sample.
//
// The window for sample i contains every sample j with
// 0 <= t[i]-t[j] <= window, inclusive on both ends, with no look-ahead.
// Samples whose timestamp is less than one full window after the first
// sample are emitted with Defined=false: a shorter-than-window estimate
// would not be comparable to the rest of the series, so the early stretch
// is suppressed rather than computed over partial data.
//
// samples must be sorted ascending by time (duplicate timestamps are fine)
// and hold only finite values; violations fail fast with a sentinel error.
func Compute(samples []Sample, window time.Duration, stat Statistic) ([]Result, error) {
	if err := validate(samples, window, stat); err != nil {
		return nil, err
	}
	results := make([]Result, len(samples))
	computeRange(samples, window, stat, 0, len(samples), results)
	return results, nil
}

// ComputeParallel is Compute with the index range sharded across workers.
// Output is identical to Compute: each result depends only on read-only
// input and shards write disjoint ranges, so no synchronization is needed
// beyond the final WaitGroup join.
func ComputeParallel(samples []Sample, window time.Duration, stat Statistic, workers int) ([]Result, error) {
	if err := validate(samples, window, stat); err != nil {
		return nil, err
	}

	n := len(samples)
	results := make([]Result, n)
	if workers <= 1 || n < parallelThreshold {
		computeRange(samples, window, stat, 0, n, results)
		return results, nil
	}
	if workers > n {
		workers = n
	}

	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for from := 0; from < n; from += chunk {
		to := from + chunk
		if to > n {
			to = n
		}
		wg.Add(1)
		go func(from, to int) {
			defer wg.Done()
			computeRange(samples, window, stat, from, to, results)
		}(from, to)
	}
	wg.Wait()
	return results, nil
}

// computeRange fills results[from:to]. The lower window bound for the first
// index is located by binary search, then advanced as a two-pointer while i
// moves forward, keeping the whole range O(to-from) amortized.
func computeRange(samples []Sample, window time.Duration, stat Statistic, from, to int, results []Result) {
	if from >= to {
		return
	}

	origin := samples[0].Time
	cutoff := samples[from].Time.Add(-window)
	lo := sort.Search(from, func(j int) bool { return !samples[j].Time.Before(cutoff) })

	var values []float64
	for i := from; i < to; i++ {
		s := samples[i]
		for s.Time.Sub(samples[lo].Time) > window {
			lo++
		}

		if s.Time.Sub(origin) < window {
			results[i] = Result{Time: s.Time, Value: math.NaN()}
			continue
		}

		values = values[:0]
		for j := lo; j <= i; j++ {
			values = append(values, samples[j].Value)
		}
		results[i] = Result{Time: s.Time, Value: stat(values), Defined: true}
	}
}

func validate(samples []Sample, window time.Duration, stat Statistic) error {
	if window <= 0 {
		return ErrInvalidWindow
	}
	if stat == nil {
		return ErrNilStatistic
	}
	for i, s := range samples {
		if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
			return fmt.Errorf("%w: sample %d at %s", ErrNonFiniteValue, i, s.Time.Format(time.RFC3339))
		}
		if i > 0 && s.Time.Before(samples[i-1].Time) {
			return fmt.Errorf("%w: sample %d precedes sample %d", ErrUnsortedSamples, i, i-1)
		}
	}
	return nil
}
