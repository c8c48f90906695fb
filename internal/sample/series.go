package sample

import (
	"sort"
	"time"

	"github.com/kwetherill/streamgauge/internal/window"
)

// Series is the sample buffer for one station/parameter pair, kept sorted
// ascending by time. Sensor feeds deliver slightly out of order, so late
// arrivals are insert-sorted instead of rejected; equal timestamps keep
// arrival order.
type Series struct {
	samples   []window.Sample
	firstSeen time.Time
}

// Add records one measurement.
func (s *Series) Add(t time.Time, v float64) {
	if s.firstSeen.IsZero() || t.Before(s.firstSeen) {
		s.firstSeen = t
	}

	smp := window.Sample{Time: t, Value: v}
	n := len(s.samples)
	if n == 0 || !t.Before(s.samples[n-1].Time) {
		s.samples = append(s.samples, smp)
		return
	}

	i := sort.Search(n, func(j int) bool { return s.samples[j].Time.After(t) })
	s.samples = append(s.samples, window.Sample{})
	copy(s.samples[i+1:], s.samples[i:])
	s.samples[i] = smp
}

// Len returns the number of retained samples.
func (s *Series) Len() int { return len(s.samples) }

// Samples exposes the retained, sorted samples for windowed computation.
// The slice is shared with the series; callers must not mutate it.
func (s *Series) Samples() []window.Sample { return s.samples }

// FirstSeen is the earliest timestamp ever added, surviving TrimBefore.
// It is the coverage anchor: trimming must not make an undercovered series
// look fully covered.
func (s *Series) FirstSeen() time.Time { return s.firstSeen }

// TrimBefore drops samples strictly older than cutoff and reports how many
// were dropped. A sample exactly at cutoff is retained, matching the
// inclusive window bound.
func (s *Series) TrimBefore(cutoff time.Time) int {
	i := sort.Search(len(s.samples), func(j int) bool { return !s.samples[j].Time.Before(cutoff) })
	if i == 0 {
		return 0
	}
	s.samples = append(s.samples[:0], s.samples[i:]...)
	return i
}
