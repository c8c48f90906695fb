package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kwetherill/streamgauge/internal/config"
	"github.com/kwetherill/streamgauge/internal/sample"
)

const day = 24 * time.Hour

var base = time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

func newTestCalculator(t *testing.T, metrics []config.MetricConfig, resultBuffer int) (*Calculator, chan sample.Observation, chan WindowResult) {
	t.Helper()
	obsCh := make(chan sample.Observation, 128)
	resCh := make(chan WindowResult, resultBuffer)
	cfg := config.PipelineConfig{
		WindowSize:    7 * day,
		FlushInterval: time.Hour, // never fires in tests; flushes are explicit or on close
	}
	calc, err := NewCalculator(cfg, metrics, obsCh, resCh, zap.NewNop())
	require.NoError(t, err)
	return calc, obsCh, resCh
}

func drainResults(resCh chan WindowResult) []WindowResult {
	var out []WindowResult
	for {
		select {
		case r := <-resCh:
			out = append(out, r)
		default:
			return out
		}
	}
}

func meanMetric() []config.MetricConfig {
	return []config.MetricConfig{{
		Name:      "mean_7d",
		Parameter: "enterococci",
		Statistic: config.StatMean,
	}}
}

func TestNewCalculatorRejectsUnknownStatistic(t *testing.T) {
	obsCh := make(chan sample.Observation)
	resCh := make(chan WindowResult)
	cfg := config.PipelineConfig{WindowSize: 7 * day, FlushInterval: time.Minute}

	_, err := NewCalculator(cfg, []config.MetricConfig{{
		Name:      "bad",
		Parameter: "p",
		Statistic: "median",
	}}, obsCh, resCh, zap.NewNop())
	require.ErrorIs(t, err, ErrUnknownStatistic)
}

func TestCalculatorEmitsNewestWindowOnClose(t *testing.T) {
	calc, obsCh, resCh := newTestCalculator(t, meanMetric(), 16)

	for i := 0; i < 10; i++ {
		obsCh <- sample.Observation{
			StationID: "BB-101",
			Parameter: "enterococci",
			Time:      base.Add(time.Duration(i) * day),
			Value:     4,
		}
	}
	// An unmonitored parameter must be ignored entirely.
	obsCh <- sample.Observation{StationID: "BB-101", Parameter: "turbidity", Time: base, Value: 99}
	close(obsCh)

	require.NoError(t, calc.Run(context.Background()))

	results := drainResults(resCh)
	require.Len(t, results, 1)

	r := results[0]
	require.Equal(t, "BB-101", r.StationID)
	require.Equal(t, "mean_7d", r.Metric)
	require.True(t, r.Defined)
	require.Equal(t, 4.0, r.Value)
	require.Equal(t, base.Add(9*day), r.WindowEnd)
	require.Equal(t, 8, r.Count) // days 2..9 inclusive
}

func TestCalculatorSuppressesShortSeries(t *testing.T) {
	calc, obsCh, resCh := newTestCalculator(t, meanMetric(), 16)

	for i := 0; i < 3; i++ {
		obsCh <- sample.Observation{
			StationID: "BB-101",
			Parameter: "enterococci",
			Time:      base.Add(time.Duration(i) * day),
			Value:     4,
		}
	}
	close(obsCh)

	require.NoError(t, calc.Run(context.Background()))

	results := drainResults(resCh)
	require.Len(t, results, 1)
	require.False(t, results[0].Defined)
	require.Equal(t, 3, results[0].Count)
}

func TestCalculatorIsolatesStations(t *testing.T) {
	calc, obsCh, resCh := newTestCalculator(t, meanMetric(), 16)

	for i := 0; i < 10; i++ {
		ts := base.Add(time.Duration(i) * day)
		obsCh <- sample.Observation{StationID: "BB-101", Parameter: "enterococci", Time: ts, Value: 2}
		obsCh <- sample.Observation{StationID: "PC-201", Parameter: "enterococci", Time: ts, Value: 6}
	}
	close(obsCh)

	require.NoError(t, calc.Run(context.Background()))

	results := drainResults(resCh)
	require.Len(t, results, 2)

	byStation := make(map[string]WindowResult)
	for _, r := range results {
		byStation[r.StationID] = r
	}
	require.Equal(t, 2.0, byStation["BB-101"].Value)
	require.Equal(t, 6.0, byStation["PC-201"].Value)
}

func TestCalculatorCoverageSurvivesTrimming(t *testing.T) {
	calc, _, resCh := newTestCalculator(t, meanMetric(), 16)

	feed := func(dayOffset int, v float64) {
		calc.processObservation(sample.Observation{
			StationID: "BB-101",
			Parameter: "enterococci",
			Time:      base.Add(time.Duration(dayOffset) * day),
			Value:     v,
		})
	}

	for i := 0; i < 10; i++ {
		feed(i, 2)
	}
	calc.flush()
	first := drainResults(resCh)
	require.Len(t, first, 1)
	require.True(t, first[0].Defined)
	require.Equal(t, 2.0, first[0].Value)

	// The flush trimmed retention to the newest window. A lone later sample
	// leaves less than a full window retained, but the series history is
	// long since covered, so the result must stay defined.
	feed(20, 8)
	calc.flush()
	second := drainResults(resCh)
	require.Len(t, second, 1)

	r := second[0]
	require.True(t, r.Defined)
	require.Equal(t, 8.0, r.Value)
	require.Equal(t, 1, r.Count)
	require.Equal(t, base.Add(20*day), r.WindowEnd)
}

func TestCalculatorStopsOnContextCancel(t *testing.T) {
	calc, obsCh, resCh := newTestCalculator(t, meanMetric(), 16)

	for i := 0; i < 10; i++ {
		obsCh <- sample.Observation{
			StationID: "BB-101",
			Parameter: "enterococci",
			Time:      base.Add(time.Duration(i) * day),
			Value:     4,
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- calc.Run(ctx) }()

	// Give the loop time to drain the buffered observations, then cancel.
	time.Sleep(50 * time.Millisecond)
	cancel()

	err := <-done
	require.ErrorIs(t, err, context.Canceled)

	// The final flush on cancellation still emitted the newest window.
	results := drainResults(resCh)
	require.Len(t, results, 1)
	require.True(t, results[0].Defined)
	require.Equal(t, 4.0, results[0].Value)
}
