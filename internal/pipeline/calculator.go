package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kwetherill/streamgauge/internal/config"
	"github.com/kwetherill/streamgauge/internal/sample"
	"github.com/kwetherill/streamgauge/internal/stats"
	"github.com/kwetherill/streamgauge/internal/window"
)

// compiledMetric pairs a metric's configuration with its statistic function.
type compiledMetric struct {
	cfg config.MetricConfig
	fn  window.Statistic
}

func compileMetric(m config.MetricConfig) (compiledMetric, error) {
	switch m.Statistic {
	case config.StatMean:
		return compiledMetric{cfg: m, fn: stats.Mean}, nil
	case config.StatGeometricMean:
		policy := stats.ZeroExcluded
		if m.ZeroPolicy == config.ZeroPolicyPropagate {
			policy = stats.ZeroPropagates
		}
		return compiledMetric{cfg: m, fn: stats.GeometricMean(policy)}, nil
	case config.StatExceedance:
		if m.Threshold == nil {
			return compiledMetric{}, fmt.Errorf("%w: metric %q has no threshold", ErrUnknownStatistic, m.Name)
		}
		return compiledMetric{cfg: m, fn: stats.Exceedance(*m.Threshold)}, nil
	default:
		return compiledMetric{}, fmt.Errorf("%w: %q in metric %q", ErrUnknownStatistic, m.Statistic, m.Name)
	}
}

type seriesKey struct {
	station   string
	parameter string
}

type seriesState struct {
	series sample.Series
	dirty  bool
}

// snapshot is one dirty series captured for evaluation outside the lock.
type snapshot struct {
	key       seriesKey
	samples   []window.Sample
	firstSeen time.Time
}

// Calculator routes observations into per-station/parameter series and
// periodically evaluates the configured trailing-window metrics over them,
// emitting the newest result per series and metric.
type Calculator struct {
	cfg     config.PipelineConfig
	byParam map[string][]compiledMetric
	input   <-chan sample.Observation
	output  chan<- WindowResult
	logger  *zap.Logger

	mu     sync.Mutex
	series map[seriesKey]*seriesState
}

// NewCalculator compiles the configured metrics and creates a Calculator.
func NewCalculator(cfg config.PipelineConfig, metrics []config.MetricConfig, input <-chan sample.Observation, output chan<- WindowResult, logger *zap.Logger) (*Calculator, error) {
	byParam := make(map[string][]compiledMetric)
	for _, m := range metrics {
		cm, err := compileMetric(m)
		if err != nil {
			return nil, err
		}
		byParam[m.Parameter] = append(byParam[m.Parameter], cm)
	}

	c := &Calculator{
		cfg:     cfg,
		byParam: byParam,
		input:   input,
		output:  output,
		logger:  logger,
		series:  make(map[seriesKey]*seriesState),
	}
	logger.Info("Calculator initialized",
		zap.Duration("window_size", cfg.WindowSize),
		zap.Duration("flush_interval", cfg.FlushInterval),
		zap.Int("configured_metrics", len(metrics)),
	)
	return c, nil
}

// Run starts the calculator's processing loop.
func (c *Calculator) Run(ctx context.Context) error {
	sugar := c.logger.Sugar()
	sugar.Info("Starting calculator loop...")
	defer sugar.Info("Calculator loop stopped.")

	ticker := time.NewTicker(c.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case obs, ok := <-c.input:
			if !ok {
				sugar.Info("Calculator input channel closed. Evaluating final windows...")
				c.flush()
				return nil
			}
			c.processObservation(obs)

		case <-ticker.C:
			c.flush()

		case <-ctx.Done():
			sugar.Info("Context cancelled, stopping calculator. Evaluating final windows...")
			c.flush()
			return ctx.Err()
		}
	}
}

// processObservation appends the measurement to its series. Parameters no
// configured metric references are dropped early.
func (c *Calculator) processObservation(obs sample.Observation) {
	if len(c.byParam[obs.Parameter]) == 0 {
		c.logger.Debug("Skipping observation for unmonitored parameter",
			zap.String("station_id", obs.StationID),
			zap.String("parameter", obs.Parameter),
		)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := seriesKey{station: obs.StationID, parameter: obs.Parameter}
	st, exists := c.series[key]
	if !exists {
		st = &seriesState{}
		c.series[key] = st
		c.logger.Debug("Created new series",
			zap.String("station_id", key.station),
			zap.String("parameter", key.parameter),
		)
	}
	st.series.Add(obs.Time, obs.Value)
	st.dirty = true
}

// flush evaluates every series touched since the last flush and sends the
// newest window result for each of its metrics downstream.
func (c *Calculator) flush() {
	dirty := c.collectDirtySeries()
	if len(dirty) == 0 {
		return
	}
	c.logger.Debug("Evaluating dirty series", zap.Int("series_count", len(dirty)))

	for _, snap := range dirty {
		c.evaluateSeries(snap)
	}
}

// collectDirtySeries snapshots dirty series and trims each to the samples
// the newest window can still reach. It takes the mutex itself; snapshots
// are copies so evaluation can run outside the lock.
func (c *Calculator) collectDirtySeries() []snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	var dirty []snapshot
	for key, st := range c.series {
		if !st.dirty || st.series.Len() == 0 {
			continue
		}
		st.dirty = false

		smps := st.series.Samples()
		newest := smps[len(smps)-1].Time
		st.series.TrimBefore(newest.Add(-c.cfg.WindowSize))

		smps = st.series.Samples()
		dirty = append(dirty, snapshot{
			key:       key,
			samples:   append([]window.Sample(nil), smps...),
			firstSeen: st.series.FirstSeen(),
		})
	}
	return dirty
}

// evaluateSeries runs every metric configured for the snapshot's parameter
// and emits the newest trailing-window result.
func (c *Calculator) evaluateSeries(snap snapshot) {
	sugar := c.logger.Sugar()

	for _, m := range c.byParam[snap.key.parameter] {
		results, err := window.ComputeParallel(snap.samples, c.cfg.WindowSize, m.fn, c.cfg.Workers)
		if err != nil {
			sugar.Warnw("Window computation failed for series",
				zap.String("station_id", snap.key.station),
				zap.String("parameter", snap.key.parameter),
				zap.String("metric", m.cfg.Name),
				zap.Error(err),
			)
			continue
		}

		last := results[len(results)-1]
		// Trimming moves the retained head forward, so coverage is judged
		// against the first sample ever seen, not the first retained one.
		covered := last.Time.Sub(snap.firstSeen) >= c.cfg.WindowSize
		count := countInWindow(snap.samples, last.Time, c.cfg.WindowSize)

		value := last.Value
		if covered && !last.Defined {
			// The retained head sits inside the kernel's history guard, but
			// the true history is covered: evaluate over the window directly.
			value = m.fn(valuesOf(snap.samples[len(snap.samples)-count:]))
		}

		res := WindowResult{
			StationID:   snap.key.station,
			Parameter:   snap.key.parameter,
			Metric:      m.cfg.Name,
			WindowStart: last.Time.Add(-c.cfg.WindowSize),
			WindowEnd:   last.Time,
			Count:       count,
			Value:       value,
			Defined:     covered,
		}

		select {
		case c.output <- res:
		default:
			sugar.Warnw("Calculator output channel full, dropping result",
				zap.String("station_id", res.StationID),
				zap.String("metric", res.Metric),
				zap.Time("window_end", res.WindowEnd),
			)
		}
	}
}

func valuesOf(samples []window.Sample) []float64 {
	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = s.Value
	}
	return values
}

// countInWindow reports how many samples fall in [end-window, end].
func countInWindow(samples []window.Sample, end time.Time, w time.Duration) int {
	cutoff := end.Add(-w)
	i := sort.Search(len(samples), func(j int) bool { return !samples[j].Time.Before(cutoff) })
	return len(samples) - i
}
