package pipeline

import (
	"context"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/kwetherill/streamgauge/internal/config"
)

// Prometheus Metrics Definition
var (
	windowStatistic = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "streamgauge_window_statistic_value",
			Help: "Latest trailing-window statistic per station, parameter and metric.",
		},
		[]string{"station", "parameter", "metric"},
	)
	windowSampleCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "streamgauge_window_sample_count",
			Help: "Number of samples inside the latest trailing window.",
		},
		[]string{"station", "parameter", "metric"},
	)
	windowUndefined = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "streamgauge_window_undefined",
			Help: "1 when the latest window lacks a full window of trailing history, else 0.",
		},
		[]string{"station", "parameter", "metric"},
	)
	alertViolations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamgauge_alert_violations_total",
			Help: "Total alert-bound crossings per station, metric and comparison.",
		},
		[]string{"station", "metric", "comparison"},
	)
)

// Reporter consumes window results, exports them as Prometheus gauges and
// checks them against the configured alert bounds.
type Reporter struct {
	metrics map[string]config.MetricConfig // keyed by metric name
	input   <-chan WindowResult
	logger  *zap.Logger
}

// NewReporter creates a new Reporter instance.
func NewReporter(metrics []config.MetricConfig, input <-chan WindowResult, logger *zap.Logger) *Reporter {
	byName := make(map[string]config.MetricConfig)
	for _, m := range metrics {
		byName[m.Name] = m
	}

	logger.Debug("Reporter initialized", zap.Int("metric_count", len(byName)))

	return &Reporter{
		metrics: byName,
		input:   input,
		logger:  logger,
	}
}

// Run starts the reporter's processing loop.
func (r *Reporter) Run(ctx context.Context) error {
	sugar := r.logger.Sugar()
	sugar.Info("Starting reporter loop...")
	defer sugar.Info("Reporter loop stopped.")

	for {
		select {
		case result, ok := <-r.input:
			if !ok {
				sugar.Info("Reporter input channel closed.")
				return nil
			}
			r.processResult(result)

		case <-ctx.Done():
			sugar.Info("Context cancelled, stopping reporter.")
			return ctx.Err()
		}
	}
}

// processResult updates the gauges, checks alert bounds and logs the result.
func (r *Reporter) processResult(result WindowResult) {
	sugar := r.logger.Sugar()

	metricCfg, exists := r.metrics[result.Metric]
	if !exists {
		sugar.Warnw("Received result for unconfigured metric, skipping",
			zap.String("metric", result.Metric),
			zap.String("station_id", result.StationID),
			zap.Time("window_end", result.WindowEnd),
		)
		return
	}

	labels := prometheus.Labels{
		"station":   result.StationID,
		"parameter": result.Parameter,
		"metric":    result.Metric,
	}
	windowSampleCount.With(labels).Set(float64(result.Count))

	if !result.Defined {
		windowUndefined.With(labels).Set(1)
		sugar.Debugw("Window not yet covered by a full trailing history",
			zap.String("station_id", result.StationID),
			zap.String("metric", result.Metric),
			zap.Time("window_end", result.WindowEnd),
			zap.Int("count", result.Count),
		)
		return
	}
	windowUndefined.With(labels).Set(0)

	if math.IsNaN(result.Value) {
		// A covered window evaluating to NaN means invalid data inside it,
		// e.g. a negative concentration under a geometric mean.
		windowStatistic.With(labels).Set(0)
		sugar.Warnw("Window statistic undefined over covered window",
			zap.String("station_id", result.StationID),
			zap.String("metric", result.Metric),
			zap.Time("window_end", result.WindowEnd),
			zap.Int("count", result.Count),
		)
		return
	}

	windowStatistic.With(labels).Set(result.Value)
	r.checkAlertBounds(result, metricCfg.Alert)

	sugar.Infow("Window statistic processed",
		zap.String("station_id", result.StationID),
		zap.String("parameter", result.Parameter),
		zap.String("metric", result.Metric),
		zap.Time("window_end", result.WindowEnd),
		zap.Int("count", result.Count),
		zap.Float64("value", result.Value),
	)
}

// checkAlertBounds logs and counts crossings of the configured bounds.
func (r *Reporter) checkAlertBounds(result WindowResult, bounds config.AlertBounds) {
	sugar := r.logger.Sugar()

	if bounds.Min != nil && result.Value < *bounds.Min {
		sugar.Warnw("Alert bound violation (Min)",
			zap.String("station_id", result.StationID),
			zap.String("metric", result.Metric),
			zap.Time("window_end", result.WindowEnd),
			zap.Float64("actual", result.Value),
			zap.Float64("bound", *bounds.Min),
			zap.String("comparison", "<"),
		)
		alertViolations.WithLabelValues(result.StationID, result.Metric, "<").Inc()
	}
	if bounds.Max != nil && result.Value > *bounds.Max {
		sugar.Warnw("Alert bound violation (Max)",
			zap.String("station_id", result.StationID),
			zap.String("metric", result.Metric),
			zap.Time("window_end", result.WindowEnd),
			zap.Float64("actual", result.Value),
			zap.Float64("bound", *bounds.Max),
			zap.String("comparison", ">"),
		)
		alertViolations.WithLabelValues(result.StationID, result.Metric, ">").Inc()
	}
}
