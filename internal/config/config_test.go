package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validConfig = `
kafka:
  brokers:
    - "localhost:9092"
  topic: "water-quality-observations"
pipeline:
  windowSize: 720h
metrics:
  - name: "entero_geomean_30d"
    parameter: "enterococci"
    statistic: "geomean"
  - name: "entero_exceedance_30d"
    parameter: "enterococci"
    statistic: "exceedance"
    threshold: 104.0
`

func TestLoadValidAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	require.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	require.Equal(t, defaultKafkaGroupID, cfg.Kafka.GroupID)
	require.Equal(t, 720*time.Hour, cfg.Pipeline.WindowSize)
	require.Equal(t, defaultFlushInterval, cfg.Pipeline.FlushInterval)
	require.Equal(t, defaultLogLevel, cfg.Log.Level)

	require.Len(t, cfg.Metrics, 2)
	require.Equal(t, StatGeometricMean, cfg.Metrics[0].Statistic)
	require.NotNil(t, cfg.Metrics[1].Threshold)
	require.Equal(t, 104.0, *cfg.Metrics[1].Threshold)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadValidationFailures(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{
			name: "no brokers",
			yaml: `
kafka:
  topic: "t"
metrics:
  - name: "m"
    parameter: "p"
    statistic: "mean"
`,
			wantErr: ErrEmptyKafkaBrokers,
		},
		{
			name: "no topic",
			yaml: `
kafka:
  brokers: ["b:9092"]
metrics:
  - name: "m"
    parameter: "p"
    statistic: "mean"
`,
			wantErr: ErrEmptyKafkaTopic,
		},
		{
			name: "negative window",
			yaml: `
kafka:
  brokers: ["b:9092"]
  topic: "t"
pipeline:
  windowSize: -1h
metrics:
  - name: "m"
    parameter: "p"
    statistic: "mean"
`,
			wantErr: ErrInvalidWindowSize,
		},
		{
			name: "no metrics",
			yaml: `
kafka:
  brokers: ["b:9092"]
  topic: "t"
`,
			wantErr: ErrNoMetrics,
		},
		{
			name: "unknown statistic",
			yaml: `
kafka:
  brokers: ["b:9092"]
  topic: "t"
metrics:
  - name: "m"
    parameter: "p"
    statistic: "median"
`,
			wantErr: ErrInvalidMetric,
		},
		{
			name: "exceedance without threshold",
			yaml: `
kafka:
  brokers: ["b:9092"]
  topic: "t"
metrics:
  - name: "m"
    parameter: "p"
    statistic: "exceedance"
`,
			wantErr: ErrInvalidMetric,
		},
		{
			name: "unknown zero policy",
			yaml: `
kafka:
  brokers: ["b:9092"]
  topic: "t"
metrics:
  - name: "m"
    parameter: "p"
    statistic: "geomean"
    zeroPolicy: "ignore"
`,
			wantErr: ErrInvalidMetric,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}
