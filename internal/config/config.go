package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Statistic names accepted in metric configuration.
const (
	StatGeometricMean = "geomean"
	StatMean          = "mean"
	StatExceedance    = "exceedance"
)

// Zero policies accepted for geometric-mean metrics.
const (
	ZeroPolicyExclude   = "exclude"
	ZeroPolicyPropagate = "propagate"
)

const (
	defaultKafkaGroupID  = "streamgauge-default-group"
	defaultWindowSize    = 30 * 24 * time.Hour // the 30-day recreational-water geomean window
	defaultFlushInterval = 1 * time.Minute
	defaultLogLevel      = "info"
	defaultLogFormat     = "console"
	defaultLogFileOn     = false
	defaultLogDirectory  = "log"
	defaultLogFilename   = "app.log"
	defaultLogMaxSizeMB  = 100
	defaultLogMaxBackups = 3
	defaultLogMaxAgeDays = 7
	defaultLogCompress   = false

	// Environment variable prefix
	envPrefix = "STREAMGAUGE"
)

type Config struct {
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Metrics  []MetricConfig `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"groupID"`
}

type PipelineConfig struct {
	WindowSize    time.Duration `mapstructure:"windowSize"`
	FlushInterval time.Duration `mapstructure:"flushInterval"`
	Workers       int           `mapstructure:"workers"` // compute shards; 0 or 1 means serial
}

// MetricConfig describes one trailing-window statistic to maintain per
// station for a given measured parameter.
type MetricConfig struct {
	Name       string      `mapstructure:"name"`
	Parameter  string      `mapstructure:"parameter"`
	Statistic  string      `mapstructure:"statistic"`  // geomean, mean, exceedance
	Threshold  *float64    `mapstructure:"threshold"`  // required for exceedance
	ZeroPolicy string      `mapstructure:"zeroPolicy"` // geomean only: exclude (default) or propagate
	Alert      AlertBounds `mapstructure:"alert"`
}

// AlertBounds are optional limits on the computed statistic itself; a
// crossing is logged and counted, never fatal.
type AlertBounds struct {
	Min *float64 `mapstructure:"min"`
	Max *float64 `mapstructure:"max"`
}

type LogConfig struct {
	Level              string `mapstructure:"level"`
	Format             string `mapstructure:"format"`
	FileLoggingEnabled bool   `mapstructure:"fileLoggingEnabled"`
	Directory          string `mapstructure:"directory"`
	Filename           string `mapstructure:"filename"`
	MaxSize            int    `mapstructure:"maxSize"`    // Max size in MB
	MaxBackups         int    `mapstructure:"maxBackups"` // Max backup files
	MaxAge             int    `mapstructure:"maxAge"`     // Max days to retain
	Compress           bool   `mapstructure:"compress"`   // Compress rotated files?
}

// Load initializes viper, reads config, applies defaults, unmarshals, and validates.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	configureViper(v, configPath)

	setDefaults(v)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnmarshallingConfig, err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// configureViper sets up viper instance for file and environment variables.
func configureViper(v *viper.Viper, configPath string) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("kafka.groupID", defaultKafkaGroupID)
	v.SetDefault("pipeline.windowSize", defaultWindowSize)
	v.SetDefault("pipeline.flushInterval", defaultFlushInterval)
	v.SetDefault("pipeline.workers", 0)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.format", defaultLogFormat)
	v.SetDefault("log.fileLoggingEnabled", defaultLogFileOn)
	v.SetDefault("log.directory", defaultLogDirectory)
	v.SetDefault("log.filename", defaultLogFilename)
	v.SetDefault("log.maxSize", defaultLogMaxSizeMB)
	v.SetDefault("log.maxBackups", defaultLogMaxBackups)
	v.SetDefault("log.maxAge", defaultLogMaxAgeDays)
	v.SetDefault("log.compress", defaultLogCompress)
}

// readConfigFile attempts to read the configuration file specified in viper.
func readConfigFile(v *viper.Viper) error {
	err := v.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return ErrConfigFileMissing
		}
		return fmt.Errorf("%w: %w", ErrReadingConfigFile, err)
	}
	return nil
}

func validateConfig(cfg *Config) error {
	if len(cfg.Kafka.Brokers) == 0 {
		return ErrEmptyKafkaBrokers
	}
	if cfg.Kafka.Topic == "" {
		return ErrEmptyKafkaTopic
	}
	if cfg.Kafka.GroupID == "" {
		return ErrEmptyKafkaGroupID
	}
	if cfg.Pipeline.WindowSize <= 0 {
		return ErrInvalidWindowSize
	}
	if cfg.Pipeline.FlushInterval <= 0 {
		return ErrInvalidFlushInterval
	}
	if len(cfg.Metrics) == 0 {
		return ErrNoMetrics
	}
	for i := range cfg.Metrics {
		if err := validateMetric(&cfg.Metrics[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateMetric(m *MetricConfig) error {
	if m.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidMetric)
	}
	if m.Parameter == "" {
		return fmt.Errorf("%w: metric %q has no parameter", ErrInvalidMetric, m.Name)
	}
	switch m.Statistic {
	case StatGeometricMean, StatMean:
	case StatExceedance:
		if m.Threshold == nil {
			return fmt.Errorf("%w: metric %q needs a threshold for exceedance", ErrInvalidMetric, m.Name)
		}
	default:
		return fmt.Errorf("%w: metric %q has unknown statistic %q", ErrInvalidMetric, m.Name, m.Statistic)
	}
	switch m.ZeroPolicy {
	case "", ZeroPolicyExclude, ZeroPolicyPropagate:
	default:
		return fmt.Errorf("%w: metric %q has unknown zeroPolicy %q", ErrInvalidMetric, m.Name, m.ZeroPolicy)
	}
	return nil
}
