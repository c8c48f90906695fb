package config

import "errors"

var (
	ErrReadingConfigFile    = errors.New("failed to read config file")
	ErrUnmarshallingConfig  = errors.New("failed to unmarshal config")
	ErrConfigFileMissing    = errors.New("config file not found")
	ErrEmptyKafkaBrokers    = errors.New("kafka brokers list cannot be empty")
	ErrEmptyKafkaTopic      = errors.New("kafka topic cannot be empty")
	ErrEmptyKafkaGroupID    = errors.New("kafka groupID cannot be empty")
	ErrInvalidWindowSize    = errors.New("pipeline windowSize must be positive")
	ErrInvalidFlushInterval = errors.New("pipeline flushInterval must be positive")
	ErrNoMetrics            = errors.New("at least one metric must be configured")
	ErrInvalidMetric        = errors.New("invalid metric configuration")
)
