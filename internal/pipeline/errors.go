package pipeline

import "errors"

var (
	ErrInvalidKafkaConfig       = errors.New("invalid Kafka configuration provided")
	ErrKafkaFetchFailed         = errors.New("failed to fetch message from Kafka")
	ErrConsumerCreationFailed   = errors.New("failed to create consumer")
	ErrCalculatorCreationFailed = errors.New("failed to create calculator")
	ErrUnknownStatistic         = errors.New("unknown statistic")
	ErrConsumerRunFailed        = errors.New("consumer component failed")
	ErrCalculatorRunFailed      = errors.New("calculator component failed")
	ErrReporterRunFailed        = errors.New("reporter component failed")
)
