package window

import "errors"

var (
	ErrInvalidWindow   = errors.New("window duration must be positive")
	ErrUnsortedSamples = errors.New("samples must be sorted ascending by time")
	ErrNonFiniteValue  = errors.New("sample values must be finite")
	ErrNilStatistic    = errors.New("statistic function must not be nil")
)
