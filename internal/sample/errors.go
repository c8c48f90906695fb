package sample

import "errors"

var (
	ErrDecodeFailed       = errors.New("failed to decode observation JSON")
	ErrInvalidObservation = errors.New("invalid observation")
)
