package sample

import (
	"fmt"
	"math"
	"time"
)

// Observation is one water-quality monitoring record as carried on the wire:
// a single measurement of one parameter at one station.
type Observation struct {
	StationID string    `json:"station_id"`
	Parameter string    `json:"parameter"`
	Time      time.Time `json:"time"`
	Value     float64   `json:"value"`
}

// Validate checks the fields the pipeline depends on. The value must be
// finite; a censored-at-zero reading is fine, NaN or Inf is not.
func (o Observation) Validate() error {
	if o.StationID == "" {
		return fmt.Errorf("%w: missing station_id", ErrInvalidObservation)
	}
	if o.Parameter == "" {
		return fmt.Errorf("%w: missing parameter", ErrInvalidObservation)
	}
	if o.Time.IsZero() {
		return fmt.Errorf("%w: missing time", ErrInvalidObservation)
	}
	if math.IsNaN(o.Value) || math.IsInf(o.Value, 0) {
		return fmt.Errorf("%w: non-finite value", ErrInvalidObservation)
	}
	return nil
}
