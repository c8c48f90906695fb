package sample

import (
	"encoding/json"
	"fmt"
)

// Parse decodes and validates one observation payload.
// It returns ErrDecodeFailed (wrapping the original error) on malformed
// JSON and ErrInvalidObservation on well-formed but unusable records.
func Parse(data []byte) (Observation, error) {
	var obs Observation
	if err := json.Unmarshal(data, &obs); err != nil {
		return Observation{}, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}
	if err := obs.Validate(); err != nil {
		return Observation{}, err
	}
	return obs, nil
}
