package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMean(t *testing.T) {
	require.True(t, math.IsNaN(Mean(nil)))
	require.Equal(t, 2.0, Mean([]float64{1, 2, 3}))
	require.Equal(t, 5.0, Mean([]float64{5}))
}

func TestGeometricMeanZeroExcluded(t *testing.T) {
	gm := GeometricMean(ZeroExcluded)

	require.InDelta(t, 4.0, gm([]float64{2, 8}), 1e-12)

	// Zeros are censored readings, not part of the log-domain sum.
	require.InDelta(t, 10.0, gm([]float64{10, 0}), 1e-12)

	// Nothing positive left means no estimate.
	require.True(t, math.IsNaN(gm([]float64{0, 0})))
	require.True(t, math.IsNaN(gm(nil)))

	// Negative concentrations are invalid data.
	require.True(t, math.IsNaN(gm([]float64{4, -1})))
}

func TestGeometricMeanZeroPropagates(t *testing.T) {
	gm := GeometricMean(ZeroPropagates)

	require.InDelta(t, 4.0, gm([]float64{2, 8}), 1e-12)
	require.Equal(t, 0.0, gm([]float64{10, 0}))

	// A negative still wins over the zero policy.
	require.True(t, math.IsNaN(gm([]float64{0, -1})))
}

func TestProportion(t *testing.T) {
	positive := Proportion(func(v float64) bool { return v > 0 })

	require.True(t, math.IsNaN(positive(nil)))
	require.Equal(t, 0.5, positive([]float64{1, -1, 2, -2}))
	require.Equal(t, 1.0, positive([]float64{3}))
}

func TestExceedanceAndCompliance(t *testing.T) {
	values := []float64{50, 150, 104}

	// Exceedance is strict: a value exactly at the threshold complies.
	require.InDelta(t, 1.0/3.0, Exceedance(104)(values), 1e-12)
	require.InDelta(t, 2.0/3.0, Compliance(104)(values), 1e-12)
}
