package kan

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInitializer(t *testing.T) {
	init, err := ParseInitializer("0.25")
	require.NoError(t, err)
	assert.Equal(t, FixedNoise(0.25), init)

	init, err = ParseInitializer(" linear ")
	require.NoError(t, err)
	assert.Equal(t, Linear(), init)

	init, err = ParseInitializer("basis_glorot")
	require.NoError(t, err)
	assert.Equal(t, BasisGlorot(), init)

	_, err = ParseInitializer("bogus")
	assert.Error(t, err)
}

func TestInitializerString(t *testing.T) {
	assert.Equal(t, "0.25", FixedNoise(0.25).String())
	assert.Equal(t, "linear", Linear().String())
	assert.Equal(t, "basis_glorot", BasisGlorot().String())
}

func TestFixedNoiseBounds(t *testing.T) {
	const noise = 0.4
	f, err := NewLearnableFunction("noise", 8, -1, 1, 3, FixedNoise(noise), 1, 1)
	require.NoError(t, err)
	for i, c := range f.ControlPoints {
		assert.GreaterOrEqual(t, c, -noise/2, "control point %d", i)
		assert.LessOrEqual(t, c, noise/2, "control point %d", i)
	}
}

func TestZeroNoiseGivesZeroSpline(t *testing.T) {
	f, err := NewLearnableFunction("zero", 4, -1, 1, 3, FixedNoise(0), 1, 1)
	require.NoError(t, err)
	for x := -1.0; x <= 1.0; x += 0.1 {
		assert.Equal(t, 0.0, f.Evaluate(x))
	}
}

func TestLinearRamp(t *testing.T) {
	const fanIn = 2
	limit := math.Sqrt(2.0 / fanIn)
	f, err := NewLearnableFunction("ramp", 4, -1, 1, 3, Linear(), fanIn, 1)
	require.NoError(t, err)

	first := f.ControlPoints[0]
	last := f.ControlPoints[len(f.ControlPoints)-1]
	// Either a positive or a negative ramp between -limit and +limit.
	assert.InDelta(t, limit, math.Abs(first), 1e-12)
	assert.InDelta(t, limit, math.Abs(last), 1e-12)
	assert.InDelta(t, 0.0, first+last, 1e-12)

	// Interpolation is deterministic and evenly spaced.
	step := (last - first) / float64(len(f.ControlPoints)-1)
	for i := 1; i < len(f.ControlPoints); i++ {
		assert.InDelta(t, step, f.ControlPoints[i]-f.ControlPoints[i-1], 1e-12)
	}
}

func TestBasisGlorotProducesBoundedValues(t *testing.T) {
	// The Monte Carlo scheme should give finite, modest control points for a
	// typical configuration. The exact draws are random; check magnitude only.
	f, err := NewLearnableFunction("vp", 6, -1, 1, 3, BasisGlorot(), 4, 2)
	require.NoError(t, err)
	for i, c := range f.ControlPoints {
		require.False(t, math.IsNaN(c) || math.IsInf(c, 0), "control point %d", i)
		assert.Less(t, math.Abs(c), 10.0, "control point %d", i)
	}
}

func TestBasisMomentsAreCached(t *testing.T) {
	f, err := NewLearnableFunction("m", 5, -1, 1, 2, FixedNoise(0), 1, 1)
	require.NoError(t, err)

	first := lookupBasisMoments(f)
	second := lookupBasisMoments(f)
	// Same backing slices: the second lookup hit the cache.
	assert.Same(t, &first.mu0[0], &second.mu0[0])

	for m := range first.mu0 {
		assert.GreaterOrEqual(t, first.mu0[m], 0.0)
		assert.GreaterOrEqual(t, first.mu1[m], 0.0)
	}
}
