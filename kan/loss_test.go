package kan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSquareError(t *testing.T) {
	assert.InDelta(t, 0.5*0.09, SquareError.Error(0.8, 0.5), 1e-12)
	assert.InDelta(t, 0.3, SquareError.Der(0.8, 0.5), 1e-12)
	assert.Equal(t, 0.0, SquareError.Error(0.5, 0.5))
}

func TestAbsoluteError(t *testing.T) {
	assert.InDelta(t, 0.3, AbsoluteError.Error(0.8, 0.5), 1e-12)
	assert.Equal(t, 1.0, AbsoluteError.Der(0.8, 0.5))
	assert.Equal(t, -1.0, AbsoluteError.Der(0.2, 0.5))
	assert.Equal(t, 0.0, AbsoluteError.Der(0.5, 0.5))
}

func TestGetErrorFunction(t *testing.T) {
	fn, err := GetErrorFunction("square")
	require.NoError(t, err)
	assert.NotNil(t, fn.Error)
	assert.NotNil(t, fn.Der)

	_, err = GetErrorFunction("hinge")
	assert.ErrorContains(t, err, "unknown error function")
}
