package kan

import (
	"math"

	"github.com/pkg/errors"
)

// ErrorFunction pairs a scalar loss with its derivative with respect to the
// network output. BackProp seeds the output node's error derivative with Der.
type ErrorFunction struct {
	// Error computes the loss for one example.
	Error func(output, target float64) float64
	// Der computes d Error / d output.
	Der func(output, target float64) float64
}

// SquareError is the canonical error function: 0.5*(output-target)^2 with
// derivative output-target.
var SquareError = ErrorFunction{
	Error: func(output, target float64) float64 {
		d := output - target
		return 0.5 * d * d
	},
	Der: func(output, target float64) float64 {
		return output - target
	},
}

// AbsoluteError is |output-target| with a sign derivative (0 at equality).
var AbsoluteError = ErrorFunction{
	Error: func(output, target float64) float64 {
		return math.Abs(output - target)
	},
	Der: func(output, target float64) float64 {
		switch {
		case output > target:
			return 1
		case output < target:
			return -1
		default:
			return 0
		}
	},
}

// ErrorFunctions maps configuration names to error functions.
var ErrorFunctions = map[string]ErrorFunction{
	"square":   SquareError,
	"absolute": AbsoluteError,
	"abs":      AbsoluteError, // alias
}

// GetErrorFunction retrieves an error function by name.
func GetErrorFunction(name string) (ErrorFunction, error) {
	if fn, ok := ErrorFunctions[name]; ok {
		return fn, nil
	}
	return ErrorFunction{}, errors.Errorf("unknown error function: %s", name)
}
