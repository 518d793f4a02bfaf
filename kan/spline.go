package kan

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// derivativeStep is the half-width used for the central finite-difference
// approximation of the input-side derivative.
const derivativeStep = 1e-6

// LearnableFunction is a univariate scalar function represented as a clamped
// B-spline. The control points are the learnable parameters; the knot vector
// and degree are fixed for the life of the function.
//
// The knot vector is clamped: the first and last Degree+1 knots sit exactly on
// the domain bounds, with the interior knots uniformly spaced strictly between
// them. Evaluation inside the domain is therefore continuous of class
// C^(Degree-1), and the function interpolates its first and last control
// points at the domain ends.
type LearnableFunction struct {
	// ID identifies the function; by convention "sourceID-destID" for a
	// function owned by an edge.
	ID string

	// ControlPoints holds the GridSize+1 learnable parameters. The host may
	// edit entries in place between training steps.
	ControlPoints []float64

	// Knots is the non-decreasing, clamped knot vector with
	// len(ControlPoints)+Degree+1 entries.
	Knots []float64

	// Degree of the spline, already clamped to at most GridSize-1.
	Degree int

	// DomainMin and DomainMax bound the input domain. Inputs outside the
	// domain are clamped before evaluation.
	DomainMin float64
	DomainMax float64
}

// NewLearnableFunction builds a clamped B-spline with gridSize+1 control
// points over [domainMin, domainMax]. The requested degree is silently clamped
// to gridSize-1 so that grid size and degree can be swept independently
// without configuration errors. Control points are filled in by init, using
// fanIn/fanOut as variance hints.
func NewLearnableFunction(id string, gridSize int, domainMin, domainMax float64, degree int, init Initializer, fanIn, fanOut int) (*LearnableFunction, error) {
	if gridSize < 1 {
		return nil, errors.Errorf("learnable function %q: grid size must be at least 1, got %d", id, gridSize)
	}
	if domainMax <= domainMin {
		return nil, errors.Errorf("learnable function %q: invalid domain [%g, %g]", id, domainMin, domainMax)
	}
	if degree > gridSize-1 {
		degree = gridSize - 1
	}
	if degree < 0 {
		degree = 0
	}

	f := &LearnableFunction{
		ID:            id,
		ControlPoints: make([]float64, gridSize+1),
		Knots:         buildClampedKnots(gridSize, degree, domainMin, domainMax),
		Degree:        degree,
		DomainMin:     domainMin,
		DomainMax:     domainMax,
	}
	if err := init.apply(f, fanIn, fanOut); err != nil {
		return nil, errors.Wrapf(err, "learnable function %q", id)
	}
	return f, nil
}

// buildClampedKnots returns degree+1 copies of min, gridSize-degree uniformly
// spaced interior knots strictly between the bounds, and degree+1 copies of
// max, for a total of (gridSize+1)+degree+1 knots.
func buildClampedKnots(gridSize, degree int, min, max float64) []float64 {
	numInternal := gridSize - degree
	knots := make([]float64, 0, gridSize+degree+2)
	for i := 0; i <= degree; i++ {
		knots = append(knots, min)
	}
	step := (max - min) / float64(numInternal+1)
	for i := 1; i <= numInternal; i++ {
		knots = append(knots, min+float64(i)*step)
	}
	for i := 0; i <= degree; i++ {
		knots = append(knots, max)
	}
	return knots
}

// findSpan locates the knot span index s with Knots[s] <= x < Knots[s+1],
// restricted to [Degree, n] where n is the index of the last control point.
// x at or beyond the last interior break maps to n; x at or before the first
// non-trivial knot maps to Degree.
func (f *LearnableFunction) findSpan(x float64) int {
	p := f.Degree
	n := len(f.ControlPoints) - 1
	if x >= f.Knots[n+1] {
		return n
	}
	if x <= f.Knots[p] {
		return p
	}
	// Binary search over the interior of the knot vector.
	lo, hi := p, n+1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if x < f.Knots[mid] {
			hi = mid
		} else {
			lo = mid
		}
	}
	return lo
}

// Evaluate computes the spline value at x using de Boor's recursion. Inputs
// are clamped into the domain first.
func (f *LearnableFunction) Evaluate(x float64) float64 {
	x = clamp(x, f.DomainMin, f.DomainMax)
	p := f.Degree
	s := f.findSpan(x)

	// Seed the working points from the p+1 control points active on this span.
	d := make([]float64, p+1)
	for j := 0; j <= p; j++ {
		d[j] = f.ControlPoints[s-p+j]
	}

	for r := 1; r <= p; r++ {
		for j := p; j >= r; j-- {
			i := s - p + j
			denom := f.Knots[i+p-r+1] - f.Knots[i]
			var alpha float64
			if denom != 0 {
				alpha = (x - f.Knots[i]) / denom
			}
			d[j] = (1-alpha)*d[j-1] + alpha*d[j]
		}
	}
	return d[p]
}

// Derivative approximates df/dx at x with a central finite difference, with
// both sample points clamped into the domain. It returns 0 when the clamped
// interval collapses. Note the asymmetry with ControlPointGradients, which is
// exact: the input-side chain-rule term inherits finite-difference error.
func (f *LearnableFunction) Derivative(x float64) float64 {
	if f.DomainMax-f.DomainMin < 2*derivativeStep {
		return 0
	}
	lo := clamp(x-derivativeStep, f.DomainMin, f.DomainMax)
	hi := clamp(x+derivativeStep, f.DomainMin, f.DomainMax)
	if hi-lo <= 0 {
		return 0
	}
	return (f.Evaluate(hi) - f.Evaluate(lo)) / (hi - lo)
}

// ControlPointGradients returns d Evaluate(x) / d ControlPoints[m] for every
// m, as a vector of len(ControlPoints). Because the spline is linear in its
// control points, the gradient for control point m is exactly the m-th basis
// function value at x; only the Degree+1 basis functions active on x's knot
// span are non-zero.
func (f *LearnableFunction) ControlPointGradients(x float64) []float64 {
	x = clamp(x, f.DomainMin, f.DomainMax)
	s := f.findSpan(x)
	basis := f.basisValues(x, s)

	grads := make([]float64, len(f.ControlPoints))
	for j, b := range basis {
		grads[s-f.Degree+j] = b
	}
	return grads
}

// basisValues computes the Degree+1 non-vanishing basis function values at x
// on span s via the Cox-de Boor triangular recurrence. Degenerate knot spans
// contribute zero rather than NaN.
func (f *LearnableFunction) basisValues(x float64, s int) []float64 {
	p := f.Degree
	basis := make([]float64, p+1)
	left := make([]float64, p+1)
	right := make([]float64, p+1)

	basis[0] = 1
	for j := 1; j <= p; j++ {
		left[j] = x - f.Knots[s+1-j]
		right[j] = f.Knots[s+j] - x
		saved := 0.0
		for r := 0; r < j; r++ {
			denom := right[r+1] + left[j-r]
			var temp float64
			if denom != 0 {
				temp = basis[r] / denom
			}
			basis[r] = saved + right[r+1]*temp
			saved = left[j-r] * temp
		}
		basis[j] = saved
	}
	return basis
}

// UpdateParameters applies one gradient-descent step in place:
// ControlPoints[i] -= lr * gradients[i]. Only the overlapping length of the
// two vectors is touched; by construction the lengths always match.
func (f *LearnableFunction) UpdateParameters(gradients []float64, lr float64) {
	n := len(gradients)
	if len(f.ControlPoints) < n {
		n = len(f.ControlPoints)
	}
	floats.AddScaled(f.ControlPoints[:n], -lr, gradients[:n])
}

// clamp restricts a value to [minVal, maxVal].
func clamp(value, minVal, maxVal float64) float64 {
	return math.Max(minVal, math.Min(value, maxVal))
}
