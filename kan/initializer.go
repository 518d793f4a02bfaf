package kan

import (
	"math"
	"math/rand"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// InitScheme enumerates the control-point initialization strategies.
type InitScheme int

const (
	// InitFixedNoise draws each control point i.i.d. from U(-noise/2, noise/2).
	InitFixedNoise InitScheme = iota
	// InitLinear produces a linear ramp across the control points, scaled by
	// a He-style limit sqrt(2/fanIn), with a random sign for the slope.
	InitLinear
	// InitBasisGlorot is a basis-agnostic Glorot-like scheme: it estimates the
	// expected squared basis value and squared basis derivative per control
	// point by Monte Carlo sampling, and sizes each control point's standard
	// deviation so the spline preserves activation variance. Ordinary
	// Xavier/Kaiming assumes linear weights; each B-spline basis function has
	// localized support, so the effective fan-in sensitivity differs per
	// control point.
	InitBasisGlorot
)

// Initializer is the tagged "number or named scheme" initialization parameter,
// dispatched once at construction time.
type Initializer struct {
	Scheme InitScheme
	Noise  float64 // amplitude, only meaningful for InitFixedNoise
}

// FixedNoise returns an Initializer drawing from U(-noise/2, noise/2).
// FixedNoise(0) yields an identically-zero spline.
func FixedNoise(noise float64) Initializer {
	return Initializer{Scheme: InitFixedNoise, Noise: noise}
}

// Linear returns the ramp Initializer.
func Linear() Initializer {
	return Initializer{Scheme: InitLinear}
}

// BasisGlorot returns the variance-preserving Initializer.
func BasisGlorot() Initializer {
	return Initializer{Scheme: InitBasisGlorot}
}

// ParseInitializer interprets a configuration value that is either a numeric
// noise amplitude (e.g. "0.1") or a named scheme ("linear", "basis_glorot").
func ParseInitializer(value string) (Initializer, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "linear":
		return Linear(), nil
	case "basis_glorot", "basis-glorot", "glorot":
		return BasisGlorot(), nil
	}
	noise, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return Initializer{}, errors.Errorf("unknown weight init %q: want a noise amplitude, \"linear\" or \"basis_glorot\"", value)
	}
	return FixedNoise(noise), nil
}

// String returns the configuration form of the Initializer.
func (init Initializer) String() string {
	switch init.Scheme {
	case InitLinear:
		return "linear"
	case InitBasisGlorot:
		return "basis_glorot"
	default:
		return strconv.FormatFloat(init.Noise, 'g', -1, 64)
	}
}

// apply fills f.ControlPoints according to the scheme.
func (init Initializer) apply(f *LearnableFunction, fanIn, fanOut int) error {
	if fanIn < 1 {
		fanIn = 1
	}
	if fanOut < 1 {
		fanOut = 1
	}
	switch init.Scheme {
	case InitFixedNoise:
		for i := range f.ControlPoints {
			f.ControlPoints[i] = rand.Float64()*init.Noise - init.Noise/2
		}
	case InitLinear:
		initLinearRamp(f, fanIn)
	case InitBasisGlorot:
		initBasisGlorot(f, fanIn, fanOut)
	default:
		return errors.Errorf("unknown init scheme %d", init.Scheme)
	}
	return nil
}

func initLinearRamp(f *LearnableFunction, fanIn int) {
	limit := math.Sqrt(2.0 / float64(fanIn))
	start, end := -limit, limit
	if rand.Float64() < 0.5 {
		start, end = end, start
	}
	n := len(f.ControlPoints)
	if n == 1 {
		f.ControlPoints[0] = start
		return
	}
	for i := range f.ControlPoints {
		t := float64(i) / float64(n-1)
		f.ControlPoints[i] = start + (end-start)*t
	}
}

// basisMomentSamples is the Monte Carlo sample count used to estimate the
// per-control-point basis moments.
const basisMomentSamples = 10000

// basisMoments holds E[B_m(x)^2] and E[B_m'(x)^2] per control point for one
// (gridSize, degree, domain) configuration.
type basisMoments struct {
	mu0 []float64
	mu1 []float64
}

type momentKey struct {
	gridSize int
	degree   int
	min, max float64
}

// momentCache memoizes basis moments across edges that share a spline
// configuration: the estimation costs O(samples x control points), and in a
// fully connected network every edge of a layer pair shares the key.
var momentCache = struct {
	sync.Mutex
	m map[momentKey]basisMoments
}{m: make(map[momentKey]basisMoments)}

func initBasisGlorot(f *LearnableFunction, fanIn, fanOut int) {
	moments := lookupBasisMoments(f)
	numControlPoints := len(f.ControlPoints)
	for m := range f.ControlPoints {
		denom := float64(fanIn)*moments.mu0[m] + float64(fanOut)*moments.mu1[m]
		var sigma float64
		if denom > 0 {
			sigma = math.Sqrt(2.0 / denom / float64(numControlPoints))
		} else {
			// Standard Glorot bound as a fallback for basis functions the
			// sampling never reached.
			sigma = math.Sqrt(2.0 / float64(fanIn+fanOut))
		}
		f.ControlPoints[m] = rand.NormFloat64() * sigma
	}
}

func lookupBasisMoments(f *LearnableFunction) basisMoments {
	key := momentKey{
		gridSize: len(f.ControlPoints) - 1,
		degree:   f.Degree,
		min:      f.DomainMin,
		max:      f.DomainMax,
	}
	momentCache.Lock()
	defer momentCache.Unlock()
	if cached, ok := momentCache.m[key]; ok {
		return cached
	}
	moments := estimateBasisMoments(f)
	momentCache.m[key] = moments
	return moments
}

// estimateBasisMoments draws standard-normal inputs clamped into the domain
// and averages the squared basis values and squared finite-difference basis
// derivatives per control point.
func estimateBasisMoments(f *LearnableFunction) basisMoments {
	numControlPoints := len(f.ControlPoints)
	sq0 := make([][]float64, numControlPoints)
	sq1 := make([][]float64, numControlPoints)
	for m := range sq0 {
		sq0[m] = make([]float64, 0, basisMomentSamples)
		sq1[m] = make([]float64, 0, basisMomentSamples)
	}

	for i := 0; i < basisMomentSamples; i++ {
		x := clamp(rand.NormFloat64(), f.DomainMin, f.DomainMax)
		xh := clamp(x+derivativeStep, f.DomainMin, f.DomainMax)
		h := xh - x
		basis := f.ControlPointGradients(x)
		basisH := f.ControlPointGradients(xh)
		for m := 0; m < numControlPoints; m++ {
			sq0[m] = append(sq0[m], basis[m]*basis[m])
			var der float64
			if h > 0 {
				der = (basisH[m] - basis[m]) / h
			}
			sq1[m] = append(sq1[m], der*der)
		}
	}

	moments := basisMoments{
		mu0: make([]float64, numControlPoints),
		mu1: make([]float64, numControlPoints),
	}
	for m := 0; m < numControlPoints; m++ {
		moments.mu0[m] = stat.Mean(sq0[m], nil)
		moments.mu1[m] = stat.Mean(sq1[m], nil)
	}
	return moments
}
