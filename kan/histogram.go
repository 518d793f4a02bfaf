package kan

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// DefaultHistogramBins is the bin count used when none is configured.
const DefaultHistogramBins = 20

// Histogram is a fixed-bin activation histogram with optional exponential
// decay, used by edges to expose recent input/output distributions to a
// visualization host. Bin mass is data only; rendering is the host's problem.
//
// The display range [Min, Max] is fixed independently of the observed value
// range, which is tracked separately so that a host can opt in to
// recalibration when activations drift outside the configured bounds.
type Histogram struct {
	// Bins holds the (decayed) counts.
	Bins []float64

	// Min and Max bound the display range values are binned against.
	Min float64
	Max float64

	// Decay is multiplied into every bin before each increment. 1 disables
	// decay; smaller values forget old mass faster.
	Decay float64

	// ObservedMin and ObservedMax track the raw recorded values, regardless
	// of the display range.
	ObservedMin float64
	ObservedMax float64
}

// NewHistogram builds a histogram with the given bin count over [min, max].
func NewHistogram(bins int, min, max, decay float64) *Histogram {
	if bins < 1 {
		bins = DefaultHistogramBins
	}
	h := &Histogram{
		Bins:  make([]float64, bins),
		Min:   min,
		Max:   max,
		Decay: decay,
	}
	h.resetObserved()
	return h
}

// Record decays all bins and then increments the bin the value maps to.
// Values outside the display range land in the edge bins.
func (h *Histogram) Record(value float64) {
	if value < h.ObservedMin {
		h.ObservedMin = value
	}
	if value > h.ObservedMax {
		h.ObservedMax = value
	}
	if h.Decay != 1 {
		floats.Scale(h.Decay, h.Bins)
	}
	h.Bins[h.binIndex(value)]++
}

func (h *Histogram) binIndex(value float64) int {
	width := h.Max - h.Min
	if width <= 0 {
		return 0
	}
	idx := int(float64(len(h.Bins)) * (value - h.Min) / width)
	if idx < 0 {
		return 0
	}
	if idx >= len(h.Bins) {
		return len(h.Bins) - 1
	}
	return idx
}

// Normalized returns a copy of the bins scaled to unit mass. An empty
// histogram normalizes to all zeros.
func (h *Histogram) Normalized() []float64 {
	out := make([]float64, len(h.Bins))
	copy(out, h.Bins)
	if mass := floats.Sum(out); mass > 0 {
		floats.Scale(1/mass, out)
	}
	return out
}

// RecalibrateRange widens the display range to the observed range plus 10%
// padding on each side and clears the accumulated bins, which were counted
// against the old bounds.
func (h *Histogram) RecalibrateRange() {
	if h.ObservedMax < h.ObservedMin {
		return // nothing recorded yet
	}
	pad := 0.1 * (h.ObservedMax - h.ObservedMin)
	if pad == 0 {
		pad = 0.1
	}
	h.Min = h.ObservedMin - pad
	h.Max = h.ObservedMax + pad
	for i := range h.Bins {
		h.Bins[i] = 0
	}
}

// Reset clears the bins and the observed range; the display range is kept.
func (h *Histogram) Reset() {
	for i := range h.Bins {
		h.Bins[i] = 0
	}
	h.resetObserved()
}

func (h *Histogram) resetObserved() {
	h.ObservedMin = math.Inf(1)
	h.ObservedMax = math.Inf(-1)
}
