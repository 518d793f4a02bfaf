package kan

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Edge connects two nodes in consecutive layers and owns the learnable
// univariate function applied to the source node's output. Where a classical
// network edge carries one scalar weight, a KAN edge carries a whole spline.
//
// The edge also keeps the per-example state backpropagation needs (the latched
// last input and the gradient accumulator) and the activation histograms a
// host visualizes. Connectivity ownership lives in the network's node lists;
// Source and Dest are back-references for traversal.
type Edge struct {
	Source *Node
	Dest   *Node

	// Fn is the learnable function; exactly one per edge.
	Fn *LearnableFunction

	// IsActive may be toggled by the host. An inactive edge contributes zero
	// to its destination, records nothing, and never accumulates or applies
	// gradients.
	IsActive bool

	// LastInput is latched on every Forward call and consumed by the
	// following gradient accumulation.
	LastInput float64

	// InputHistogram records pre-clamp inputs; OutputHistogram records
	// evaluated outputs with a faster decay so it tracks recent parameter
	// changes.
	InputHistogram  *Histogram
	OutputHistogram *Histogram

	// accumulatedGrads sums per-example control-point gradients until the
	// next parameter update; len(accumulatedGrads) == len(Fn.ControlPoints)
	// always.
	accumulatedGrads []float64
	numAccumulated   int
}

func newEdge(source, dest *Node, fn *LearnableFunction, opts Options) *Edge {
	e := &Edge{
		Source:           source,
		Dest:             dest,
		Fn:               fn,
		IsActive:         true,
		InputHistogram:   NewHistogram(opts.HistogramBins, fn.DomainMin, fn.DomainMax, opts.InputDecay),
		OutputHistogram:  NewHistogram(opts.HistogramBins, fn.DomainMin, fn.DomainMax, opts.OutputDecay),
		accumulatedGrads: make([]float64, len(fn.ControlPoints)),
	}
	source.OutputEdges = append(source.OutputEdges, e)
	dest.InputEdges = append(dest.InputEdges, e)
	return e
}

// ID returns the edge's identity, "sourceID-destID".
func (e *Edge) ID() string {
	return fmt.Sprintf("%s-%s", e.Source.ID, e.Dest.ID)
}

// Forward latches the input and evaluates the edge's function on it. An
// inactive edge returns 0 without touching the histograms. The raw, pre-clamp
// input is what lands in the input histogram.
func (e *Edge) Forward(input float64, recordHistogram bool) float64 {
	e.LastInput = input
	if !e.IsActive {
		return 0
	}
	if recordHistogram {
		e.InputHistogram.Record(input)
	}
	output := e.Fn.Evaluate(input)
	if recordHistogram {
		e.OutputHistogram.Record(output)
	}
	return output
}

// AccumulateGradients adds this example's per-control-point gradient,
// evaluated at the latched input and scaled by the upstream output gradient,
// into the running accumulator. Gradients are summed per example and averaged
// at update time, giving mini-batch accumulation with arbitrary batch sizes.
func (e *Edge) AccumulateGradients(outputGradient float64) {
	if !e.IsActive {
		return
	}
	grads := e.Fn.ControlPointGradients(e.LastInput)
	floats.AddScaled(e.accumulatedGrads, outputGradient, grads)
	e.numAccumulated++
}

// UpdateParameters applies the mean accumulated gradient to the function's
// control points and clears the accumulator. A no-op if the edge is inactive
// or nothing was accumulated; this is the only point where parameters change.
func (e *Edge) UpdateParameters(lr float64) {
	if !e.IsActive || e.numAccumulated == 0 {
		return
	}
	floats.Scale(1/float64(e.numAccumulated), e.accumulatedGrads)
	e.Fn.UpdateParameters(e.accumulatedGrads, lr)
	e.ResetGradients()
}

// ResetGradients clears the accumulator and the example counter without
// touching the function's parameters.
func (e *Edge) ResetGradients() {
	for i := range e.accumulatedGrads {
		e.accumulatedGrads[i] = 0
	}
	e.numAccumulated = 0
}

// ResetHistograms clears both activation histograms. Histogram state is
// independent of the function's parameters.
func (e *Edge) ResetHistograms() {
	e.InputHistogram.Reset()
	e.OutputHistogram.Reset()
}
