package kan

import (
	"strconv"

	"github.com/pkg/errors"
)

// Options collects the per-edge construction parameters Build threads through
// to every learnable function and histogram. Network shape and input ids are
// passed to Build directly; they are owned by the caller.
type Options struct {
	// GridSize G gives each edge function G+1 control points.
	GridSize int
	// Degree of the edge splines, clamped per function to GridSize-1.
	Degree int
	// DomainMin and DomainMax bound every edge function's input domain.
	DomainMin float64
	DomainMax float64
	// Init selects the control-point initialization scheme.
	Init Initializer
	// Histogram shape shared by all edges.
	HistogramBins int
	InputDecay    float64
	OutputDecay   float64
}

// DefaultOptions returns the documented defaults: a degree-3 spline on a
// 5-point grid over [-1, 1], variance-preserving initialization, and 20-bin
// histograms with slow input decay and fast output decay.
func DefaultOptions() Options {
	return Options{
		GridSize:      4,
		Degree:        3,
		DomainMin:     -1,
		DomainMax:     1,
		Init:          BasisGlorot(),
		HistogramBins: DefaultHistogramBins,
		InputDecay:    0.995,
		OutputDecay:   0.9,
	}
}

// Network is an ordered sequence of layers, each an ordered sequence of
// nodes, with full bipartite edges between consecutive layers. Layer 0 is the
// input layer; the last layer holds the single output node.
//
// A network is a single-owner mutable graph: forward/backward/update calls
// and direct host edits (control points, active flags) must be serialized by
// the caller.
type Network struct {
	Layers [][]*Node
}

// Build assembles a fully connected layered network. shape gives the node
// count per layer; the input layer takes its node ids from inputIDs, and all
// later nodes are numbered sequentially starting at "1". Edge functions
// receive fanIn = source layer size and fanOut = the size of the layer after
// the destination (1 when the destination is the output layer).
func Build(shape []int, inputIDs []string, opts Options) (*Network, error) {
	if len(shape) < 2 {
		return nil, errors.Errorf("network shape needs at least input and output layers, got %v", shape)
	}
	for i, size := range shape {
		if size < 1 {
			return nil, errors.Errorf("network shape %v: layer %d must have at least one node", shape, i)
		}
	}
	if shape[len(shape)-1] != 1 {
		return nil, errors.Errorf("network shape %v: the output layer must have exactly one node", shape)
	}
	if len(inputIDs) != shape[0] {
		return nil, errors.Errorf("got %d input ids for an input layer of %d nodes", len(inputIDs), shape[0])
	}

	net := &Network{Layers: make([][]*Node, len(shape))}
	nextNodeID := 1
	for layerIdx, size := range shape {
		layer := make([]*Node, size)
		for i := range layer {
			if layerIdx == 0 {
				layer[i] = newNode(inputIDs[i])
			} else {
				layer[i] = newNode(strconv.Itoa(nextNodeID))
				nextNodeID++
			}
		}
		net.Layers[layerIdx] = layer
	}

	for layerIdx := 0; layerIdx < len(shape)-1; layerIdx++ {
		fanIn := shape[layerIdx]
		fanOut := 1
		if layerIdx+2 < len(shape) {
			fanOut = shape[layerIdx+2]
		}
		for _, source := range net.Layers[layerIdx] {
			for _, dest := range net.Layers[layerIdx+1] {
				fn, err := NewLearnableFunction(
					source.ID+"-"+dest.ID,
					opts.GridSize, opts.DomainMin, opts.DomainMax, opts.Degree,
					opts.Init, fanIn, fanOut)
				if err != nil {
					return nil, errors.Wrapf(err, "building edge %s-%s", source.ID, dest.ID)
				}
				newEdge(source, dest, fn, opts)
			}
		}
	}
	return net, nil
}

// ForwardProp runs one synchronous left-to-right forward pass and returns the
// output node's value. Input values are assigned directly to the input layer's
// node outputs; the input layer has no incoming edges.
func (net *Network) ForwardProp(inputs []float64, recordHistogram bool) (float64, error) {
	inputLayer := net.Layers[0]
	if len(inputs) != len(inputLayer) {
		return 0, errors.Errorf("mismatch between input count (%d) and network input nodes (%d)", len(inputs), len(inputLayer))
	}
	for i, node := range inputLayer {
		if node.IsActive {
			node.Output = inputs[i]
		} else {
			node.Output = 0
		}
	}
	for _, layer := range net.Layers[1:] {
		for _, node := range layer {
			node.Forward(recordHistogram)
		}
	}
	return net.OutputNode().Output, nil
}

// BackProp propagates error derivatives right to left, accumulating one
// gradient contribution on every active edge. errFn.Der seeds the output
// node's derivative against the given target.
//
// Each layer's backward pass writes into the previous layer's nodes, so that
// layer's derivatives are zeroed immediately beforehand; nothing leaks across
// training steps.
func (net *Network) BackProp(target float64, errFn ErrorFunction) {
	outputNode := net.OutputNode()
	outputNode.OutputDer = errFn.Der(outputNode.Output, target)

	for layerIdx := len(net.Layers) - 1; layerIdx >= 1; layerIdx-- {
		for _, node := range net.Layers[layerIdx-1] {
			node.OutputDer = 0
		}
		for _, node := range net.Layers[layerIdx] {
			node.Backward()
		}
	}
}

// UpdateWeights applies every edge's accumulated mean gradient with the given
// learning rate. Layer 0 owns no edges.
func (net *Network) UpdateWeights(lr float64) {
	net.ForEachEdge(func(e *Edge) {
		e.UpdateParameters(lr)
	})
}

// OutputNode returns the last layer's sole node.
func (net *Network) OutputNode() *Node {
	lastLayer := net.Layers[len(net.Layers)-1]
	return lastLayer[0]
}

// ResetHistograms clears the activation histograms of every edge.
func (net *Network) ResetHistograms() {
	net.ForEachEdge(func(e *Edge) {
		e.ResetHistograms()
	})
}

// ForEachNode visits every node in layer order, optionally skipping the input
// layer.
func (net *Network) ForEachNode(skipInputLayer bool, visitor func(*Node)) {
	start := 0
	if skipInputLayer {
		start = 1
	}
	for _, layer := range net.Layers[start:] {
		for _, node := range layer {
			visitor(node)
		}
	}
}

// ForEachEdge visits every edge once, in layer order, via destination nodes.
func (net *Network) ForEachEdge(visitor func(*Edge)) {
	for _, layer := range net.Layers[1:] {
		for _, node := range layer {
			for _, e := range node.InputEdges {
				visitor(e)
			}
		}
	}
}
