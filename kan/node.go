package kan

// Node is one unit of a layered KAN. It has no activation function or bias of
// its own: it only sums the outputs of its input edges, each of which applies
// its own learnable function. Input and output edge lists are back-references
// fixed at assembly time.
type Node struct {
	// ID is the provided feature name for input nodes, or a sequentially
	// assigned number for hidden and output nodes.
	ID string

	InputEdges  []*Edge
	OutputEdges []*Edge

	// Output caches the value of the last forward pass.
	Output float64

	// OutputDer caches d error / d Output, accumulated during the backward
	// pass from all of this node's outgoing edges.
	OutputDer float64

	// IsActive may be toggled by the host. An inactive node outputs zero and
	// never backpropagates.
	IsActive bool
}

func newNode(id string) *Node {
	return &Node{ID: id, IsActive: true}
}

// Forward recomputes and caches the node's output as the sum of its input
// edges' outputs. Source nodes must already have been evaluated, which the
// network's layer ordering guarantees.
func (n *Node) Forward(recordHistogram bool) float64 {
	if !n.IsActive {
		n.Output = 0
		return 0
	}
	sum := 0.0
	for _, e := range n.InputEdges {
		sum += e.Forward(e.Source.Output, recordHistogram)
	}
	n.Output = sum
	return sum
}

// Backward propagates the node's cached error derivative through each active
// input edge: the edge accumulates its parameter gradient (spline output is
// linear in the control points, so the upstream derivative is used directly),
// and the chain-rule term through the spline is added into the source node's
// derivative.
func (n *Node) Backward() {
	if !n.IsActive {
		return
	}
	for _, e := range n.InputEdges {
		if !e.IsActive {
			continue
		}
		inputGrad := n.OutputDer * e.Fn.Derivative(e.LastInput)
		e.AccumulateGradients(n.OutputDer)
		e.Source.OutputDer += inputGrad
	}
}
