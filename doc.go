// Package kan provides a small computation engine for Kolmogorov-Arnold
// Networks (KANs): layered networks whose edges carry learnable univariate
// functions represented as clamped B-splines, trained by backpropagation.
//
// Instead of a scalar weight, every edge owns a spline whose control points
// are the trainable parameters. Nodes simply sum their incoming edge outputs.
// The engine supports single-example forward/backward passes with mini-batch
// gradient accumulation, sized for small networks trained interactively; it
// is not a general deep-learning framework.
//
// Basic usage:
//
//	config := kan.DefaultConfig()
//	opts, err := config.NetworkOptions()
//	if err != nil {
//		log.Fatalf("Error resolving options: %v", err)
//	}
//
//	// One input feature, two hidden nodes, one output.
//	net, err := kan.Build([]int{1, 2, 1}, []string{"x"}, opts)
//	if err != nil {
//		log.Fatalf("Error building network: %v", err)
//	}
//
//	// One training step on a single example.
//	output, err := net.ForwardProp([]float64{0.5}, false)
//	if err != nil {
//		log.Fatalf("Error in forward pass: %v", err)
//	}
//	net.BackProp(0.25, kan.SquareError)
//	net.UpdateWeights(0.03)
//	_ = output
//
// The Trainer wraps this loop with shuffling, batching, early stopping and
// checkpointing; see examples/regression.
package kan
