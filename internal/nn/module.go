// Package nn provides variational (Bayesian) neural network layers with
// factorized Gaussian weight posteriors and the reparameterization trick.
//
// Each layer stores a mean and a log-variance for every parameter. In
// stochastic mode a forward pass splits the batch into groups, draws an
// independent parameter sample per group, and concatenates the results.
// With mle=true a layer degenerates to a deterministic point-estimate layer
// using the mean parameters only.
package nn

import (
	"github.com/le-big-mac/VCL-Diffusion/internal/tensor"
)

// Module is the interface for all neural network layers.
type Module[B tensor.Backend] interface {
	// Forward computes the layer output for the input tensor.
	Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all learnable parameters of the module.
	Parameters() []*Parameter[B]
}
