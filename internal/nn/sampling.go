package nn

import (
	"fmt"
	"math/rand"

	"github.com/le-big-mac/VCL-Diffusion/internal/tensor"
)

const (
	// DefaultParamSamples is the number of parameter samples (batch groups)
	// used by Forward when no explicit count is given.
	DefaultParamSamples = 10

	// DefaultLogVarInit is the initial log-variance of every posterior.
	// exp(-8) ~ 3.4e-4, a tight posterior around the mean at start.
	DefaultLogVarInit float32 = -8.0
)

// gaussian is a factorized Gaussian posterior over one parameter tensor:
// a mean and a log-variance of the same shape.
type gaussian[B tensor.Backend] struct {
	mean   *Parameter[B]
	logvar *Parameter[B]
}

func newGaussian[B tensor.Backend](name string, mean *tensor.Tensor[float32, B], logvarInit float32, backend B) gaussian[B] {
	logvar := tensor.Full[float32](mean.Shape(), logvarInit, backend)
	return gaussian[B]{
		mean:   NewParameter(name+"_mean", mean),
		logvar: NewParameter(name+"_logvar", logvar),
	}
}

// sample draws w = mean + exp(0.5*logvar) * eps with fresh element-wise
// standard normal noise from rng.
func (g gaussian[B]) sample(rng *rand.Rand) *tensor.Tensor[float32, B] {
	mean := g.mean.Tensor()
	std := g.logvar.Tensor().MulScalar(0.5).Exp()
	eps := tensor.RandnFrom[float32](rng, mean.Shape(), mean.Backend())
	return mean.Add(std.Mul(eps))
}

// forwardSampled splits x into `samples` equal groups along the batch
// dimension, applies fn to each group, and concatenates the results in
// order. fn is expected to draw fresh parameters per invocation, so each
// group sees an independent parameter sample.
func forwardSampled[B tensor.Backend](name string, x *tensor.Tensor[float32, B], samples int,
	fn func(group *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if samples <= 0 {
		panic(fmt.Sprintf("%s: parameter sample count must be positive, got %d", name, samples))
	}

	n := x.Shape()[0]
	if n%samples != 0 {
		panic(fmt.Sprintf("%s: batch size %d not divisible into %d parameter samples", name, n, samples))
	}

	groups := x.Chunk(samples, 0)
	outs := make([]*tensor.Tensor[float32, B], len(groups))
	for i, g := range groups {
		outs[i] = fn(g)
	}
	return tensor.Cat(outs, 0)
}
