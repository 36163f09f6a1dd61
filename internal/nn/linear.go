package nn

import (
	"fmt"
	"math/rand"

	"github.com/le-big-mac/VCL-Diffusion/internal/tensor"
)

// Linear is a fully connected layer with a factorized Gaussian posterior
// over its weights: y = x @ W^T + b.
//
// Weight posterior shape: [outFeatures, inFeatures]; bias: [outFeatures].
type Linear[B tensor.Backend] struct {
	inFeatures  int
	outFeatures int
	mle         bool

	weight gaussian[B]
	bias   *gaussian[B] // nil when the layer has no bias

	rng     *rand.Rand
	backend B
}

// NewLinear creates a variational fully connected layer.
//
// Weight means use Kaiming-uniform initialization (bound 1/sqrt(inFeatures)),
// bias means start at zero, and every log-variance starts at logvarInit.
// With mle=true the layer is deterministic and only the means are used.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, bias, mle bool, logvarInit float32, backend B) *Linear[B] {
	if inFeatures <= 0 || outFeatures <= 0 {
		panic(fmt.Sprintf("linear: feature counts must be positive, got in=%d out=%d", inFeatures, outFeatures))
	}

	l := &Linear[B]{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		mle:         mle,
		rng:         newRNG(),
		backend:     backend,
	}

	weightMean := tensor.Zeros[float32](tensor.Shape{outFeatures, inFeatures}, backend)
	kaimingUniform(l.rng, weightMean, inFeatures)
	l.weight = newGaussian("weight", weightMean, logvarInit, backend)

	if bias {
		biasMean := tensor.Zeros[float32](tensor.Shape{outFeatures}, backend)
		g := newGaussian("bias", biasMean, logvarInit, backend)
		l.bias = &g
	}

	return l
}

// Forward computes the layer output with DefaultParamSamples parameter
// samples (or deterministically in mle mode).
func (l *Linear[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return l.ForwardSamples(x, DefaultParamSamples)
}

// ForwardSamples computes the layer output for input [N, inFeatures].
//
// In stochastic mode the batch is split into `samples` equal groups, each
// group gets an independent weight draw, and the group outputs are
// concatenated in order. N must be divisible by samples. In mle mode the
// mean parameters are applied to the whole batch and samples is ignored.
func (l *Linear[B]) ForwardSamples(x *tensor.Tensor[float32, B], samples int) *tensor.Tensor[float32, B] {
	shape := x.Shape()
	if len(shape) != 2 || shape[1] != l.inFeatures {
		panic(fmt.Sprintf("linear: expected input [N, %d], got %v", l.inFeatures, shape))
	}

	if l.mle {
		return l.apply(x, l.weight.mean.Tensor(), l.biasMeanOrNil())
	}

	return forwardSampled("linear", x, samples, func(group *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
		w := l.weight.sample(l.rng)
		var b *tensor.Tensor[float32, B]
		if l.bias != nil {
			b = l.bias.sample(l.rng)
		}
		return l.apply(group, w, b)
	})
}

func (l *Linear[B]) apply(x, w, b *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	y := x.MatMul(w.T())
	if b != nil {
		y = y.Add(b) // [N, out] + [out] broadcasts over rows
	}
	return y
}

func (l *Linear[B]) biasMeanOrNil() *tensor.Tensor[float32, B] {
	if l.bias == nil {
		return nil
	}
	return l.bias.mean.Tensor()
}

// Parameters returns the posterior means and log-variances.
func (l *Linear[B]) Parameters() []*Parameter[B] {
	params := []*Parameter[B]{l.weight.mean, l.weight.logvar}
	if l.bias != nil {
		params = append(params, l.bias.mean, l.bias.logvar)
	}
	return params
}

// Seed reseeds the layer's noise source. Intended for tests.
func (l *Linear[B]) Seed(seed int64) {
	l.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // G404: statistical sampling, not crypto
}

// InFeatures returns the input feature count.
func (l *Linear[B]) InFeatures() int { return l.inFeatures }

// OutFeatures returns the output feature count.
func (l *Linear[B]) OutFeatures() int { return l.outFeatures }

// MLE reports whether the layer runs in deterministic point-estimate mode.
func (l *Linear[B]) MLE() bool { return l.mle }

// WeightMean returns the weight posterior mean, shape [out, in].
func (l *Linear[B]) WeightMean() *tensor.Tensor[float32, B] { return l.weight.mean.Tensor() }

// WeightLogVar returns the weight posterior log-variance, shape [out, in].
func (l *Linear[B]) WeightLogVar() *tensor.Tensor[float32, B] { return l.weight.logvar.Tensor() }

// BiasMean returns the bias posterior mean ([out]), or nil without bias.
func (l *Linear[B]) BiasMean() *tensor.Tensor[float32, B] { return l.biasMeanOrNil() }

// BiasLogVar returns the bias posterior log-variance, or nil without bias.
func (l *Linear[B]) BiasLogVar() *tensor.Tensor[float32, B] {
	if l.bias == nil {
		return nil
	}
	return l.bias.logvar.Tensor()
}

// String returns a human-readable description of the layer.
func (l *Linear[B]) String() string {
	return fmt.Sprintf("Linear(in=%d, out=%d, bias=%t, mle=%t)", l.inFeatures, l.outFeatures, l.bias != nil, l.mle)
}
