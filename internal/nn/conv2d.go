package nn

import (
	"fmt"
	"math/rand"

	"github.com/le-big-mac/VCL-Diffusion/internal/tensor"
)

// Conv2D is a 2D convolution layer with a factorized Gaussian posterior over
// its kernel weights.
//
// Weight posterior shape: [outChannels, inChannels, kernelSize, kernelSize];
// bias: [outChannels]. Kernels are square, stride and padding are fixed at
// construction.
type Conv2D[B tensor.Backend] struct {
	inChannels  int
	outChannels int
	kernelSize  int
	stride      int
	padding     int
	mle         bool

	weight gaussian[B]
	bias   *gaussian[B]

	rng     *rand.Rand
	backend B
}

// NewConv2D creates a variational 2D convolution layer.
//
// Weight means use Kaiming-uniform initialization with
// fanIn = inChannels*kernelSize^2; log-variances start at logvarInit.
func NewConv2D[B tensor.Backend](inChannels, outChannels, kernelSize, stride, padding int, bias, mle bool, logvarInit float32, backend B) *Conv2D[B] {
	if inChannels <= 0 || outChannels <= 0 {
		panic(fmt.Sprintf("conv2d: channel counts must be positive, got in=%d out=%d", inChannels, outChannels))
	}
	if kernelSize <= 0 || stride <= 0 || padding < 0 {
		panic(fmt.Sprintf("conv2d: invalid kernel=%d stride=%d padding=%d", kernelSize, stride, padding))
	}

	c := &Conv2D[B]{
		inChannels:  inChannels,
		outChannels: outChannels,
		kernelSize:  kernelSize,
		stride:      stride,
		padding:     padding,
		mle:         mle,
		rng:         newRNG(),
		backend:     backend,
	}

	weightMean := tensor.Zeros[float32](tensor.Shape{outChannels, inChannels, kernelSize, kernelSize}, backend)
	kaimingUniform(c.rng, weightMean, inChannels*kernelSize*kernelSize)
	c.weight = newGaussian("weight", weightMean, logvarInit, backend)

	if bias {
		biasMean := tensor.Zeros[float32](tensor.Shape{outChannels}, backend)
		g := newGaussian("bias", biasMean, logvarInit, backend)
		c.bias = &g
	}

	return c
}

// Forward computes the layer output with DefaultParamSamples parameter
// samples (or deterministically in mle mode).
func (c *Conv2D[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return c.ForwardSamples(x, DefaultParamSamples)
}

// ForwardSamples computes the layer output for input [N, inChannels, H, W].
// Stochastic mode splits the batch into `samples` groups with an independent
// kernel draw each; N must be divisible by samples.
func (c *Conv2D[B]) ForwardSamples(x *tensor.Tensor[float32, B], samples int) *tensor.Tensor[float32, B] {
	shape := x.Shape()
	if len(shape) != 4 || shape[1] != c.inChannels {
		panic(fmt.Sprintf("conv2d: expected input [N, %d, H, W], got %v", c.inChannels, shape))
	}

	if c.mle {
		return c.apply(x, c.weight.mean.Tensor(), c.biasMeanOrNil())
	}

	return forwardSampled("conv2d", x, samples, func(group *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
		w := c.weight.sample(c.rng)
		var b *tensor.Tensor[float32, B]
		if c.bias != nil {
			b = c.bias.sample(c.rng)
		}
		return c.apply(group, w, b)
	})
}

func (c *Conv2D[B]) apply(x, w, b *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	y := x.Conv2D(w, c.stride, c.padding)
	if b != nil {
		y = y.Add(b.Reshape(1, c.outChannels, 1, 1))
	}
	return y
}

func (c *Conv2D[B]) biasMeanOrNil() *tensor.Tensor[float32, B] {
	if c.bias == nil {
		return nil
	}
	return c.bias.mean.Tensor()
}

// Parameters returns the posterior means and log-variances.
func (c *Conv2D[B]) Parameters() []*Parameter[B] {
	params := []*Parameter[B]{c.weight.mean, c.weight.logvar}
	if c.bias != nil {
		params = append(params, c.bias.mean, c.bias.logvar)
	}
	return params
}

// Seed reseeds the layer's noise source. Intended for tests.
func (c *Conv2D[B]) Seed(seed int64) {
	c.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // G404: statistical sampling, not crypto
}

// ComputeOutputSize returns the spatial output size for an input of the
// given height and width.
func (c *Conv2D[B]) ComputeOutputSize(height, width int) (int, int) {
	outH := (height+2*c.padding-c.kernelSize)/c.stride + 1
	outW := (width+2*c.padding-c.kernelSize)/c.stride + 1
	return outH, outW
}

// InChannels returns the input channel count.
func (c *Conv2D[B]) InChannels() int { return c.inChannels }

// OutChannels returns the output channel count.
func (c *Conv2D[B]) OutChannels() int { return c.outChannels }

// KernelSize returns the (square) kernel size.
func (c *Conv2D[B]) KernelSize() int { return c.kernelSize }

// MLE reports whether the layer runs in deterministic point-estimate mode.
func (c *Conv2D[B]) MLE() bool { return c.mle }

// WeightMean returns the kernel posterior mean, shape [out, in, k, k].
func (c *Conv2D[B]) WeightMean() *tensor.Tensor[float32, B] { return c.weight.mean.Tensor() }

// WeightLogVar returns the kernel posterior log-variance.
func (c *Conv2D[B]) WeightLogVar() *tensor.Tensor[float32, B] { return c.weight.logvar.Tensor() }

// BiasMean returns the bias posterior mean, or nil without bias.
func (c *Conv2D[B]) BiasMean() *tensor.Tensor[float32, B] { return c.biasMeanOrNil() }

// BiasLogVar returns the bias posterior log-variance, or nil without bias.
func (c *Conv2D[B]) BiasLogVar() *tensor.Tensor[float32, B] {
	if c.bias == nil {
		return nil
	}
	return c.bias.logvar.Tensor()
}

// String returns a human-readable description of the layer.
func (c *Conv2D[B]) String() string {
	return fmt.Sprintf("Conv2D(in=%d, out=%d, kernel=%d, stride=%d, padding=%d, bias=%t, mle=%t)",
		c.inChannels, c.outChannels, c.kernelSize, c.stride, c.padding, c.bias != nil, c.mle)
}
