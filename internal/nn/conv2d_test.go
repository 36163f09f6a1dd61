package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/le-big-mac/VCL-Diffusion/internal/backend/cpu"
	"github.com/le-big-mac/VCL-Diffusion/internal/tensor"
)

func TestConv2DStochasticShape(t *testing.T) {
	backend := cpu.New()
	c := NewConv2D(3, 4, 3, 1, 1, true, false, DefaultLogVarInit, backend)
	x := tensor.Randn[float32](tensor.Shape{10, 3, 8, 8}, backend)

	out := c.ForwardSamples(x, 10)

	assert.Equal(t, tensor.Shape{10, 4, 8, 8}, out.Shape())
}

func TestConv2DMLEDeterministic(t *testing.T) {
	backend := cpu.New()
	c := NewConv2D(3, 4, 3, 1, 1, true, true, DefaultLogVarInit, backend)
	x := tensor.Randn[float32](tensor.Shape{2, 3, 8, 8}, backend)

	out1 := c.Forward(x)
	out2 := c.Forward(x)

	assert.Equal(t, tensor.Shape{2, 4, 8, 8}, out1.Shape())
	assert.Equal(t, out1.Data(), out2.Data())
}

func TestConv2DMLEKnownKernel(t *testing.T) {
	backend := cpu.New()
	c := NewConv2D(1, 1, 1, 1, 0, true, true, DefaultLogVarInit, backend)

	// Identity 1x1 kernel with bias 10.
	c.WeightMean().Data()[0] = 1
	c.BiasMean().Data()[0] = 10

	x, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{1, 1, 2, 2}, backend)
	require.NoError(t, err)

	out := c.Forward(x)

	assert.Equal(t, []float32{11, 12, 13, 14}, out.Data())
}

func TestConv2DDivisibilityPanics(t *testing.T) {
	backend := cpu.New()
	c := NewConv2D(3, 4, 3, 1, 1, true, false, DefaultLogVarInit, backend)
	x := tensor.Randn[float32](tensor.Shape{10, 3, 8, 8}, backend)

	assert.Panics(t, func() { c.ForwardSamples(x, 3) })
}

func TestConv2DTinyVarianceMatchesMLE(t *testing.T) {
	backend := cpu.New()
	c := NewConv2D(2, 3, 3, 1, 1, true, false, -30, backend)
	x := tensor.Randn[float32](tensor.Shape{10, 2, 4, 4}, backend)

	sampled := c.ForwardSamples(x, 10)
	mle := x.Conv2D(c.WeightMean(), 1, 1).Add(c.BiasMean().Reshape(1, 3, 1, 1))

	require.Equal(t, mle.Shape(), sampled.Shape())
	for i, want := range mle.Data() {
		assert.InDelta(t, want, sampled.Data()[i], 1e-3)
	}
}

func TestConv2DSeedReproducible(t *testing.T) {
	backend := cpu.New()
	c := NewConv2D(3, 4, 3, 1, 1, true, false, DefaultLogVarInit, backend)
	x := tensor.Randn[float32](tensor.Shape{4, 3, 5, 5}, backend)

	c.Seed(11)
	out1 := c.ForwardSamples(x, 2)
	c.Seed(11)
	out2 := c.ForwardSamples(x, 2)

	assert.Equal(t, out1.Data(), out2.Data())
}

func TestConv2DComputeOutputSize(t *testing.T) {
	backend := cpu.New()

	same := NewConv2D(3, 4, 3, 1, 1, true, true, DefaultLogVarInit, backend)
	h, w := same.ComputeOutputSize(8, 8)
	assert.Equal(t, 8, h)
	assert.Equal(t, 8, w)

	down := NewConv2D(3, 4, 4, 2, 1, true, true, DefaultLogVarInit, backend)
	h, w = down.ComputeOutputSize(16, 16)
	assert.Equal(t, 8, h)
	assert.Equal(t, 8, w)
}

func TestConv2DInit(t *testing.T) {
	backend := cpu.New()
	c := NewConv2D(2, 4, 3, 1, 1, true, false, DefaultLogVarInit, backend)

	// fanIn = 2*3*3 = 18, bound = 1/sqrt(18).
	bound := float32(0.2357023)
	for _, v := range c.WeightMean().Data() {
		assert.LessOrEqual(t, v, bound)
		assert.GreaterOrEqual(t, v, -bound)
	}
	assert.Equal(t, tensor.Shape{4, 2, 3, 3}, c.WeightMean().Shape())
	assert.Equal(t, tensor.Shape{4}, c.BiasMean().Shape())
}

func TestConv2DBadChannelsPanics(t *testing.T) {
	backend := cpu.New()
	c := NewConv2D(3, 4, 3, 1, 1, true, true, DefaultLogVarInit, backend)

	bad := tensor.Randn[float32](tensor.Shape{2, 5, 8, 8}, backend)
	assert.Panics(t, func() { c.Forward(bad) })
}
