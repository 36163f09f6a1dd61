package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/le-big-mac/VCL-Diffusion/internal/backend/cpu"
	"github.com/le-big-mac/VCL-Diffusion/internal/tensor"
)

func TestConvTranspose2DUpsampleShape(t *testing.T) {
	backend := cpu.New()
	// kernel 4, stride 2, padding 1 doubles the spatial size.
	c := NewConvTranspose2D(4, 2, 4, 2, 1, true, false, DefaultLogVarInit, backend)
	x := tensor.Randn[float32](tensor.Shape{10, 4, 8, 8}, backend)

	out := c.ForwardSamples(x, 10)

	assert.Equal(t, tensor.Shape{10, 2, 16, 16}, out.Shape())
}

func TestConvTranspose2DMLEDeterministic(t *testing.T) {
	backend := cpu.New()
	c := NewConvTranspose2D(3, 2, 2, 2, 0, true, true, DefaultLogVarInit, backend)
	x := tensor.Randn[float32](tensor.Shape{5, 3, 4, 4}, backend)

	out1 := c.Forward(x)
	out2 := c.Forward(x)

	assert.Equal(t, tensor.Shape{5, 2, 8, 8}, out1.Shape())
	assert.Equal(t, out1.Data(), out2.Data())
}

func TestConvTranspose2DMLEKnownKernel(t *testing.T) {
	backend := cpu.New()
	c := NewConvTranspose2D(1, 1, 2, 2, 0, false, true, DefaultLogVarInit, backend)

	// All-ones 2x2 kernel with stride 2: each input value tiles a 2x2 block.
	for i := range c.WeightMean().Data() {
		c.WeightMean().Data()[i] = 1
	}

	x, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{1, 1, 2, 2}, backend)
	require.NoError(t, err)

	out := c.Forward(x)

	assert.Equal(t, tensor.Shape{1, 1, 4, 4}, out.Shape())
	assert.Equal(t, []float32{
		1, 1, 2, 2,
		1, 1, 2, 2,
		3, 3, 4, 4,
		3, 3, 4, 4,
	}, out.Data())
}

func TestConvTranspose2DDivisibilityPanics(t *testing.T) {
	backend := cpu.New()
	c := NewConvTranspose2D(3, 2, 2, 2, 0, true, false, DefaultLogVarInit, backend)
	x := tensor.Randn[float32](tensor.Shape{5, 3, 4, 4}, backend)

	assert.Panics(t, func() { c.ForwardSamples(x, 2) })
}

func TestConvTranspose2DTinyVarianceMatchesMLE(t *testing.T) {
	backend := cpu.New()
	c := NewConvTranspose2D(2, 3, 2, 2, 0, true, false, -30, backend)
	x := tensor.Randn[float32](tensor.Shape{10, 2, 4, 4}, backend)

	sampled := c.ForwardSamples(x, 10)
	mle := x.ConvTranspose2D(c.WeightMean(), 2, 0).Add(c.BiasMean().Reshape(1, 3, 1, 1))

	require.Equal(t, mle.Shape(), sampled.Shape())
	for i, want := range mle.Data() {
		assert.InDelta(t, want, sampled.Data()[i], 1e-3)
	}
}

func TestConvTranspose2DSeedReproducible(t *testing.T) {
	backend := cpu.New()
	c := NewConvTranspose2D(3, 2, 2, 2, 0, true, false, DefaultLogVarInit, backend)
	x := tensor.Randn[float32](tensor.Shape{4, 3, 4, 4}, backend)

	c.Seed(3)
	out1 := c.ForwardSamples(x, 4)
	c.Seed(3)
	out2 := c.ForwardSamples(x, 4)

	assert.Equal(t, out1.Data(), out2.Data())
}

func TestConvTranspose2DComputeOutputSize(t *testing.T) {
	backend := cpu.New()
	c := NewConvTranspose2D(3, 2, 4, 2, 1, true, true, DefaultLogVarInit, backend)

	h, w := c.ComputeOutputSize(8, 8)

	assert.Equal(t, 16, h)
	assert.Equal(t, 16, w)
}

func TestConvTranspose2DWeightLayout(t *testing.T) {
	backend := cpu.New()
	c := NewConvTranspose2D(3, 5, 2, 1, 0, true, false, DefaultLogVarInit, backend)

	// Transposed layout: [in, out, k, k].
	assert.Equal(t, tensor.Shape{3, 5, 2, 2}, c.WeightMean().Shape())
	assert.Equal(t, tensor.Shape{5}, c.BiasMean().Shape())

	// fanIn = out*k*k = 20, bound = 1/sqrt(20).
	bound := float32(0.2236068)
	for _, v := range c.WeightMean().Data() {
		assert.LessOrEqual(t, v, bound)
		assert.GreaterOrEqual(t, v, -bound)
	}
}

func TestConvTranspose2DBadChannelsPanics(t *testing.T) {
	backend := cpu.New()
	c := NewConvTranspose2D(3, 2, 2, 2, 0, true, true, DefaultLogVarInit, backend)

	bad := tensor.Randn[float32](tensor.Shape{2, 4, 4, 4}, backend)
	assert.Panics(t, func() { c.Forward(bad) })
}
