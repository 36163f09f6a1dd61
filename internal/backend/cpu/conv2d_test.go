package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/le-big-mac/VCL-Diffusion/internal/tensor"
)

func TestConv2DBasic(t *testing.T) {
	// 3x3 input, 2x2 kernel picking the main diagonal of each window.
	input := fromSlice(t, []float32{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	}, tensor.Shape{1, 1, 3, 3})
	kernel := fromSlice(t, []float32{
		1, 0,
		0, 1,
	}, tensor.Shape{1, 1, 2, 2})

	out := input.Conv2D(kernel, 1, 0)

	assert.Equal(t, tensor.Shape{1, 1, 2, 2}, out.Shape())
	assert.Equal(t, []float32{6, 8, 12, 14}, out.Data())
}

func TestConv2DPadding(t *testing.T) {
	// All-ones input and kernel with padding 1: each output counts the
	// overlap between the kernel window and the image.
	input := fromSlice(t, []float32{1, 1, 1, 1}, tensor.Shape{1, 1, 2, 2})
	kernel := fromSlice(t, []float32{1, 1, 1, 1}, tensor.Shape{1, 1, 2, 2})

	out := input.Conv2D(kernel, 1, 1)

	assert.Equal(t, tensor.Shape{1, 1, 3, 3}, out.Shape())
	assert.Equal(t, []float32{
		1, 2, 1,
		2, 4, 2,
		1, 2, 1,
	}, out.Data())
}

func TestConv2DStride(t *testing.T) {
	input := fromSlice(t, []float32{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	}, tensor.Shape{1, 1, 4, 4})
	kernel := fromSlice(t, []float32{1, 1, 1, 1}, tensor.Shape{1, 1, 2, 2})

	out := input.Conv2D(kernel, 2, 0)

	assert.Equal(t, tensor.Shape{1, 1, 2, 2}, out.Shape())
	// Window sums: (1+2+5+6), (3+4+7+8), (9+10+13+14), (11+12+15+16).
	assert.Equal(t, []float32{14, 22, 46, 54}, out.Data())
}

func TestConv2DMultiChannel(t *testing.T) {
	// Two input channels, 1x1 kernel summing them with weights 1 and 10.
	input := fromSlice(t, []float32{
		1, 2, 3, 4, // channel 0
		5, 6, 7, 8, // channel 1
	}, tensor.Shape{1, 2, 2, 2})
	kernel := fromSlice(t, []float32{1, 10}, tensor.Shape{1, 2, 1, 1})

	out := input.Conv2D(kernel, 1, 0)

	assert.Equal(t, tensor.Shape{1, 1, 2, 2}, out.Shape())
	assert.Equal(t, []float32{51, 62, 73, 84}, out.Data())
}

func TestConv2DBatch(t *testing.T) {
	input := fromSlice(t, []float32{
		1, 2, 3, 4, // image 0
		10, 20, 30, 40, // image 1
	}, tensor.Shape{2, 1, 2, 2})
	kernel := fromSlice(t, []float32{1, 1, 1, 1}, tensor.Shape{1, 1, 2, 2})

	out := input.Conv2D(kernel, 1, 0)

	assert.Equal(t, tensor.Shape{2, 1, 1, 1}, out.Shape())
	assert.Equal(t, []float32{10, 100}, out.Data())
}

func TestConv2DChannelMismatchPanics(t *testing.T) {
	input := fromSlice(t, []float32{1, 2, 3, 4}, tensor.Shape{1, 1, 2, 2})
	kernel := fromSlice(t, []float32{1, 2, 3, 4, 5, 6, 7, 8}, tensor.Shape{1, 2, 2, 2})

	assert.Panics(t, func() { input.Conv2D(kernel, 1, 0) })
}
