package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/le-big-mac/VCL-Diffusion/internal/tensor"
)

func fromSlice(t *testing.T, data []float32, shape tensor.Shape) *tensor.Tensor[float32, *CPUBackend] {
	t.Helper()
	ts, err := tensor.FromSlice(data, shape, New())
	require.NoError(t, err)
	return ts
}

func TestAdd(t *testing.T) {
	a := fromSlice(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	b := fromSlice(t, []float32{10, 20, 30, 40}, tensor.Shape{2, 2})

	c := a.Add(b)

	assert.Equal(t, tensor.Shape{2, 2}, c.Shape())
	assert.Equal(t, []float32{11, 22, 33, 44}, c.Data())
}

func TestAddBroadcastRow(t *testing.T) {
	a := fromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	b := fromSlice(t, []float32{10, 20, 30}, tensor.Shape{3})

	c := a.Add(b)

	assert.Equal(t, tensor.Shape{2, 3}, c.Shape())
	assert.Equal(t, []float32{11, 22, 33, 14, 25, 36}, c.Data())
}

func TestAddBroadcastColumn(t *testing.T) {
	a := fromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	b := fromSlice(t, []float32{100, 200}, tensor.Shape{2, 1})

	c := a.Add(b)

	assert.Equal(t, []float32{101, 102, 103, 204, 205, 206}, c.Data())
}

func TestAddShapeMismatchPanics(t *testing.T) {
	a := fromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	b := fromSlice(t, []float32{1, 2, 3, 4, 5, 6, 7, 8}, tensor.Shape{4, 2})

	assert.Panics(t, func() { a.Add(b) })
}

func TestSubMulDiv(t *testing.T) {
	a := fromSlice(t, []float32{10, 20, 30, 40}, tensor.Shape{4})
	b := fromSlice(t, []float32{1, 2, 3, 4}, tensor.Shape{4})

	assert.Equal(t, []float32{9, 18, 27, 36}, a.Sub(b).Data())
	assert.Equal(t, []float32{10, 40, 90, 160}, a.Mul(b).Data())
	assert.Equal(t, []float32{10, 10, 10, 10}, a.Div(b).Data())
}

func TestMatMul(t *testing.T) {
	a := fromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	b := fromSlice(t, []float32{7, 8, 9, 10, 11, 12}, tensor.Shape{3, 2})

	c := a.MatMul(b)

	assert.Equal(t, tensor.Shape{2, 2}, c.Shape())
	assert.Equal(t, []float32{58, 64, 139, 154}, c.Data())
}

func TestMatMulDimensionMismatchPanics(t *testing.T) {
	a := fromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	b := fromSlice(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})

	assert.Panics(t, func() { a.MatMul(b) })
}

func TestScalarOps(t *testing.T) {
	x := fromSlice(t, []float32{1, 2, 3, 4}, tensor.Shape{4})

	assert.Equal(t, []float32{2, 4, 6, 8}, x.MulScalar(2).Data())
	assert.Equal(t, []float32{11, 12, 13, 14}, x.AddScalar(10).Data())
	assert.Equal(t, []float32{0, 1, 2, 3}, x.SubScalar(1).Data())
	assert.Equal(t, []float32{0.5, 1, 1.5, 2}, x.DivScalar(2).Data())
}

func TestExpSqrtRsqrt(t *testing.T) {
	x := fromSlice(t, []float32{0, 1, 4, 9}, tensor.Shape{4})

	exp := x.Exp().Data()
	assert.InDelta(t, 1.0, exp[0], 1e-6)
	assert.InDelta(t, 2.7182817, exp[1], 1e-4)

	assert.Equal(t, []float32{0, 1, 2, 3}, x.Sqrt().Data())

	rsqrt := x.Rsqrt().Data()
	assert.InDelta(t, 1.0, rsqrt[1], 1e-6)
	assert.InDelta(t, 0.5, rsqrt[2], 1e-6)
}

func TestReLU(t *testing.T) {
	x := fromSlice(t, []float32{-2, -0.5, 0, 0.5, 2}, tensor.Shape{5})

	assert.Equal(t, []float32{0, 0, 0, 0.5, 2}, x.ReLU().Data())
}

func TestSum(t *testing.T) {
	x := fromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	s := x.Sum()

	assert.Equal(t, tensor.Shape{}, s.Shape())
	assert.Equal(t, float32(21), s.Item())
}

func TestSumDim(t *testing.T) {
	x := fromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	rows := x.SumDim(0, false)
	assert.Equal(t, tensor.Shape{3}, rows.Shape())
	assert.Equal(t, []float32{5, 7, 9}, rows.Data())

	cols := x.SumDim(1, true)
	assert.Equal(t, tensor.Shape{2, 1}, cols.Shape())
	assert.Equal(t, []float32{6, 15}, cols.Data())

	neg := x.SumDim(-1, true)
	assert.Equal(t, cols.Data(), neg.Data())
}

func TestMeanDim(t *testing.T) {
	x := fromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	m := x.MeanDim(1, false)

	assert.Equal(t, tensor.Shape{2}, m.Shape())
	assert.Equal(t, []float32{2, 5}, m.Data())
}

func TestReshape(t *testing.T) {
	x := fromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	r := x.Reshape(3, 2)

	assert.Equal(t, tensor.Shape{3, 2}, r.Shape())
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, r.Data())
	assert.Panics(t, func() { x.Reshape(4, 2) })
}

func TestTranspose2D(t *testing.T) {
	x := fromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	xt := x.T()

	assert.Equal(t, tensor.Shape{3, 2}, xt.Shape())
	assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, xt.Data())
}

func TestTransposeAxes(t *testing.T) {
	// [2, 1, 3] -> [1, 3, 2] moving the batch dim last.
	x := fromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 1, 3})

	xt := x.Transpose(1, 2, 0)

	assert.Equal(t, tensor.Shape{1, 3, 2}, xt.Shape())
	assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, xt.Data())
}

func TestCat(t *testing.T) {
	a := fromSlice(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	b := fromSlice(t, []float32{5, 6}, tensor.Shape{1, 2})

	c := tensor.Cat([]*tensor.Tensor[float32, *CPUBackend]{a, b}, 0)

	assert.Equal(t, tensor.Shape{3, 2}, c.Shape())
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, c.Data())
}

func TestCatDim1(t *testing.T) {
	a := fromSlice(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	b := fromSlice(t, []float32{5, 6}, tensor.Shape{2, 1})

	c := tensor.Cat([]*tensor.Tensor[float32, *CPUBackend]{a, b}, 1)

	assert.Equal(t, tensor.Shape{2, 3}, c.Shape())
	assert.Equal(t, []float32{1, 2, 5, 3, 4, 6}, c.Data())
}

func TestChunk(t *testing.T) {
	x := fromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{6, 1})

	chunks := x.Chunk(3, 0)

	require.Len(t, chunks, 3)
	assert.Equal(t, tensor.Shape{2, 1}, chunks[0].Shape())
	assert.Equal(t, []float32{1, 2}, chunks[0].Data())
	assert.Equal(t, []float32{3, 4}, chunks[1].Data())
	assert.Equal(t, []float32{5, 6}, chunks[2].Data())
}

func TestChunkIndivisiblePanics(t *testing.T) {
	x := fromSlice(t, []float32{1, 2, 3, 4, 5}, tensor.Shape{5})

	assert.Panics(t, func() { x.Chunk(2, 0) })
}

func TestChunkCatRoundTrip(t *testing.T) {
	x := fromSlice(t, []float32{1, 2, 3, 4, 5, 6, 7, 8}, tensor.Shape{4, 2})

	chunks := x.Chunk(2, 0)
	back := tensor.Cat(chunks, 0)

	assert.Equal(t, x.Shape(), back.Shape())
	assert.Equal(t, x.Data(), back.Data())
}

func TestUnsqueezeSqueeze(t *testing.T) {
	x := fromSlice(t, []float32{1, 2, 3}, tensor.Shape{3})

	u := x.Unsqueeze(0)
	assert.Equal(t, tensor.Shape{1, 3}, u.Shape())

	tail := x.Unsqueeze(-1)
	assert.Equal(t, tensor.Shape{3, 1}, tail.Shape())

	s := u.Squeeze(0)
	assert.Equal(t, tensor.Shape{3}, s.Shape())

	assert.Panics(t, func() { x.Squeeze(0) })
}

func TestFloat64Ops(t *testing.T) {
	backend := New()
	a, err := tensor.FromSlice([]float64{1, 2, 3}, tensor.Shape{3}, backend)
	require.NoError(t, err)
	b, err := tensor.FromSlice([]float64{4, 5, 6}, tensor.Shape{3}, backend)
	require.NoError(t, err)

	assert.Equal(t, []float64{5, 7, 9}, a.Add(b).Data())
	assert.Equal(t, float64(6), a.Sum().Item())
}
