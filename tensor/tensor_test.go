// Copyright 2025 The VCL-Diffusion Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/le-big-mac/VCL-Diffusion/backend/cpu"
	"github.com/le-big-mac/VCL-Diffusion/tensor"
)

func TestPublicAPIBasicOps(t *testing.T) {
	backend := cpu.New()

	x := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
	y := tensor.Full[float32](tensor.Shape{2, 3}, 2, backend)

	z := x.Add(y).MulScalar(10)

	assert.Equal(t, tensor.Shape{2, 3}, z.Shape())
	assert.Equal(t, []float32{30, 30, 30, 30, 30, 30}, z.Data())
}

func TestPublicAPIFromSliceMatMul(t *testing.T) {
	backend := cpu.New()

	a, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)
	b, err := tensor.FromSlice([]float32{5, 6, 7, 8}, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)

	c := a.MatMul(b)

	assert.Equal(t, []float32{19, 22, 43, 50}, c.Data())
}

func TestPublicAPICatChunk(t *testing.T) {
	backend := cpu.New()

	x := tensor.Zeros[float32](tensor.Shape{4, 2}, backend)
	chunks := x.Chunk(2, 0)
	back := tensor.Cat(chunks, 0)

	assert.Equal(t, x.Shape(), back.Shape())
}

func TestPublicAPIBroadcastShapes(t *testing.T) {
	out, bcast, err := tensor.BroadcastShapes(tensor.Shape{4, 1}, tensor.Shape{3})

	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{4, 3}, out)
	assert.True(t, bcast)
}
