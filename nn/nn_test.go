// Copyright 2025 The VCL-Diffusion Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/le-big-mac/VCL-Diffusion/backend/cpu"
	"github.com/le-big-mac/VCL-Diffusion/nn"
	"github.com/le-big-mac/VCL-Diffusion/tensor"
)

func TestModuleComposition(t *testing.T) {
	backend := cpu.New()

	// A small convolutional pipeline chained through the Module interface.
	modules := []nn.Module[*cpu.Backend]{
		nn.NewConv2D(3, 8, 3, 1, 1, true, false, nn.DefaultLogVarInit, backend),
		nn.NewBatchNorm2D(8, nn.DefaultMomentum, nn.DefaultEps, false, nn.DefaultLogVarInit, backend),
		nn.NewReLU[*cpu.Backend](),
		nn.NewConvTranspose2D(8, 3, 4, 2, 1, true, false, nn.DefaultLogVarInit, backend),
	}

	x := tensor.Randn[float32](tensor.Shape{10, 3, 8, 8}, backend)
	for _, m := range modules {
		x = m.Forward(x)
	}

	assert.Equal(t, tensor.Shape{10, 3, 16, 16}, x.Shape())

	total := 0
	for _, m := range modules {
		total += len(m.Parameters())
	}
	// conv (4) + batchnorm (4) + relu (0) + convtranspose (4).
	assert.Equal(t, 12, total)
}

func TestMLEPipelineDeterministic(t *testing.T) {
	backend := cpu.New()

	enc := nn.NewLinear(6, 4, true, true, nn.DefaultLogVarInit, backend)
	dec := nn.NewLinear(4, 6, true, true, nn.DefaultLogVarInit, backend)

	x := tensor.Randn[float32](tensor.Shape{5, 6}, backend)

	out1 := dec.Forward(enc.Forward(x))
	out2 := dec.Forward(enc.Forward(x))

	assert.Equal(t, tensor.Shape{5, 6}, out1.Shape())
	assert.Equal(t, out1.Data(), out2.Data())
}

func TestStochasticForwardPreservesBatch(t *testing.T) {
	backend := cpu.New()

	layer := nn.NewLinear(4, 2, true, false, nn.DefaultLogVarInit, backend)
	x := tensor.Randn[float32](tensor.Shape{20, 4}, backend)

	out := layer.Forward(x)

	assert.Equal(t, tensor.Shape{20, 2}, out.Shape())
}
