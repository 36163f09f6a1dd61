// Copyright 2025 The VCL-Diffusion Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the public API for variational neural network layers.
//
// Every layer keeps a factorized Gaussian posterior over its parameters
// (a mean and a log-variance per weight) and forwards inputs through
// reparameterized samples: the batch is split into groups, each group gets
// an independent parameter draw, and the results are concatenated. Layers
// constructed with mle=true skip sampling and behave as ordinary
// deterministic layers using the posterior means.
//
// Example:
//
//	backend := cpu.New()
//	layer := nn.NewLinear(784, 128, true, false, nn.DefaultLogVarInit, backend)
//	out := layer.Forward(x) // x: [N, 784], N divisible by 10
package nn

import (
	"github.com/le-big-mac/VCL-Diffusion/internal/nn"
	"github.com/le-big-mac/VCL-Diffusion/internal/tensor"
)

// Defaults shared by all layers.
const (
	// DefaultParamSamples is the group count used by Forward.
	DefaultParamSamples = nn.DefaultParamSamples

	// DefaultLogVarInit is the initial log-variance of every posterior.
	DefaultLogVarInit = nn.DefaultLogVarInit

	// DefaultMomentum is the BatchNorm2D running-statistics momentum.
	DefaultMomentum = nn.DefaultMomentum

	// DefaultEps is the BatchNorm2D numerical-stability constant.
	DefaultEps = nn.DefaultEps
)

// Module is the common interface for all layers.
type Module[B tensor.Backend] = nn.Module[B]

// Parameter is a named learnable tensor.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NewParameter wraps a tensor as a named parameter.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// Linear is a variational fully connected layer.
type Linear[B tensor.Backend] = nn.Linear[B]

// NewLinear creates a variational fully connected layer.
//
// Example:
//
//	layer := nn.NewLinear(4, 2, true, false, nn.DefaultLogVarInit, backend)
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, bias, mle bool, logvarInit float32, backend B) *Linear[B] {
	return nn.NewLinear(inFeatures, outFeatures, bias, mle, logvarInit, backend)
}

// Conv2D is a variational 2D convolution layer.
type Conv2D[B tensor.Backend] = nn.Conv2D[B]

// NewConv2D creates a variational 2D convolution layer with a square kernel.
func NewConv2D[B tensor.Backend](inChannels, outChannels, kernelSize, stride, padding int, bias, mle bool, logvarInit float32, backend B) *Conv2D[B] {
	return nn.NewConv2D(inChannels, outChannels, kernelSize, stride, padding, bias, mle, logvarInit, backend)
}

// ConvTranspose2D is a variational 2D transposed convolution layer.
type ConvTranspose2D[B tensor.Backend] = nn.ConvTranspose2D[B]

// NewConvTranspose2D creates a variational 2D transposed convolution layer.
func NewConvTranspose2D[B tensor.Backend](inChannels, outChannels, kernelSize, stride, padding int, bias, mle bool, logvarInit float32, backend B) *ConvTranspose2D[B] {
	return nn.NewConvTranspose2D(inChannels, outChannels, kernelSize, stride, padding, bias, mle, logvarInit, backend)
}

// BatchNorm2D is a variational batch normalization layer.
type BatchNorm2D[B tensor.Backend] = nn.BatchNorm2D[B]

// NewBatchNorm2D creates a variational batch normalization layer.
func NewBatchNorm2D[B tensor.Backend](numFeatures int, momentum, eps float32, mle bool, logvarInit float32, backend B) *BatchNorm2D[B] {
	return nn.NewBatchNorm2D(numFeatures, momentum, eps, mle, logvarInit, backend)
}

// ReLU is the rectified linear unit activation module.
type ReLU[B tensor.Backend] = nn.ReLU[B]

// NewReLU creates a new ReLU activation module.
func NewReLU[B tensor.Backend]() *ReLU[B] {
	return nn.NewReLU[B]()
}
