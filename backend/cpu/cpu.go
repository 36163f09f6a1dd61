// Copyright 2025 The VCL-Diffusion Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the public CPU backend.
//
// The CPU backend implements every tensor operation in pure Go. It is the
// reference backend; device-specific backends plug in through the same
// tensor.Backend interface.
package cpu

import (
	internalcpu "github.com/le-big-mac/VCL-Diffusion/internal/backend/cpu"
	"github.com/le-big-mac/VCL-Diffusion/tensor"
)

// Backend is the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new CPU backend.
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
func New() *Backend {
	return internalcpu.New()
}
