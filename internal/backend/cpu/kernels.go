package cpu

import (
	"github.com/le-big-mac/VCL-Diffusion/internal/tensor"
)

// binOp identifies an element-wise binary operation.
type binOp int

const (
	opAdd binOp = iota
	opSub
	opMul
	opDiv
)

// binaryKernel computes dst = a <op> b element-wise. When broadcasting is
// needed, source indices are resolved through stride-0 broadcast strides.
func binaryKernel[T tensor.DType](dst, a, b []T, aShape, bShape, outShape tensor.Shape, needsBroadcast bool, op binOp) {
	if !needsBroadcast {
		switch op {
		case opAdd:
			for i := range dst {
				dst[i] = a[i] + b[i]
			}
		case opSub:
			for i := range dst {
				dst[i] = a[i] - b[i]
			}
		case opMul:
			for i := range dst {
				dst[i] = a[i] * b[i]
			}
		case opDiv:
			for i := range dst {
				dst[i] = a[i] / b[i]
			}
		}
		return
	}

	aStrides := broadcastStrides(aShape, outShape)
	bStrides := broadcastStrides(bShape, outShape)
	outStrides := outShape.ComputeStrides()

	for i := range dst {
		ai := flatIndexFor(i, outStrides, aStrides)
		bi := flatIndexFor(i, outStrides, bStrides)
		switch op {
		case opAdd:
			dst[i] = a[ai] + b[bi]
		case opSub:
			dst[i] = a[ai] - b[bi]
		case opMul:
			dst[i] = a[ai] * b[bi]
		case opDiv:
			dst[i] = a[ai] / b[bi]
		}
	}
}

// broadcastStrides computes strides for broadcasting inShape to outShape.
// Broadcast dimensions (size 1 or padded on the left) get stride 0, so the
// same source element is read for every position along them.
func broadcastStrides(inShape, outShape tensor.Shape) []int {
	outDim := len(outShape)
	strides := make([]int, outDim)

	inDim := len(inShape)
	offset := outDim - inDim
	origStrides := inShape.ComputeStrides()

	for i := 0; i < outDim; i++ {
		inIdx := i - offset
		switch {
		case inIdx < 0:
			strides[i] = 0 // padded dimension
		case inShape[inIdx] == 1:
			strides[i] = 0 // broadcast dimension
		default:
			strides[i] = origStrides[inIdx]
		}
	}

	return strides
}

// flatIndexFor maps a flat output index to the flat source index, using the
// output strides to recover coordinates and the (broadcast-adjusted) source
// strides to re-linearize them.
func flatIndexFor(outIdx int, outStrides, inStrides []int) int {
	flatIdx := 0
	for i := range outStrides {
		coord := outIdx / outStrides[i]
		outIdx %= outStrides[i]
		flatIdx += coord * inStrides[i]
	}
	return flatIdx
}
