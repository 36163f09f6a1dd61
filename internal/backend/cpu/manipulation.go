package cpu

import (
	"fmt"

	"github.com/le-big-mac/VCL-Diffusion/internal/tensor"
)

// Reshape returns a zero-copy view of the tensor with a new shape.
// The new shape must have the same number of elements.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	if newShape.NumElements() != t.NumElements() {
		panic(fmt.Sprintf("reshape: cannot reshape %v (%d elements) to %v (%d elements)",
			t.Shape(), t.NumElements(), newShape, newShape.NumElements()))
	}
	return t.WithShape(newShape)
}

// Transpose permutes the tensor's dimensions, copying data into the new
// layout. Empty axes reverse all dimensions.
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: expected %d axes, got %d", ndim, len(axes)))
	}

	seen := make([]bool, ndim)
	newShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		if ax < 0 || ax >= ndim || seen[ax] {
			panic(fmt.Sprintf("transpose: invalid axes permutation %v for shape %v", axes, shape))
		}
		seen[ax] = true
		newShape[i] = shape[ax]
	}

	result := cpu.alloc("transpose", newShape, t.DType())

	srcStrides := shape.ComputeStrides()
	dstStrides := newShape.ComputeStrides()
	esize := t.DType().Size()
	src := t.Data()
	dst := result.Data()

	n := t.NumElements()
	for i := 0; i < n; i++ {
		// Recover output coordinates, map through axes to the source offset.
		rem := i
		srcIdx := 0
		for d := 0; d < ndim; d++ {
			coord := rem / dstStrides[d]
			rem %= dstStrides[d]
			srcIdx += coord * srcStrides[axes[d]]
		}
		copy(dst[i*esize:(i+1)*esize], src[srcIdx*esize:(srcIdx+1)*esize])
	}

	return result
}

// Cat concatenates tensors along the given dimension. All inputs must share
// dtype and shape except in the concatenation dimension.
func (cpu *CPUBackend) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(tensors) == 0 {
		panic("cat: no tensors to concatenate")
	}

	first := tensors[0]
	ndim := len(first.Shape())
	dim = normalizeDim("cat", dim, ndim)

	catSize := 0
	for _, t := range tensors {
		if t.DType() != first.DType() {
			panic(fmt.Sprintf("cat: dtype mismatch: %s vs %s", first.DType(), t.DType()))
		}
		s := t.Shape()
		if len(s) != ndim {
			panic(fmt.Sprintf("cat: rank mismatch: %v vs %v", first.Shape(), s))
		}
		for d := 0; d < ndim; d++ {
			if d != dim && s[d] != first.Shape()[d] {
				panic(fmt.Sprintf("cat: shapes %v and %v differ outside dimension %d", first.Shape(), s, dim))
			}
		}
		catSize += s[dim]
	}

	outShape := first.Shape().Clone()
	outShape[dim] = catSize
	result := cpu.alloc("cat", outShape, first.DType())

	outer, _, inner := splitDims(outShape, dim)
	esize := first.DType().Size()
	dst := result.Data()
	dstBlock := catSize * inner * esize

	offset := 0
	for _, t := range tensors {
		src := t.Data()
		srcBlock := t.Shape()[dim] * inner * esize
		for o := 0; o < outer; o++ {
			copy(dst[o*dstBlock+offset:], src[o*srcBlock:(o+1)*srcBlock])
		}
		offset += srcBlock
	}

	return result
}

// Chunk splits a tensor into n equal parts along the given dimension.
// Panics if the dimension size is not divisible by n.
func (cpu *CPUBackend) Chunk(x *tensor.RawTensor, n, dim int) []*tensor.RawTensor {
	shape := x.Shape()
	dim = normalizeDim("chunk", dim, len(shape))

	if n <= 0 {
		panic(fmt.Sprintf("chunk: n must be positive, got %d", n))
	}
	if shape[dim]%n != 0 {
		panic(fmt.Sprintf("chunk: dimension %d (size %d) not divisible into %d chunks", dim, shape[dim], n))
	}

	chunkShape := shape.Clone()
	chunkShape[dim] = shape[dim] / n

	outer, _, inner := splitDims(shape, dim)
	esize := x.DType().Size()
	src := x.Data()
	srcBlock := shape[dim] * inner * esize
	chunkBlock := chunkShape[dim] * inner * esize

	results := make([]*tensor.RawTensor, n)
	for i := range results {
		chunk := cpu.alloc("chunk", chunkShape, x.DType())
		dst := chunk.Data()
		for o := 0; o < outer; o++ {
			start := o*srcBlock + i*chunkBlock
			copy(dst[o*chunkBlock:(o+1)*chunkBlock], src[start:start+chunkBlock])
		}
		results[i] = chunk
	}

	return results
}

// Unsqueeze returns a view with a dimension of size 1 inserted at dim.
// Apart from the usual range, dim may be len(shape) (or -1) to append.
func (cpu *CPUBackend) Unsqueeze(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)
	if dim < 0 {
		dim += ndim + 1
	}
	if dim < 0 || dim > ndim {
		panic(fmt.Sprintf("unsqueeze: dimension %d out of range for %d-dimensional tensor", dim, ndim))
	}

	newShape := make(tensor.Shape, 0, ndim+1)
	newShape = append(newShape, shape[:dim]...)
	newShape = append(newShape, 1)
	newShape = append(newShape, shape[dim:]...)
	return x.WithShape(newShape)
}

// Squeeze returns a view with the size-1 dimension at dim removed.
// Panics if the dimension does not have size 1.
func (cpu *CPUBackend) Squeeze(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	dim = normalizeDim("squeeze", dim, len(shape))
	if shape[dim] != 1 {
		panic(fmt.Sprintf("squeeze: dimension %d has size %d, expected 1", dim, shape[dim]))
	}

	newShape := make(tensor.Shape, 0, len(shape)-1)
	newShape = append(newShape, shape[:dim]...)
	newShape = append(newShape, shape[dim+1:]...)
	return x.WithShape(newShape)
}
