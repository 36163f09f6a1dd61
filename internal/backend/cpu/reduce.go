package cpu

import (
	"fmt"

	"github.com/le-big-mac/VCL-Diffusion/internal/tensor"
)

// Sum computes the total sum of all elements, returning a scalar tensor.
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	result := cpu.alloc("sum", tensor.Shape{}, x.DType())

	switch x.DType() {
	case tensor.Float32:
		result.AsFloat32()[0] = sumKernel(x.AsFloat32())
	case tensor.Float64:
		result.AsFloat64()[0] = sumKernel(x.AsFloat64())
	default:
		panic(fmt.Sprintf("sum: unsupported dtype %s", x.DType()))
	}

	return result
}

// SumDim sums elements along the given dimension.
// Negative dims count from the end (-1 = last).
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := x.Shape()
	dim = normalizeDim("sumdim", dim, len(shape))

	outer, dimSize, inner := splitDims(shape, dim)
	result := cpu.alloc("sumdim", reducedShape(shape, dim, keepDim), x.DType())

	switch x.DType() {
	case tensor.Float32:
		sumDimKernel(result.AsFloat32(), x.AsFloat32(), outer, dimSize, inner)
	case tensor.Float64:
		sumDimKernel(result.AsFloat64(), x.AsFloat64(), outer, dimSize, inner)
	default:
		panic(fmt.Sprintf("sumdim: unsupported dtype %s", x.DType()))
	}

	return result
}

// MeanDim computes the mean of elements along the given dimension.
// Negative dims count from the end (-1 = last).
func (cpu *CPUBackend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := x.Shape()
	dimSize := shape[normalizeDim("meandim", dim, len(shape))]

	result := cpu.SumDim(x, dim, keepDim)

	switch x.DType() {
	case tensor.Float32:
		scaleInPlace(result.AsFloat32(), 1/float32(dimSize))
	case tensor.Float64:
		scaleInPlace(result.AsFloat64(), 1/float64(dimSize))
	}

	return result
}

func sumKernel[T tensor.DType](data []T) T {
	var total T
	for _, v := range data {
		total += v
	}
	return total
}

func sumDimKernel[T tensor.DType](dst, src []T, outer, dimSize, inner int) {
	for o := 0; o < outer; o++ {
		for d := 0; d < dimSize; d++ {
			srcBase := (o*dimSize + d) * inner
			dstBase := o * inner
			for i := 0; i < inner; i++ {
				dst[dstBase+i] += src[srcBase+i]
			}
		}
	}
}

func scaleInPlace[T tensor.DType](data []T, factor T) {
	for i := range data {
		data[i] *= factor
	}
}

// normalizeDim resolves negative dimension indices and bounds-checks.
func normalizeDim(name string, dim, ndim int) int {
	if dim < 0 {
		dim += ndim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("%s: dimension %d out of range for %d-dimensional tensor", name, dim, ndim))
	}
	return dim
}

// splitDims factors a shape around dim into (outer, dimSize, inner) extents.
func splitDims(shape tensor.Shape, dim int) (outer, dimSize, inner int) {
	outer, dimSize, inner = 1, shape[dim], 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}
	return outer, dimSize, inner
}

// reducedShape is the shape after reducing dim: size 1 when keepDim, removed
// otherwise.
func reducedShape(shape tensor.Shape, dim int, keepDim bool) tensor.Shape {
	if keepDim {
		out := shape.Clone()
		out[dim] = 1
		return out
	}
	out := make(tensor.Shape, 0, len(shape)-1)
	for i, s := range shape {
		if i != dim {
			out = append(out, s)
		}
	}
	return out
}
