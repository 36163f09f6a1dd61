package cpu

import (
	"fmt"

	"github.com/le-big-mac/VCL-Diffusion/internal/tensor"
)

// Conv2D performs 2D convolution using im2col + matrix multiplication.
//
// Input:  [N, C_in, H, W]
// Kernel: [C_out, C_in, K, K]
// Output: [N, C_out, H_out, W_out]
//
// where H_out = (H + 2*padding - K) / stride + 1, same for W_out.
func (cpu *CPUBackend) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	if input.DType() != kernel.DType() {
		panic(fmt.Sprintf("conv2d: dtype mismatch: %s vs %s", input.DType(), kernel.DType()))
	}

	inShape := input.Shape()
	kShape := kernel.Shape()
	if len(inShape) != 4 || len(kShape) != 4 {
		panic(fmt.Sprintf("conv2d: expected 4D input and kernel, got %v and %v", inShape, kShape))
	}

	batch, inCh, height, width := inShape[0], inShape[1], inShape[2], inShape[3]
	outCh, kInCh, kh, kw := kShape[0], kShape[1], kShape[2], kShape[3]
	if inCh != kInCh {
		panic(fmt.Sprintf("conv2d: input channels %d != kernel channels %d", inCh, kInCh))
	}
	if kh != kw {
		panic(fmt.Sprintf("conv2d: only square kernels supported, got %dx%d", kh, kw))
	}

	outH := (height+2*padding-kh)/stride + 1
	outW := (width+2*padding-kw)/stride + 1
	if outH <= 0 || outW <= 0 {
		panic(fmt.Sprintf("conv2d: invalid output size %dx%d for input %dx%d kernel %d stride %d padding %d",
			outH, outW, height, width, kh, stride, padding))
	}

	result := cpu.alloc("conv2d", tensor.Shape{batch, outCh, outH, outW}, input.DType())

	switch input.DType() {
	case tensor.Float32:
		conv2dKernel(result.AsFloat32(), input.AsFloat32(), kernel.AsFloat32(),
			batch, inCh, height, width, outCh, kh, stride, padding, outH, outW)
	case tensor.Float64:
		conv2dKernel(result.AsFloat64(), input.AsFloat64(), kernel.AsFloat64(),
			batch, inCh, height, width, outCh, kh, stride, padding, outH, outW)
	default:
		panic(fmt.Sprintf("conv2d: unsupported dtype %s", input.DType()))
	}

	return result
}

func conv2dKernel[T tensor.DType](dst, input, kernel []T, batch, inCh, height, width, outCh, k, stride, padding, outH, outW int) {
	colRows := inCh * k * k
	colCols := outH * outW
	col := make([]T, colRows*colCols)

	for n := 0; n < batch; n++ {
		im2col(col, input[n*inCh*height*width:], inCh, height, width, k, stride, padding, outH, outW)

		// kernel viewed as [outCh, colRows] times col [colRows, colCols]
		out := dst[n*outCh*colCols:]
		for oc := 0; oc < outCh; oc++ {
			kRow := kernel[oc*colRows : (oc+1)*colRows]
			outRow := out[oc*colCols : (oc+1)*colCols]
			for r := 0; r < colRows; r++ {
				kv := kRow[r]
				if kv == 0 {
					continue
				}
				colRow := col[r*colCols : (r+1)*colCols]
				for c := 0; c < colCols; c++ {
					outRow[c] += kv * colRow[c]
				}
			}
		}
	}
}

// im2col unfolds the receptive fields of one image into a column matrix with
// rows indexed by (channel, kernel row, kernel col) and columns by output
// position. Out-of-bounds positions contribute zeros (implicit padding).
func im2col[T tensor.DType](col, img []T, inCh, height, width, k, stride, padding, outH, outW int) {
	colCols := outH * outW
	row := 0
	for c := 0; c < inCh; c++ {
		chOffset := c * height * width
		for ki := 0; ki < k; ki++ {
			for kj := 0; kj < k; kj++ {
				dst := col[row*colCols : (row+1)*colCols]
				row++
				idx := 0
				for oh := 0; oh < outH; oh++ {
					ih := oh*stride - padding + ki
					for ow := 0; ow < outW; ow++ {
						iw := ow*stride - padding + kj
						if ih >= 0 && ih < height && iw >= 0 && iw < width {
							dst[idx] = img[chOffset+ih*width+iw]
						} else {
							dst[idx] = 0
						}
						idx++
					}
				}
			}
		}
	}
}
