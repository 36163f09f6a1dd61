package cpu

import (
	"fmt"

	"github.com/le-big-mac/VCL-Diffusion/internal/tensor"
)

// ConvTranspose2D performs 2D transposed convolution (fractionally strided
// convolution) by scattering each input element through the kernel into the
// output.
//
// Input:  [N, C_in, H, W]
// Kernel: [C_in, C_out, K, K]
// Output: [N, C_out, H_out, W_out]
//
// where H_out = (H - 1)*stride - 2*padding + K, same for W_out.
func (cpu *CPUBackend) ConvTranspose2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	if input.DType() != kernel.DType() {
		panic(fmt.Sprintf("convtranspose2d: dtype mismatch: %s vs %s", input.DType(), kernel.DType()))
	}

	inShape := input.Shape()
	kShape := kernel.Shape()
	if len(inShape) != 4 || len(kShape) != 4 {
		panic(fmt.Sprintf("convtranspose2d: expected 4D input and kernel, got %v and %v", inShape, kShape))
	}

	batch, inCh, height, width := inShape[0], inShape[1], inShape[2], inShape[3]
	kInCh, outCh, kh, kw := kShape[0], kShape[1], kShape[2], kShape[3]
	if inCh != kInCh {
		panic(fmt.Sprintf("convtranspose2d: input channels %d != kernel channels %d", inCh, kInCh))
	}
	if kh != kw {
		panic(fmt.Sprintf("convtranspose2d: only square kernels supported, got %dx%d", kh, kw))
	}

	outH := (height-1)*stride - 2*padding + kh
	outW := (width-1)*stride - 2*padding + kw
	if outH <= 0 || outW <= 0 {
		panic(fmt.Sprintf("convtranspose2d: invalid output size %dx%d for input %dx%d kernel %d stride %d padding %d",
			outH, outW, height, width, kh, stride, padding))
	}

	result := cpu.alloc("convtranspose2d", tensor.Shape{batch, outCh, outH, outW}, input.DType())

	switch input.DType() {
	case tensor.Float32:
		convTranspose2dKernel(result.AsFloat32(), input.AsFloat32(), kernel.AsFloat32(),
			batch, inCh, height, width, outCh, kh, stride, padding, outH, outW)
	case tensor.Float64:
		convTranspose2dKernel(result.AsFloat64(), input.AsFloat64(), kernel.AsFloat64(),
			batch, inCh, height, width, outCh, kh, stride, padding, outH, outW)
	default:
		panic(fmt.Sprintf("convtranspose2d: unsupported dtype %s", input.DType()))
	}

	return result
}

func convTranspose2dKernel[T tensor.DType](dst, input, kernel []T, batch, inCh, height, width, outCh, k, stride, padding, outH, outW int) {
	for n := 0; n < batch; n++ {
		inImg := input[n*inCh*height*width:]
		outImg := dst[n*outCh*outH*outW:]
		for ic := 0; ic < inCh; ic++ {
			inChan := inImg[ic*height*width:]
			kChan := kernel[ic*outCh*k*k:]
			for ih := 0; ih < height; ih++ {
				for iw := 0; iw < width; iw++ {
					v := inChan[ih*width+iw]
					if v == 0 {
						continue
					}
					// Scatter v through the kernel into the output window.
					for oc := 0; oc < outCh; oc++ {
						kWin := kChan[oc*k*k:]
						outChan := outImg[oc*outH*outW:]
						for ki := 0; ki < k; ki++ {
							oh := ih*stride - padding + ki
							if oh < 0 || oh >= outH {
								continue
							}
							for kj := 0; kj < k; kj++ {
								ow := iw*stride - padding + kj
								if ow < 0 || ow >= outW {
									continue
								}
								outChan[oh*outW+ow] += v * kWin[ki*k+kj]
							}
						}
					}
				}
			}
		}
	}
}
