package nn

import (
	"fmt"
	"math/rand"

	"github.com/le-big-mac/VCL-Diffusion/internal/tensor"
)

const (
	// DefaultMomentum is the EMA momentum for BatchNorm running statistics.
	DefaultMomentum float32 = 0.1

	// DefaultEps is the numerical-stability constant added to the variance.
	DefaultEps float32 = 1e-5
)

// BatchNorm2D standardizes [N, C, H, W] inputs per channel with running
// statistics, then applies a stochastic affine transform whose scale and
// shift carry factorized Gaussian posteriors.
//
// In training mode every forward pass first folds the current batch's mean
// and unbiased variance (computed over all non-channel dimensions) into the
// running statistics, then standardizes with the just-updated values. In
// eval mode the stored statistics are used unchanged.
type BatchNorm2D[B tensor.Backend] struct {
	numFeatures int
	momentum    float32
	eps         float32
	mle         bool
	training    bool

	scale gaussian[B] // posterior over gamma, shape [numFeatures]
	shift gaussian[B] // posterior over beta, shape [numFeatures]

	runningMean *tensor.Tensor[float32, B]
	runningVar  *tensor.Tensor[float32, B]

	rng     *rand.Rand
	backend B
}

// NewBatchNorm2D creates a variational batch normalization layer over
// numFeatures channels.
//
// Scale means start at one, shift means at zero, log-variances at
// logvarInit. Running mean starts at zero and running variance at one.
// The layer starts in training mode.
func NewBatchNorm2D[B tensor.Backend](numFeatures int, momentum, eps float32, mle bool, logvarInit float32, backend B) *BatchNorm2D[B] {
	if numFeatures <= 0 {
		panic(fmt.Sprintf("batchnorm2d: numFeatures must be positive, got %d", numFeatures))
	}
	if momentum < 0 || momentum > 1 {
		panic(fmt.Sprintf("batchnorm2d: momentum must be in [0, 1], got %v", momentum))
	}
	if eps <= 0 {
		panic(fmt.Sprintf("batchnorm2d: eps must be positive, got %v", eps))
	}

	bn := &BatchNorm2D[B]{
		numFeatures: numFeatures,
		momentum:    momentum,
		eps:         eps,
		mle:         mle,
		training:    true,
		rng:         newRNG(),
		backend:     backend,
	}

	shape := tensor.Shape{numFeatures}
	bn.scale = newGaussian("scale", tensor.Ones[float32](shape, backend), logvarInit, backend)
	bn.shift = newGaussian("shift", tensor.Zeros[float32](shape, backend), logvarInit, backend)
	bn.runningMean = tensor.Zeros[float32](shape, backend)
	bn.runningVar = tensor.Ones[float32](shape, backend)

	return bn
}

// Forward computes the layer output with DefaultParamSamples parameter
// samples (or deterministically in mle mode).
func (bn *BatchNorm2D[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return bn.ForwardSamples(x, DefaultParamSamples)
}

// ForwardSamples computes the layer output for input [N, numFeatures, H, W].
//
// The standardization half is shared by the whole batch (statistics come
// from the full batch, not per group); only the affine transform samples
// per-group scale and shift draws. In mle mode the mean scale/shift apply
// to the whole batch and samples is ignored.
func (bn *BatchNorm2D[B]) ForwardSamples(x *tensor.Tensor[float32, B], samples int) *tensor.Tensor[float32, B] {
	shape := x.Shape()
	if len(shape) != 4 || shape[1] != bn.numFeatures {
		panic(fmt.Sprintf("batchnorm2d: expected input [N, %d, H, W], got %v", bn.numFeatures, shape))
	}

	if bn.training {
		bn.updateRunningStats(x)
	}

	xhat := bn.standardize(x)

	if bn.mle {
		return bn.affine(xhat, bn.scale.mean.Tensor(), bn.shift.mean.Tensor())
	}

	return forwardSampled("batchnorm2d", xhat, samples, func(group *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
		return bn.affine(group, bn.scale.sample(bn.rng), bn.shift.sample(bn.rng))
	})
}

// updateRunningStats folds the batch mean and unbiased variance into the
// running statistics: running = (1-momentum)*running + momentum*batch.
func (bn *BatchNorm2D[B]) updateRunningStats(x *tensor.Tensor[float32, B]) {
	shape := x.Shape()
	count := shape[0] * shape[2] * shape[3]
	if count < 2 {
		panic(fmt.Sprintf("batchnorm2d: need at least 2 values per channel for unbiased variance, got %d", count))
	}

	// Reduce over batch and spatial dims, keeping [1, C, 1, 1].
	sum := x.SumDim(0, true).SumDim(2, true).SumDim(3, true)
	mean := sum.DivScalar(float32(count))

	diff := x.Sub(mean)
	sqSum := diff.Mul(diff).SumDim(0, true).SumDim(2, true).SumDim(3, true)
	variance := sqSum.DivScalar(float32(count - 1))

	batchMean := mean.Reshape(bn.numFeatures)
	batchVar := variance.Reshape(bn.numFeatures)

	keep := 1 - bn.momentum
	bn.runningMean = bn.runningMean.MulScalar(keep).Add(batchMean.MulScalar(bn.momentum))
	bn.runningVar = bn.runningVar.MulScalar(keep).Add(batchVar.MulScalar(bn.momentum))
}

// standardize computes (x - mean) / sqrt(var + eps) with the running
// statistics broadcast per channel.
func (bn *BatchNorm2D[B]) standardize(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	mean := bn.runningMean.Reshape(1, bn.numFeatures, 1, 1)
	invStd := bn.runningVar.AddScalar(bn.eps).Rsqrt().Reshape(1, bn.numFeatures, 1, 1)
	return x.Sub(mean).Mul(invStd)
}

func (bn *BatchNorm2D[B]) affine(xhat, scale, shift *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	s := scale.Reshape(1, bn.numFeatures, 1, 1)
	t := shift.Reshape(1, bn.numFeatures, 1, 1)
	return xhat.Mul(s).Add(t)
}

// Train puts the layer in training mode (running stats update on forward).
func (bn *BatchNorm2D[B]) Train() {
	bn.training = true
}

// Eval puts the layer in inference mode (running stats frozen).
func (bn *BatchNorm2D[B]) Eval() {
	bn.training = false
}

// Training reports whether the layer is in training mode.
func (bn *BatchNorm2D[B]) Training() bool {
	return bn.training
}

// Parameters returns the scale and shift posterior means and log-variances.
// Running statistics are buffers, not parameters.
func (bn *BatchNorm2D[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{bn.scale.mean, bn.scale.logvar, bn.shift.mean, bn.shift.logvar}
}

// Seed reseeds the layer's noise source. Intended for tests.
func (bn *BatchNorm2D[B]) Seed(seed int64) {
	bn.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // G404: statistical sampling, not crypto
}

// NumFeatures returns the channel count.
func (bn *BatchNorm2D[B]) NumFeatures() int { return bn.numFeatures }

// MLE reports whether the layer runs in deterministic point-estimate mode.
func (bn *BatchNorm2D[B]) MLE() bool { return bn.mle }

// ScaleMean returns the scale posterior mean, shape [numFeatures].
func (bn *BatchNorm2D[B]) ScaleMean() *tensor.Tensor[float32, B] { return bn.scale.mean.Tensor() }

// ScaleLogVar returns the scale posterior log-variance.
func (bn *BatchNorm2D[B]) ScaleLogVar() *tensor.Tensor[float32, B] { return bn.scale.logvar.Tensor() }

// ShiftMean returns the shift posterior mean, shape [numFeatures].
func (bn *BatchNorm2D[B]) ShiftMean() *tensor.Tensor[float32, B] { return bn.shift.mean.Tensor() }

// ShiftLogVar returns the shift posterior log-variance.
func (bn *BatchNorm2D[B]) ShiftLogVar() *tensor.Tensor[float32, B] { return bn.shift.logvar.Tensor() }

// RunningMean returns the running per-channel mean, shape [numFeatures].
func (bn *BatchNorm2D[B]) RunningMean() *tensor.Tensor[float32, B] { return bn.runningMean }

// RunningVar returns the running per-channel variance, shape [numFeatures].
func (bn *BatchNorm2D[B]) RunningVar() *tensor.Tensor[float32, B] { return bn.runningVar }

// String returns a human-readable description of the layer.
func (bn *BatchNorm2D[B]) String() string {
	return fmt.Sprintf("BatchNorm2D(features=%d, momentum=%v, eps=%v, mle=%t)",
		bn.numFeatures, bn.momentum, bn.eps, bn.mle)
}
