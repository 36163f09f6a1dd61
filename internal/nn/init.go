package nn

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/le-big-mac/VCL-Diffusion/internal/tensor"
)

// kaimingUniform fills t in place with draws from U(-bound, bound) where
// bound = 1/sqrt(fanIn). This is Kaiming-uniform initialization with
// a=sqrt(5), the standard scheme for layer weight means.
func kaimingUniform[B tensor.Backend](rng *rand.Rand, t *tensor.Tensor[float32, B], fanIn int) {
	if fanIn <= 0 {
		panic(fmt.Sprintf("kaiming init: fan-in must be positive, got %d", fanIn))
	}
	bound := 1.0 / math.Sqrt(float64(fanIn))
	data := t.Data()
	for i := range data {
		data[i] = float32((2*rng.Float64() - 1) * bound)
	}
}

// newRNG creates a per-layer noise source. Seeding from the global source
// keeps layers independent without requiring callers to pass seeds.
func newRNG() *rand.Rand {
	return rand.New(rand.NewSource(rand.Int63())) //nolint:gosec // G404: statistical sampling, not crypto
}
