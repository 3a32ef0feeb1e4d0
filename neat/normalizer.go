package neat

import "math"

// normalizerVarianceFloor is the lower bound applied to a channel's
// variance, avoiding a division blow-up on constant input channels.
const normalizerVarianceFloor = 1e-2

// Normalizer maintains running per-channel mean/variance statistics over a
// fixed input dimensionality, using Welford's online algorithm. It is not
// synchronized: one instance belongs to one genome and is touched only by
// the worker evaluating that genome.
type Normalizer struct {
	Dim      int
	Count    []int64
	Mean     []float64
	m2       []float64
	Variance []float64
}

// NewNormalizer creates a Normalizer for the given number of input
// channels, with zeroed running statistics.
func NewNormalizer(dim int) *Normalizer {
	return &Normalizer{
		Dim:      dim,
		Count:    make([]int64, dim),
		Mean:     make([]float64, dim),
		m2:       make([]float64, dim),
		Variance: make([]float64, dim),
	}
}

// Observe folds one sample into the running statistics. len(x) must equal
// n.Dim.
func (n *Normalizer) Observe(x []float64) {
	for i, v := range x {
		n.Count[i]++
		delta := v - n.Mean[i]
		n.Mean[i] += delta / float64(n.Count[i])
		delta2 := v - n.Mean[i]
		n.m2[i] += delta * delta2
		variance := 0.0
		if n.Count[i] > 0 {
			variance = n.m2[i] / float64(n.Count[i])
		}
		n.Variance[i] = math.Max(variance, normalizerVarianceFloor)
	}
}

// Normalize returns x transformed by the current running mean/variance:
// (x - mean) / sqrt(variance).
func (n *Normalizer) Normalize(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - n.Mean[i]) / math.Sqrt(n.Variance[i])
	}
	return out
}

// Clone returns a deep copy of the normalizer's running state.
func (n *Normalizer) Clone() *Normalizer {
	clone := &Normalizer{
		Dim:      n.Dim,
		Count:    append([]int64(nil), n.Count...),
		Mean:     append([]float64(nil), n.Mean...),
		m2:       append([]float64(nil), n.m2...),
		Variance: append([]float64(nil), n.Variance...),
	}
	return clone
}
