package neat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/stat"
)

func TestNormalizerConstantSequenceConvergesToZero(t *testing.T) {
	n := NewNormalizer(1)
	for i := 0; i < 50; i++ {
		n.Observe([]float64{7.0})
	}
	out := n.Normalize([]float64{7.0})
	assert.InDelta(t, 0.0, out[0], 1e-9)
}

func TestNormalizerMeanMatchesGonum(t *testing.T) {
	n := NewNormalizer(1)
	samples := []float64{1.0, 2.0, 3.0, 4.0, 5.0}
	for _, s := range samples {
		n.Observe([]float64{s})
	}
	assert.InDelta(t, stat.Mean(samples, nil), n.Mean[0], 1e-9)
}

func TestNormalizerVarianceFloor(t *testing.T) {
	n := NewNormalizer(1)
	n.Observe([]float64{3.0})
	assert.Equal(t, normalizerVarianceFloor, n.Variance[0])
}

func TestNormalizerClone(t *testing.T) {
	n := NewNormalizer(2)
	n.Observe([]float64{1.0, 2.0})
	clone := n.Clone()
	clone.Observe([]float64{100.0, 100.0})
	assert.NotEqual(t, n.Mean, clone.Mean)
}
