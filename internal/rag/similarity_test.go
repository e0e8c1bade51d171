package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarityIdentical(t *testing.T) {
	v := []float64{1, 2, 3}
	assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-9)
}

func TestCosineSimilarityOpposite(t *testing.T) {
	a := []float64{1, 0, -2}
	b := []float64{-1, 0, 2}
	assert.InDelta(t, -1.0, CosineSimilarity(a, b), 1e-9)
}

func TestCosineSimilarityOrthogonal(t *testing.T) {
	a := []float64{1, 0}
	b := []float64{0, 1}
	assert.InDelta(t, 0.0, CosineSimilarity(a, b), 1e-9)
}

func TestCosineSimilaritySymmetricAndBounded(t *testing.T) {
	a := []float64{0.3, -1.2, 4.5, 0.01}
	b := []float64{-2.2, 0.9, 1.1, 3.3}
	ab := CosineSimilarity(a, b)
	ba := CosineSimilarity(b, a)
	assert.Equal(t, ab, ba)
	assert.GreaterOrEqual(t, ab, -1.0)
	assert.LessOrEqual(t, ab, 1.0)
}

func TestCosineSimilarityDefensiveZeros(t *testing.T) {
	assert.Zero(t, CosineSimilarity(nil, nil))
	assert.Zero(t, CosineSimilarity([]float64{1, 2}, []float64{1, 2, 3}))
	assert.Zero(t, CosineSimilarity([]float64{0, 0, 0}, []float64{1, 2, 3}))
	assert.Zero(t, CosineSimilarity([]float64{1, 2, 3}, []float64{0, 0, 0}))
}
