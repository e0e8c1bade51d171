package rag

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ikrigel/polo-rag-lev-boots-project/internal/model"
)

func chunkWithVector(id string, vec []float64) model.KnowledgeChunk {
	c := model.KnowledgeChunk{SourceID: id, Source: id, Content: "content " + id}
	c.SetEmbedding(vec)
	return c
}

func TestRetrieverTopKAndThreshold(t *testing.T) {
	query := []float64{1, 0}
	var chunks []model.KnowledgeChunk
	// similarities: cos(angle) spread between ~0 and 1
	for i := 0; i < 10; i++ {
		chunks = append(chunks, chunkWithVector(fmt.Sprintf("c%d", i), []float64{1, float64(i)}))
	}

	r := NewRetriever(0.3, 5)
	matches, skipped := r.Retrieve(query, chunks)

	assert.Zero(t, skipped)
	require.LessOrEqual(t, len(matches), 5)
	for i, m := range matches {
		assert.GreaterOrEqual(t, m.Similarity, 0.3)
		if i > 0 {
			assert.LessOrEqual(t, m.Similarity, matches[i-1].Similarity)
		}
	}
	// best match is the chunk pointing exactly along the query
	assert.Equal(t, "c0", matches[0].Chunk.SourceID)
}

func TestRetrieverStableTieOrder(t *testing.T) {
	query := []float64{1, 0}
	chunks := []model.KnowledgeChunk{
		chunkWithVector("first", []float64{2, 0}),
		chunkWithVector("second", []float64{5, 0}),
		chunkWithVector("third", []float64{1, 0}),
	}

	r := NewRetriever(0.3, 5)
	matches, _ := r.Retrieve(query, chunks)
	require.Len(t, matches, 3)
	// all similarities are exactly 1; scan order must be preserved
	assert.Equal(t, "first", matches[0].Chunk.SourceID)
	assert.Equal(t, "second", matches[1].Chunk.SourceID)
	assert.Equal(t, "third", matches[2].Chunk.SourceID)
}

func TestRetrieverEmptyRepositoryAndNoMatches(t *testing.T) {
	r := NewRetriever(0.3, 5)

	matches, skipped := r.Retrieve([]float64{1, 0}, nil)
	assert.Empty(t, matches)
	assert.Zero(t, skipped)

	// orthogonal vector scores 0, below threshold
	matches, _ = r.Retrieve([]float64{1, 0}, []model.KnowledgeChunk{
		chunkWithVector("orth", []float64{0, 1}),
	})
	assert.Empty(t, matches)
}

func TestRetrieverSkipsMalformedEmbeddings(t *testing.T) {
	good := chunkWithVector("good", []float64{1, 0})
	missing := model.KnowledgeChunk{SourceID: "missing"}
	malformed := model.KnowledgeChunk{SourceID: "malformed", Embedding: "not-json"}

	r := NewRetriever(0.3, 5)
	matches, skipped := r.Retrieve([]float64{1, 0}, []model.KnowledgeChunk{missing, good, malformed})
	require.Len(t, matches, 1)
	assert.Equal(t, "good", matches[0].Chunk.SourceID)
	assert.Equal(t, 2, skipped)
}

func TestRetrieverDimensionMismatchScoresZero(t *testing.T) {
	// a well-formed vector of the wrong dimension is not "malformed"; it
	// scores 0 and falls below the threshold instead of being counted skipped
	wrongDim := chunkWithVector("wrong", []float64{1, 0, 0})
	r := NewRetriever(0.3, 5)
	matches, skipped := r.Retrieve([]float64{1, 0}, []model.KnowledgeChunk{wrongDim})
	assert.Empty(t, matches)
	assert.Zero(t, skipped)
}
