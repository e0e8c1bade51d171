package rag

import (
	"sort"

	"github.com/ikrigel/polo-rag-lev-boots-project/internal/model"
)

// ScoredChunk pairs a chunk with its similarity to a query embedding.
type ScoredChunk struct {
	Chunk      model.KnowledgeChunk
	Similarity float64
}

// Retriever ranks knowledge chunks against a query embedding with an exact
// brute-force cosine scan. An empty result is a valid outcome ("no grounding
// available"), not an error.
type Retriever struct {
	Threshold float64
	TopK      int
}

func NewRetriever(threshold float64, topK int) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	return &Retriever{Threshold: threshold, TopK: topK}
}

// Retrieve scans every chunk, keeps those at or above the threshold, and
// returns the top K sorted by similarity descending. The sort is stable so
// ties retain scan order. Chunks whose stored embedding is missing or not
// parseable are skipped and counted, never abort the scan.
func (r *Retriever) Retrieve(query []float64, chunks []model.KnowledgeChunk) (matches []ScoredChunk, skipped int) {
	for i := range chunks {
		vec := chunks[i].EmbeddingVector()
		if len(vec) == 0 {
			skipped++
			continue
		}
		sim := CosineSimilarity(query, vec)
		if sim >= r.Threshold {
			matches = append(matches, ScoredChunk{Chunk: chunks[i], Similarity: sim})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > r.TopK {
		matches = matches[:r.TopK]
	}
	return matches, skipped
}
