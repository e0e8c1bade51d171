package rag

import (
	"math"
	"regexp"
	"strings"

	"github.com/ikrigel/polo-rag-lev-boots-project/internal/model"
)

var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]+`)

// Chunker splits source text into overlapping word windows. Splitting first
// by sentence keeps window starts aligned with natural boundaries; the
// overlap preserves context across adjacent chunks for retrieval.
type Chunker struct {
	size     int // words per chunk
	overlap  int // words shared between successive chunks
	minChars int // windows shorter than this after trimming are dropped
}

func NewChunker(size, overlap, minChars int) *Chunker {
	if size <= 0 {
		size = 400
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 8
	}
	if minChars < 0 {
		minChars = 0
	}
	return &Chunker{size: size, overlap: overlap, minChars: minChars}
}

// Split produces the chunks for one source. Deterministic for identical
// input; no side effects. ChunkCount records ceil(wordCount/step), the
// expected number of windows, kept on every chunk for diagnostics.
func (c *Chunker) Split(content, sourceID string, sourceType model.SourceType, source string) []model.KnowledgeChunk {
	sentences := sentencePattern.FindAllString(content, -1)
	if len(sentences) == 0 {
		sentences = []string{content}
	}

	var words []string
	for _, sentence := range sentences {
		words = append(words, strings.Fields(sentence)...)
	}
	if len(words) == 0 {
		return nil
	}

	step := c.size - c.overlap
	expected := int(math.Ceil(float64(len(words)) / float64(step)))

	var chunks []model.KnowledgeChunk
	index := 0
	for i := 0; i < len(words); i += step {
		end := i + c.size
		if end > len(words) {
			end = len(words)
		}
		text := strings.TrimSpace(strings.Join(words[i:end], " "))
		if len(text) < c.minChars {
			continue
		}
		chunks = append(chunks, model.KnowledgeChunk{
			Content:    text,
			SourceID:   sourceID,
			SourceType: sourceType,
			ChunkIndex: index,
			Source:     source,
			ChunkCount: expected,
		})
		index++
	}
	return chunks
}

// Step returns how many words each successive window advances by.
func (c *Chunker) Step() int {
	return c.size - c.overlap
}

// Overlap returns the number of words shared between successive windows.
func (c *Chunker) Overlap() int {
	return c.overlap
}
