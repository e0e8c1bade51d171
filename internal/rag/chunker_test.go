package rag

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ikrigel/polo-rag-lev-boots-project/internal/model"
)

func wordsOfLength(n int) []string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("word%04d", i)
	}
	return words
}

func TestChunkerReconstructsWordSequence(t *testing.T) {
	// 1000 words -> windows of 400 advancing by 350. Stripping the 50-word
	// overlap from every chunk after the first must rebuild the original
	// sequence with nothing dropped or duplicated.
	words := wordsOfLength(1000)
	text := strings.Join(words, " ")

	c := NewChunker(400, 50, 0)
	chunks := c.Split(text, "doc-1", model.SourceDocument, "Doc 1")
	require.NotEmpty(t, chunks)

	var rebuilt []string
	for i, chunk := range chunks {
		chunkWords := strings.Fields(chunk.Content)
		if i == 0 {
			rebuilt = append(rebuilt, chunkWords...)
			continue
		}
		rebuilt = append(rebuilt, chunkWords[c.Overlap():]...)
	}
	// Trailing windows shorter than the overlap are fully covered by the
	// previous chunk, so the rebuilt sequence may be a prefix-complete copy.
	require.LessOrEqual(t, len(rebuilt), len(words))
	assert.Equal(t, words[:len(rebuilt)], rebuilt)
	assert.Equal(t, words[len(words)-1], rebuilt[len(rebuilt)-1])
}

func TestChunkerIndexAndExpectedCount(t *testing.T) {
	words := wordsOfLength(800)
	text := strings.Join(words, " ")

	c := NewChunker(400, 50, 50)
	chunks := c.Split(text, "doc-2", model.SourceArticle, "Doc 2")
	require.NotEmpty(t, chunks)

	// ceil(800/350) = 3 expected windows
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.ChunkIndex)
		assert.Equal(t, 3, chunk.ChunkCount)
		assert.Equal(t, "doc-2", chunk.SourceID)
		assert.Equal(t, model.SourceArticle, chunk.SourceType)
		assert.Equal(t, "Doc 2", chunk.Source)
	}
}

func TestChunkerDiscardsTinyTrailingFragment(t *testing.T) {
	// 355 one-letter words with step 350: the trailing window holds 5 words
	// (9 trimmed chars), under the 50-char floor, so it must be discarded.
	words := make([]string, 355)
	for i := range words {
		words[i] = "a"
	}
	text := strings.Join(words, " ")

	c := NewChunker(350, 0, 50)
	chunks := c.Split(text, "tiny", model.SourceDocument, "Tiny")
	// second window has 5 words -> 9 trimmed chars -> discarded
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
}

func TestChunkerDeterministic(t *testing.T) {
	text := strings.Repeat("Lev boots hover above the ground. They are safe and fast. ", 40)
	c := NewChunker(400, 50, 50)

	first := c.Split(text, "doc", model.SourceDocument, "Doc")
	second := c.Split(text, "doc", model.SourceDocument, "Doc")
	assert.Equal(t, first, second)
}

func TestChunkerNoSentenceDelimiters(t *testing.T) {
	// Text without ./!/? still chunks as a single word sequence.
	text := strings.Join(wordsOfLength(60), " ")
	c := NewChunker(400, 50, 50)
	chunks := c.Split(text, "raw", model.SourceChatLog, "Chat #general")
	require.Len(t, chunks, 1)
	assert.Equal(t, 60, len(strings.Fields(chunks[0].Content)))
}

func TestChunkerEmptyInput(t *testing.T) {
	c := NewChunker(400, 50, 50)
	assert.Nil(t, c.Split("", "empty", model.SourceDocument, "Empty"))
	assert.Nil(t, c.Split("   \n\t  ", "blank", model.SourceDocument, "Blank"))
}
