package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFaithfulnessAndRelevance(t *testing.T) {
	actual := "boots are safe and fast"
	expected := "boots are safe"

	// 3 of 5 actual words are supported by the expected answer
	assert.Equal(t, 60.00, Faithfulness(actual, expected))
	// all 3 expected words appear in the actual answer
	assert.Equal(t, 100.00, Relevance(actual, expected))
}

func TestFaithfulnessCountsDuplicates(t *testing.T) {
	// each occurrence in the actual answer counts separately
	actual := "boots boots boots lift"
	expected := "boots"
	assert.Equal(t, 75.00, Faithfulness(actual, expected))
}

func TestScoresEmptyInputs(t *testing.T) {
	s := Score("", "")
	assert.Zero(t, s.Faithfulness)
	assert.Zero(t, s.Relevance)
	assert.Zero(t, s.Coherence)
	assert.Zero(t, s.Ragas)

	assert.Zero(t, Faithfulness("some answer", ""))
	assert.Zero(t, Faithfulness("", "expected words"))
	assert.Zero(t, Relevance("some answer", ""))
}

func TestCoherenceSaturation(t *testing.T) {
	// five 15-word sentences: both components max out
	sentence := "one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen. "
	answer := ""
	for i := 0; i < 5; i++ {
		answer += sentence
	}
	assert.Equal(t, 100.00, Coherence(answer))
}

func TestCoherenceShortAnswer(t *testing.T) {
	// one 3-word sentence: sentence score 20, length score 20
	got := Coherence("boots are safe.")
	assert.Equal(t, 20.00, got)
}

func TestRagasIsMeanOfSubScores(t *testing.T) {
	s := Score("levitation boots hover safely above most terrain types today.", "levitation boots hover safely")
	mean := (s.Faithfulness + s.Relevance + s.Coherence) / 3
	assert.InDelta(t, mean, s.Ragas, 0.005)
	for _, v := range []float64{s.Faithfulness, s.Relevance, s.Coherence, s.Ragas} {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	}
}

func TestScoresCaseInsensitive(t *testing.T) {
	assert.Equal(t, 100.00, Faithfulness("Lev-Boots HOVER", "lev-boots hover extras"))
}
