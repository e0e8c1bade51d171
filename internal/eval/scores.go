// Package eval implements the lexical-overlap answer scoring used by the
// RAGAS evaluation engine. The arithmetic is a deliberate heuristic stand-in
// for a model-based evaluator; keep it exact, the aggregate metrics and the
// test suite are pinned to it.
package eval

import (
	"math"
	"regexp"
	"strings"
)

const idealSentenceLength = 15 // words

var sentenceDelimiter = regexp.MustCompile(`[.!?]+`)

// Scores holds the three sub-scores and their composite, each in [0,100]
// and rounded to two decimals. Ragas is always the mean of the other three.
type Scores struct {
	Faithfulness float64
	Relevance    float64
	Coherence    float64
	Ragas        float64
}

// Score evaluates an actual answer against the expected one.
func Score(actualAnswer, expectedAnswer string) Scores {
	f := Faithfulness(actualAnswer, expectedAnswer)
	r := Relevance(actualAnswer, expectedAnswer)
	c := Coherence(actualAnswer)
	return Scores{
		Faithfulness: f,
		Relevance:    r,
		Coherence:    c,
		Ragas:        round2((f + r + c) / 3),
	}
}

// Faithfulness is the share of actual-answer words that also appear in the
// expected answer, as a percentage. Zero when either side has no words.
func Faithfulness(actualAnswer, expectedAnswer string) float64 {
	actual := tokenize(actualAnswer)
	expected := tokenize(expectedAnswer)
	if len(actual) == 0 || len(expected) == 0 {
		return 0
	}

	expectedSet := wordSet(expected)
	supported := 0
	for _, w := range actual {
		if expectedSet[w] {
			supported++
		}
	}
	return round2(float64(supported) / float64(len(actual)) * 100)
}

// Relevance is the share of expected-answer words covered by the actual
// answer, as a percentage. Zero when the expected answer has no words.
func Relevance(actualAnswer, expectedAnswer string) float64 {
	actual := tokenize(actualAnswer)
	expected := tokenize(expectedAnswer)
	if len(expected) == 0 {
		return 0
	}

	actualSet := wordSet(actual)
	covered := 0
	for _, w := range expected {
		if actualSet[w] {
			covered++
		}
	}
	return round2(float64(covered) / float64(len(expected)) * 100)
}

// Coherence blends a sentence-count score (five or more sentences saturate
// it) with an average-sentence-length score relative to the ideal length,
// weighted 60/40.
func Coherence(answer string) float64 {
	var sentences []string
	for _, s := range sentenceDelimiter.Split(answer, -1) {
		if strings.TrimSpace(s) != "" {
			sentences = append(sentences, s)
		}
	}

	avgLength := 0.0
	if len(sentences) > 0 {
		avgLength = float64(len(strings.Fields(answer))) / float64(len(sentences))
	}

	sentenceScore := math.Min(float64(len(sentences))/5*100, 100)
	lengthScore := math.Min(avgLength/idealSentenceLength, 1) * 100

	return round2(sentenceScore*0.6 + lengthScore*0.4)
}

func tokenize(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

func wordSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
