package model

import "time"

// EvaluationResult scores one produced answer against a ground truth pair.
// RagasScore is always the mean of the three sub-scores, each in [0,100].
type EvaluationResult struct {
	PairID       string    `json:"pairId"`
	ActualAnswer string    `json:"actualAnswer"`
	RagasScore   float64   `json:"ragasScore"`
	Faithfulness float64   `json:"faithfulness"`
	Relevance    float64   `json:"relevance"`
	Coherence    float64   `json:"coherence"`
	Timestamp    time.Time `json:"timestamp"`
}

// ScoreTrend is the per-day rolling average of composite scores.
type ScoreTrend struct {
	Date     string  `json:"date"`
	AvgScore float64 `json:"avgScore"`
	Count    int     `json:"count"`
}
