package app

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ikrigel/polo-rag-lev-boots-project/internal/eval"
	"github.com/ikrigel/polo-rag-lev-boots-project/internal/model"
)

// metricsWindow bounds the per-result list carried in the metrics payload;
// the averages themselves always cover the full history.
const metricsWindow = 50

// GroundTruthStore persists question/answer pairs.
type GroundTruthStore interface {
	Create(pair *model.GroundTruthPair) error
	GetByID(id string) (*model.GroundTruthPair, error)
	List() ([]model.GroundTruthPair, error)
	Delete(id string) (bool, error)
}

// Answerer produces the answer under evaluation.
type Answerer interface {
	Ask(ctx context.Context, question string) *AskResponse
}

// EvalMetrics aggregates scores over every evaluation ever recorded.
// RecentResults is a display convenience capped at the metrics window and
// does not feed the averages.
type EvalMetrics struct {
	TotalEvaluations int                      `json:"totalEvaluations"`
	AvgRagasScore    float64                  `json:"avgRagasScore"`
	AvgFaithfulness  float64                  `json:"avgFaithfulness"`
	AvgRelevance     float64                  `json:"avgRelevance"`
	AvgCoherence     float64                  `json:"avgCoherence"`
	RecentResults    []model.EvaluationResult `json:"recentResults"`
}

// ScoreDistribution places composite scores into fixed 20-point buckets and
// reports selected percentiles.
type ScoreDistribution struct {
	Buckets     map[string]int     `json:"buckets"`
	Percentiles map[string]float64 `json:"percentiles"`
}

// EvalReport is the combined evaluation dashboard payload. QualityLevel
// grades the recent average composite score: >=80 Excellent, >=60 Good,
// >=40 Fair, below that Poor.
type EvalReport struct {
	Metrics         EvalMetrics        `json:"metrics"`
	Trends          []model.ScoreTrend `json:"trends"`
	Distribution    ScoreDistribution  `json:"distribution"`
	PairCount       int                `json:"pairCount"`
	ResultCount     int                `json:"resultCount"`
	QualityLevel    string             `json:"qualityLevel"`
	Recommendations []string           `json:"recommendations"`
}

// EvalExport carries the full evaluation state for download.
type EvalExport struct {
	Pairs      []model.GroundTruthPair  `json:"pairs"`
	Results    []model.EvaluationResult `json:"results"`
	ExportedAt time.Time                `json:"exportedAt"`
}

type trendBucket struct {
	sum   float64
	count int
}

// EvalService runs the RAGAS-style evaluation loop: ask each ground truth
// question through the live pipeline, score the answer lexically, and keep
// the result series in memory for metrics, trends and distributions. Ground
// truth pairs are persisted; results are process-local by design.
type EvalService struct {
	pairs    GroundTruthStore
	answerer Answerer
	log      *slog.Logger
	now      func() time.Time

	mu         sync.RWMutex
	allResults []model.EvaluationResult
	latest     map[string]model.EvaluationResult
	trends     map[string]*trendBucket
}

func NewEvalService(pairs GroundTruthStore, answerer Answerer, log *slog.Logger) *EvalService {
	return &EvalService{
		pairs:    pairs,
		answerer: answerer,
		log:      log,
		now:      time.Now,
		latest:   make(map[string]model.EvaluationResult),
		trends:   make(map[string]*trendBucket),
	}
}

// AddPair registers a ground truth pair.
func (s *EvalService) AddPair(question, expectedAnswer string) (*model.GroundTruthPair, error) {
	question = strings.TrimSpace(question)
	expectedAnswer = strings.TrimSpace(expectedAnswer)
	if question == "" || expectedAnswer == "" {
		return nil, ErrInvalidInput
	}
	pair := &model.GroundTruthPair{
		ID:             uuid.NewString(),
		Question:       question,
		ExpectedAnswer: expectedAnswer,
		CreatedAt:      s.now(),
	}
	if err := s.pairs.Create(pair); err != nil {
		return nil, err
	}
	return pair, nil
}

// ListPairs returns all registered pairs.
func (s *EvalService) ListPairs() ([]model.GroundTruthPair, error) {
	pairs, err := s.pairs.List()
	if err != nil {
		return nil, err
	}
	if pairs == nil {
		pairs = []model.GroundTruthPair{}
	}
	return pairs, nil
}

// GetPair returns one pair.
func (s *EvalService) GetPair(id string) (*model.GroundTruthPair, error) {
	pair, err := s.pairs.GetByID(id)
	if err != nil {
		return nil, err
	}
	if pair == nil {
		return nil, ErrPairNotFound
	}
	return pair, nil
}

// DeletePair removes a pair and every stored result for it. Trend buckets
// are left as recorded; they are an append-only daily series.
func (s *EvalService) DeletePair(id string) error {
	removed, err := s.pairs.Delete(id)
	if err != nil {
		return err
	}
	if !removed {
		return ErrPairNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.latest, id)
	kept := s.allResults[:0]
	for _, r := range s.allResults {
		if r.PairID != id {
			kept = append(kept, r)
		}
	}
	s.allResults = kept
	return nil
}

// EvaluateAnswer scores a caller-supplied answer against a pair's expected
// answer, without touching the ask pipeline.
func (s *EvalService) EvaluateAnswer(pairID, actualAnswer string) (*model.EvaluationResult, error) {
	pair, err := s.GetPair(pairID)
	if err != nil {
		return nil, err
	}
	result := s.record(pair, actualAnswer)
	return &result, nil
}

// Run asks the live pipeline the pair's stored question and scores the
// produced answer. A pipeline failure still produces a result: the error
// text is scored like any answer, which correctly yields near-zero overlap.
func (s *EvalService) Run(ctx context.Context, pairID string) (*model.EvaluationResult, error) {
	pair, err := s.GetPair(pairID)
	if err != nil {
		return nil, err
	}

	resp := s.answerer.Ask(ctx, pair.Question)
	actual := resp.Answer
	if resp.Error != "" {
		actual = resp.Error
	}
	result := s.record(pair, actual)
	return &result, nil
}

// EvaluateBatch runs the given pairs through the pipeline in order,
// silently skipping identifiers that no longer exist.
func (s *EvalService) EvaluateBatch(ctx context.Context, pairIDs []string) ([]model.EvaluationResult, error) {
	results := make([]model.EvaluationResult, 0, len(pairIDs))
	for _, id := range pairIDs {
		result, err := s.Run(ctx, id)
		if errors.Is(err, ErrPairNotFound) {
			s.log.Warn("skipping unknown pair", "pair_id", id)
			continue
		}
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}
	return results, nil
}

// RunAll runs every registered pair through the pipeline.
func (s *EvalService) RunAll(ctx context.Context) ([]model.EvaluationResult, error) {
	pairs, err := s.pairs.List()
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(pairs))
	for i, p := range pairs {
		ids[i] = p.ID
	}
	return s.EvaluateBatch(ctx, ids)
}

func (s *EvalService) record(pair *model.GroundTruthPair, actualAnswer string) model.EvaluationResult {
	scores := eval.Score(actualAnswer, pair.ExpectedAnswer)
	result := model.EvaluationResult{
		PairID:       pair.ID,
		ActualAnswer: actualAnswer,
		RagasScore:   scores.Ragas,
		Faithfulness: scores.Faithfulness,
		Relevance:    scores.Relevance,
		Coherence:    scores.Coherence,
		Timestamp:    s.now(),
	}

	s.mu.Lock()
	s.allResults = append(s.allResults, result)
	s.latest[pair.ID] = result
	day := result.Timestamp.Format("2006-01-02")
	bucket, ok := s.trends[day]
	if !ok {
		bucket = &trendBucket{}
		s.trends[day] = bucket
	}
	bucket.sum += result.RagasScore
	bucket.count++
	s.mu.Unlock()

	s.log.Info("pair evaluated", "pair_id", pair.ID, "ragas", result.RagasScore)
	return result
}

// Results returns the stored result series, oldest first.
func (s *EvalService) Results() []model.EvaluationResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.EvaluationResult, len(s.allResults))
	copy(out, s.allResults)
	return out
}

// ResultsForPair returns the stored results of one pair, oldest first.
func (s *EvalService) ResultsForPair(pairID string) ([]model.EvaluationResult, error) {
	if _, err := s.GetPair(pairID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := make([]model.EvaluationResult, 0)
	for _, r := range s.allResults {
		if r.PairID == pairID {
			results = append(results, r)
		}
	}
	return results, nil
}

// Metrics averages the whole result history and attaches the most recent
// results, up to the metrics window.
func (s *EvalService) Metrics() EvalMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.allResults) == 0 {
		return EvalMetrics{RecentResults: []model.EvaluationResult{}}
	}

	var ragas, faith, rel, coh float64
	for _, r := range s.allResults {
		ragas += r.RagasScore
		faith += r.Faithfulness
		rel += r.Relevance
		coh += r.Coherence
	}
	n := float64(len(s.allResults))

	tail := s.allResults
	if len(tail) > metricsWindow {
		tail = tail[len(tail)-metricsWindow:]
	}
	recent := make([]model.EvaluationResult, len(tail))
	copy(recent, tail)

	return EvalMetrics{
		TotalEvaluations: len(s.allResults),
		AvgRagasScore:    round2(ragas / n),
		AvgFaithfulness:  round2(faith / n),
		AvgRelevance:     round2(rel / n),
		AvgCoherence:     round2(coh / n),
		RecentResults:    recent,
	}
}

// Trends returns the per-day average composite score, ascending by date.
func (s *EvalService) Trends() []model.ScoreTrend {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trends := make([]model.ScoreTrend, 0, len(s.trends))
	for day, bucket := range s.trends {
		trends = append(trends, model.ScoreTrend{
			Date:     day,
			AvgScore: round2(bucket.sum / float64(bucket.count)),
			Count:    bucket.count,
		})
	}
	sort.Slice(trends, func(i, j int) bool { return trends[i].Date < trends[j].Date })
	return trends
}

// Distribution buckets all composite scores into five 20-point ranges and
// reports the 50th, 75th, 90th and 95th percentiles by sorted index.
func (s *EvalService) Distribution() ScoreDistribution {
	s.mu.RLock()
	defer s.mu.RUnlock()

	buckets := map[string]int{
		"0-20":   0,
		"20-40":  0,
		"40-60":  0,
		"60-80":  0,
		"80-100": 0,
	}
	scores := make([]float64, 0, len(s.allResults))
	for _, r := range s.allResults {
		scores = append(scores, r.RagasScore)
		switch {
		case r.RagasScore < 20:
			buckets["0-20"]++
		case r.RagasScore < 40:
			buckets["20-40"]++
		case r.RagasScore < 60:
			buckets["40-60"]++
		case r.RagasScore < 80:
			buckets["60-80"]++
		default:
			buckets["80-100"]++
		}
	}

	percentiles := map[string]float64{"p50": 0, "p75": 0, "p90": 0, "p95": 0}
	if len(scores) > 0 {
		sort.Float64s(scores)
		percentiles["p50"] = percentile(scores, 0.50)
		percentiles["p75"] = percentile(scores, 0.75)
		percentiles["p90"] = percentile(scores, 0.90)
		percentiles["p95"] = percentile(scores, 0.95)
	}
	return ScoreDistribution{Buckets: buckets, Percentiles: percentiles}
}

// Report combines metrics, trends and distribution into one payload.
func (s *EvalService) Report() (*EvalReport, error) {
	pairs, err := s.pairs.List()
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	resultCount := len(s.allResults)
	s.mu.RUnlock()

	metrics := s.Metrics()
	return &EvalReport{
		Metrics:         metrics,
		Trends:          s.Trends(),
		Distribution:    s.Distribution(),
		PairCount:       len(pairs),
		ResultCount:     resultCount,
		QualityLevel:    qualityLevel(metrics.AvgRagasScore),
		Recommendations: recommendations(metrics),
	}, nil
}

func qualityLevel(avgRagas float64) string {
	switch {
	case avgRagas >= 80:
		return "Excellent"
	case avgRagas >= 60:
		return "Good"
	case avgRagas >= 40:
		return "Fair"
	default:
		return "Poor"
	}
}

func recommendations(m EvalMetrics) []string {
	recs := []string{}
	if m.TotalEvaluations == 0 {
		return append(recs, "No evaluations recorded yet. Add ground truth pairs and run an evaluation.")
	}
	if m.AvgFaithfulness < 60 {
		recs = append(recs, "Low faithfulness: answers drift from the expected content. Review chunking and the similarity threshold.")
	}
	if m.AvgRelevance < 60 {
		recs = append(recs, "Low relevance: answers miss expected material. Consider ingesting more complete sources.")
	}
	if m.AvgCoherence < 60 {
		recs = append(recs, "Low coherence: answers are too short or fragmented. Review the completion prompt and max tokens.")
	}
	if len(recs) == 0 {
		recs = append(recs, "Scores look healthy. Keep the ground truth set growing to track regressions.")
	}
	return recs
}

// Export returns the pairs and the full result series.
func (s *EvalService) Export() (*EvalExport, error) {
	pairs, err := s.ListPairs()
	if err != nil {
		return nil, err
	}
	return &EvalExport{
		Pairs:      pairs,
		Results:    s.Results(),
		ExportedAt: s.now(),
	}, nil
}

// percentile indexes into a sorted slice; scores must be non-empty.
func percentile(sorted []float64, q float64) float64 {
	idx := int(math.Floor(float64(len(sorted)) * q))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
