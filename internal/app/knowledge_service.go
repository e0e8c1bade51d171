package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ikrigel/polo-rag-lev-boots-project/internal/model"
	"github.com/ikrigel/polo-rag-lev-boots-project/internal/rag"
)

// ChunkRepository is the persistence surface the knowledge service needs.
type ChunkRepository interface {
	CreateBatch(chunks []model.KnowledgeChunk) error
	ListAll() ([]model.KnowledgeChunk, error)
	Count() (int64, error)
	DistinctSources() ([]string, error)
	DeleteAll() error
}

// IngestInput describes one source to add to the knowledge base.
type IngestInput struct {
	Name       string
	Content    string
	SourceType model.SourceType
	SourceID   string
}

// IngestResult reports what an ingest produced.
type IngestResult struct {
	Source     string `json:"source"`
	ChunkCount int    `json:"chunkCount"`
	WordCount  int    `json:"wordCount"`
}

// KnowledgeStats summarizes the current knowledge base.
type KnowledgeStats struct {
	TotalChunks int64    `json:"totalChunks"`
	Sources     []string `json:"sources"`
	SourceCount int      `json:"sourceCount"`
}

// KnowledgeService manages the knowledge base: chunk incoming sources,
// embed each chunk, persist the batch, and drop cached answers that may
// have gone stale.
type KnowledgeService struct {
	repo         ChunkRepository
	chunker      *rag.Chunker
	embedder     Embedder
	cache        AnswerCache
	requestDelay time.Duration
	log          *slog.Logger
}

func NewKnowledgeService(
	repo ChunkRepository,
	chunker *rag.Chunker,
	embedder Embedder,
	cache AnswerCache,
	requestDelay time.Duration,
	log *slog.Logger,
) *KnowledgeService {
	return &KnowledgeService{
		repo:         repo,
		chunker:      chunker,
		embedder:     embedder,
		cache:        cache,
		requestDelay: requestDelay,
		log:          log,
	}
}

// Ingest chunks and embeds one source, then persists the batch atomically.
// Embedding runs sequentially with a fixed delay between requests to stay
// under the provider's rate limit. Any embedding failure aborts the whole
// ingest; nothing is persisted.
func (s *KnowledgeService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	name := strings.TrimSpace(input.Name)
	content := strings.TrimSpace(input.Content)
	if name == "" || content == "" {
		return nil, ErrInvalidInput
	}
	if !input.SourceType.Valid() {
		input.SourceType = model.SourceDocument
	}
	if input.SourceID == "" {
		input.SourceID = name
	}

	chunks := s.chunker.Split(content, input.SourceID, input.SourceType, name)
	s.log.Info("source chunked", "source", name, "chunks", len(chunks))

	for i := range chunks {
		if i > 0 {
			if err := sleepCtx(ctx, s.requestDelay); err != nil {
				return nil, err
			}
		}
		vec, err := s.embedder.Embed(ctx, chunks[i].Content)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %d of %q failed: %w", i, name, err)
		}
		chunks[i].SetEmbedding(vec)
	}

	if err := s.repo.CreateBatch(chunks); err != nil {
		return nil, err
	}
	s.invalidateAnswers(ctx)

	return &IngestResult{
		Source:     name,
		ChunkCount: len(chunks),
		WordCount:  len(strings.Fields(content)),
	}, nil
}

// Stats reports chunk totals and the distinct ingested sources.
func (s *KnowledgeService) Stats() (*KnowledgeStats, error) {
	count, err := s.repo.Count()
	if err != nil {
		return nil, err
	}
	sources, err := s.repo.DistinctSources()
	if err != nil {
		return nil, err
	}
	if sources == nil {
		sources = []string{}
	}
	return &KnowledgeStats{
		TotalChunks: count,
		Sources:     sources,
		SourceCount: len(sources),
	}, nil
}

// Clear removes every chunk and flushes cached answers.
func (s *KnowledgeService) Clear(ctx context.Context) error {
	if err := s.repo.DeleteAll(); err != nil {
		return err
	}
	s.invalidateAnswers(ctx)
	s.log.Info("knowledge base cleared")
	return nil
}

func (s *KnowledgeService) invalidateAnswers(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAll(ctx); err != nil {
		s.log.Warn("answer cache invalidation failed", "error", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
