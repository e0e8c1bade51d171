package app

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/ikrigel/polo-rag-lev-boots-project/internal/ai"
	"github.com/ikrigel/polo-rag-lev-boots-project/internal/model"
	"github.com/ikrigel/polo-rag-lev-boots-project/internal/rag"
)

// NoKnowledgeAnswer is the fixed reply for empty retrieval. Distinct from
// an error: the pipeline worked, there was just nothing relevant to ground
// an answer on.
const NoKnowledgeAnswer = "I could not find any relevant information in the knowledge base to answer this question."

const contextDelimiter = "\n\n---\n\n"

var citationPattern = regexp.MustCompile(`\[\d+\]`)

// ChunkStore lists the chunks the retriever scans.
type ChunkStore interface {
	ListAll() ([]model.KnowledgeChunk, error)
}

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Completer generates text from an ordered message list.
type Completer interface {
	Complete(ctx context.Context, messages []ai.ChatMessage) (string, error)
}

// AnswerCache fronts the completion call for repeated questions.
type AnswerCache interface {
	Get(ctx context.Context, question string, dest interface{}) (bool, error)
	Set(ctx context.Context, question string, value interface{}) error
	InvalidateAll(ctx context.Context) error
}

// AskResponse is the wire shape of an answer. Failures are carried in Error
// with an empty answer; the response is always well-formed JSON.
type AskResponse struct {
	Answer       string   `json:"answer"`
	Sources      []string `json:"sources"`
	Bibliography []string `json:"bibliography,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// QuestionStats reports how a question matches the knowledge base, for
// analysis without generating an answer.
type QuestionStats struct {
	Question       string   `json:"question"`
	MatchingChunks int      `json:"matchingChunks"`
	TopSources     []string `json:"topSources"`
	SkippedChunks  int      `json:"skippedChunks"`
}

// AskService implements the retrieval-augmented answer pipeline: embed the
// question, scan the chunk store, compose a grounded prompt, call the
// completion gateway, post-process the answer.
type AskService struct {
	chunks    ChunkStore
	embedder  Embedder
	completer Completer
	retriever *rag.Retriever
	cache     AnswerCache
	log       *slog.Logger
}

func NewAskService(
	chunks ChunkStore,
	embedder Embedder,
	completer Completer,
	retriever *rag.Retriever,
	cache AnswerCache,
	log *slog.Logger,
) *AskService {
	return &AskService{
		chunks:    chunks,
		embedder:  embedder,
		completer: completer,
		retriever: retriever,
		cache:     cache,
		log:       log,
	}
}

// Ask answers a question from the knowledge base. Never returns nil and
// never propagates an error past this boundary; failures come back as a
// structured response with the Error field set.
func (s *AskService) Ask(ctx context.Context, userQuestion string) *AskResponse {
	userQuestion = strings.TrimSpace(userQuestion)
	if userQuestion == "" {
		return &AskResponse{Sources: []string{}, Error: "userQuestion is required"}
	}

	if s.cache != nil {
		var cached AskResponse
		if hit, err := s.cache.Get(ctx, userQuestion, &cached); err == nil && hit {
			s.log.Debug("answer cache hit", "question", userQuestion)
			return &cached
		}
	}

	matches, _, err := s.retrieve(ctx, userQuestion)
	if err != nil {
		s.log.Error("retrieval failed", "error", err)
		return &AskResponse{Sources: []string{}, Error: fmt.Sprintf("Failed to get answer: %v", err)}
	}
	if len(matches) == 0 {
		s.log.Warn("no relevant chunks found", "question", userQuestion)
		return &AskResponse{Answer: NoKnowledgeAnswer, Sources: []string{}}
	}

	messages := []ai.ChatMessage{
		{Role: "system", Content: buildSystemPrompt(matches)},
		{Role: "user", Content: userQuestion},
	}
	answer, err := s.completer.Complete(ctx, messages)
	if err != nil {
		s.log.Error("completion failed", "error", err)
		return &AskResponse{Sources: []string{}, Error: fmt.Sprintf("Failed to get answer: %v", err)}
	}

	answer = strings.TrimSpace(citationPattern.ReplaceAllString(answer, ""))
	sources := distinctSources(matches)

	resp := &AskResponse{
		Answer:       answer,
		Sources:      sources,
		Bibliography: sources,
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, userQuestion, resp); err != nil {
			s.log.Warn("answer cache set failed", "error", err)
		}
	}
	s.log.Info("answer generated", "sources", sources)
	return resp
}

// AskConversational answers within a session, feeding recent turns to the
// model ahead of the new question. Not cached: the same question can get a
// different answer depending on history.
func (s *AskService) AskConversational(ctx context.Context, userQuestion string, history []model.ConversationMessage) *AskResponse {
	userQuestion = strings.TrimSpace(userQuestion)
	if userQuestion == "" {
		return &AskResponse{Sources: []string{}, Error: "userQuestion is required"}
	}

	matches, _, err := s.retrieve(ctx, userQuestion)
	if err != nil {
		s.log.Error("retrieval failed", "error", err)
		return &AskResponse{Sources: []string{}, Error: fmt.Sprintf("Failed to get answer: %v", err)}
	}
	if len(matches) == 0 {
		return &AskResponse{Answer: NoKnowledgeAnswer, Sources: []string{}}
	}

	messages := make([]ai.ChatMessage, 0, len(history)+2)
	messages = append(messages, ai.ChatMessage{Role: "system", Content: buildSystemPrompt(matches)})
	for _, m := range history {
		messages = append(messages, ai.ChatMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, ai.ChatMessage{Role: "user", Content: userQuestion})

	answer, err := s.completer.Complete(ctx, messages)
	if err != nil {
		s.log.Error("completion failed", "error", err)
		return &AskResponse{Sources: []string{}, Error: fmt.Sprintf("Failed to get answer: %v", err)}
	}

	answer = strings.TrimSpace(citationPattern.ReplaceAllString(answer, ""))
	sources := distinctSources(matches)
	return &AskResponse{Answer: answer, Sources: sources, Bibliography: sources}
}

// Stats reports matching chunk count and top sources for a question.
func (s *AskService) Stats(ctx context.Context, userQuestion string) (*QuestionStats, error) {
	userQuestion = strings.TrimSpace(userQuestion)
	if userQuestion == "" {
		return nil, ErrInvalidInput
	}
	matches, skipped, err := s.retrieve(ctx, userQuestion)
	if err != nil {
		return nil, err
	}
	return &QuestionStats{
		Question:       userQuestion,
		MatchingChunks: len(matches),
		TopSources:     distinctSources(matches),
		SkippedChunks:  skipped,
	}, nil
}

func (s *AskService) retrieve(ctx context.Context, question string) ([]rag.ScoredChunk, int, error) {
	queryEmbedding, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, 0, fmt.Errorf("embed question failed: %w", err)
	}

	chunks, err := s.chunks.ListAll()
	if err != nil {
		return nil, 0, fmt.Errorf("load knowledge chunks failed: %w", err)
	}

	matches, skipped := s.retriever.Retrieve(queryEmbedding, chunks)
	s.log.Info("similarity search done",
		"total_chunks", len(chunks),
		"matches", len(matches),
		"skipped", skipped,
		"threshold", s.retriever.Threshold,
	)
	return matches, skipped, nil
}

// buildSystemPrompt concatenates the retrieved chunks under source labels
// with a fixed rule set: answer only from the supplied context, no inline
// citation markers, prose over bullet lists.
func buildSystemPrompt(matches []rag.ScoredChunk) string {
	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = fmt.Sprintf("Source %d: %s\n%s", i+1, m.Chunk.Source, m.Chunk.Content)
	}
	contextBlock := strings.Join(parts, contextDelimiter)

	return `You are an AI assistant specialized in answering questions about Lev-Boots technology based on provided knowledge base documents.

You MUST follow these rules:
1. Only answer questions based on the provided context from the knowledge base
2. If the answer is not in the provided context, say "I don't have information about that in the knowledge base"
3. Write clear, simple paragraphs - avoid excessive markdown formatting
4. Use headings only for main sections (use # or ## sparingly)
5. Avoid bullet points when possible - use flowing prose instead
6. Be accurate, concise, and easy to read
7. Do not make up or assume information not in the context
8. Do NOT include [1], [2], etc. citations in your answer

KNOWLEDGE BASE CONTEXT:
` + contextBlock + `

---

Answer the user's question based ONLY on the above context. Make the answer clear and easy to read with simple, direct language.`
}

// distinctSources keeps first-occurrence order, which follows similarity
// rank; the result is deliberately not sorted.
func distinctSources(matches []rag.ScoredChunk) []string {
	seen := make(map[string]bool, len(matches))
	sources := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m.Chunk.Source] {
			continue
		}
		seen[m.Chunk.Source] = true
		sources = append(sources, m.Chunk.Source)
	}
	return sources
}
