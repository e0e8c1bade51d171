package app

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ikrigel/polo-rag-lev-boots-project/internal/config"
	"github.com/ikrigel/polo-rag-lev-boots-project/internal/model"
	"github.com/ikrigel/polo-rag-lev-boots-project/internal/session"
)

const (
	defaultSessionTitle = "New Conversation"
	titleMaxChars       = 50
	compactMinMessages  = 10
)

// ConversationalAnswerer produces an answer given the question and the
// recent turns of the session.
type ConversationalAnswerer interface {
	AskConversational(ctx context.Context, question string, history []model.ConversationMessage) *AskResponse
}

// TranscriptPublisher archives messages asynchronously. Publishing is best
// effort; a broker outage must not fail the conversational exchange.
type TranscriptPublisher interface {
	Publish(ctx context.Context, msg model.TranscriptMessage) error
}

// TranscriptReader reads the persisted archive.
type TranscriptReader interface {
	ListBySessionID(sessionID string) ([]model.TranscriptMessage, error)
}

// SessionSummary is the list-view projection of a session.
type SessionSummary struct {
	SessionID    string    `json:"sessionId"`
	Title        string    `json:"title"`
	MessageCount int       `json:"messageCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	ContextUsage int       `json:"contextUsage"`
}

// ContextBudget reports how much of the context window a session has used.
// IsFull trips at 90% of the window, the cue for clients to compress.
type ContextBudget struct {
	Current    int     `json:"current"`
	Max        int     `json:"max"`
	Percentage float64 `json:"percentage"`
	IsFull     bool    `json:"isFull"`
}

// SessionStats is the detailed per-session report.
type SessionStats struct {
	SessionID    string                `json:"sessionId"`
	Title        string                `json:"title"`
	MessageCount int                   `json:"messageCount"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
	AgeMinutes   float64               `json:"ageMinutes"`
	ContextUsage ContextBudget         `json:"contextUsage"`
	Metadata     model.SessionMetadata `json:"metadata"`
}

// SendMessageResult is what one conversational exchange produced.
// RAGResponse carries the full answer envelope (sources, bibliography,
// error detail) untouched.
type SendMessageResult struct {
	SessionID         string                    `json:"sessionId"`
	UserMessage       model.ConversationMessage `json:"userMessage"`
	AssistantMessage  model.ConversationMessage `json:"assistantMessage"`
	RAGResponse       *AskResponse              `json:"ragResponse"`
	ContextUsage      int                       `json:"contextUsage"`
	ContextWindowFull bool                      `json:"contextWindowFull"`
}

// SessionExport is the portable representation of a session.
type SessionExport struct {
	Session  SessionSummary              `json:"session"`
	Metadata model.SessionMetadata       `json:"metadata"`
	Messages []model.ConversationMessage `json:"messages"`
}

// CompressResult reports the effect of a history compaction.
type CompressResult struct {
	SessionID    string `json:"sessionId"`
	MessageCount int    `json:"messageCount"`
	ContextUsage int    `json:"contextUsage"`
}

// ConversationService runs the conversational layer on top of the ask
// pipeline: session lifecycle, history caps, context budgeting, question
// classification and transcript archival.
//
// The exchange in SendMessage reads the session, awaits the model, then
// appends under the store lock. The read and the append are two separate
// critical sections; two concurrent sends on one session interleave their
// history reads. Accepted: messages still append atomically and the history
// stays well-formed.
type ConversationService struct {
	store       session.Store
	answerer    ConversationalAnswerer
	publisher   TranscriptPublisher
	transcripts TranscriptReader
	cfg         config.ConversationConfig
	timeout     time.Duration
	log         *slog.Logger

	now func() time.Time // injectable for tests
}

func NewConversationService(
	store session.Store,
	answerer ConversationalAnswerer,
	publisher TranscriptPublisher,
	transcripts TranscriptReader,
	cfg config.ConversationConfig,
	timeout time.Duration,
	log *slog.Logger,
) *ConversationService {
	return &ConversationService{
		store:       store,
		answerer:    answerer,
		publisher:   publisher,
		transcripts: transcripts,
		cfg:         cfg,
		timeout:     timeout,
		log:         log,
		now:         time.Now,
	}
}

// CreateSession starts a new empty session.
func (s *ConversationService) CreateSession(title string) model.ConversationSession {
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultSessionTitle
	}
	now := s.now()
	sess := &model.ConversationSession{
		SessionID: uuid.NewString(),
		Title:     title,
		Messages:  []model.ConversationMessage{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.store.Create(sess)
	s.log.Info("session created", "session_id", sess.SessionID)
	return *sess
}

// GetSession returns a snapshot of a live session. Sessions idle past the
// timeout are removed on access and reported as not found.
func (s *ConversationService) GetSession(id string) (model.ConversationSession, error) {
	return s.liveSession(id)
}

// ListSessions returns summaries of all live sessions, most recently
// updated first. Expired sessions encountered during the walk are removed.
func (s *ConversationService) ListSessions() []SessionSummary {
	all := s.store.List()
	summaries := make([]SessionSummary, 0, len(all))
	for _, sess := range all {
		if s.expired(sess) {
			s.store.Delete(sess.SessionID)
			continue
		}
		summaries = append(summaries, SessionSummary{
			SessionID:    sess.SessionID,
			Title:        sess.Title,
			MessageCount: len(sess.Messages),
			CreatedAt:    sess.CreatedAt,
			UpdatedAt:    sess.UpdatedAt,
			ContextUsage: sess.ContextUsage,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries
}

// DeleteSession removes a session.
func (s *ConversationService) DeleteSession(id string) error {
	if !s.store.Delete(id) {
		return ErrSessionNotFound
	}
	s.log.Info("session deleted", "session_id", id)
	return nil
}

// SendMessage runs one conversational exchange: classify the question,
// answer it against the knowledge base with recent history as context, and
// append both turns to the session.
func (s *ConversationService) SendMessage(ctx context.Context, id, content string) (*SendMessageResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrInvalidInput
	}

	sess, err := s.liveSession(id)
	if err != nil {
		return nil, err
	}

	questionType := session.ClassifyQuestion(content)
	history := session.RecentMessages(sess.Messages, s.cfg.MaxContextTokens)

	answer := s.answerer.AskConversational(ctx, content, history)

	now := s.now()
	userMsg := model.ConversationMessage{
		ID:           uuid.NewString(),
		Role:         model.RoleUser,
		Content:      content,
		Timestamp:    now,
		QuestionType: questionType,
	}
	assistantContent := answer.Answer
	if answer.Error != "" {
		assistantContent = "Sorry, I ran into a problem answering that: " + answer.Error
	}
	assistantMsg := model.ConversationMessage{
		ID:        uuid.NewString(),
		Role:      model.RoleAssistant,
		Content:   assistantContent,
		Timestamp: now,
		Sources:   answer.Sources,
	}

	var usage int
	ok := s.store.Mutate(id, func(live *model.ConversationSession) {
		live.Messages = append(live.Messages, userMsg, assistantMsg)
		// cap the history by evicting the oldest user/assistant pair
		for len(live.Messages) > s.cfg.MaxMessagesPerSession {
			live.Messages = live.Messages[2:]
		}
		live.ContextUsage = session.ContextUsage(len(live.Messages), s.cfg.MessageTokenEstimate)
		live.UpdatedAt = now
		live.Metadata.TotalQuestions++
		live.Metadata.TotalResponses++
		if live.Title == defaultSessionTitle {
			live.Title = deriveTitle(content)
		}
		usage = live.ContextUsage
	})
	if !ok {
		return nil, ErrSessionNotFound
	}

	s.archive(ctx, id, userMsg)
	s.archive(ctx, id, assistantMsg)

	return &SendMessageResult{
		SessionID:         id,
		UserMessage:       userMsg,
		AssistantMessage:  assistantMsg,
		RAGResponse:       answer,
		ContextUsage:      usage,
		ContextWindowFull: session.ContextWindowFull(usage, s.cfg.MaxContextTokens),
	}, nil
}

// GetMessages returns the full message history of a live session.
func (s *ConversationService) GetMessages(id string) ([]model.ConversationMessage, error) {
	sess, err := s.liveSession(id)
	if err != nil {
		return nil, err
	}
	return sess.Messages, nil
}

// ClearMessages resets a session to its empty state: history, context
// usage and the metadata counters all go to zero.
func (s *ConversationService) ClearMessages(id string) error {
	if _, err := s.liveSession(id); err != nil {
		return err
	}
	now := s.now()
	ok := s.store.Mutate(id, func(live *model.ConversationSession) {
		live.Messages = []model.ConversationMessage{}
		live.ContextUsage = 0
		live.Metadata = model.SessionMetadata{}
		live.UpdatedAt = now
	})
	if !ok {
		return ErrSessionNotFound
	}
	return nil
}

// Compress folds the older half of a session's history into a synthetic
// summary message. Sessions with fewer than ten messages are refused.
func (s *ConversationService) Compress(id string) (*CompressResult, error) {
	if _, err := s.liveSession(id); err != nil {
		return nil, err
	}

	now := s.now()
	var result *CompressResult
	compacted := false
	s.store.Mutate(id, func(live *model.ConversationSession) {
		msgs, done := session.Compact(live.Messages, compactMinMessages, uuid.NewString(), now)
		if !done {
			return
		}
		compacted = true
		live.Messages = msgs
		live.ContextUsage = session.ContextUsage(len(msgs), s.cfg.MessageTokenEstimate)
		live.UpdatedAt = now
		result = &CompressResult{
			SessionID:    id,
			MessageCount: len(msgs),
			ContextUsage: live.ContextUsage,
		}
	})
	if !compacted {
		return nil, ErrNotEnoughMessages
	}
	s.log.Info("session compacted", "session_id", id, "messages", result.MessageCount)
	return result, nil
}

// Stats reports the detailed view of one session.
func (s *ConversationService) Stats(id string) (*SessionStats, error) {
	sess, err := s.liveSession(id)
	if err != nil {
		return nil, err
	}
	percentage := 0.0
	if s.cfg.MaxContextTokens > 0 {
		percentage = float64(sess.ContextUsage) / float64(s.cfg.MaxContextTokens) * 100
	}
	return &SessionStats{
		SessionID:    sess.SessionID,
		Title:        sess.Title,
		MessageCount: len(sess.Messages),
		CreatedAt:    sess.CreatedAt,
		UpdatedAt:    sess.UpdatedAt,
		AgeMinutes:   s.now().Sub(sess.CreatedAt).Minutes(),
		ContextUsage: ContextBudget{
			Current:    sess.ContextUsage,
			Max:        s.cfg.MaxContextTokens,
			Percentage: percentage,
			IsFull:     session.ContextWindowFull(sess.ContextUsage, s.cfg.MaxContextTokens),
		},
		Metadata: sess.Metadata,
	}, nil
}

// Export serializes a session for transfer.
func (s *ConversationService) Export(id string) (*SessionExport, error) {
	sess, err := s.liveSession(id)
	if err != nil {
		return nil, err
	}
	return &SessionExport{
		Session: SessionSummary{
			SessionID:    sess.SessionID,
			Title:        sess.Title,
			MessageCount: len(sess.Messages),
			CreatedAt:    sess.CreatedAt,
			UpdatedAt:    sess.UpdatedAt,
			ContextUsage: sess.ContextUsage,
		},
		Metadata: sess.Metadata,
		Messages: sess.Messages,
	}, nil
}

// Import recreates a session from an export under a fresh identifier.
// Message content and order are preserved; derived state (context usage,
// timestamps on the session header) is recomputed.
func (s *ConversationService) Import(export *SessionExport) (model.ConversationSession, error) {
	if export == nil || export.Session.Title == "" {
		return model.ConversationSession{}, ErrMalformedImport
	}
	for _, m := range export.Messages {
		if m.Role != model.RoleUser && m.Role != model.RoleAssistant {
			return model.ConversationSession{}, ErrMalformedImport
		}
		if m.Content == "" {
			return model.ConversationSession{}, ErrMalformedImport
		}
	}

	now := s.now()
	messages := make([]model.ConversationMessage, len(export.Messages))
	copy(messages, export.Messages)
	for i := range messages {
		if messages[i].ID == "" {
			messages[i].ID = uuid.NewString()
		}
	}

	sess := &model.ConversationSession{
		SessionID:    uuid.NewString(),
		Title:        export.Session.Title,
		Messages:     messages,
		CreatedAt:    now,
		UpdatedAt:    now,
		ContextUsage: session.ContextUsage(len(messages), s.cfg.MessageTokenEstimate),
		Metadata:     export.Metadata,
	}
	s.store.Create(sess)
	s.log.Info("session imported", "session_id", sess.SessionID, "messages", len(messages))
	return *sess, nil
}

// Transcript returns the archived copy of a session's messages. Unlike the
// live history, the archive survives expiry, eviction and restarts, so this
// does not require the session to still exist.
func (s *ConversationService) Transcript(sessionID string) ([]model.TranscriptMessage, error) {
	if s.transcripts == nil {
		return []model.TranscriptMessage{}, nil
	}
	msgs, err := s.transcripts.ListBySessionID(sessionID)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []model.TranscriptMessage{}
	}
	return msgs, nil
}

func (s *ConversationService) liveSession(id string) (model.ConversationSession, error) {
	sess, ok := s.store.Get(id)
	if !ok {
		return model.ConversationSession{}, ErrSessionNotFound
	}
	if s.expired(sess) {
		s.store.Delete(id)
		s.log.Info("session expired", "session_id", id)
		return model.ConversationSession{}, ErrSessionNotFound
	}
	return sess, nil
}

func (s *ConversationService) expired(sess model.ConversationSession) bool {
	return s.timeout > 0 && s.now().Sub(sess.UpdatedAt) > s.timeout
}

func (s *ConversationService) archive(ctx context.Context, sessionID string, msg model.ConversationMessage) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(ctx, model.TranscriptMessage{
		SessionID: sessionID,
		MessageID: msg.ID,
		Role:      msg.Role,
		Content:   msg.Content,
	})
	if err != nil {
		s.log.Warn("transcript publish failed", "session_id", sessionID, "error", err)
	}
}

func deriveTitle(question string) string {
	if len(question) <= titleMaxChars {
		return question
	}
	return question[:titleMaxChars] + "..."
}
