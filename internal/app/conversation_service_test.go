package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ikrigel/polo-rag-lev-boots-project/internal/config"
	"github.com/ikrigel/polo-rag-lev-boots-project/internal/model"
	"github.com/ikrigel/polo-rag-lev-boots-project/internal/session"
)

type cannedAnswerer struct {
	resp    *AskResponse
	history []model.ConversationMessage
}

func (c *cannedAnswerer) AskConversational(ctx context.Context, question string, history []model.ConversationMessage) *AskResponse {
	c.history = history
	if c.resp != nil {
		return c.resp
	}
	return &AskResponse{Answer: "answer to: " + question, Sources: []string{"hover.md"}}
}

type recordingPublisher struct {
	published []model.TranscriptMessage
	err       error
}

func (p *recordingPublisher) Publish(ctx context.Context, msg model.TranscriptMessage) error {
	p.published = append(p.published, msg)
	return p.err
}

func convConfig() config.ConversationConfig {
	return config.ConversationConfig{
		MaxContextTokens:      2000,
		MessageTokenEstimate:  100,
		MaxMessagesPerSession: 50,
		SessionTimeoutHours:   24,
	}
}

func newTestConversationService(answerer ConversationalAnswerer, publisher TranscriptPublisher) (*ConversationService, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := &now
	svc := NewConversationService(session.NewMemoryStore(), answerer, publisher, nil, convConfig(), 24*time.Hour, testLogger())
	svc.now = func() time.Time { return *clock }
	return svc, clock
}

func TestCreateAndGetSession(t *testing.T) {
	svc, _ := newTestConversationService(&cannedAnswerer{}, nil)

	created := svc.CreateSession("")
	assert.Equal(t, "New Conversation", created.Title)
	assert.NotEmpty(t, created.SessionID)
	assert.Empty(t, created.Messages)

	got, err := svc.GetSession(created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, created.SessionID, got.SessionID)

	_, err = svc.GetSession("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionExpiresOnRead(t *testing.T) {
	svc, clock := newTestConversationService(&cannedAnswerer{}, nil)
	created := svc.CreateSession("old")

	*clock = clock.Add(25 * time.Hour)

	_, err := svc.GetSession(created.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// removed, not just hidden
	_, err = svc.GetSession(created.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Empty(t, svc.ListSessions())
}

func TestSendMessageAppendsExchange(t *testing.T) {
	answerer := &cannedAnswerer{}
	publisher := &recordingPublisher{}
	svc, _ := newTestConversationService(answerer, publisher)
	created := svc.CreateSession("")

	result, err := svc.SendMessage(context.Background(), created.SessionID, "how do lev-boots hover")
	require.NoError(t, err)

	assert.Equal(t, model.RoleUser, result.UserMessage.Role)
	assert.Equal(t, model.QuestionKnowledge, result.UserMessage.QuestionType)
	assert.Equal(t, model.RoleAssistant, result.AssistantMessage.Role)
	assert.Equal(t, []string{"hover.md"}, result.AssistantMessage.Sources)
	require.NotNil(t, result.RAGResponse)
	assert.Equal(t, "answer to: how do lev-boots hover", result.RAGResponse.Answer)
	assert.Equal(t, []string{"hover.md"}, result.RAGResponse.Sources)
	assert.Equal(t, 200, result.ContextUsage)
	assert.False(t, result.ContextWindowFull)

	got, err := svc.GetSession(created.SessionID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 2)
	assert.Equal(t, "how do lev-boots hover", got.Title)
	assert.Equal(t, 1, got.Metadata.TotalQuestions)
	assert.Equal(t, 1, got.Metadata.TotalResponses)

	require.Len(t, publisher.published, 2)
	assert.Equal(t, created.SessionID, publisher.published[0].SessionID)
	assert.Equal(t, model.RoleUser, publisher.published[0].Role)
	assert.Equal(t, model.RoleAssistant, publisher.published[1].Role)
}

func TestSendMessagePublisherFailureIsNonFatal(t *testing.T) {
	publisher := &recordingPublisher{err: fmt.Errorf("broker down")}
	svc, _ := newTestConversationService(&cannedAnswerer{}, publisher)
	created := svc.CreateSession("")

	_, err := svc.SendMessage(context.Background(), created.SessionID, "how does it work")
	assert.NoError(t, err)
}

func TestSendMessageEvictsOldestPairAtCap(t *testing.T) {
	svc, _ := newTestConversationService(&cannedAnswerer{}, nil)
	created := svc.CreateSession("")

	for i := 0; i < 26; i++ {
		_, err := svc.SendMessage(context.Background(), created.SessionID, fmt.Sprintf("question %d", i))
		require.NoError(t, err)
	}

	got, err := svc.GetSession(created.SessionID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 50)
	// the first exchange has been evicted
	assert.Equal(t, "question 1", got.Messages[0].Content)
	assert.Equal(t, 5000, got.ContextUsage)
}

func TestSendMessageClassifiesClarification(t *testing.T) {
	svc, _ := newTestConversationService(&cannedAnswerer{}, nil)
	created := svc.CreateSession("")

	result, err := svc.SendMessage(context.Background(), created.SessionID, "clarify please")
	require.NoError(t, err)
	assert.Equal(t, model.QuestionClarification, result.UserMessage.QuestionType)
}

func TestClearMessagesResetsEverything(t *testing.T) {
	svc, _ := newTestConversationService(&cannedAnswerer{}, nil)
	created := svc.CreateSession("")
	_, err := svc.SendMessage(context.Background(), created.SessionID, "what is a lev-boot")
	require.NoError(t, err)

	require.NoError(t, svc.ClearMessages(created.SessionID))

	got, err := svc.GetSession(created.SessionID)
	require.NoError(t, err)
	assert.Empty(t, got.Messages)
	assert.Equal(t, 0, got.ContextUsage)
	assert.Equal(t, 0, got.Metadata.TotalQuestions)
	assert.Equal(t, 0, got.Metadata.TotalResponses)
}

func TestClearMessagesRefusesExpiredSession(t *testing.T) {
	svc, clock := newTestConversationService(&cannedAnswerer{}, nil)
	created := svc.CreateSession("")
	_, err := svc.SendMessage(context.Background(), created.SessionID, "what is a lev-boot")
	require.NoError(t, err)

	*clock = clock.Add(25 * time.Hour)

	// clearing must not resurrect the session by touching UpdatedAt
	assert.ErrorIs(t, svc.ClearMessages(created.SessionID), ErrSessionNotFound)
	_, err = svc.GetSession(created.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCompressRequiresTenMessages(t *testing.T) {
	svc, _ := newTestConversationService(&cannedAnswerer{}, nil)
	created := svc.CreateSession("")

	for i := 0; i < 4; i++ {
		_, err := svc.SendMessage(context.Background(), created.SessionID, fmt.Sprintf("question %d", i))
		require.NoError(t, err)
	}
	_, err := svc.Compress(created.SessionID)
	assert.ErrorIs(t, err, ErrNotEnoughMessages)

	_, err = svc.SendMessage(context.Background(), created.SessionID, "question 4")
	require.NoError(t, err)

	result, err := svc.Compress(created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 6, result.MessageCount)
	assert.Equal(t, 600, result.ContextUsage)

	msgs, err := svc.GetMessages(created.SessionID)
	require.NoError(t, err)
	require.Len(t, msgs, 6)
	assert.Contains(t, msgs[0].Content, "[Summary: Previous conversation had 3 questions.")
}

func TestSessionStats(t *testing.T) {
	svc, clock := newTestConversationService(&cannedAnswerer{}, nil)
	created := svc.CreateSession("boots chat")
	_, err := svc.SendMessage(context.Background(), created.SessionID, "what is a lev-boot")
	require.NoError(t, err)

	*clock = clock.Add(30 * time.Minute)

	stats, err := svc.Stats(created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "boots chat", stats.Title)
	assert.Equal(t, 2, stats.MessageCount)
	assert.InDelta(t, 30, stats.AgeMinutes, 0.01)
	assert.Equal(t, 200, stats.ContextUsage.Current)
	assert.Equal(t, 2000, stats.ContextUsage.Max)
	assert.InDelta(t, 10, stats.ContextUsage.Percentage, 0.001)
	assert.False(t, stats.ContextUsage.IsFull)
}

func TestSendMessageReportsFullContextWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := &now
	cfg := convConfig()
	cfg.MaxContextTokens = 400
	svc := NewConversationService(session.NewMemoryStore(), &cannedAnswerer{}, nil, nil, cfg, 24*time.Hour, testLogger())
	svc.now = func() time.Time { return *clock }
	created := svc.CreateSession("")

	first, err := svc.SendMessage(context.Background(), created.SessionID, "how do lev-boots hover")
	require.NoError(t, err)
	assert.False(t, first.ContextWindowFull)

	// 4 messages at 100 estimated tokens each hit 90% of a 400-token window
	second, err := svc.SendMessage(context.Background(), created.SessionID, "how high do they go")
	require.NoError(t, err)
	assert.True(t, second.ContextWindowFull)

	stats, err := svc.Stats(created.SessionID)
	require.NoError(t, err)
	assert.True(t, stats.ContextUsage.IsFull)
}

func TestExportImportRoundTrip(t *testing.T) {
	svc, _ := newTestConversationService(&cannedAnswerer{}, nil)
	created := svc.CreateSession("")
	_, err := svc.SendMessage(context.Background(), created.SessionID, "how do lev-boots hover")
	require.NoError(t, err)

	export, err := svc.Export(created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, created.SessionID, export.Session.SessionID)
	require.Len(t, export.Messages, 2)

	imported, err := svc.Import(export)
	require.NoError(t, err)
	assert.NotEqual(t, created.SessionID, imported.SessionID)
	assert.Equal(t, export.Session.Title, imported.Title)
	assert.Len(t, imported.Messages, 2)
	assert.Equal(t, 200, imported.ContextUsage)
	assert.Equal(t, export.Metadata, imported.Metadata)
}

func TestImportRejectsMalformedPayload(t *testing.T) {
	svc, _ := newTestConversationService(&cannedAnswerer{}, nil)

	_, err := svc.Import(nil)
	assert.ErrorIs(t, err, ErrMalformedImport)

	_, err = svc.Import(&SessionExport{})
	assert.ErrorIs(t, err, ErrMalformedImport)

	_, err = svc.Import(&SessionExport{
		Session:  SessionSummary{Title: "bad roles"},
		Messages: []model.ConversationMessage{{Role: "robot", Content: "hi"}},
	})
	assert.ErrorIs(t, err, ErrMalformedImport)
}

func TestListSessionsMostRecentFirst(t *testing.T) {
	svc, clock := newTestConversationService(&cannedAnswerer{}, nil)
	first := svc.CreateSession("first")
	*clock = clock.Add(time.Minute)
	second := svc.CreateSession("second")

	list := svc.ListSessions()
	require.Len(t, list, 2)
	assert.Equal(t, second.SessionID, list[0].SessionID)
	assert.Equal(t, first.SessionID, list[1].SessionID)
}

func TestDeleteSession(t *testing.T) {
	svc, _ := newTestConversationService(&cannedAnswerer{}, nil)
	created := svc.CreateSession("")

	require.NoError(t, svc.DeleteSession(created.SessionID))
	assert.ErrorIs(t, svc.DeleteSession(created.SessionID), ErrSessionNotFound)
}
