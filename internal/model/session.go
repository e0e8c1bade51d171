package model

import "time"

// SessionMetadata tracks per-session counters.
type SessionMetadata struct {
	TotalQuestions int `json:"totalQuestions"`
	TotalResponses int `json:"totalResponses"`
}

// ConversationSession holds the in-memory state of one conversation.
// ContextUsage is always messageCount * the configured token estimate,
// a coarse proxy maintained by the conversation service.
type ConversationSession struct {
	SessionID    string                `json:"sessionId"`
	Title        string                `json:"title"`
	Messages     []ConversationMessage `json:"messages"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
	ContextUsage int                   `json:"contextUsage"`
	Metadata     SessionMetadata       `json:"metadata"`
}
