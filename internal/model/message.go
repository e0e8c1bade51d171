package model

import "time"

// Role of a conversation message.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// QuestionType classifies a user question.
type QuestionType string

const (
	QuestionKnowledge     QuestionType = "knowledge"
	QuestionGeneral       QuestionType = "general"
	QuestionClarification QuestionType = "clarification"
)

// ConversationMessage is one turn in a conversation session. Immutable once
// appended; QuestionType is set for user messages, Sources for assistant ones.
type ConversationMessage struct {
	ID           string       `json:"id"`
	Role         string       `json:"role"`
	Content      string       `json:"content"`
	Timestamp    time.Time    `json:"timestamp"`
	QuestionType QuestionType `json:"questionType,omitempty"`
	Sources      []string     `json:"sources,omitempty"`
}

// TranscriptMessage is the archived copy of a conversation message,
// persisted asynchronously to MySQL. Never read back into live sessions.
type TranscriptMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"size:64;not null;index" json:"session_id"`
	MessageID string    `gorm:"size:64;not null" json:"message_id"`
	Role      string    `gorm:"size:16;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
