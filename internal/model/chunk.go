package model

import (
	"encoding/json"
	"time"
)

// SourceType identifies the kind of source a knowledge chunk came from.
type SourceType string

const (
	SourceDocument SourceType = "document"
	SourceArticle  SourceType = "article"
	SourceChatLog  SourceType = "chat-log"
)

// KnowledgeChunk is one retrieval unit of the knowledge base.
// Embedding is stored as a JSON array of float64 for portability.
type KnowledgeChunk struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	SourceID   string     `gorm:"size:256;not null;index" json:"source_id"`
	SourceType SourceType `gorm:"size:16;not null" json:"source_type"`
	ChunkIndex int        `gorm:"not null" json:"chunk_index"`
	Content    string     `gorm:"type:text;not null" json:"content"`
	Source     string     `gorm:"size:256;not null" json:"source"`
	ChunkCount int        `json:"chunk_count"`
	Embedding  string     `gorm:"type:mediumtext" json:"-"` // JSON array of float64
	CreatedAt  time.Time  `json:"created_at"`
}

// Valid reports whether t is one of the known source types.
func (t SourceType) Valid() bool {
	switch t {
	case SourceDocument, SourceArticle, SourceChatLog:
		return true
	}
	return false
}

// EmbeddingVector returns the parsed embedding slice; nil on parse error.
func (c *KnowledgeChunk) EmbeddingVector() []float64 {
	if c.Embedding == "" {
		return nil
	}
	var v []float64
	if err := json.Unmarshal([]byte(c.Embedding), &v); err != nil {
		return nil
	}
	return v
}

// SetEmbedding stores the embedding as JSON.
func (c *KnowledgeChunk) SetEmbedding(vec []float64) {
	if len(vec) == 0 {
		c.Embedding = "[]"
		return
	}
	b, _ := json.Marshal(vec)
	c.Embedding = string(b)
}
