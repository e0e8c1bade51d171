package repository

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/ikrigel/polo-rag-lev-boots-project/internal/model"
)

// TranscriptRepository archives conversation messages. Write-mostly; the
// live session state never reads from here.
type TranscriptRepository struct {
	db *gorm.DB
}

func NewTranscriptRepository(db *gorm.DB) *TranscriptRepository {
	return &TranscriptRepository{db: db}
}

func (r *TranscriptRepository) Create(msg *model.TranscriptMessage) error {
	if err := r.db.Create(msg).Error; err != nil {
		return fmt.Errorf("create transcript message failed: %w", err)
	}
	return nil
}

func (r *TranscriptRepository) ListBySessionID(sessionID string) ([]model.TranscriptMessage, error) {
	var messages []model.TranscriptMessage
	if err := r.db.Where("session_id = ?", sessionID).Order("id").Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list transcript messages failed: %w", err)
	}
	return messages, nil
}
