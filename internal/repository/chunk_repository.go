package repository

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/ikrigel/polo-rag-lev-boots-project/internal/model"
)

// ChunkRepository persists knowledge chunks. Chunks are immutable once
// created and only removed by a full clear.
type ChunkRepository struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

func (r *ChunkRepository) CreateBatch(chunks []model.KnowledgeChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := r.db.Create(&chunks).Error; err != nil {
		return fmt.Errorf("create knowledge chunks failed: %w", err)
	}
	return nil
}

// ListAll returns every chunk for the retriever's brute-force scan.
func (r *ChunkRepository) ListAll() ([]model.KnowledgeChunk, error) {
	var chunks []model.KnowledgeChunk
	if err := r.db.Order("id").Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list knowledge chunks failed: %w", err)
	}
	return chunks, nil
}

func (r *ChunkRepository) Count() (int64, error) {
	var count int64
	if err := r.db.Model(&model.KnowledgeChunk{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count knowledge chunks failed: %w", err)
	}
	return count, nil
}

// DistinctSources returns the display names of all ingested sources.
func (r *ChunkRepository) DistinctSources() ([]string, error) {
	var sources []string
	if err := r.db.Model(&model.KnowledgeChunk{}).Distinct("source").Order("source").Pluck("source", &sources).Error; err != nil {
		return nil, fmt.Errorf("list chunk sources failed: %w", err)
	}
	return sources, nil
}

// DeleteAll clears the knowledge base.
func (r *ChunkRepository) DeleteAll() error {
	if err := r.db.Where("1 = 1").Delete(&model.KnowledgeChunk{}).Error; err != nil {
		return fmt.Errorf("clear knowledge chunks failed: %w", err)
	}
	return nil
}
