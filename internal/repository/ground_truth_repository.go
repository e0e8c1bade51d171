package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ikrigel/polo-rag-lev-boots-project/internal/model"
)

// GroundTruthRepository persists human-authored question/answer pairs.
type GroundTruthRepository struct {
	db *gorm.DB
}

func NewGroundTruthRepository(db *gorm.DB) *GroundTruthRepository {
	return &GroundTruthRepository{db: db}
}

func (r *GroundTruthRepository) Create(pair *model.GroundTruthPair) error {
	if err := r.db.Create(pair).Error; err != nil {
		return fmt.Errorf("create ground truth pair failed: %w", err)
	}
	return nil
}

// GetByID returns nil without error when the pair does not exist.
func (r *GroundTruthRepository) GetByID(id string) (*model.GroundTruthPair, error) {
	var pair model.GroundTruthPair
	err := r.db.Where("id = ?", id).First(&pair).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ground truth pair failed: %w", err)
	}
	return &pair, nil
}

func (r *GroundTruthRepository) List() ([]model.GroundTruthPair, error) {
	var pairs []model.GroundTruthPair
	if err := r.db.Order("created_at").Find(&pairs).Error; err != nil {
		return nil, fmt.Errorf("list ground truth pairs failed: %w", err)
	}
	return pairs, nil
}

// Delete reports whether a row was removed.
func (r *GroundTruthRepository) Delete(id string) (bool, error) {
	res := r.db.Where("id = ?", id).Delete(&model.GroundTruthPair{})
	if res.Error != nil {
		return false, fmt.Errorf("delete ground truth pair failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
