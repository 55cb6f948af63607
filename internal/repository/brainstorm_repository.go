package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"brainstorm-coach/internal/model"
)

type BrainstormRepository struct {
	db *gorm.DB
}

func NewBrainstormRepository(db *gorm.DB) *BrainstormRepository {
	return &BrainstormRepository{db: db}
}

func (r *BrainstormRepository) Create(brainstorm *model.Brainstorm) error {
	if err := r.db.Create(brainstorm).Error; err != nil {
		return fmt.Errorf("create brainstorm failed: %w", err)
	}
	return nil
}

func (r *BrainstormRepository) GetByID(id uint) (*model.Brainstorm, error) {
	var brainstorm model.Brainstorm
	if err := r.db.First(&brainstorm, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get brainstorm failed: %w", err)
	}
	return &brainstorm, nil
}

func (r *BrainstormRepository) GetByIDAndUserID(id, userID uint) (*model.Brainstorm, error) {
	var brainstorm model.Brainstorm
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&brainstorm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get brainstorm failed: %w", err)
	}
	return &brainstorm, nil
}

func (r *BrainstormRepository) ListByUserID(userID uint) ([]model.Brainstorm, error) {
	var brainstorms []model.Brainstorm
	if err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&brainstorms).Error; err != nil {
		return nil, fmt.Errorf("list brainstorms failed: %w", err)
	}
	return brainstorms, nil
}

// UpdateSummary overwrites the summary; reports whether a row changed.
func (r *BrainstormRepository) UpdateSummary(id uint, summary string) (bool, error) {
	result := r.db.Model(&model.Brainstorm{}).Where("id = ?", id).Update("summary", summary)
	if result.Error != nil {
		return false, fmt.Errorf("update brainstorm summary failed: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *BrainstormRepository) DeleteByID(id uint) error {
	if err := r.db.Delete(&model.Brainstorm{}, id).Error; err != nil {
		return fmt.Errorf("delete brainstorm failed: %w", err)
	}
	return nil
}
