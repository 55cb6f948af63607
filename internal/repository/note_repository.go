package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"brainstorm-coach/internal/model"
)

type NoteRepository struct {
	db *gorm.DB
}

func NewNoteRepository(db *gorm.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

func (r *NoteRepository) Create(note *model.Note) error {
	if err := r.db.Create(note).Error; err != nil {
		return fmt.Errorf("create note failed: %w", err)
	}
	return nil
}

func (r *NoteRepository) GetByID(id uint) (*model.Note, error) {
	var note model.Note
	if err := r.db.First(&note, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get note failed: %w", err)
	}
	return &note, nil
}

// UpdateFields patches the given columns; reports whether a row changed.
func (r *NoteRepository) UpdateFields(id uint, fields map[string]any) (bool, error) {
	result := r.db.Model(&model.Note{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return false, fmt.Errorf("update note failed: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
