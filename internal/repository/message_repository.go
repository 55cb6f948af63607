package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"brainstorm-coach/internal/model"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(message *model.BrainstormMessage) error {
	if err := r.db.Create(message).Error; err != nil {
		return fmt.Errorf("create brainstorm message failed: %w", err)
	}
	return nil
}

func (r *MessageRepository) GetByID(id uint) (*model.BrainstormMessage, error) {
	var message model.BrainstormMessage
	if err := r.db.First(&message, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get brainstorm message failed: %w", err)
	}
	return &message, nil
}

// ListByBrainstormID returns the conversation oldest first, ties broken by id.
func (r *MessageRepository) ListByBrainstormID(brainstormID uint) ([]model.BrainstormMessage, error) {
	var messages []model.BrainstormMessage
	if err := r.db.Where("brainstorm_id = ?", brainstormID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list brainstorm messages failed: %w", err)
	}
	return messages, nil
}

func (r *MessageRepository) LastByBrainstormID(brainstormID uint) (*model.BrainstormMessage, error) {
	var message model.BrainstormMessage
	if err := r.db.Where("brainstorm_id = ?", brainstormID).
		Order("created_at DESC, id DESC").
		First(&message).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get last brainstorm message failed: %w", err)
	}
	return &message, nil
}

// ListIDsFrom returns the ids of the given message and every newer message in
// the same brainstorm, used to drive the vector-mirror side of a rewind.
func (r *MessageRepository) ListIDsFrom(brainstormID, messageID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&model.BrainstormMessage{}).
		Where("brainstorm_id = ? AND id >= ?", brainstormID, messageID).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list brainstorm message ids failed: %w", err)
	}
	return ids, nil
}

// DeleteFromID removes the given message and every newer one in the brainstorm.
func (r *MessageRepository) DeleteFromID(brainstormID, messageID uint) (bool, error) {
	result := r.db.Where("brainstorm_id = ? AND id >= ?", brainstormID, messageID).
		Delete(&model.BrainstormMessage{})
	if result.Error != nil {
		return false, fmt.Errorf("delete brainstorm messages failed: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *MessageRepository) DeleteByBrainstormID(brainstormID uint) error {
	if err := r.db.Where("brainstorm_id = ?", brainstormID).
		Delete(&model.BrainstormMessage{}).Error; err != nil {
		return fmt.Errorf("delete brainstorm messages failed: %w", err)
	}
	return nil
}
