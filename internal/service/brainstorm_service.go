package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"brainstorm-coach/internal/model"
	"brainstorm-coach/internal/repository"
)

// SeedCoachMessage opens every new brainstorm.
const SeedCoachMessage = "What do you want to brainstorm?"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrBrainstormNotFound = errors.New("brainstorm not found")
	ErrMessageNotFound    = errors.New("message not found")
	ErrInvalidRole        = errors.New("invalid message role")
	ErrMessageEmpty       = errors.New("message content is empty")
)

// MirrorWriter is the synchronization contract toward the vector store.
type MirrorWriter interface {
	CreateBrainstorm(ctx context.Context, brainstorm *model.Brainstorm) error
	CreateMessage(ctx context.Context, message *model.BrainstormMessage) error
	UpdateSummary(ctx context.Context, brainstormID uint, summary string) error
	DeleteMessage(ctx context.Context, messageID uint) error
	DeleteBrainstorm(ctx context.Context, brainstormID uint) error
}

// HistoryCache is the optional redis-backed conversation cache.
type HistoryCache interface {
	GetHistory(ctx context.Context, brainstormID uint) ([]model.BrainstormMessage, bool, error)
	SetHistory(ctx context.Context, brainstormID uint, messages []model.BrainstormMessage) error
	DeleteHistory(ctx context.Context, brainstormID uint) error
	MarkDirty(ctx context.Context, brainstormID uint) error
	IsDirty(ctx context.Context, brainstormID uint) (bool, error)
}

// BrainstormService owns the brainstorm lifecycle. Mutations of a single
// brainstorm are serialized through a per-id mutex so a cascade delete and a
// concurrent append cannot interleave.
type BrainstormService struct {
	brainstormRepo *repository.BrainstormRepository
	messageRepo    *repository.MessageRepository
	mirror         MirrorWriter
	historyCache   HistoryCache

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func NewBrainstormService(
	brainstormRepo *repository.BrainstormRepository,
	messageRepo *repository.MessageRepository,
	mirror MirrorWriter,
	historyCache HistoryCache,
) *BrainstormService {
	return &BrainstormService{
		brainstormRepo: brainstormRepo,
		messageRepo:    messageRepo,
		mirror:         mirror,
		historyCache:   historyCache,
		locks:          map[uint]*sync.Mutex{},
	}
}

func (s *BrainstormService) lockBrainstorm(id uint) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// CreateBrainstorm inserts the relational row, mirrors it, and seeds the
// opening assistant message through the normal append path.
func (s *BrainstormService) CreateBrainstorm(ctx context.Context, userID uint, title string) (*model.Brainstorm, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = "New Brainstorm"
	}

	brainstorm := &model.Brainstorm{UserID: userID, Title: title}
	if err := s.brainstormRepo.Create(brainstorm); err != nil {
		return nil, err
	}
	if err := s.mirror.CreateBrainstorm(ctx, brainstorm); err != nil {
		return nil, err
	}

	unlock := s.lockBrainstorm(brainstorm.ID)
	defer unlock()
	if _, err := s.appendMessage(ctx, brainstorm.ID, model.RoleAssistant, SeedCoachMessage); err != nil {
		return nil, err
	}
	return brainstorm, nil
}

func (s *BrainstormService) ListBrainstorms(ctx context.Context, userID uint) ([]model.Brainstorm, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.brainstormRepo.ListByUserID(userID)
}

func (s *BrainstormService) GetBrainstorm(ctx context.Context, userID, brainstormID uint) (*model.Brainstorm, error) {
	if userID == 0 || brainstormID == 0 {
		return nil, ErrInvalidInput
	}
	brainstorm, err := s.brainstormRepo.GetByIDAndUserID(brainstormID, userID)
	if err != nil {
		return nil, err
	}
	if brainstorm == nil {
		return nil, ErrBrainstormNotFound
	}
	return brainstorm, nil
}

// AppendMessage adds one turn to the conversation and mirrors it.
func (s *BrainstormService) AppendMessage(ctx context.Context, userID, brainstormID uint, role, content string) (*model.BrainstormMessage, error) {
	if userID == 0 || brainstormID == 0 {
		return nil, ErrInvalidInput
	}
	if !model.ValidRole(role) {
		return nil, ErrInvalidRole
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrMessageEmpty
	}

	brainstorm, err := s.brainstormRepo.GetByIDAndUserID(brainstormID, userID)
	if err != nil {
		return nil, err
	}
	if brainstorm == nil {
		return nil, ErrBrainstormNotFound
	}

	unlock := s.lockBrainstorm(brainstormID)
	defer unlock()
	return s.appendMessage(ctx, brainstormID, role, content)
}

func (s *BrainstormService) appendMessage(ctx context.Context, brainstormID uint, role, content string) (*model.BrainstormMessage, error) {
	message := &model.BrainstormMessage{
		BrainstormID: brainstormID,
		Role:         role,
		Content:      content,
	}
	if err := s.messageRepo.Create(message); err != nil {
		return nil, err
	}
	if err := s.mirror.CreateMessage(ctx, message); err != nil {
		return nil, fmt.Errorf("message %d stored but mirror failed: %w", message.ID, err)
	}
	s.invalidateHistory(ctx, brainstormID)
	return message, nil
}

// GetMessages returns the conversation oldest first, served from the cache
// when it is fresh.
func (s *BrainstormService) GetMessages(ctx context.Context, userID, brainstormID uint) ([]model.BrainstormMessage, error) {
	if userID == 0 || brainstormID == 0 {
		return nil, ErrInvalidInput
	}
	brainstorm, err := s.brainstormRepo.GetByIDAndUserID(brainstormID, userID)
	if err != nil {
		return nil, err
	}
	if brainstorm == nil {
		return nil, ErrBrainstormNotFound
	}

	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, brainstormID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, brainstormID); cacheErr == nil && hit {
				return cached, nil
			}
		}
	}

	messages, err := s.messageRepo.ListByBrainstormID(brainstormID)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, brainstormID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, brainstormID, messages)
		}
	}
	return messages, nil
}

// RewindFrom deletes the given message and every newer one in the brainstorm,
// from both stores. Fails with ErrMessageNotFound when the message does not
// exist or belongs to another brainstorm.
func (s *BrainstormService) RewindFrom(ctx context.Context, userID, brainstormID, messageID uint) error {
	if userID == 0 || brainstormID == 0 || messageID == 0 {
		return ErrInvalidInput
	}
	brainstorm, err := s.brainstormRepo.GetByIDAndUserID(brainstormID, userID)
	if err != nil {
		return err
	}
	if brainstorm == nil {
		return ErrBrainstormNotFound
	}
	message, err := s.messageRepo.GetByID(messageID)
	if err != nil {
		return err
	}
	if message == nil || message.BrainstormID != brainstormID {
		return ErrMessageNotFound
	}

	unlock := s.lockBrainstorm(brainstormID)
	defer unlock()

	ids, err := s.messageRepo.ListIDsFrom(brainstormID, messageID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.mirror.DeleteMessage(ctx, id); err != nil {
			return err
		}
	}
	if _, err := s.messageRepo.DeleteFromID(brainstormID, messageID); err != nil {
		return err
	}
	s.invalidateHistory(ctx, brainstormID)
	return nil
}

// DeleteBrainstorm cascades: vector mirror first (edges, then objects), then
// the relational messages, then the brainstorm row.
func (s *BrainstormService) DeleteBrainstorm(ctx context.Context, userID, brainstormID uint) error {
	if userID == 0 || brainstormID == 0 {
		return ErrInvalidInput
	}
	brainstorm, err := s.brainstormRepo.GetByIDAndUserID(brainstormID, userID)
	if err != nil {
		return err
	}
	if brainstorm == nil {
		return ErrBrainstormNotFound
	}

	unlock := s.lockBrainstorm(brainstormID)
	defer unlock()

	if err := s.mirror.DeleteBrainstorm(ctx, brainstormID); err != nil {
		return err
	}
	if err := s.messageRepo.DeleteByBrainstormID(brainstormID); err != nil {
		return err
	}
	if err := s.brainstormRepo.DeleteByID(brainstormID); err != nil {
		return err
	}
	if s.historyCache != nil {
		_ = s.historyCache.DeleteHistory(ctx, brainstormID)
	}
	return nil
}

func (s *BrainstormService) invalidateHistory(ctx context.Context, brainstormID uint) {
	if s.historyCache == nil {
		return
	}
	_ = s.historyCache.MarkDirty(ctx, brainstormID)
	_ = s.historyCache.DeleteHistory(ctx, brainstormID)
}
