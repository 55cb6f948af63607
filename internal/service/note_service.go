package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"brainstorm-coach/internal/model"
	"brainstorm-coach/internal/repository"
)

var (
	ErrNoteNotFound = errors.New("note not found")
	ErrTaskEnqueue  = errors.New("task enqueue failed")
)

// AsyncTaskPublisher hands named tasks to the durable queue.
type AsyncTaskPublisher interface {
	Publish(ctx context.Context, task model.Task) error
}

type NoteService struct {
	noteRepo  *repository.NoteRepository
	publisher AsyncTaskPublisher
}

func NewNoteService(noteRepo *repository.NoteRepository, publisher AsyncTaskPublisher) *NoteService {
	return &NoteService{noteRepo: noteRepo, publisher: publisher}
}

func (s *NoteService) CreateNote(ctx context.Context, title, body string) (*model.Note, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrInvalidInput
	}
	note := &model.Note{
		Title:  title,
		Body:   body,
		Status: model.NoteStatusNew,
	}
	if err := s.noteRepo.Create(note); err != nil {
		return nil, err
	}
	return note, nil
}

func (s *NoteService) GetNote(ctx context.Context, noteID uint) (*model.Note, error) {
	if noteID == 0 {
		return nil, ErrInvalidInput
	}
	note, err := s.noteRepo.GetByID(noteID)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, ErrNoteNotFound
	}
	return note, nil
}

// EnqueueProcess puts a processNote task on the queue for the worker.
func (s *NoteService) EnqueueProcess(ctx context.Context, noteID uint) error {
	note, err := s.GetNote(ctx, noteID)
	if err != nil {
		return err
	}
	if s.publisher == nil {
		return ErrTaskEnqueue
	}

	payload, err := json.Marshal(model.ProcessNotePayload{NoteID: note.ID})
	if err != nil {
		return ErrTaskEnqueue
	}
	if err := s.publisher.Publish(ctx, model.Task{Name: model.TaskProcessNote, Payload: payload}); err != nil {
		return ErrTaskEnqueue
	}
	return nil
}
