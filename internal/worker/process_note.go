package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"time"

	"brainstorm-coach/internal/model"
	"brainstorm-coach/internal/repository"
)

// NoteProcessor advances a note through the simulated long-running job:
// status new -> processing, progress climbs in random increments each tick,
// then processed with a completion timestamp.
type NoteProcessor struct {
	noteRepo *repository.NoteRepository
	interval time.Duration
	rng      *rand.Rand
}

func NewNoteProcessor(noteRepo *repository.NoteRepository, interval time.Duration) *NoteProcessor {
	if interval <= 0 {
		interval = time.Second
	}
	return &NoteProcessor{
		noteRepo: noteRepo,
		interval: interval,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Handle is the processNote task handler.
func (p *NoteProcessor) Handle(ctx context.Context, payload json.RawMessage) error {
	var task model.ProcessNotePayload
	if err := json.Unmarshal(payload, &task); err != nil {
		return fmt.Errorf("decode processNote payload failed: %w", err)
	}

	note, err := p.noteRepo.GetByID(task.NoteID)
	if err != nil {
		return err
	}
	if note == nil {
		// The note was deleted after enqueue; nothing left to do.
		log.Printf("processNote: note %d no longer exists", task.NoteID)
		return nil
	}

	if _, err := p.noteRepo.UpdateFields(note.ID, map[string]any{
		"status":   model.NoteStatusProcessing,
		"progress": 0,
	}); err != nil {
		return err
	}

	progress := 0
	for progress < 100 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.interval):
		}

		progress += p.rng.Intn(21)
		if progress > 100 {
			progress = 100
		}
		if _, err := p.noteRepo.UpdateFields(note.ID, map[string]any{
			"progress": progress,
		}); err != nil {
			return err
		}
	}

	now := time.Now()
	if _, err := p.noteRepo.UpdateFields(note.ID, map[string]any{
		"status":       model.NoteStatusProcessed,
		"processed_at": &now,
	}); err != nil {
		return err
	}

	log.Printf("processNote: note %d processed", note.ID)
	return nil
}
