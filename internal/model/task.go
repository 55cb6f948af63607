package model

import "encoding/json"

// Task is the envelope published to the background task queue. Name selects
// the worker handler; Payload is handler-specific JSON.
type Task struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

const TaskProcessNote = "processNote"

// ProcessNotePayload is the payload for the processNote task.
type ProcessNotePayload struct {
	NoteID uint `json:"note_id"`
}
