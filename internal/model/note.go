package model

import "time"

const (
	NoteStatusNew        = "new"
	NoteStatusProcessing = "processing"
	NoteStatusProcessed  = "processed"
)

// Note is the target record of the simulated long-running background job.
type Note struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:256;not null" json:"title"`
	Body        string     `gorm:"type:text" json:"body"`
	Status      string     `gorm:"size:32;not null;default:new" json:"status"`
	Progress    int        `gorm:"not null;default:0" json:"progress"`
	ProcessedAt *time.Time `json:"processed_at"`
	CreatedAt   time.Time  `json:"created_at"`
}
