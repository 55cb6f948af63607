package model

import "time"

// Brainstorm is a single ideation session. Summary stays nil until the
// summarization operation fills it in; it may be overwritten by a later run.
type Brainstorm struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Title     string    `gorm:"size:256;not null" json:"title"`
	Summary   *string   `gorm:"type:text" json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}
