package model

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// BrainstormMessage is one turn in a brainstorm's conversation.
// Display and prompt order is created_at ascending, ties broken by id.
type BrainstormMessage struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	BrainstormID uint      `gorm:"not null;index" json:"brainstorm_id"`
	Role         string    `gorm:"size:16;not null" json:"role"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	CreatedAt    time.Time `json:"created_at"`
}

func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}
