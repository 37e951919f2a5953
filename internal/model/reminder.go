package model

import (
	"time"

	"github.com/google/uuid"
)

// Reminder is a scheduled nudge for a challenge. The scheduler sweeps unsent
// reminders whose time has passed and turns them into notifications.
type Reminder struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ChallengeID uuid.UUID `gorm:"type:uuid;index;not null" json:"challenge_id"`
	UserID      uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	RemindAt    time.Time `gorm:"index;not null" json:"remind_at"`
	Message     string    `gorm:"size:255" json:"message"`
	Sent        bool      `gorm:"not null;default:false;index" json:"sent"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}
