package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	NotificationChallengeCompleted = "challenge_completed"
	NotificationChallengeJoined    = "challenge_joined"
	NotificationChallengeSettled   = "challenge_settled"
	NotificationReminder           = "reminder"
)

type Notification struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID      uuid.UUID  `gorm:"type:uuid;index;not null" json:"user_id"` // recipient
	ActorID     *uuid.UUID `gorm:"type:uuid" json:"actor_id,omitempty"`     // user who triggered it, if any
	ChallengeID *uuid.UUID `gorm:"type:uuid" json:"challenge_id,omitempty"`
	Type        string     `gorm:"type:varchar(50);not null" json:"type"`
	Message     string     `gorm:"type:text" json:"message"`
	IsRead      bool       `gorm:"default:false" json:"is_read"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`

	// Pointer to avoid recursion if User ever embeds Notifications
	Actor *User `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
}
