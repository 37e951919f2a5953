package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProgressLog is append-only: the repository exposes no update or delete path.
type ProgressLog struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ChallengeID uuid.UUID `gorm:"type:uuid;index;not null" json:"challenge_id"`
	UserID      uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	Value       int       `gorm:"not null" json:"value"`
	Notes       string    `gorm:"size:500" json:"notes"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (p *ProgressLog) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
