package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionSignupBonus     = "signup_bonus"
	ActionChallengeReward = "challenge_reward"
	ActionStakeEscrow     = "stake_escrow"
	ActionSocialPayout    = "social_payout"
)

// PointLog is the audit trail of the points ledger. One row per balance
// mutation, written in the same transaction as the mutation itself.
// Points is signed: debits (stake escrow) are negative.
type PointLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;index:idx_user_date,priority:1;not null" json:"user_id"`
	User        User      `gorm:"foreignKey:UserID" json:"-"`
	ActionType  string    `gorm:"size:50;not null" json:"action_type"`
	Points      int       `gorm:"not null" json:"points"`
	ReferenceID string    `gorm:"size:36" json:"reference_id"` // challenge id, if any
	CreatedAt   time.Time `gorm:"index:idx_user_date,priority:2" json:"created_at"`
}
