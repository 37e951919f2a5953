package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChallengeType string

const (
	ChallengeTypeExercise ChallengeType = "exercise"
	ChallengeTypeNoPhone  ChallengeType = "no_phone"
	ChallengeTypeStudy    ChallengeType = "study"
	ChallengeTypeCustom   ChallengeType = "custom"
)

func (t ChallengeType) Valid() bool {
	switch t {
	case ChallengeTypeExercise, ChallengeTypeNoPhone, ChallengeTypeStudy, ChallengeTypeCustom:
		return true
	}
	return false
}

type Challenge struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID     `gorm:"type:uuid;index;not null" json:"user_id"`
	User        User          `gorm:"foreignKey:UserID" json:"-"`
	Title       string        `gorm:"size:100;not null" json:"title"`
	Description string        `gorm:"size:500" json:"description"`
	Type        ChallengeType `gorm:"size:20;default:custom" json:"type"`
	StartDate   time.Time     `json:"start_date"`
	EndDate     time.Time     `gorm:"not null" json:"end_date"`
	TargetValue int           `gorm:"not null" json:"target_value"`
	// CurrentValue only grows; accrual may overshoot TargetValue.
	CurrentValue int        `gorm:"not null;default:0" json:"current_value"`
	IsCompleted  bool       `gorm:"not null;default:false" json:"is_completed"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	RewardPoints int        `gorm:"not null;default:50" json:"reward_points"`

	// Social challenge fields. Inert unless IsSocial is set.
	IsSocial     bool                   `gorm:"not null;default:false;index" json:"is_social"`
	StakePoints  int                    `gorm:"not null;default:0" json:"stake_points"`
	Participants []ChallengeParticipant `gorm:"foreignKey:ChallengeID" json:"participants,omitempty"`
	IsSettled    bool                   `gorm:"not null;default:false" json:"is_settled"`
	Winners      []ChallengeWinner      `gorm:"foreignKey:ChallengeID" json:"winners,omitempty"`
	SettledAt    *time.Time             `json:"settled_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Challenge) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.StartDate.IsZero() {
		c.StartDate = time.Now()
	}
	return nil
}

// CompletionRate reports progress as a capped percentage of the target.
func (c *Challenge) CompletionRate() int {
	if c.TargetValue <= 0 {
		return 0
	}
	rate := int(float64(c.CurrentValue)/float64(c.TargetValue)*100 + 0.5)
	if rate > 100 {
		return 100
	}
	return rate
}

// TotalPot is the sum of all participants' stakes.
func (c *Challenge) TotalPot() int {
	return c.StakePoints * len(c.Participants)
}

// DaysRemaining until the end date, rounded up, never negative.
func (c *Challenge) DaysRemaining(now time.Time) int {
	if !c.EndDate.After(now) {
		return 0
	}
	d := c.EndDate.Sub(now)
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) > 0 {
		days++
	}
	return days
}

func (c *Challenge) HasParticipant(userID uuid.UUID) bool {
	for _, p := range c.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

func (c *Challenge) ParticipantIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.Participants))
	for _, p := range c.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

// ChallengeParticipant is one user's membership in a social challenge.
// The composite unique index makes double-joining impossible at the DB level.
type ChallengeParticipant struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	ChallengeID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_challenge_user;not null" json:"challenge_id"`
	UserID      uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_challenge_user;index;not null" json:"user_id"`
	User        User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	JoinedAt    time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

// ChallengeWinner is written once, during settlement.
type ChallengeWinner struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	ChallengeID  uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_challenge_winner;not null" json:"challenge_id"`
	UserID       uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_challenge_winner;not null" json:"user_id"`
	RewardPoints int       `gorm:"not null" json:"reward_points"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}
