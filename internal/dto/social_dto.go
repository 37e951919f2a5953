package dto

import (
	"time"

	"github.com/google/uuid"

	"habitstake.app/backend/internal/model"
)

type CreateSocialChallengeInput struct {
	Title       string     `json:"title" binding:"required,max=100"`
	Description string     `json:"description" binding:"max=500"`
	TargetValue int        `json:"target_value" binding:"omitempty,gte=1"`
	EndDate     *time.Time `json:"end_date"`
	StakePoints int        `json:"stake_points" binding:"required,gt=0"`
}

// SocialChallengeResponse is the public-safe projection: participant names
// and stakes, never anyone's balance.
type SocialChallengeResponse struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Owner         string    `json:"owner"`
	StakePoints   int       `json:"stake_points"`
	Participants  []string  `json:"participants"`
	TotalPot      int       `json:"total_pot"`
	EndDate       time.Time `json:"end_date"`
	DaysRemaining int       `json:"days_remaining"`
	IsSettled     bool      `json:"is_settled"`
	CreatedAt     time.Time `json:"created_at"`
}

func NewSocialChallengeResponse(c *model.Challenge, now time.Time) SocialChallengeResponse {
	participants := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		participants = append(participants, p.User.Username)
	}

	return SocialChallengeResponse{
		ID:            c.ID,
		Title:         c.Title,
		Description:   c.Description,
		Owner:         c.User.Username,
		StakePoints:   c.StakePoints,
		Participants:  participants,
		TotalPot:      c.TotalPot(),
		EndDate:       c.EndDate,
		DaysRemaining: c.DaysRemaining(now),
		IsSettled:     c.IsSettled,
		CreatedAt:     c.CreatedAt,
	}
}

type SettlementResult struct {
	ChallengeID     uuid.UUID   `json:"challenge_id"`
	Title           string      `json:"title"`
	Winners         []uuid.UUID `json:"winners"`
	RewardPerWinner int         `json:"reward_per_winner"`
	TotalPot        int         `json:"total_pot"`
}

type CanJoinResponse struct {
	CanJoin bool `json:"can_join"`
}
