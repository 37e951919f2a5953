package dto

import (
	"time"

	"github.com/google/uuid"

	"habitstake.app/backend/internal/model"
)

type CreateChallengeInput struct {
	Title       string     `json:"title" binding:"required,max=100"`
	Description string     `json:"description" binding:"max=500"`
	Type        string     `json:"type" binding:"omitempty,oneof=exercise no_phone study custom"`
	TargetValue int        `json:"target_value" binding:"required,gte=1"`
	EndDate     *time.Time `json:"end_date" binding:"required"`
	StartDate   *time.Time `json:"start_date"`
}

type ChallengeResponse struct {
	ID             uuid.UUID  `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Type           string     `json:"type"`
	StartDate      time.Time  `json:"start_date"`
	EndDate        time.Time  `json:"end_date"`
	TargetValue    int        `json:"target_value"`
	CurrentValue   int        `json:"current_value"`
	IsCompleted    bool       `json:"is_completed"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	RewardPoints   int        `json:"reward_points"`
	CompletionRate int        `json:"completion_rate"`
}

func NewChallengeResponse(c *model.Challenge) ChallengeResponse {
	return ChallengeResponse{
		ID:             c.ID,
		Title:          c.Title,
		Description:    c.Description,
		Type:           string(c.Type),
		StartDate:      c.StartDate,
		EndDate:        c.EndDate,
		TargetValue:    c.TargetValue,
		CurrentValue:   c.CurrentValue,
		IsCompleted:    c.IsCompleted,
		CompletedAt:    c.CompletedAt,
		RewardPoints:   c.RewardPoints,
		CompletionRate: c.CompletionRate(),
	}
}

type ChallengeSuggestion struct {
	Title        string `json:"title"`
	Type         string `json:"type"`
	Description  string `json:"description"`
	TargetValue  int    `json:"target_value"`
	RewardPoints int    `json:"reward_points"`
}
