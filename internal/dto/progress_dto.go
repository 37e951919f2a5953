package dto

import (
	"time"

	"github.com/google/uuid"
)

type LogProgressInput struct {
	Value int    `json:"value" binding:"gte=0"`
	Notes string `json:"notes" binding:"max=500"`
}

type ProgressEntry struct {
	ID        uuid.UUID `json:"id"`
	Value     int       `json:"value"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type LogProgressResponse struct {
	ProgressLog ProgressEntry     `json:"progress_log"`
	Challenge   ChallengeResponse `json:"challenge"`
}

// ProgressStats are derived from the log, never stored.
type ProgressStats struct {
	TotalDays      int `json:"total_days"`
	CompletedDays  int `json:"completed_days"`
	SuccessRate    int `json:"success_rate"`
	RemainingDays  int `json:"remaining_days"`
	CompletionRate int `json:"completion_rate"`
}

type ProgressHistoryResponse struct {
	Challenge ChallengeResponse `json:"challenge"`
	History   []ProgressEntry   `json:"progress_history"`
	Stats     ProgressStats     `json:"stats"`
}
