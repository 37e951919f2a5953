package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"habitstake.app/backend/internal/model"
)

// ProgressLogRepository is read-only: entries are written inside the accrual
// transaction (ChallengeRepository.ApplyProgress) and never mutated after.
type ProgressLogRepository interface {
	FindByChallengeID(ctx context.Context, challengeID uuid.UUID) ([]model.ProgressLog, error)
}

type progressLogRepository struct {
	db *gorm.DB
}

func NewProgressLogRepository(db *gorm.DB) ProgressLogRepository {
	return &progressLogRepository{db: db}
}

func (r *progressLogRepository) FindByChallengeID(ctx context.Context, challengeID uuid.UUID) ([]model.ProgressLog, error) {
	var logs []model.ProgressLog
	if err := r.db.WithContext(ctx).
		Where("challenge_id = ?", challengeID).
		Order("created_at DESC").
		Find(&logs).Error; err != nil {
		return nil, err
	}

	return logs, nil
}
