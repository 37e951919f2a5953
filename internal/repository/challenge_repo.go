package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"habitstake.app/backend/internal/model"
	"habitstake.app/backend/pkg/apperror"
)

// ProgressResult is what an accrual transaction reports back to the service.
type ProgressResult struct {
	Challenge    *model.Challenge
	Log          *model.ProgressLog
	CompletedNow bool
}

type ChallengeRepository interface {
	Create(ctx context.Context, challenge *model.Challenge, reminder *model.Reminder) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Challenge, error)
	FindByOwner(ctx context.Context, userID uuid.UUID) ([]model.Challenge, error)
	FindRecentCompleted(ctx context.Context, userID uuid.UUID, since time.Time) ([]model.Challenge, error)
	CountCompletedByType(ctx context.Context, userID uuid.UUID) (map[model.ChallengeType]int64, error)

	// ApplyProgress runs the whole accrual unit in one transaction: append the
	// log entry, bump current_value, and on target crossing flip is_completed
	// (compare-and-swap) and credit the owner's reward exactly once.
	ApplyProgress(ctx context.Context, challengeID uuid.UUID, log *model.ProgressLog) (*ProgressResult, error)

	// CreateSocial escrows the creator's stake and creates the challenge with
	// the creator as first participant, all or nothing.
	CreateSocial(ctx context.Context, challenge *model.Challenge) error

	// Join escrows the stake and appends the participant. The conditional
	// debit rejects overdrafts; the unique participant index rejects
	// concurrent double-joins.
	Join(ctx context.Context, challengeID, userID uuid.UUID, stakePoints int) error

	// Settle marks the challenge settled (compare-and-swap on is_settled, so
	// at most one caller wins) and pays every winner in the same transaction.
	Settle(ctx context.Context, challengeID uuid.UUID, winners []uuid.UUID, rewardPerWinner int, settledAt time.Time) error

	FindActiveSocial(ctx context.Context, now time.Time) ([]model.Challenge, error)
	FindSocialByParticipant(ctx context.Context, userID uuid.UUID) ([]model.Challenge, error)
}

type challengeRepository struct {
	db *gorm.DB
}

func NewChallengeRepository(db *gorm.DB) ChallengeRepository {
	return &challengeRepository{db: db}
}

func (r *challengeRepository) Create(ctx context.Context, challenge *model.Challenge, reminder *model.Reminder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(challenge).Error; err != nil {
			return err
		}

		if reminder != nil {
			reminder.ChallengeID = challenge.ID
			reminder.UserID = challenge.UserID
			if err := tx.Create(reminder).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

func (r *challengeRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Challenge, error) {
	var challenge model.Challenge
	if err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Participants").
		Preload("Participants.User").
		Preload("Winners").
		Where("id = ?", id).
		First(&challenge).Error; err != nil {
		return nil, err
	}

	return &challenge, nil
}

func (r *challengeRepository) FindByOwner(ctx context.Context, userID uuid.UUID) ([]model.Challenge, error) {
	var challenges []model.Challenge
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&challenges).Error; err != nil {
		return nil, err
	}

	return challenges, nil
}

func (r *challengeRepository) FindRecentCompleted(ctx context.Context, userID uuid.UUID, since time.Time) ([]model.Challenge, error) {
	var challenges []model.Challenge
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_completed = ? AND completed_at >= ?", userID, true, since).
		Order("completed_at DESC").
		Find(&challenges).Error; err != nil {
		return nil, err
	}

	return challenges, nil
}

func (r *challengeRepository) CountCompletedByType(ctx context.Context, userID uuid.UUID) (map[model.ChallengeType]int64, error) {
	type result struct {
		Type  model.ChallengeType
		Count int64
	}
	var results []result

	if err := r.db.WithContext(ctx).
		Model(&model.Challenge{}).
		Select("type, COUNT(*) as count").
		Where("user_id = ? AND is_completed = ?", userID, true).
		Group("type").
		Scan(&results).Error; err != nil {
		return nil, err
	}

	counts := make(map[model.ChallengeType]int64, len(results))
	for _, res := range results {
		counts[res.Type] = res.Count
	}
	return counts, nil
}

func (r *challengeRepository) ApplyProgress(ctx context.Context, challengeID uuid.UUID, log *model.ProgressLog) (*ProgressResult, error) {
	res := &ProgressResult{Log: log}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var challenge model.Challenge
		if err := tx.Where("id = ?", challengeID).First(&challenge).Error; err != nil {
			return err
		}

		log.ChallengeID = challengeID
		if err := tx.Create(log).Error; err != nil {
			return err
		}

		if err := tx.Model(&model.Challenge{}).
			Where("id = ?", challengeID).
			UpdateColumn("current_value", gorm.Expr("current_value + ?", log.Value)).Error; err != nil {
			return err
		}

		// Completion flips at most once: the guard on is_completed makes two
		// concurrent crossings resolve to a single reward credit.
		now := time.Now()
		completed := tx.Model(&model.Challenge{}).
			Where("id = ? AND is_completed = ? AND current_value >= target_value", challengeID, false).
			Updates(map[string]interface{}{
				"is_completed": true,
				"completed_at": now,
			})
		if completed.Error != nil {
			return completed.Error
		}

		if completed.RowsAffected == 1 {
			res.CompletedNow = true

			if err := tx.Model(&model.User{}).
				Where("id = ?", challenge.UserID).
				UpdateColumn("points", gorm.Expr("points + ?", challenge.RewardPoints)).Error; err != nil {
				return err
			}

			reward := &model.PointLog{
				UserID:      challenge.UserID,
				ActionType:  model.ActionChallengeReward,
				Points:      challenge.RewardPoints,
				ReferenceID: challengeID.String(),
			}
			if err := tx.Create(reward).Error; err != nil {
				return err
			}
		}

		var updated model.Challenge
		if err := tx.Where("id = ?", challengeID).First(&updated).Error; err != nil {
			return err
		}
		res.Challenge = &updated

		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

func (r *challengeRepository) CreateSocial(ctx context.Context, challenge *model.Challenge) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := debitPoints(tx, challenge.UserID, challenge.StakePoints); err != nil {
			return err
		}

		if err := tx.Create(challenge).Error; err != nil {
			return err
		}

		participant := &model.ChallengeParticipant{
			ChallengeID: challenge.ID,
			UserID:      challenge.UserID,
		}
		if err := tx.Create(participant).Error; err != nil {
			return err
		}

		escrow := &model.PointLog{
			UserID:      challenge.UserID,
			ActionType:  model.ActionStakeEscrow,
			Points:      -challenge.StakePoints,
			ReferenceID: challenge.ID.String(),
		}
		return tx.Create(escrow).Error
	})
}

func (r *challengeRepository) Join(ctx context.Context, challengeID, userID uuid.UUID, stakePoints int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := debitPoints(tx, userID, stakePoints); err != nil {
			return err
		}

		participant := &model.ChallengeParticipant{
			ChallengeID: challengeID,
			UserID:      userID,
		}
		if err := tx.Create(participant).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperror.ErrAlreadyJoined
			}
			return err
		}

		escrow := &model.PointLog{
			UserID:      userID,
			ActionType:  model.ActionStakeEscrow,
			Points:      -stakePoints,
			ReferenceID: challengeID.String(),
		}
		return tx.Create(escrow).Error
	})
}

func (r *challengeRepository) Settle(ctx context.Context, challengeID uuid.UUID, winners []uuid.UUID, rewardPerWinner int, settledAt time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Check-and-set in a single statement: the second settler sees zero
		// rows affected and the whole transaction rolls back.
		settled := tx.Model(&model.Challenge{}).
			Where("id = ? AND is_settled = ?", challengeID, false).
			Updates(map[string]interface{}{
				"is_settled": true,
				"settled_at": settledAt,
			})
		if settled.Error != nil {
			return settled.Error
		}
		if settled.RowsAffected == 0 {
			return apperror.ErrAlreadySettled
		}

		for _, winnerID := range winners {
			if err := tx.Model(&model.User{}).
				Where("id = ?", winnerID).
				UpdateColumn("points", gorm.Expr("points + ?", rewardPerWinner)).Error; err != nil {
				return err
			}

			winner := &model.ChallengeWinner{
				ChallengeID:  challengeID,
				UserID:       winnerID,
				RewardPoints: rewardPerWinner,
			}
			if err := tx.Create(winner).Error; err != nil {
				return err
			}

			payout := &model.PointLog{
				UserID:      winnerID,
				ActionType:  model.ActionSocialPayout,
				Points:      rewardPerWinner,
				ReferenceID: challengeID.String(),
			}
			if err := tx.Create(payout).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

func (r *challengeRepository) FindActiveSocial(ctx context.Context, now time.Time) ([]model.Challenge, error) {
	var challenges []model.Challenge
	if err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Participants").
		Preload("Participants.User").
		Where("is_social = ? AND end_date > ? AND is_settled = ?", true, now, false).
		Order("end_date ASC").
		Find(&challenges).Error; err != nil {
		return nil, err
	}

	return challenges, nil
}

func (r *challengeRepository) FindSocialByParticipant(ctx context.Context, userID uuid.UUID) ([]model.Challenge, error) {
	var challenges []model.Challenge
	if err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Participants").
		Preload("Participants.User").
		Joins("JOIN challenge_participants ON challenge_participants.challenge_id = challenges.id").
		Where("challenges.is_social = ? AND challenge_participants.user_id = ?", true, userID).
		Order("challenges.end_date ASC").
		Find(&challenges).Error; err != nil {
		return nil, err
	}

	return challenges, nil
}

// debitPoints subtracts from a user's balance, refusing overdrafts. The
// points >= amount guard in the WHERE clause makes the funds check and the
// debit a single indivisible statement.
func debitPoints(tx *gorm.DB, userID uuid.UUID, amount int) error {
	res := tx.Model(&model.User{}).
		Where("id = ? AND points >= ?", userID, amount).
		UpdateColumn("points", gorm.Expr("points - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.ErrInsufficientPoints
	}
	return nil
}
