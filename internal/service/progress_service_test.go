package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habitstake.app/backend/internal/config"
	"habitstake.app/backend/internal/dto"
	"habitstake.app/backend/internal/model"
	"habitstake.app/backend/pkg/apperror"
)

func newProgressFixture(t *testing.T) (*fakeUserRepo, *fakeChallengeRepo, ProgressService) {
	t.Helper()
	users := newFakeUserRepo()
	challenges := newFakeChallengeRepo(users)
	cfg := &config.Config{
		Points: config.PointsConfig{ChallengeReward: 50},
	}
	svc := NewProgressService(challenges, &fakeProgressRepo{challenges: challenges}, nil, nil, cfg)
	return users, challenges, svc
}

func addPersonalChallenge(challenges *fakeChallengeRepo, owner uuid.UUID, target int) uuid.UUID {
	return challenges.addChallenge(&model.Challenge{
		UserID:       owner,
		Title:        "Read every day",
		Type:         model.ChallengeTypeStudy,
		StartDate:    time.Now().Add(-24 * time.Hour),
		EndDate:      time.Now().Add(6 * 24 * time.Hour),
		TargetValue:  target,
		RewardPoints: 50,
	})
}

func TestLogProgressAccumulatesToCompletion(t *testing.T) {
	users, challenges, svc := newProgressFixture(t)
	owner := users.addUser("alice", 100)
	challengeID := addPersonalChallenge(challenges, owner, 10)

	ctx := context.Background()

	resp, err := svc.LogProgress(ctx, challengeID, owner, dto.LogProgressInput{Value: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, resp.Challenge.CurrentValue)
	assert.False(t, resp.Challenge.IsCompleted)

	resp, err = svc.LogProgress(ctx, challengeID, owner, dto.LogProgressInput{Value: 4})
	require.NoError(t, err)
	assert.Equal(t, 8, resp.Challenge.CurrentValue)
	assert.False(t, resp.Challenge.IsCompleted)
	assert.Equal(t, 100, users.points(owner), "no reward before the target is reached")

	resp, err = svc.LogProgress(ctx, challengeID, owner, dto.LogProgressInput{Value: 3})
	require.NoError(t, err)
	assert.Equal(t, 11, resp.Challenge.CurrentValue, "accrual may overshoot the target")
	assert.True(t, resp.Challenge.IsCompleted)
	assert.Equal(t, 150, users.points(owner), "completion pays the reward once")

	rewards := challenges.pointLogsByAction(model.ActionChallengeReward)
	assert.Len(t, rewards, 1)
	assert.Equal(t, 50, rewards[0].Points)
}

func TestLogProgressRejectsNegativeValue(t *testing.T) {
	users, challenges, svc := newProgressFixture(t)
	owner := users.addUser("alice", 100)
	challengeID := addPersonalChallenge(challenges, owner, 10)

	_, err := svc.LogProgress(context.Background(), challengeID, owner, dto.LogProgressInput{Value: -1})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestLogProgressUnknownChallenge(t *testing.T) {
	users, _, svc := newProgressFixture(t)
	owner := users.addUser("alice", 100)

	_, err := svc.LogProgress(context.Background(), uuid.New(), owner, dto.LogProgressInput{Value: 1})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestLogProgressOnlyOwner(t *testing.T) {
	users, challenges, svc := newProgressFixture(t)
	owner := users.addUser("alice", 100)
	stranger := users.addUser("bob", 100)
	challengeID := addPersonalChallenge(challenges, owner, 10)

	_, err := svc.LogProgress(context.Background(), challengeID, stranger, dto.LogProgressInput{Value: 1})
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestLogProgressAfterCompletion(t *testing.T) {
	users, challenges, svc := newProgressFixture(t)
	owner := users.addUser("alice", 100)
	challengeID := addPersonalChallenge(challenges, owner, 2)

	ctx := context.Background()
	_, err := svc.LogProgress(ctx, challengeID, owner, dto.LogProgressInput{Value: 2})
	require.NoError(t, err)

	_, err = svc.LogProgress(ctx, challengeID, owner, dto.LogProgressInput{Value: 1})
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
	assert.Equal(t, 150, users.points(owner), "completed challenges never pay twice")
}

func TestLogProgressZeroValueStillAppends(t *testing.T) {
	users, challenges, svc := newProgressFixture(t)
	owner := users.addUser("alice", 100)
	challengeID := addPersonalChallenge(challenges, owner, 10)

	resp, err := svc.LogProgress(context.Background(), challengeID, owner, dto.LogProgressInput{Value: 0, Notes: "rest day"})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Challenge.CurrentValue)
	assert.Equal(t, "rest day", resp.ProgressLog.Notes)
}

func TestGetHistory(t *testing.T) {
	users, challenges, svc := newProgressFixture(t)
	owner := users.addUser("alice", 100)
	challengeID := addPersonalChallenge(challenges, owner, 10)

	ctx := context.Background()
	for _, v := range []int{4, 0, 3} {
		_, err := svc.LogProgress(ctx, challengeID, owner, dto.LogProgressInput{Value: v})
		require.NoError(t, err)
	}

	resp, err := svc.GetHistory(ctx, challengeID, owner)
	require.NoError(t, err)

	assert.Len(t, resp.History, 3)
	assert.Equal(t, 7, resp.Challenge.CurrentValue)
	assert.Equal(t, 3, resp.Stats.CompletedDays)
	assert.Equal(t, 67, resp.Stats.SuccessRate, "2 of 3 entries made progress")
	assert.Equal(t, 70, resp.Stats.CompletionRate)
	assert.Greater(t, resp.Stats.RemainingDays, 0)
}

func TestGetHistoryOnlyOwner(t *testing.T) {
	users, challenges, svc := newProgressFixture(t)
	owner := users.addUser("alice", 100)
	stranger := users.addUser("bob", 100)
	challengeID := addPersonalChallenge(challenges, owner, 10)

	_, err := svc.GetHistory(context.Background(), challengeID, stranger)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}
