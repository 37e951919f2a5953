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

func newSocialFixture(t *testing.T) (*fakeUserRepo, *fakeChallengeRepo, SocialService) {
	t.Helper()
	users := newFakeUserRepo()
	challenges := newFakeChallengeRepo(users)
	cfg := &config.Config{
		Points: config.PointsConfig{
			SignupBonus:             100,
			ChallengeReward:         50,
			StakeMinimum:            10,
			SocialChallengeDuration: 7 * 24 * time.Hour,
		},
	}
	svc := NewSocialService(challenges, users, nil, nil, cfg)
	return users, challenges, svc
}

func openSocialChallenge(users *fakeUserRepo, challenges *fakeChallengeRepo, owner uuid.UUID, stake int, endsIn time.Duration) uuid.UUID {
	c := &model.Challenge{
		UserID:      owner,
		Title:       "No sugar week",
		Type:        model.ChallengeTypeCustom,
		TargetValue: 1,
		EndDate:     time.Now().Add(endsIn),
		IsSocial:    true,
		StakePoints: stake,
		Participants: []model.ChallengeParticipant{
			{UserID: owner},
		},
	}
	return challenges.addChallenge(c)
}

func TestCreateSocialChallenge(t *testing.T) {
	users, _, svc := newSocialFixture(t)
	owner := users.addUser("alice", 100)

	resp, err := svc.CreateSocialChallenge(context.Background(), owner, dto.CreateSocialChallengeInput{
		Title:       "No sugar week",
		StakePoints: 20,
	})
	require.NoError(t, err)

	assert.Equal(t, 80, users.points(owner), "stake should be escrowed on creation")
	assert.Equal(t, 20, resp.StakePoints)
	assert.Equal(t, []string{"alice"}, resp.Participants, "creator joins their own challenge")
	assert.Equal(t, 20, resp.TotalPot)
	assert.False(t, resp.IsSettled)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), resp.EndDate, time.Minute,
		"default end date is one week out")
}

func TestCreateSocialChallengeStakeBelowMinimum(t *testing.T) {
	users, _, svc := newSocialFixture(t)
	owner := users.addUser("alice", 100)

	_, err := svc.CreateSocialChallenge(context.Background(), owner, dto.CreateSocialChallengeInput{
		Title:       "Cheap challenge",
		StakePoints: 5,
	})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	assert.Equal(t, 100, users.points(owner), "no points move on a rejected create")
}

func TestCreateSocialChallengeInsufficientPoints(t *testing.T) {
	users, _, svc := newSocialFixture(t)
	owner := users.addUser("poor", 15)

	_, err := svc.CreateSocialChallenge(context.Background(), owner, dto.CreateSocialChallengeInput{
		Title:       "Too rich for me",
		StakePoints: 20,
	})
	assert.ErrorIs(t, err, apperror.ErrInsufficientPoints)
	assert.Equal(t, 15, users.points(owner))
}

func TestJoinSocialChallenge(t *testing.T) {
	users, challenges, svc := newSocialFixture(t)
	owner := users.addUser("alice", 80)
	joiner := users.addUser("bob", 50)
	challengeID := openSocialChallenge(users, challenges, owner, 20, 48*time.Hour)

	resp, err := svc.JoinSocialChallenge(context.Background(), joiner, challengeID)
	require.NoError(t, err)

	assert.Equal(t, 30, users.points(joiner), "joining escrows the stake")
	assert.Len(t, resp.Participants, 2)
	assert.Equal(t, 40, resp.TotalPot)
}

func TestJoinSocialChallengePreconditions(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		users, _, svc := newSocialFixture(t)
		joiner := users.addUser("bob", 50)

		_, err := svc.JoinSocialChallenge(context.Background(), joiner, uuid.New())
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("not social", func(t *testing.T) {
		users, challenges, svc := newSocialFixture(t)
		owner := users.addUser("alice", 100)
		joiner := users.addUser("bob", 50)
		personal := challenges.addChallenge(&model.Challenge{
			UserID:      owner,
			Title:       "Solo run",
			TargetValue: 7,
			EndDate:     time.Now().Add(48 * time.Hour),
		})

		_, err := svc.JoinSocialChallenge(context.Background(), joiner, personal)
		assert.ErrorIs(t, err, apperror.ErrInvalidState)
	})

	t.Run("closed", func(t *testing.T) {
		users, challenges, svc := newSocialFixture(t)
		owner := users.addUser("alice", 80)
		joiner := users.addUser("bob", 50)
		challengeID := openSocialChallenge(users, challenges, owner, 20, -time.Hour)

		_, err := svc.JoinSocialChallenge(context.Background(), joiner, challengeID)
		assert.ErrorIs(t, err, apperror.ErrChallengeClosed)
		assert.Equal(t, 50, users.points(joiner))
	})

	t.Run("already joined", func(t *testing.T) {
		users, challenges, svc := newSocialFixture(t)
		owner := users.addUser("alice", 80)
		joiner := users.addUser("bob", 50)
		challengeID := openSocialChallenge(users, challenges, owner, 20, 48*time.Hour)

		_, err := svc.JoinSocialChallenge(context.Background(), joiner, challengeID)
		require.NoError(t, err)

		_, err = svc.JoinSocialChallenge(context.Background(), joiner, challengeID)
		assert.ErrorIs(t, err, apperror.ErrAlreadyJoined)
		assert.Equal(t, 30, users.points(joiner), "second join must not debit again")
	})

	t.Run("insufficient points", func(t *testing.T) {
		users, challenges, svc := newSocialFixture(t)
		owner := users.addUser("alice", 80)
		joiner := users.addUser("broke", 5)
		challengeID := openSocialChallenge(users, challenges, owner, 20, 48*time.Hour)

		_, err := svc.JoinSocialChallenge(context.Background(), joiner, challengeID)
		assert.ErrorIs(t, err, apperror.ErrInsufficientPoints)
		assert.Equal(t, 5, users.points(joiner))
	})
}

func TestSettleSocialChallenge(t *testing.T) {
	users, challenges, svc := newSocialFixture(t)
	owner := users.addUser("alice", 80)
	bob := users.addUser("bob", 30)
	carol := users.addUser("carol", 30)

	challengeID := openSocialChallenge(users, challenges, owner, 20, 48*time.Hour)
	_, err := svc.JoinSocialChallenge(context.Background(), bob, challengeID)
	require.NoError(t, err)
	_, err = svc.JoinSocialChallenge(context.Background(), carol, challengeID)
	require.NoError(t, err)

	// Move past the end date so settlement is allowed.
	challenges.mu.Lock()
	challenges.challenges[challengeID].EndDate = time.Now().Add(-time.Hour)
	challenges.mu.Unlock()

	result, err := svc.SettleSocialChallenge(context.Background(), owner, challengeID)
	require.NoError(t, err)

	assert.Equal(t, 60, result.TotalPot, "three stakes of 20")
	assert.Equal(t, 20, result.RewardPerWinner)
	assert.Len(t, result.Winners, 3, "every participant wins")

	// Stakes were escrowed at join time, so the payout restores balances.
	assert.Equal(t, 80, users.points(owner))
	assert.Equal(t, 30, users.points(bob))
	assert.Equal(t, 30, users.points(carol))

	payouts := challenges.pointLogsByAction(model.ActionSocialPayout)
	assert.Len(t, payouts, 3)
	for _, payout := range payouts {
		assert.Equal(t, 20, payout.Points)
	}
}

func TestSettleSocialChallengeBeforeEnd(t *testing.T) {
	users, challenges, svc := newSocialFixture(t)
	owner := users.addUser("alice", 80)
	challengeID := openSocialChallenge(users, challenges, owner, 20, 48*time.Hour)

	_, err := svc.SettleSocialChallenge(context.Background(), owner, challengeID)
	assert.ErrorIs(t, err, apperror.ErrNotYetClosed)
}

func TestSettleSocialChallengeNotCreator(t *testing.T) {
	users, challenges, svc := newSocialFixture(t)
	owner := users.addUser("alice", 80)
	other := users.addUser("mallory", 50)
	challengeID := openSocialChallenge(users, challenges, owner, 20, -time.Hour)

	_, err := svc.SettleSocialChallenge(context.Background(), other, challengeID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestSettleSocialChallengeIsIdempotent(t *testing.T) {
	users, challenges, svc := newSocialFixture(t)
	owner := users.addUser("alice", 80)
	bob := users.addUser("bob", 30)

	challengeID := openSocialChallenge(users, challenges, owner, 20, 48*time.Hour)
	_, err := svc.JoinSocialChallenge(context.Background(), bob, challengeID)
	require.NoError(t, err)

	challenges.mu.Lock()
	challenges.challenges[challengeID].EndDate = time.Now().Add(-time.Hour)
	challenges.mu.Unlock()

	_, err = svc.SettleSocialChallenge(context.Background(), owner, challengeID)
	require.NoError(t, err)

	bobAfterFirst := users.points(bob)

	_, err = svc.SettleSocialChallenge(context.Background(), owner, challengeID)
	assert.ErrorIs(t, err, apperror.ErrAlreadySettled)
	assert.Equal(t, bobAfterFirst, users.points(bob), "second settlement must not pay again")

	payouts := challenges.pointLogsByAction(model.ActionSocialPayout)
	assert.Len(t, payouts, 2, "exactly one payout per participant")
}

func TestGetActiveSocialChallenges(t *testing.T) {
	users, challenges, svc := newSocialFixture(t)
	owner := users.addUser("alice", 200)

	openSocialChallenge(users, challenges, owner, 20, 48*time.Hour)
	openSocialChallenge(users, challenges, owner, 20, -time.Hour) // ended
	settledID := openSocialChallenge(users, challenges, owner, 20, 48*time.Hour)
	challenges.mu.Lock()
	challenges.challenges[settledID].IsSettled = true
	challenges.mu.Unlock()

	active, err := svc.GetActiveSocialChallenges(context.Background())
	require.NoError(t, err)
	assert.Len(t, active, 1, "only open, unsettled challenges are listed")
}

func TestCanJoinChallenge(t *testing.T) {
	users, challenges, svc := newSocialFixture(t)
	owner := users.addUser("alice", 80)
	challengeID := openSocialChallenge(users, challenges, owner, 20, 48*time.Hour)

	rich := users.addUser("rich", 100)
	broke := users.addUser("broke", 5)

	assert.True(t, svc.CanJoinChallenge(context.Background(), rich, challengeID))
	assert.False(t, svc.CanJoinChallenge(context.Background(), broke, challengeID), "cannot afford the stake")
	assert.False(t, svc.CanJoinChallenge(context.Background(), owner, challengeID), "already a participant")
	assert.False(t, svc.CanJoinChallenge(context.Background(), rich, uuid.New()), "unknown challenge")

	assert.Equal(t, 100, users.points(rich), "the predicate never moves points")
}
