package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"habitstake.app/backend/internal/model"
	"habitstake.app/backend/internal/repository"
	"habitstake.app/backend/pkg/apperror"
)

// In-memory doubles for the repository interfaces. They reproduce the
// behavior the SQL layer guarantees (conditional debits, at-most-once
// settlement, unique participants) so the services can be exercised without
// a database.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (f *fakeUserRepo) addUser(username string, points int) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.users[id] = &model.User{
		ID:       id,
		Username: username,
		Email:    username + "@example.com",
		Points:   points,
	}
	return id
}

func (f *fakeUserRepo) points(id uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return u.Points
	}
	return 0
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var users []model.User
	for _, id := range ids {
		if user, ok := f.users[id]; ok {
			users = append(users, *user)
		}
	}
	return users, nil
}

func (f *fakeUserRepo) UpdateAvatar(ctx context.Context, id uuid.UUID, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user, ok := f.users[id]; ok {
		user.AvatarURL = &url
	}
	return nil
}

// debit mirrors the conditional UPDATE: funds check and subtraction are one
// step under the lock.
func (f *fakeUserRepo) debit(id uuid.UUID, amount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok || user.Points < amount {
		return apperror.ErrInsufficientPoints
	}
	user.Points -= amount
	return nil
}

func (f *fakeUserRepo) credit(id uuid.UUID, amount int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user, ok := f.users[id]; ok {
		user.Points += amount
	}
}

type fakeChallengeRepo struct {
	mu         sync.Mutex
	users      *fakeUserRepo
	challenges map[uuid.UUID]*model.Challenge
	logs       []model.ProgressLog
	pointLogs  []model.PointLog
}

func newFakeChallengeRepo(users *fakeUserRepo) *fakeChallengeRepo {
	return &fakeChallengeRepo{
		users:      users,
		challenges: make(map[uuid.UUID]*model.Challenge),
	}
}

func (f *fakeChallengeRepo) addChallenge(c *model.Challenge) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.StartDate.IsZero() {
		c.StartDate = time.Now()
	}
	f.challenges[c.ID] = c
	return c.ID
}

func (f *fakeChallengeRepo) pointLogsByAction(action string) []model.PointLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.PointLog
	for _, pl := range f.pointLogs {
		if pl.ActionType == action {
			out = append(out, pl)
		}
	}
	return out
}

func copyChallenge(c *model.Challenge) *model.Challenge {
	copied := *c
	copied.Participants = append([]model.ChallengeParticipant(nil), c.Participants...)
	copied.Winners = append([]model.ChallengeWinner(nil), c.Winners...)
	return &copied
}

func (f *fakeChallengeRepo) Create(ctx context.Context, challenge *model.Challenge, reminder *model.Reminder) error {
	f.addChallenge(challenge)
	return nil
}

func (f *fakeChallengeRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	challenge, ok := f.challenges[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := copyChallenge(challenge)
	if owner, ok := f.users.users[challenge.UserID]; ok {
		out.User = *owner
	}
	for i := range out.Participants {
		if u, ok := f.users.users[out.Participants[i].UserID]; ok {
			out.Participants[i].User = *u
		}
	}
	return out, nil
}

func (f *fakeChallengeRepo) FindByOwner(ctx context.Context, userID uuid.UUID) ([]model.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Challenge
	for _, c := range f.challenges {
		if c.UserID == userID {
			out = append(out, *copyChallenge(c))
		}
	}
	return out, nil
}

func (f *fakeChallengeRepo) FindRecentCompleted(ctx context.Context, userID uuid.UUID, since time.Time) ([]model.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Challenge
	for _, c := range f.challenges {
		if c.UserID == userID && c.IsCompleted && c.CompletedAt != nil && !c.CompletedAt.Before(since) {
			out = append(out, *copyChallenge(c))
		}
	}
	return out, nil
}

func (f *fakeChallengeRepo) CountCompletedByType(ctx context.Context, userID uuid.UUID) (map[model.ChallengeType]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[model.ChallengeType]int64)
	for _, c := range f.challenges {
		if c.UserID == userID && c.IsCompleted {
			counts[c.Type]++
		}
	}
	return counts, nil
}

func (f *fakeChallengeRepo) ApplyProgress(ctx context.Context, challengeID uuid.UUID, log *model.ProgressLog) (*repository.ProgressResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	challenge, ok := f.challenges[challengeID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}

	log.ID = uuid.New()
	log.ChallengeID = challengeID
	log.CreatedAt = time.Now()
	f.logs = append(f.logs, *log)

	challenge.CurrentValue += log.Value

	res := &repository.ProgressResult{Log: log}
	if !challenge.IsCompleted && challenge.CurrentValue >= challenge.TargetValue {
		now := time.Now()
		challenge.IsCompleted = true
		challenge.CompletedAt = &now
		res.CompletedNow = true

		f.users.credit(challenge.UserID, challenge.RewardPoints)
		f.pointLogs = append(f.pointLogs, model.PointLog{
			UserID:      challenge.UserID,
			ActionType:  model.ActionChallengeReward,
			Points:      challenge.RewardPoints,
			ReferenceID: challengeID.String(),
		})
	}

	res.Challenge = copyChallenge(challenge)
	return res, nil
}

func (f *fakeChallengeRepo) CreateSocial(ctx context.Context, challenge *model.Challenge) error {
	if err := f.users.debit(challenge.UserID, challenge.StakePoints); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if challenge.ID == uuid.Nil {
		challenge.ID = uuid.New()
	}
	challenge.Participants = []model.ChallengeParticipant{
		{ChallengeID: challenge.ID, UserID: challenge.UserID},
	}
	f.challenges[challenge.ID] = challenge
	f.pointLogs = append(f.pointLogs, model.PointLog{
		UserID:      challenge.UserID,
		ActionType:  model.ActionStakeEscrow,
		Points:      -challenge.StakePoints,
		ReferenceID: challenge.ID.String(),
	})
	return nil
}

func (f *fakeChallengeRepo) Join(ctx context.Context, challengeID, userID uuid.UUID, stakePoints int) error {
	f.mu.Lock()
	challenge, ok := f.challenges[challengeID]
	if !ok {
		f.mu.Unlock()
		return gorm.ErrRecordNotFound
	}
	for _, p := range challenge.Participants {
		if p.UserID == userID {
			f.mu.Unlock()
			return apperror.ErrAlreadyJoined
		}
	}
	f.mu.Unlock()

	if err := f.users.debit(userID, stakePoints); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	challenge.Participants = append(challenge.Participants, model.ChallengeParticipant{
		ChallengeID: challengeID,
		UserID:      userID,
	})
	f.pointLogs = append(f.pointLogs, model.PointLog{
		UserID:      userID,
		ActionType:  model.ActionStakeEscrow,
		Points:      -stakePoints,
		ReferenceID: challengeID.String(),
	})
	return nil
}

func (f *fakeChallengeRepo) Settle(ctx context.Context, challengeID uuid.UUID, winners []uuid.UUID, rewardPerWinner int, settledAt time.Time) error {
	f.mu.Lock()
	challenge, ok := f.challenges[challengeID]
	if !ok {
		f.mu.Unlock()
		return gorm.ErrRecordNotFound
	}
	if challenge.IsSettled {
		f.mu.Unlock()
		return apperror.ErrAlreadySettled
	}
	challenge.IsSettled = true
	challenge.SettledAt = &settledAt
	f.mu.Unlock()

	for _, winnerID := range winners {
		f.users.credit(winnerID, rewardPerWinner)

		f.mu.Lock()
		challenge.Winners = append(challenge.Winners, model.ChallengeWinner{
			ChallengeID:  challengeID,
			UserID:       winnerID,
			RewardPoints: rewardPerWinner,
		})
		f.pointLogs = append(f.pointLogs, model.PointLog{
			UserID:      winnerID,
			ActionType:  model.ActionSocialPayout,
			Points:      rewardPerWinner,
			ReferenceID: challengeID.String(),
		})
		f.mu.Unlock()
	}
	return nil
}

func (f *fakeChallengeRepo) FindActiveSocial(ctx context.Context, now time.Time) ([]model.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Challenge
	for _, c := range f.challenges {
		if c.IsSocial && c.EndDate.After(now) && !c.IsSettled {
			out = append(out, *copyChallenge(c))
		}
	}
	return out, nil
}

func (f *fakeChallengeRepo) FindSocialByParticipant(ctx context.Context, userID uuid.UUID) ([]model.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Challenge
	for _, c := range f.challenges {
		if !c.IsSocial {
			continue
		}
		for _, p := range c.Participants {
			if p.UserID == userID {
				out = append(out, *copyChallenge(c))
				break
			}
		}
	}
	return out, nil
}

type fakeProgressRepo struct {
	challenges *fakeChallengeRepo
}

func (f *fakeProgressRepo) FindByChallengeID(ctx context.Context, challengeID uuid.UUID) ([]model.ProgressLog, error) {
	f.challenges.mu.Lock()
	defer f.challenges.mu.Unlock()
	var out []model.ProgressLog
	for i := len(f.challenges.logs) - 1; i >= 0; i-- {
		if f.challenges.logs[i].ChallengeID == challengeID {
			out = append(out, f.challenges.logs[i])
		}
	}
	return out, nil
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)
var _ repository.ChallengeRepository = (*fakeChallengeRepo)(nil)
var _ repository.ProgressLogRepository = (*fakeProgressRepo)(nil)
