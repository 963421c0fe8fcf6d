package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/loyalty-ledger/internal/domain/reward"
)

// RewardServiceImpl implements the RewardService interface
type RewardServiceImpl struct {
	rewardRepo  reward.Repository
	programRepo ProgramService
}

// NewRewardService creates a new reward service. Program ownership checks go
// through the program service so the scoping rule lives in one place.
func NewRewardService(rewardRepo reward.Repository, programService ProgramService) RewardService {
	return &RewardServiceImpl{
		rewardRepo:  rewardRepo,
		programRepo: programService,
	}
}

// CreateReward validates and stores a new reward under the merchant's program
func (s *RewardServiceImpl) CreateReward(ctx context.Context, rw *reward.Reward) (*reward.Reward, error) {
	if _, err := s.programRepo.GetProgram(ctx, rw.MerchantID, rw.ProgramID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rw.ID = uuid.New()
	rw.IsAvailable = true
	rw.CreatedAt = now
	rw.UpdatedAt = now

	if err := rw.Validate(); err != nil {
		return nil, err
	}

	if err := s.rewardRepo.Create(ctx, rw); err != nil {
		return nil, err
	}

	return rw, nil
}

// ListRewards retrieves the reward catalog of a merchant's program
func (s *RewardServiceImpl) ListRewards(ctx context.Context, merchantID, programID uuid.UUID) ([]*reward.Reward, error) {
	if _, err := s.programRepo.GetProgram(ctx, merchantID, programID); err != nil {
		return nil, err
	}
	return s.rewardRepo.ListByProgram(ctx, programID)
}

// UpdateReward validates and stores edits to an existing reward
func (s *RewardServiceImpl) UpdateReward(ctx context.Context, rw *reward.Reward) (*reward.Reward, error) {
	existing, err := s.ownedReward(ctx, rw.MerchantID, rw.ID)
	if err != nil {
		return nil, err
	}

	rw.ProgramID = existing.ProgramID
	rw.CreatedAt = existing.CreatedAt
	rw.UpdatedAt = time.Now().UTC()

	if err := rw.Validate(); err != nil {
		return nil, err
	}

	if err := s.rewardRepo.Update(ctx, rw); err != nil {
		return nil, err
	}

	return rw, nil
}

// SetRewardAvailability toggles whether a merchant's reward can be redeemed
func (s *RewardServiceImpl) SetRewardAvailability(ctx context.Context, merchantID, rewardID uuid.UUID, available bool) error {
	if _, err := s.ownedReward(ctx, merchantID, rewardID); err != nil {
		return err
	}
	return s.rewardRepo.SetAvailability(ctx, rewardID, available)
}

// ownedReward fetches a reward and hides other merchants' rewards behind a
// not-found error.
func (s *RewardServiceImpl) ownedReward(ctx context.Context, merchantID, rewardID uuid.UUID) (*reward.Reward, error) {
	rw, err := s.rewardRepo.GetByID(ctx, rewardID)
	if err != nil {
		return nil, err
	}
	if rw.MerchantID != merchantID {
		return nil, reward.ErrRewardNotFound{RewardID: rewardID}
	}
	return rw, nil
}
