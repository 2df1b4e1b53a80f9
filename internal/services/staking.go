package services

import (
	"context"
	"net/http"

	"github.com/stakevault/nft-staking-service/internal/observability/metrics"
	"github.com/stakevault/nft-staking-service/internal/types"
	"github.com/stakevault/nft-staking-service/internal/utils"
)

const (
	stakeOperation   = "stake"
	unstakeOperation = "unstake"
	claimOperation   = "claim_rewards"
)

type ClaimedRewardPublic struct {
	StakerAddress string `json:"staker_address"`
	Amount        string `json:"amount"`
}

// StakeTokens custodies the batch into the vault and starts accrual on it.
func (s *Services) StakeTokens(ctx context.Context, stakerAddress string, tokenIDs []uint64) *types.Error {
	staker, err := utils.NormalizeAddress(stakerAddress)
	if err != nil {
		return types.NewError(http.StatusBadRequest, types.ValidationError, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	opErr := s.ledger.Stake(ctx, staker, tokenIDs)
	result := s.commit(ctx, staker, nil, opErr)
	recordOperationOutcome(stakeOperation, result)
	return result
}

// UnstakeTokens settles the staker's pending reward and returns the batch
// from the vault. The whole requested batch is handed to the delete set; the
// upserts in the same transaction restore any id the ledger kept.
func (s *Services) UnstakeTokens(ctx context.Context, stakerAddress string, tokenIDs []uint64) *types.Error {
	staker, err := utils.NormalizeAddress(stakerAddress)
	if err != nil {
		return types.NewError(http.StatusBadRequest, types.ValidationError, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	opErr := s.ledger.Unstake(ctx, staker, tokenIDs)
	result := s.commit(ctx, staker, tokenIDs, opErr)
	recordOperationOutcome(unstakeOperation, result)
	return result
}

// ClaimRewards pays out the staker's pending reward. A second claim at the
// same instant succeeds with amount zero.
func (s *Services) ClaimRewards(ctx context.Context, stakerAddress string) (*ClaimedRewardPublic, *types.Error) {
	staker, err := utils.NormalizeAddress(stakerAddress)
	if err != nil {
		return nil, types.NewError(http.StatusBadRequest, types.ValidationError, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	amount, opErr := s.ledger.ClaimRewards(ctx, staker)
	result := s.commit(ctx, staker, nil, opErr)
	recordOperationOutcome(claimOperation, result)
	if result != nil {
		return nil, result
	}
	return &ClaimedRewardPublic{
		StakerAddress: staker,
		Amount:        amount.String(),
	}, nil
}

func recordOperationOutcome(operation string, result *types.Error) {
	if result != nil {
		metrics.RecordStakingOperation(operation, metrics.Error)
		return
	}
	metrics.RecordStakingOperation(operation, metrics.Success)
}
