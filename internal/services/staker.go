package services

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/stakevault/nft-staking-service/internal/db"
	"github.com/stakevault/nft-staking-service/internal/db/model"
	"github.com/stakevault/nft-staking-service/internal/types"
	"github.com/stakevault/nft-staking-service/internal/utils"
)

type StakeRecordPublic struct {
	TokenID               uint64 `json:"token_id"`
	StakerAddress         string `json:"staker_address"`
	StakedAt              int64  `json:"staked_at"`
	LastAccrualCheckpoint int64  `json:"last_accrual_checkpoint"`
}

type PendingRewardPublic struct {
	StakerAddress string `json:"staker_address"`
	PendingReward string `json:"pending_reward"`
}

// GetPendingReward computes the staker's accrued, unclaimed reward as of now.
// Pure read, nothing is settled.
func (s *Services) GetPendingReward(ctx context.Context, stakerAddress string) (*PendingRewardPublic, *types.Error) {
	staker, err := utils.NormalizeAddress(stakerAddress)
	if err != nil {
		return nil, types.NewError(http.StatusBadRequest, types.ValidationError, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	pending, err := s.ledger.PendingReward(staker)
	if err != nil {
		return nil, fromLedgerError(ctx, err)
	}
	return &PendingRewardPublic{
		StakerAddress: staker,
		PendingReward: pending.String(),
	}, nil
}

// GetStakerTokens returns the staker's stake records page by page, in
// ascending token id order.
func (s *Services) GetStakerTokens(
	ctx context.Context, stakerAddress string, paginationToken string,
) ([]StakeRecordPublic, string, *types.Error) {
	staker, err := utils.NormalizeAddress(stakerAddress)
	if err != nil {
		return nil, "", types.NewError(http.StatusBadRequest, types.ValidationError, err)
	}

	resultMap, err := s.DbClient.FindStakeRecordsByStaker(ctx, staker, paginationToken)
	if err != nil {
		if db.IsInvalidPaginationTokenError(err) {
			log.Ctx(ctx).Warn().Err(err).Msg("invalid pagination token while fetching staker tokens")
			return nil, "", types.NewError(http.StatusBadRequest, types.BadRequest, err)
		}
		log.Ctx(ctx).Error().Err(err).Msg("error while fetching staker tokens")
		return nil, "", types.NewInternalServiceError(err)
	}

	records := make([]StakeRecordPublic, 0, len(resultMap.Data))
	for _, doc := range resultMap.Data {
		records = append(records, fromStakeRecordDocument(doc))
	}
	return records, resultMap.PaginationToken, nil
}

// GetTokenStakeInfo returns the stake record of a single token, or a 404 if
// the token is not currently staked.
func (s *Services) GetTokenStakeInfo(ctx context.Context, tokenID uint64) (*StakeRecordPublic, *types.Error) {
	record, err := s.DbClient.FindStakeRecordByTokenID(ctx, tokenID)
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, types.NewErrorWithMsg(http.StatusNotFound, types.NotFound, "token is not staked")
		}
		log.Ctx(ctx).Error().Err(err).Uint64("tokenID", tokenID).Msg("error while fetching token stake info")
		return nil, types.NewInternalServiceError(err)
	}
	public := fromStakeRecordDocument(*record)
	return &public, nil
}

func fromStakeRecordDocument(doc model.StakeRecordDocument) StakeRecordPublic {
	return StakeRecordPublic{
		TokenID:               doc.TokenID,
		StakerAddress:         doc.OwnerAddress,
		StakedAt:              doc.StakedAt,
		LastAccrualCheckpoint: doc.LastAccrualCheckpoint,
	}
}
