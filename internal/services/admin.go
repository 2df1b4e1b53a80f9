package services

import (
	"context"
	"math/big"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/stakevault/nft-staking-service/internal/db/model"
	"github.com/stakevault/nft-staking-service/internal/observability/metrics"
	"github.com/stakevault/nft-staking-service/internal/types"
	"github.com/stakevault/nft-staking-service/internal/utils"
)

const (
	setRewardRateOperation = "set_reward_rate"
	pauseOperation         = "pause"
	unpauseOperation       = "unpause"
	withdrawOperation      = "withdraw_funds"
)

type WithdrawalPublic struct {
	OwnerAddress string `json:"owner_address"`
	Amount       string `json:"amount"`
}

// requireOwner enforces the owner gate for administrative operations. The
// core itself takes no caller identity; access control is a boundary concern.
func (s *Services) requireOwner(callerAddress string) *types.Error {
	caller, err := utils.NormalizeAddress(callerAddress)
	if err != nil {
		return types.NewError(http.StatusBadRequest, types.ValidationError, err)
	}
	if caller != s.ledger.OwnerAddress() {
		return types.NewErrorWithMsg(
			http.StatusForbidden, types.Forbidden, "caller is not the ledger owner",
		)
	}
	return nil
}

// SetRewardRate swaps the global accrual rate. The new rate reprices every
// open accrual window, so it applies to elapsed staking time that has not
// been settled yet.
func (s *Services) SetRewardRate(ctx context.Context, callerAddress string, newRate *big.Int) *types.Error {
	if gateErr := s.requireOwner(callerAddress); gateErr != nil {
		return gateErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ledger.SetRewardRate(newRate); err != nil {
		metrics.RecordStakingOperation(setRewardRateOperation, metrics.Error)
		return fromLedgerError(ctx, err)
	}

	emitted := s.recorder.take()
	eventDocs := make([]*model.EventDocument, 0, len(emitted))
	for _, event := range emitted {
		eventDocs = append(eventDocs, model.FromEvent(event))
	}
	if err := s.DbClient.UpdateLedgerRewardRate(ctx, s.ledger.RewardRate().String(), eventDocs); err != nil {
		log.Ctx(ctx).Error().Err(err).
			Msg("failed to persist reward rate, in-memory ledger and database have diverged until restart")
		metrics.RecordStakingOperation(setRewardRateOperation, metrics.Error)
		return types.NewInternalServiceError(err)
	}

	if s.pipeline != nil {
		s.pipeline.Publish(emitted...)
	}
	metrics.RecordStakingOperation(setRewardRateOperation, metrics.Success)
	log.Ctx(ctx).Info().Str("newRate", newRate.String()).Msg("reward rate updated")
	return nil
}

// PauseStaking blocks new stake operations. Unstaking and claiming stay
// available so a pause never traps user tokens or rewards.
func (s *Services) PauseStaking(ctx context.Context, callerAddress string) *types.Error {
	return s.setPaused(ctx, callerAddress, true, pauseOperation)
}

func (s *Services) UnpauseStaking(ctx context.Context, callerAddress string) *types.Error {
	return s.setPaused(ctx, callerAddress, false, unpauseOperation)
}

func (s *Services) setPaused(
	ctx context.Context, callerAddress string, paused bool, operation string,
) *types.Error {
	if gateErr := s.requireOwner(callerAddress); gateErr != nil {
		return gateErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if paused {
		err = s.ledger.Pause()
	} else {
		err = s.ledger.Unpause()
	}
	if err != nil {
		metrics.RecordStakingOperation(operation, metrics.Error)
		return fromLedgerError(ctx, err)
	}

	if err := s.DbClient.UpdateLedgerPaused(ctx, paused); err != nil {
		log.Ctx(ctx).Error().Err(err).
			Msg("failed to persist pause flag, in-memory ledger and database have diverged until restart")
		metrics.RecordStakingOperation(operation, metrics.Error)
		return types.NewInternalServiceError(err)
	}
	metrics.RecordStakingOperation(operation, metrics.Success)
	log.Ctx(ctx).Info().Bool("paused", paused).Msg("staking pause flag updated")
	return nil
}

// WithdrawRewardFunds moves reward pool funds to the owner address. Nothing
// is reserved against accrued, unclaimed rewards; a withdrawal can starve
// later claims until the pool is topped up.
func (s *Services) WithdrawRewardFunds(
	ctx context.Context, callerAddress string, amount *big.Int,
) (*WithdrawalPublic, *types.Error) {
	if gateErr := s.requireOwner(callerAddress); gateErr != nil {
		return nil, gateErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ledger.WithdrawRewardFunds(ctx, amount); err != nil {
		metrics.RecordStakingOperation(withdrawOperation, metrics.Error)
		return nil, fromLedgerError(ctx, err)
	}
	metrics.RecordStakingOperation(withdrawOperation, metrics.Success)
	log.Ctx(ctx).Info().Str("amount", amount.String()).Msg("reward funds withdrawn")
	return &WithdrawalPublic{
		OwnerAddress: s.ledger.OwnerAddress(),
		Amount:       amount.String(),
	}, nil
}
