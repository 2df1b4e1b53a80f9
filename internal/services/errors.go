package services

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/stakevault/nft-staking-service/internal/ledger"
	"github.com/stakevault/nft-staking-service/internal/types"
)

// fromLedgerError translates the ledger's sentinel errors into transport
// errors. Anything unrecognized is a collaborator or internal failure and
// maps to a 500 so callers never see raw internals.
func fromLedgerError(ctx context.Context, err error) *types.Error {
	switch {
	case errors.Is(err, ledger.ErrEmptyBatch),
		errors.Is(err, ledger.ErrBatchTooLarge),
		errors.Is(err, ledger.ErrInvalidRate),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrNothingStaked):
		return types.NewError(http.StatusBadRequest, types.ValidationError, err)
	case errors.Is(err, ledger.ErrNotOwner),
		errors.Is(err, ledger.ErrNotApproved):
		return types.NewError(http.StatusForbidden, types.Forbidden, err)
	case errors.Is(err, ledger.ErrAlreadyStaked):
		return types.NewError(http.StatusConflict, types.AlreadyStaked, err)
	case errors.Is(err, ledger.ErrNotStaked):
		return types.NewError(http.StatusConflict, types.NotStaked, err)
	case errors.Is(err, ledger.ErrInsufficientRewardFunds):
		return types.NewError(http.StatusConflict, types.InsufficientRewardFunds, err)
	case errors.Is(err, ledger.ErrPaused):
		return types.NewError(http.StatusServiceUnavailable, types.StakingPaused, err)
	default:
		log.Ctx(ctx).Error().Err(err).Msg("ledger operation failed")
		return types.NewInternalServiceError(err)
	}
}
