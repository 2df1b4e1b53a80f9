package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/stakevault/nft-staking-service/internal/types"
)

type StakeTokensRequestPayload struct {
	StakerAddress string   `json:"staker_address"`
	TokenIDs      []uint64 `json:"token_ids"`
}

type ClaimRewardsRequestPayload struct {
	StakerAddress string `json:"staker_address"`
}

func parseStakeTokensRequestPayload(request *http.Request) (*StakeTokensRequestPayload, *types.Error) {
	payload := &StakeTokensRequestPayload{}
	if err := json.NewDecoder(request.Body).Decode(payload); err != nil {
		return nil, types.NewErrorWithMsg(http.StatusBadRequest, types.BadRequest, "invalid request payload")
	}
	if payload.StakerAddress == "" {
		return nil, types.NewErrorWithMsg(
			http.StatusBadRequest, types.BadRequest, "staker_address is required",
		)
	}
	if len(payload.TokenIDs) == 0 {
		return nil, types.NewErrorWithMsg(
			http.StatusBadRequest, types.BadRequest, "token_ids cannot be empty",
		)
	}
	return payload, nil
}

// StakeTokens moves the given tokens into the vault and starts reward accrual
// for them. The whole batch succeeds or none of it does.
func (h *Handler) StakeTokens(request *http.Request) (*Result, *types.Error) {
	payload, err := parseStakeTokensRequestPayload(request)
	if err != nil {
		return nil, err
	}

	stakeErr := h.services.StakeTokens(request.Context(), payload.StakerAddress, payload.TokenIDs)
	if stakeErr != nil {
		return nil, stakeErr
	}

	return &Result{Status: http.StatusOK}, nil
}

// UnstakeTokens settles the staker's accrued rewards and returns the given
// tokens from the vault.
func (h *Handler) UnstakeTokens(request *http.Request) (*Result, *types.Error) {
	payload, err := parseStakeTokensRequestPayload(request)
	if err != nil {
		return nil, err
	}

	unstakeErr := h.services.UnstakeTokens(request.Context(), payload.StakerAddress, payload.TokenIDs)
	if unstakeErr != nil {
		return nil, unstakeErr
	}

	return &Result{Status: http.StatusOK}, nil
}

// ClaimRewards pays out the staker's accrued rewards and returns the paid
// amount as a decimal string.
func (h *Handler) ClaimRewards(request *http.Request) (*Result, *types.Error) {
	payload := &ClaimRewardsRequestPayload{}
	if err := json.NewDecoder(request.Body).Decode(payload); err != nil {
		return nil, types.NewErrorWithMsg(http.StatusBadRequest, types.BadRequest, "invalid request payload")
	}
	if payload.StakerAddress == "" {
		return nil, types.NewErrorWithMsg(
			http.StatusBadRequest, types.BadRequest, "staker_address is required",
		)
	}

	claimed, claimErr := h.services.ClaimRewards(request.Context(), payload.StakerAddress)
	if claimErr != nil {
		return nil, claimErr
	}

	return NewResult(claimed), nil
}
