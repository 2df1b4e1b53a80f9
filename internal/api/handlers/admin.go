package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/stakevault/nft-staking-service/internal/types"
	"github.com/stakevault/nft-staking-service/internal/utils"
)

// Admin payloads carry the caller address so the service can check it against
// the configured ledger owner. The API key middleware in front of these
// endpoints is a separate, coarser gate.

type SetRewardRateRequestPayload struct {
	CallerAddress string `json:"caller_address"`
	NewRate       string `json:"new_rate"`
}

type AdminActionRequestPayload struct {
	CallerAddress string `json:"caller_address"`
}

type WithdrawFundsRequestPayload struct {
	CallerAddress string `json:"caller_address"`
	Amount        string `json:"amount"`
}

func parseAdminActionRequestPayload(request *http.Request) (*AdminActionRequestPayload, *types.Error) {
	payload := &AdminActionRequestPayload{}
	if err := json.NewDecoder(request.Body).Decode(payload); err != nil {
		return nil, types.NewErrorWithMsg(http.StatusBadRequest, types.BadRequest, "invalid request payload")
	}
	if payload.CallerAddress == "" {
		return nil, types.NewErrorWithMsg(
			http.StatusBadRequest, types.BadRequest, "caller_address is required",
		)
	}
	return payload, nil
}

// SetRewardRate updates the global accrual rate. The new rate applies only to
// accrual after the change; time already accrued keeps the old rate.
func (h *Handler) SetRewardRate(request *http.Request) (*Result, *types.Error) {
	payload := &SetRewardRateRequestPayload{}
	if err := json.NewDecoder(request.Body).Decode(payload); err != nil {
		return nil, types.NewErrorWithMsg(http.StatusBadRequest, types.BadRequest, "invalid request payload")
	}
	if payload.CallerAddress == "" {
		return nil, types.NewErrorWithMsg(
			http.StatusBadRequest, types.BadRequest, "caller_address is required",
		)
	}
	newRate, err := utils.ParseBigInt(payload.NewRate)
	if err != nil {
		return nil, types.NewErrorWithMsg(
			http.StatusBadRequest, types.BadRequest, "invalid reward rate",
		)
	}

	svcErr := h.services.SetRewardRate(request.Context(), payload.CallerAddress, newRate)
	if svcErr != nil {
		return nil, svcErr
	}

	return &Result{Status: http.StatusOK}, nil
}

func (h *Handler) PauseStaking(request *http.Request) (*Result, *types.Error) {
	payload, err := parseAdminActionRequestPayload(request)
	if err != nil {
		return nil, err
	}

	svcErr := h.services.PauseStaking(request.Context(), payload.CallerAddress)
	if svcErr != nil {
		return nil, svcErr
	}

	return &Result{Status: http.StatusOK}, nil
}

func (h *Handler) UnpauseStaking(request *http.Request) (*Result, *types.Error) {
	payload, err := parseAdminActionRequestPayload(request)
	if err != nil {
		return nil, err
	}

	svcErr := h.services.UnpauseStaking(request.Context(), payload.CallerAddress)
	if svcErr != nil {
		return nil, svcErr
	}

	return &Result{Status: http.StatusOK}, nil
}

// WithdrawFunds moves part of the reward pool to the ledger owner. Funds
// backing already-accrued rewards are not protected; draining the pool below
// pending obligations makes later claims fail until it is topped up.
func (h *Handler) WithdrawFunds(request *http.Request) (*Result, *types.Error) {
	payload := &WithdrawFundsRequestPayload{}
	if err := json.NewDecoder(request.Body).Decode(payload); err != nil {
		return nil, types.NewErrorWithMsg(http.StatusBadRequest, types.BadRequest, "invalid request payload")
	}
	if payload.CallerAddress == "" {
		return nil, types.NewErrorWithMsg(
			http.StatusBadRequest, types.BadRequest, "caller_address is required",
		)
	}
	amount, err := utils.ParseBigInt(payload.Amount)
	if err != nil {
		return nil, types.NewErrorWithMsg(
			http.StatusBadRequest, types.BadRequest, "invalid amount",
		)
	}

	withdrawal, svcErr := h.services.WithdrawRewardFunds(request.Context(), payload.CallerAddress, amount)
	if svcErr != nil {
		return nil, svcErr
	}

	return NewResult(withdrawal), nil
}
