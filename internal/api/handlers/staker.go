package handlers

import (
	"net/http"

	"github.com/stakevault/nft-staking-service/internal/types"
)

// GetPendingReward returns the staker's accrued-but-unclaimed reward at the
// time of the call. Reads do not settle anything.
func (h *Handler) GetPendingReward(request *http.Request) (*Result, *types.Error) {
	stakerAddress, err := parseAddressQuery(request, "staker_address")
	if err != nil {
		return nil, err
	}

	pending, svcErr := h.services.GetPendingReward(request.Context(), stakerAddress)
	if svcErr != nil {
		return nil, svcErr
	}

	return NewResult(pending), nil
}

// GetStakerTokens lists the staker's currently staked tokens, paginated by
// token id.
func (h *Handler) GetStakerTokens(request *http.Request) (*Result, *types.Error) {
	stakerAddress, err := parseAddressQuery(request, "staker_address")
	if err != nil {
		return nil, err
	}
	paginationKey, err := parsePaginationQuery(request)
	if err != nil {
		return nil, err
	}

	records, nextPaginationKey, svcErr := h.services.GetStakerTokens(
		request.Context(), stakerAddress, paginationKey,
	)
	if svcErr != nil {
		return nil, svcErr
	}

	return NewResultWithPagination(records, nextPaginationKey), nil
}
