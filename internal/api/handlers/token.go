package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/stakevault/nft-staking-service/internal/types"
)

// GetTokenStakeInfo returns the stake record of a single token, or 404 if the
// token is not currently staked.
func (h *Handler) GetTokenStakeInfo(request *http.Request) (*Result, *types.Error) {
	tokenID, err := strconv.ParseUint(chi.URLParam(request, "tokenId"), 10, 64)
	if err != nil {
		return nil, types.NewErrorWithMsg(
			http.StatusBadRequest, types.BadRequest, "invalid token id",
		)
	}

	info, svcErr := h.services.GetTokenStakeInfo(request.Context(), tokenID)
	if svcErr != nil {
		return nil, svcErr
	}

	return NewResult(info), nil
}
