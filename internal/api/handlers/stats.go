package handlers

import (
	"net/http"

	"github.com/stakevault/nft-staking-service/internal/types"
)

// GetStats returns the ledger-wide counters: total staked tokens, the current
// reward rate, the reward pool balance and the pause flag.
func (h *Handler) GetStats(request *http.Request) (*Result, *types.Error) {
	stats, err := h.services.GetStats(request.Context())
	if err != nil {
		return nil, err
	}

	return NewResult(stats), nil
}
