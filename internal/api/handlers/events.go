package handlers

import (
	"net/http"

	"github.com/stakevault/nft-staking-service/internal/types"
)

// GetEvents queries the archived event journal in sequence order. Both the
// staker_address and event_type filters are optional; event_type may be
// repeated to match several types.
func (h *Handler) GetEvents(request *http.Request) (*Result, *types.Error) {
	query := request.URL.Query()
	stakerAddress := query.Get("staker_address")
	eventTypes := query["event_type"]

	paginationKey, err := parsePaginationQuery(request)
	if err != nil {
		return nil, err
	}

	journal, nextPaginationKey, svcErr := h.services.GetEvents(
		request.Context(), stakerAddress, eventTypes, paginationKey,
	)
	if svcErr != nil {
		return nil, svcErr
	}

	return NewResultWithPagination(journal, nextPaginationKey), nil
}
