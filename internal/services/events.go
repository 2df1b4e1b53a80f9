package services

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/stakevault/nft-staking-service/internal/db"
	"github.com/stakevault/nft-staking-service/internal/types"
	"github.com/stakevault/nft-staking-service/internal/utils"
)

// GetEvents pages through the archived journal in sequence order, optionally
// filtered by staker address and event types, so consumers can resume from
// wherever their last page ended.
func (s *Services) GetEvents(
	ctx context.Context, stakerAddress string, eventTypes []string, paginationToken string,
) ([]types.Event, string, *types.Error) {
	staker := ""
	if stakerAddress != "" {
		normalized, err := utils.NormalizeAddress(stakerAddress)
		if err != nil {
			return nil, "", types.NewError(http.StatusBadRequest, types.ValidationError, err)
		}
		staker = normalized
	}
	for _, eventType := range eventTypes {
		if _, err := types.EventTypeFromString(eventType); err != nil {
			return nil, "", types.NewError(http.StatusBadRequest, types.ValidationError, err)
		}
	}

	resultMap, err := s.DbClient.FindEvents(ctx, staker, eventTypes, paginationToken)
	if err != nil {
		if db.IsInvalidPaginationTokenError(err) {
			log.Ctx(ctx).Warn().Err(err).Msg("invalid pagination token while fetching events")
			return nil, "", types.NewError(http.StatusBadRequest, types.BadRequest, err)
		}
		log.Ctx(ctx).Error().Err(err).Msg("error while fetching events")
		return nil, "", types.NewInternalServiceError(err)
	}

	eventsPage := make([]types.Event, 0, len(resultMap.Data))
	for _, doc := range resultMap.Data {
		event, err := doc.ToEvent()
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Uint64("seq", doc.Seq).Msg("archived event is corrupt")
			return nil, "", types.NewInternalServiceError(err)
		}
		eventsPage = append(eventsPage, event)
	}
	return eventsPage, resultMap.PaginationToken, nil
}
