package scripts

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/stakevault/nft-staking-service/internal/db"
	"github.com/stakevault/nft-staking-service/internal/db/model"
	"github.com/stakevault/nft-staking-service/internal/queue"
)

// ReplayEvents republishes archived ledger events to the event queue in
// sequence order, starting at fromSeq. The live feed is allowed to drop
// events under pressure; this script is how queue consumers that noticed a
// gap get the missing range resent.
func ReplayEvents(ctx context.Context, queues *queue.Queues, dbClient db.DBClient, fromSeq uint64) error {
	paginationToken := ""
	if fromSeq > 1 {
		token, err := model.BuildEventBySeqPaginationToken(model.EventDocument{Seq: fromSeq - 1})
		if err != nil {
			return errors.Wrap(err, "build replay pagination token")
		}
		paginationToken = token
	}

	replayed := 0
	for {
		page, err := dbClient.FindEvents(ctx, "", nil, paginationToken)
		if err != nil {
			return errors.Wrap(err, "fetch archived events")
		}
		for i := range page.Data {
			event, err := page.Data[i].ToEvent()
			if err != nil {
				return errors.Wrapf(err, "archived event %d is corrupt", page.Data[i].Seq)
			}
			if err := queues.PublishEvent(ctx, event); err != nil {
				return errors.Wrapf(err, "republish event %d", event.Seq)
			}
			replayed++
		}
		if page.PaginationToken == "" {
			break
		}
		paginationToken = page.PaginationToken
	}

	log.Info().Int("replayed", replayed).Uint64("fromSeq", fromSeq).
		Msg("archived events republished to the event queue")
	return nil
}
