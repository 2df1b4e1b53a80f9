package services

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/stakevault/nft-staking-service/internal/clients"
	"github.com/stakevault/nft-staking-service/internal/config"
	"github.com/stakevault/nft-staking-service/internal/db"
	"github.com/stakevault/nft-staking-service/internal/db/model"
	"github.com/stakevault/nft-staking-service/internal/events"
	"github.com/stakevault/nft-staking-service/internal/ledger"
	"github.com/stakevault/nft-staking-service/internal/observability/metrics"
	"github.com/stakevault/nft-staking-service/internal/types"
	"github.com/stakevault/nft-staking-service/internal/utils"
)

// Services contains the business logic. It serializes every mutating ledger
// operation behind one write lock (the ledger itself only guards against
// re-entrancy) and mirrors each committed operation into the database before
// handing its events to the live feeds.
type Services struct {
	DbClient db.DBClient
	Clients  *clients.Clients
	cfg      *config.Config

	mu       sync.RWMutex
	ledger   *ledger.Ledger
	recorder *eventRecorder
	pipeline *events.Pipeline
}

// eventRecorder is the sink the ledger emits into. It buffers the events of
// the operation currently holding the write lock so they can be archived in
// the same database transaction as the state they describe.
type eventRecorder struct {
	pending []types.Event
}

func (r *eventRecorder) Emit(event types.Event) {
	r.pending = append(r.pending, event)
}

func (r *eventRecorder) take() []types.Event {
	pending := r.pending
	r.pending = nil
	return pending
}

// New restores the in-memory ledger from the database and wires it to the
// injected clients. The ledger state document is created on first boot with
// the configured initial rate; afterwards the persisted rate wins.
func New(
	ctx context.Context,
	cfg *config.Config,
	cl *clients.Clients,
	dbClient db.DBClient,
	pipeline *events.Pipeline,
	clock ledger.Clock,
) (*Services, error) {
	state, err := dbClient.GetOrInitLedgerState(ctx, cfg.Ledger.InitialRate.String())
	if err != nil {
		return nil, errors.Wrap(err, "failed to load ledger state")
	}
	rate, err := utils.ParseBigInt(state.RewardRate)
	if err != nil {
		return nil, errors.Wrap(err, "persisted reward rate is corrupt")
	}

	recordDocs, err := dbClient.FindAllStakeRecords(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load stake records")
	}
	records := make([]ledger.StakeRecord, 0, len(recordDocs))
	for _, doc := range recordDocs {
		records = append(records, ledger.StakeRecord{
			Owner:                 doc.OwnerAddress,
			TokenID:               doc.TokenID,
			StakedAt:              doc.StakedAt,
			LastAccrualCheckpoint: doc.LastAccrualCheckpoint,
		})
	}

	recorder := &eventRecorder{}
	core, err := ledger.New(
		ledger.Params{
			VaultAddress: cfg.Ledger.VaultAddress,
			OwnerAddress: cfg.Ledger.OwnerAddress,
			InitialRate:  rate,
		},
		clock,
		cl.Custodian,
		cl.RewardLedger,
		recorder,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create ledger")
	}
	snapshot := ledger.Snapshot{
		Records:      records,
		RewardRate:   rate,
		Paused:       state.Paused,
		LastEventSeq: state.LastEventSeq,
	}
	if err := core.Restore(snapshot); err != nil {
		return nil, errors.Wrap(err, "failed to restore ledger from database")
	}
	metrics.SetTotalStaked(core.TotalStaked())
	log.Ctx(ctx).Info().
		Uint64("totalStaked", core.TotalStaked()).
		Uint64("lastEventSeq", state.LastEventSeq).
		Bool("paused", state.Paused).
		Str("rewardRate", state.RewardRate).
		Msg("ledger restored from database")

	return &Services{
		DbClient: dbClient,
		Clients:  cl,
		cfg:      cfg,
		ledger:   core,
		recorder: recorder,
		pipeline: pipeline,
	}, nil
}

// DoHealthCheck checks the health of the services by ping the database.
func (s *Services) DoHealthCheck(ctx context.Context) error {
	return s.DbClient.Ping(ctx)
}

// commit runs after every mutating ledger call, successful or not, with the
// write lock held. A failed stake or unstake may still have settled pending
// rewards on the way in; the payout happened and its checkpoint advances and
// claim event must survive a restart, so anything the recorder buffered gets
// persisted even when the operation itself is returned as an error.
func (s *Services) commit(
	ctx context.Context, stakerAddress string, removedTokenIDs []uint64, opErr error,
) *types.Error {
	if opErr != nil && len(s.recorder.pending) == 0 {
		// nothing state-changing happened
		return fromLedgerError(ctx, opErr)
	}
	persistErr := s.persistStakerState(ctx, stakerAddress, removedTokenIDs)
	if opErr != nil {
		return fromLedgerError(ctx, opErr)
	}
	return persistErr
}

// persistStakerState mirrors the staker's post-operation records and the
// operation's events into the database, then feeds the events to the live
// feeds. The records written are the ledger's current truth for the staker
// and removedTokenIDs may safely include ids that are still staked: deletes
// run before the upserts inside one transaction, so the collection always
// lands exactly on the in-memory state.
//
// If the database write fails after retries the in-memory ledger and the
// database have diverged: the operation's external transfers happened but a
// restart rolls its record changes back. The caller gets an internal error
// and the health check cron terminates the service if the database stays
// down, which bounds the divergence window.
func (s *Services) persistStakerState(
	ctx context.Context, stakerAddress string, removedTokenIDs []uint64,
) *types.Error {
	emitted := s.recorder.take()

	records := make([]*model.StakeRecordDocument, 0)
	for _, tokenID := range s.ledger.UserStakedTokens(stakerAddress) {
		record, ok := s.ledger.StakeInfo(tokenID)
		if !ok {
			continue
		}
		records = append(records, &model.StakeRecordDocument{
			TokenID:               record.TokenID,
			OwnerAddress:          record.Owner,
			StakedAt:              record.StakedAt,
			LastAccrualCheckpoint: record.LastAccrualCheckpoint,
		})
	}
	eventDocs := make([]*model.EventDocument, 0, len(emitted))
	for _, event := range emitted {
		eventDocs = append(eventDocs, model.FromEvent(event))
	}

	if err := s.DbClient.SaveStakerRecords(ctx, records, removedTokenIDs, eventDocs); err != nil {
		log.Ctx(ctx).Error().Err(err).
			Str("stakerAddress", stakerAddress).
			Msg("failed to persist staker records, in-memory ledger and database have diverged until restart")
		return types.NewInternalServiceError(err)
	}

	metrics.SetTotalStaked(s.ledger.TotalStaked())
	if s.pipeline != nil {
		s.pipeline.Publish(emitted...)
	}
	return nil
}
