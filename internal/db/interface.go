package db

import (
	"context"

	"github.com/stakevault/nft-staking-service/internal/db/model"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type DBClient interface {
	Ping(ctx context.Context) error
	SaveStakerRecords(
		ctx context.Context,
		records []*model.StakeRecordDocument,
		removedTokenIDs []uint64,
		events []*model.EventDocument,
	) error
	FindStakeRecordByTokenID(ctx context.Context, tokenID uint64) (*model.StakeRecordDocument, error)
	FindStakeRecordsByStaker(
		ctx context.Context, stakerAddress string, paginationToken string,
	) (*DbResultMap[model.StakeRecordDocument], error)
	FindAllStakeRecords(ctx context.Context) ([]model.StakeRecordDocument, error)
	GetOrInitLedgerState(ctx context.Context, initialRate string) (*model.LedgerStateDocument, error)
	UpdateLedgerRewardRate(ctx context.Context, rewardRate string, events []*model.EventDocument) error
	UpdateLedgerPaused(ctx context.Context, paused bool) error
	FindEvents(
		ctx context.Context, stakerAddress string, eventTypes []string, paginationToken string,
	) (*DbResultMap[model.EventDocument], error)
}

// DBTransactionClient and DBSession wrap the mongo session primitives so that
// transaction retry logic can be exercised against mocks.
type DBTransactionClient interface {
	StartSession(opts ...*options.SessionOptions) (DBSession, error)
}

type DBSession interface {
	EndSession(ctx context.Context)
	WithTransaction(
		ctx context.Context,
		fn func(sessCtx mongo.SessionContext) (interface{}, error),
		opts ...*options.TransactionOptions,
	) (interface{}, error)
}
