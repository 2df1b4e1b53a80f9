package db

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/stakevault/nft-staking-service/internal/db/model"
)

// SaveStakerRecords mirrors the outcome of a single staker operation into the
// stake records collection: records are upserted with their latest accrual
// checkpoint and removedTokenIDs are deleted. The operation's journal events
// are archived in the same transaction, so a crash never leaves a
// half-applied batch or a gap in the journal behind.
func (db *Database) SaveStakerRecords(
	ctx context.Context,
	records []*model.StakeRecordDocument,
	removedTokenIDs []uint64,
	events []*model.EventDocument,
) error {
	client := db.Client.Database(db.DbName).Collection(model.StakeRecordCollection)

	transactionWork := func(sessCtx mongo.SessionContext) (interface{}, error) {
		if len(removedTokenIDs) > 0 {
			filter := bson.M{"_id": bson.M{"$in": removedTokenIDs}}
			if _, err := client.DeleteMany(sessCtx, filter); err != nil {
				return nil, err
			}
		}
		for _, record := range records {
			filter := bson.M{"_id": record.TokenID}
			update := bson.M{"$set": bson.M{
				"owner_address":           record.OwnerAddress,
				"staked_at":               record.StakedAt,
				"last_accrual_checkpoint": record.LastAccrualCheckpoint,
			}}
			if _, err := client.UpdateOne(sessCtx, filter, update, options.Update().SetUpsert(true)); err != nil {
				return nil, err
			}
		}
		if err := db.archiveEvents(sessCtx, events); err != nil {
			return nil, err
		}
		return nil, nil
	}

	_, txErr := db.txWithRetries(ctx, transactionWork)
	return txErr
}

// FindStakeRecordByTokenID returns the stake record of a single token.
// It returns a NotFoundError if the token is not currently staked.
func (db *Database) FindStakeRecordByTokenID(ctx context.Context, tokenID uint64) (*model.StakeRecordDocument, error) {
	client := db.Client.Database(db.DbName).Collection(model.StakeRecordCollection)
	filter := bson.M{"_id": tokenID}
	var record model.StakeRecordDocument
	err := client.FindOne(ctx, filter).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     "token",
				Message: "Stake record not found",
			}
		}
		return nil, err
	}
	return &record, nil
}

func (db *Database) FindStakeRecordsByStaker(
	ctx context.Context, stakerAddress string, paginationToken string,
) (*DbResultMap[model.StakeRecordDocument], error) {
	client := db.Client.Database(db.DbName).Collection(model.StakeRecordCollection)

	filter := bson.M{"owner_address": stakerAddress}
	opts := options.Find().SetSort(bson.M{"_id": 1}).SetLimit(db.cfg.MaxPaginationLimit)

	// Decode the pagination token first if it exist
	if paginationToken != "" {
		decodedToken, err := model.DecodePaginationToken[model.TokenByStakerPagination](paginationToken)
		if err != nil {
			return nil, &InvalidPaginationTokenError{
				Message: "Invalid pagination token",
			}
		}
		filter = bson.M{
			"owner_address": stakerAddress,
			"_id":           bson.M{"$gt": decodedToken.TokenID},
		}
	}

	cursor, err := client.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []model.StakeRecordDocument
	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}

	return toResultMapWithPaginationToken(db.cfg, records, model.BuildTokenByStakerPaginationToken)
}

// FindAllStakeRecords loads the full stake records collection. It is only
// used at startup to rebuild the in-memory ledger.
func (db *Database) FindAllStakeRecords(ctx context.Context) ([]model.StakeRecordDocument, error) {
	client := db.Client.Database(db.DbName).Collection(model.StakeRecordCollection)

	cursor, err := client.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []model.StakeRecordDocument
	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
