package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/stakevault/nft-staking-service/internal/db/model"
)

// GetOrInitLedgerState fetches the singleton ledger state document. On the
// first boot the document does not exist yet and is seeded with the configured
// initial reward rate via $setOnInsert, so concurrent boots cannot double
// initialize it.
func (db *Database) GetOrInitLedgerState(ctx context.Context, initialRate string) (*model.LedgerStateDocument, error) {
	client := db.Client.Database(db.DbName).Collection(model.LedgerStateCollection)
	filter := bson.M{"_id": model.LedgerStateId}
	update := bson.M{
		"$setOnInsert": model.NewLedgerStateDocument(
			initialRate,
			false,
			0,
			time.Now().Unix(),
		),
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var result model.LedgerStateDocument
	err := client.FindOneAndUpdate(ctx, filter, update, opts).Decode(&result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateLedgerRewardRate persists a new reward rate together with the rate
// change event that announced it, in one transaction.
func (db *Database) UpdateLedgerRewardRate(
	ctx context.Context, rewardRate string, events []*model.EventDocument,
) error {
	transactionWork := func(sessCtx mongo.SessionContext) (interface{}, error) {
		update := bson.M{"$set": bson.M{
			"reward_rate": rewardRate,
			"updated_at":  time.Now().Unix(),
		}}
		if err := db.updateLedgerState(sessCtx, update); err != nil {
			return nil, err
		}
		if err := db.archiveEvents(sessCtx, events); err != nil {
			return nil, err
		}
		return nil, nil
	}

	_, txErr := db.txWithRetries(ctx, transactionWork)
	return txErr
}

func (db *Database) UpdateLedgerPaused(ctx context.Context, paused bool) error {
	update := bson.M{"$set": bson.M{
		"paused":     paused,
		"updated_at": time.Now().Unix(),
	}}
	return db.updateLedgerState(ctx, update)
}

func (db *Database) updateLedgerState(ctx context.Context, update bson.M) error {
	client := db.Client.Database(db.DbName).Collection(model.LedgerStateCollection)
	filter := bson.M{"_id": model.LedgerStateId}
	result, err := client.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return &NotFoundError{
			Key:     model.LedgerStateId,
			Message: "ledger state document does not exist",
		}
	}
	return nil
}
