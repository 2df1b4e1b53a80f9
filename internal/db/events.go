package db

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/stakevault/nft-staking-service/internal/db/model"
)

// archiveEvents appends a batch of journal events and advances the watermark
// in the ledger state document. It must run inside the same transaction as
// the state change that emitted the events so the journal never has gaps.
// Sequence numbers are the document ids, so a collision means the in-memory
// ledger and the archive have diverged and the write must not be retried.
func (db *Database) archiveEvents(ctx mongo.SessionContext, events []*model.EventDocument) error {
	if len(events) == 0 {
		return nil
	}
	client := db.Client.Database(db.DbName).Collection(model.EventCollection)

	documents := make([]interface{}, 0, len(events))
	var maxSeq uint64
	for _, event := range events {
		documents = append(documents, event)
		if event.Seq > maxSeq {
			maxSeq = event.Seq
		}
	}

	if _, err := client.InsertMany(ctx, documents); err != nil {
		var bulkErr mongo.BulkWriteException
		if errors.As(err, &bulkErr) {
			for _, e := range bulkErr.WriteErrors {
				if mongo.IsDuplicateKeyError(e) {
					return &DuplicateKeyError{
						Key:     "seq",
						Message: "event sequence already archived",
					}
				}
			}
		}
		return err
	}

	// $max keeps the watermark monotonic, which makes the restore path
	// immune to a stale batch landing after a newer one.
	watermark := bson.M{
		"$max": bson.M{"last_event_seq": maxSeq},
		"$set": bson.M{"updated_at": time.Now().Unix()},
	}
	return db.updateLedgerState(ctx, watermark)
}

// FindEvents returns archived events in sequence order, optionally filtered
// by staker address and event types.
func (db *Database) FindEvents(
	ctx context.Context, stakerAddress string, eventTypes []string, paginationToken string,
) (*DbResultMap[model.EventDocument], error) {
	client := db.Client.Database(db.DbName).Collection(model.EventCollection)

	filter := bson.M{}
	if stakerAddress != "" {
		filter["staker_address"] = stakerAddress
	}
	if len(eventTypes) > 0 {
		filter["event_type"] = bson.M{"$in": eventTypes}
	}

	opts := options.Find().SetSort(bson.M{"_id": 1}).SetLimit(db.cfg.MaxPaginationLimit)

	// Decode the pagination token first if it exist
	if paginationToken != "" {
		decodedToken, err := model.DecodePaginationToken[model.EventBySeqPagination](paginationToken)
		if err != nil {
			return nil, &InvalidPaginationTokenError{
				Message: "Invalid pagination token",
			}
		}
		filter["_id"] = bson.M{"$gt": decodedToken.Seq}
	}

	cursor, err := client.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []model.EventDocument
	if err = cursor.All(ctx, &events); err != nil {
		return nil, err
	}

	return toResultMapWithPaginationToken(db.cfg, events, model.BuildEventBySeqPaginationToken)
}
