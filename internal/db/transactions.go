package db

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/stakevault/nft-staking-service/internal/utils"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultMaxAttempts    = 4 // max attempt INCLUDES the first execution
	DefaultInitialBackoff = 100 * time.Millisecond
	DefaultBackoffFactor  = 2.0
)

type dbTransactionClient struct {
	*mongo.Client
}

type dbSessionWrapper struct {
	mongo.Session
}

func (c *dbTransactionClient) StartSession(opts ...*options.SessionOptions) (DBSession, error) {
	session, err := c.Client.StartSession(opts...)
	if err != nil {
		return nil, err
	}
	return &dbSessionWrapper{session}, nil
}

func (s *dbSessionWrapper) EndSession(ctx context.Context) {
	s.Session.EndSession(ctx)
}

func (s *dbSessionWrapper) WithTransaction(ctx context.Context, fn func(sessCtx mongo.SessionContext) (interface{}, error), opts ...*options.TransactionOptions) (interface{}, error) {
	return s.Session.WithTransaction(ctx, fn, opts...)
}

// txWithRetries runs txnFunc in a mongo transaction against this database.
func (db *Database) txWithRetries(
	ctx context.Context,
	txnFunc func(sessCtx mongo.SessionContext) (interface{}, error),
) (interface{}, error) {
	return TxWithRetries(ctx, &dbTransactionClient{db.Client}, txnFunc)
}

// TxWithRetries executes txnFunc in a transaction and retries it with
// exponential backoff when the failure is transient. Non-transient errors are
// returned as-is after the first attempt.
func TxWithRetries(
	ctx context.Context,
	dbTransactionClient DBTransactionClient,
	txnFunc func(sessCtx mongo.SessionContext) (interface{}, error),
) (interface{}, error) {
	maxAttempts := DefaultMaxAttempts
	initialBackoff := DefaultInitialBackoff
	backoffFactor := DefaultBackoffFactor

	var (
		result  interface{}
		err     error
		backoff = initialBackoff
	)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		session, sessionErr := dbTransactionClient.StartSession()
		if sessionErr != nil {
			return nil, sessionErr
		}

		result, err = session.WithTransaction(ctx, txnFunc)
		session.EndSession(ctx)

		if err != nil {
			if shouldRetry(err) && attempt < maxAttempts {
				log.Ctx(ctx).Warn().Err(err).
					Int("attempt", attempt).
					Dur("backoff", backoff).
					Msg("transaction failed with retryable error, retrying")
				utils.Sleep(backoff)
				backoff *= time.Duration(backoffFactor)
				continue
			}
			return nil, err
		}
		break
	}
	return result, nil
}

// Check for network-related, timeout errors, write conflicts or transaction aborted, which are generally transient should retry. Other errors such as duplicated keys or other non-specified errors should be considered non-retryable.
func shouldRetry(err error) bool {
	if mongo.IsNetworkError(err) {
		return true
	}
	if mongo.IsTimeout(err) {
		return true
	}

	if IsWriteConflictError(err) {
		return true
	}

	if IsTransactionAbortedError(err) {
		return true
	}

	return false
}
