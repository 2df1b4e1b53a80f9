package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/stakevault/nft-staking-service/internal/config"
	"github.com/stakevault/nft-staking-service/internal/queue/client"
	"github.com/stakevault/nft-staking-service/internal/types"
)

type Queues struct {
	EventQueueClient client.QueueClient
	publishTimeout   time.Duration
}

func New(cfg *config.QueueConfig) (*Queues, error) {
	eventQueueClient, err := client.NewQueueClient(
		cfg.Url, cfg.QueueUser, cfg.QueuePassword, cfg.EventQueueName,
		time.Duration(cfg.ReconnectInterval)*time.Second,
	)
	if err != nil {
		return nil, err
	}
	return &Queues{
		EventQueueClient: eventQueueClient,
		publishTimeout:   time.Duration(cfg.PublishTimeout) * time.Second,
	}, nil
}

// PublishEvent sends one ledger event to the event queue. The event's own
// JSON codec is the wire format, with amounts as decimal strings.
func (q *Queues) PublishEvent(ctx context.Context, event types.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, q.publishTimeout)
	defer cancel()
	return q.EventQueueClient.SendMessage(ctx, string(body))
}

// IsConnectionHealthy reports whether the broker connection is usable. The
// health check cron treats an error here as fatal.
func (q *Queues) IsConnectionHealthy() error {
	return q.EventQueueClient.Ping()
}

func (q *Queues) Stop() error {
	return q.EventQueueClient.Stop()
}
