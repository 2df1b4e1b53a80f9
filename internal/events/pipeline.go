package events

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/stakevault/nft-staking-service/internal/observability/metrics"
	"github.com/stakevault/nft-staking-service/internal/types"
)

const defaultBufferSize = 1024

// EventPublisher pushes committed events to the outbound message queue.
// *queue.Queues satisfies it; tests substitute a fake.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event types.Event) error
}

// Pipeline carries committed ledger events to the live feeds: the outbound
// message queue and the websocket bus. The archive write happens inside the
// operation's own transaction before events ever reach the pipeline, so
// everything here is best effort and replayable.
type Pipeline struct {
	publisher EventPublisher // nil when queue publishing is disabled
	bus       *Bus

	buffer   chan types.Event
	quit     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewPipeline starts the dispatch loop. publisher may be nil to disable queue
// publishing, bus may be nil to disable websocket fanout.
func NewPipeline(bufferSize int, publisher EventPublisher, bus *Bus) *Pipeline {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	p := &Pipeline{
		publisher: publisher,
		bus:       bus,
		buffer:    make(chan types.Event, bufferSize),
		quit:      make(chan struct{}),
	}
	p.wg.Add(1)
	go p.dispatchLoop()
	return p
}

// Publish hands committed events to the dispatch loop. It never blocks: when
// the buffer is full the event is dropped from the live feeds and consumers
// re-sync from the archived journal.
func (p *Pipeline) Publish(events ...types.Event) {
	for _, event := range events {
		metrics.RecordEventEmitted(event.Type.ToString())
		select {
		case p.buffer <- event:
		case <-p.quit:
			return
		default:
			metrics.RecordEventDropped()
			log.Warn().
				Uint64("seq", event.Seq).
				Str("type", event.Type.ToString()).
				Msg("event buffer full, dropping event from live feeds")
		}
	}
}

// Stop shuts the dispatch loop down after draining whatever is buffered.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() {
		close(p.quit)
	})
	p.wg.Wait()
}

func (p *Pipeline) dispatchLoop() {
	defer p.wg.Done()
	for {
		select {
		case event := <-p.buffer:
			p.dispatch(event)
		case <-p.quit:
			for {
				select {
				case event := <-p.buffer:
					p.dispatch(event)
				default:
					return
				}
			}
		}
	}
}

func (p *Pipeline) dispatch(event types.Event) {
	if p.publisher != nil {
		// PublishEvent enforces its own timeout. A failed publish is not
		// retried here, consumers recover through the replay script.
		if err := p.publisher.PublishEvent(context.Background(), event); err != nil {
			log.Error().Err(err).
				Uint64("seq", event.Seq).
				Str("type", event.Type.ToString()).
				Msg("failed to publish event to the queue")
		}
	}
	if p.bus != nil {
		p.bus.Broadcast(event)
	}
}
