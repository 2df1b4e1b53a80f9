package events

import (
	"sync"

	"github.com/stakevault/nft-staking-service/internal/observability/metrics"
	"github.com/stakevault/nft-staking-service/internal/types"
)

// Bus fans committed ledger events out to websocket subscribers. Listeners
// are plain channels owned by the subscribing handler, which keeps the bus
// free of any transport concerns.
type Bus struct {
	mu        sync.RWMutex
	listeners map[chan types.Event]struct{}
}

func NewBus() *Bus {
	return &Bus{
		listeners: make(map[chan types.Event]struct{}),
	}
}

// Subscribe registers ch to receive every broadcast event. The caller keeps
// ownership of the channel and must Unsubscribe it before closing it.
func (b *Bus) Subscribe(ch chan types.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.listeners[ch] = struct{}{}
	metrics.IncEventSubscribers()
}

func (b *Bus) Unsubscribe(ch chan types.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.listeners[ch]; !ok {
		return
	}
	delete(b.listeners, ch)
	metrics.DecEventSubscribers()
}

// Broadcast sends the event to every listener without blocking. A listener
// whose channel is full misses the event and is expected to re-sync from the
// archived journal, so slow consumers can never stall the dispatch loop.
func (b *Bus) Broadcast(event types.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for listener := range b.listeners {
		select {
		case listener <- event:
		default:
		}
	}
}

func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.listeners)
}
