// Package events fans pipeline events out to in-process subscribers.
//
// Delivery is at-least-once per subscriber with a bounded buffer;
// the publishing path never blocks on a slow consumer. A consumer
// that falls behind loses its oldest undelivered event, which the bus
// counts rather than hides.
package events

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"solana-curve-sniper/internal/domain"
)

const defaultBuffer = 256

// Bus is the append-only notification feed.
type Bus struct {
	mu      sync.Mutex
	subs    []chan domain.PipelineEvent
	closed  bool
	dropped uint64

	log *zap.Logger
}

func NewBus(log *zap.Logger) *Bus {
	return &Bus{log: log}
}

// Subscribe registers a consumer. The returned channel is closed by
// Close; consumers must drain it promptly or accept drops.
func (b *Bus) Subscribe() <-chan domain.PipelineEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan domain.PipelineEvent, defaultBuffer)
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

// Publish delivers the event to every subscriber without blocking.
// When a subscriber's buffer is full its oldest event is evicted to
// make room, keeping the feed flowing at the cost of that one event.
func (b *Bus) Publish(ev domain.PipelineEvent) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
				b.dropped++
			default:
			}
			select {
			case ch <- ev:
			default:
				b.dropped++
			}
		}
	}
	if b.log != nil {
		b.log.Debug("pipeline event",
			zap.String("type", string(ev.Type)),
			zap.String("mint", ev.Mint),
			zap.String("reason", ev.Reason))
	}
}

// Dropped returns the count of events lost to slow consumers.
func (b *Bus) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close closes all subscriber channels. Publish becomes a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
