package pubsub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

const defaultChannelBufferSize = 64

// Broker fans events out to subscribers. Slow subscribers lose events rather
// than blocking the publisher.
type Broker[T any] struct {
	subs     map[chan Event[T]]context.CancelFunc
	mu       sync.RWMutex
	isClosed bool
	dropped  atomic.Int64
}

var (
	_ Subscriber[any] = (*Broker[any])(nil)
	_ Publisher[any]  = (*Broker[any])(nil)
)

func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{
		subs: make(map[chan Event[T]]context.CancelFunc),
	}
}

func (b *Broker[T]) Shutdown() {
	b.mu.Lock()
	if b.isClosed {
		b.mu.Unlock()
		return
	}
	b.isClosed = true

	for ch, cancel := range b.subs {
		cancel()
		close(ch)
		delete(b.subs, ch)
	}
	b.mu.Unlock()
	slog.Debug("pubsub broker shut down", "type", fmt.Sprintf("%T", *new(T)))
}

// Subscribe returns a channel that receives events until ctx is done or the
// broker shuts down.
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.isClosed {
		closedCh := make(chan Event[T])
		close(closedCh)
		return closedCh
	}

	subCtx, subCancel := context.WithCancel(ctx)
	ch := make(chan Event[T], defaultChannelBufferSize)
	b.subs[ch] = subCancel

	go func() {
		<-subCtx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; ok {
			close(ch)
			delete(b.subs, ch)
		}
	}()

	return ch
}

func (b *Broker[T]) Publish(eventType EventType, payload T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.isClosed {
		return
	}

	event := Event[T]{Type: eventType, Payload: payload}
	for ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped returns how many deliveries were skipped because a subscriber's
// buffer was full. Publish never logs, loggers publish through it.
func (b *Broker[T]) Dropped() int64 {
	return b.dropped.Load()
}

func (b *Broker[T]) GetSubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
