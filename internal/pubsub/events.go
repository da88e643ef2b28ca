// Package pubsub is a small typed event broker.
package pubsub

import "context"

type EventType string

type Event[T any] struct {
	Type    EventType
	Payload T
}

type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
