package store

import (
	"context"
	"errors"
)

// ErrNil is returned by Get, PopSlot and PeekSlot when there is nothing
// behind a key.
var ErrNil = errors.New("store: nil")

// Message is one payload received over a subscribed channel.
type Message struct {
	Channel string
	Payload []byte
}

// Store is the shared source of truth all server processes coordinate
// through. Every mutation it exposes must be atomic; in particular PopSlot
// may never hand the same entry to two concurrent callers.
type Store interface {
	// Counters. Incr and Decr create the counter at zero first.
	Incr(ctx context.Context, key string) (int64, error)
	IncrBy(ctx context.Context, key string, amount int64) (int64, error)
	Decr(ctx context.Context, key string) (int64, error)

	// Plain values. Get returns ErrNil for a missing key. Counters
	// round-trip through Get as decimal strings.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error

	// Slot lists, most-recent-first. PushSlot prepends, PopSlot atomically
	// removes the oldest entry, PeekSlot reads the newest without removing
	// it, and RemoveSlot deletes at most one entry equal to value.
	PushSlot(ctx context.Context, key string, value string) error
	PopSlot(ctx context.Context, key string) (string, error)
	PeekSlot(ctx context.Context, key string) (string, error)
	RemoveSlot(ctx context.Context, key string, value string) error

	// Pub/sub. Subscribe and Unsubscribe adjust the single subscription
	// handle this process holds; Poll drains whatever payloads have
	// arrived on it without blocking.
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) error
	Unsubscribe(ctx context.Context, channel string) error
	Poll(ctx context.Context) ([]Message, error)
}
