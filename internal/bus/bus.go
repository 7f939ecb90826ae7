// Package bus implements the KV/Bus Adapter (spec.md §4.1): a thin contract
// over a key/value store supporting publish/subscribe, FIFO list push/pop,
// and a sorted set used as a retry timer wheel.
package bus

import "context"

// Subscription is a single ordered stream of messages for one channel.
// Delivery is at-most-once; reconnecting reopens the subscription without
// replay.
type Subscription interface {
	// Channel yields message bytes in arrival order until Close is called
	// or the underlying connection drops.
	Channel() <-chan []byte
	Close() error
}

// Bus is the capability set the rest of the system depends on. A live
// backend (Redis) and an in-memory fake both satisfy it.
type Bus interface {
	// Publish fans out to all current subscribers. Delivery is best-effort,
	// not durable.
	Publish(ctx context.Context, channel string, payload []byte) error

	// Subscribe opens a single ordered stream for channel.
	Subscribe(ctx context.Context, channel string) (Subscription, error)

	// RPush appends payload to the durable FIFO list at key.
	RPush(ctx context.Context, key string, payload []byte) error

	// LPop removes and returns the head of the FIFO list at key, or
	// (nil, false) if the list is empty.
	LPop(ctx context.Context, key string) ([]byte, bool, error)

	// ZAdd adds payload to the sorted set at key with the given score.
	ZAdd(ctx context.Context, key string, score float64, payload []byte) error

	// ZRangeByScore returns up to limit members with score <= max, ascending.
	ZRangeByScore(ctx context.Context, key string, max float64, limit int64) ([][]byte, error)

	// ZRem removes payload from the sorted set at key.
	ZRem(ctx context.Context, key string, payload []byte) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) bool

	// Close releases any held connections.
	Close() error
}
