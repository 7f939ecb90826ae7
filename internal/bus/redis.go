package bus

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/jayc13/my-dashboard-sub000/internal/logger"
)

// RedisBus is the live Bus backend, grounded on the go-redis/v8 client the
// teacher declares but never exercises in production code.
type RedisBus struct {
	client *redis.Client
	log    *logger.Logger
}

// NewRedisBus dials url (e.g. "redis://localhost:6379"), retrying with the
// backoff spec.md §4.1 specifies: attempt n waits min(n*50ms, 2s), forever.
func NewRedisBus(ctx context.Context, url string, log *logger.Logger) (*RedisBus, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if isReadOnlyReplica(err) {
			client = redis.NewClient(opts) // force reconnect
		}
		log.WithField("attempt", attempt).WithError(err).Warn("bus: connect failed, retrying")
		select {
		case <-time.After(backoffDelay(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return &RedisBus{client: client, log: log}, nil
}

func backoffDelay(attempt int) time.Duration {
	d := time.Duration(attempt) * 50 * time.Millisecond
	if d > 2*time.Second {
		d = 2 * time.Second
	}
	return d
}

func isReadOnlyReplica(err error) bool {
	return strings.Contains(strings.ToUpper(err.Error()), "READONLY")
}

func (b *RedisBus) Publish(ctx context.Context, channel string, payload []byte) error {
	return b.client.Publish(ctx, channel, payload).Err()
}

type redisSubscription struct {
	pubsub *redis.PubSub
	ch     chan []byte
	done   chan struct{}
}

func (s *redisSubscription) Channel() <-chan []byte { return s.ch }

func (s *redisSubscription) Close() error {
	close(s.done)
	return s.pubsub.Close()
}

func (b *RedisBus) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	pubsub := b.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		return nil, err
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		ch:     make(chan []byte, 64),
		done:   make(chan struct{}),
	}

	go func() {
		defer close(sub.ch)
		source := pubsub.Channel()
		for {
			select {
			case <-sub.done:
				return
			case msg, ok := <-source:
				if !ok {
					return
				}
				select {
				case sub.ch <- []byte(msg.Payload):
				case <-sub.done:
					return
				}
			}
		}
	}()

	return sub, nil
}

func (b *RedisBus) RPush(ctx context.Context, key string, payload []byte) error {
	return b.client.RPush(ctx, key, payload).Err()
}

func (b *RedisBus) LPop(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := b.client.LPop(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (b *RedisBus) ZAdd(ctx context.Context, key string, score float64, payload []byte) error {
	return b.client.ZAdd(ctx, key, &redis.Z{Score: score, Member: payload}).Err()
}

func (b *RedisBus) ZRangeByScore(ctx context.Context, key string, max float64, limit int64) ([][]byte, error) {
	res, err := b.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   formatScore(max),
		Count: limit,
	}).Result()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(res))
	for i, v := range res {
		out[i] = []byte(v)
	}
	return out, nil
}

func (b *RedisBus) ZRem(ctx context.Context, key string, payload []byte) error {
	return b.client.ZRem(ctx, key, payload).Err()
}

func (b *RedisBus) Ping(ctx context.Context) bool {
	return b.client.Ping(ctx).Err() == nil
}

func (b *RedisBus) Close() error {
	return b.client.Close()
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
