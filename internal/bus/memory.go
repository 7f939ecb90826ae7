package bus

import (
	"context"
	"sort"
	"sync"
)

// zmember is one entry of an in-memory sorted set.
type zmember struct {
	score   float64
	payload []byte
}

// Memory is an in-memory Bus fake for tests, required by spec.md §4.1.
// Grounded on the mutex-protected map shape of infrastructure/cache/cache.go,
// repurposed from a TTL cache into channels + lists + a sorted set.
type Memory struct {
	mu          sync.Mutex
	subscribers map[string][]*memorySubscription
	lists       map[string][][]byte
	sortedSets  map[string][]zmember
	closed      bool
}

// NewMemory returns a ready-to-use in-memory Bus.
func NewMemory() *Memory {
	return &Memory{
		subscribers: make(map[string][]*memorySubscription),
		lists:       make(map[string][][]byte),
		sortedSets:  make(map[string][]zmember),
	}
}

type memorySubscription struct {
	ch   chan []byte
	once sync.Once
}

func (s *memorySubscription) Channel() <-chan []byte { return s.ch }

func (s *memorySubscription) Close() error {
	s.once.Do(func() { close(s.ch) })
	return nil
}

func (m *Memory) Publish(_ context.Context, channel string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sub := range m.subscribers[channel] {
		select {
		case sub.ch <- payload:
		default:
			// best-effort delivery: a full buffer drops the message rather
			// than blocking the publisher, matching spec.md's "not durable".
		}
	}
	return nil
}

func (m *Memory) Subscribe(_ context.Context, channel string) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub := &memorySubscription{ch: make(chan []byte, 64)}
	m.subscribers[channel] = append(m.subscribers[channel], sub)
	return sub, nil
}

func (m *Memory) RPush(_ context.Context, key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[key] = append(m.lists[key], payload)
	return nil
}

func (m *Memory) LPop(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.lists[key]
	if len(list) == 0 {
		return nil, false, nil
	}
	head := list[0]
	m.lists[key] = list[1:]
	return head, true, nil
}

func (m *Memory) ZAdd(_ context.Context, key string, score float64, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sortedSets[key] = append(m.sortedSets[key], zmember{score: score, payload: payload})
	return nil
}

func (m *Memory) ZRangeByScore(_ context.Context, key string, max float64, limit int64) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	members := append([]zmember(nil), m.sortedSets[key]...)
	sort.Slice(members, func(i, j int) bool { return members[i].score < members[j].score })

	out := make([][]byte, 0, limit)
	for _, mem := range members {
		if mem.score > max {
			break
		}
		out = append(out, mem.payload)
		if limit > 0 && int64(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) ZRem(_ context.Context, key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	members := m.sortedSets[key]
	for i, mem := range members {
		if string(mem.payload) == string(payload) {
			m.sortedSets[key] = append(members[:i], members[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) Ping(_ context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for _, subs := range m.subscribers {
		for _, sub := range subs {
			sub.Close()
		}
	}
	return nil
}
