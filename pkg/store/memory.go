package store

import (
	"context"
	"strconv"

	"github.com/sasha-s/go-deadlock"
)

// MemoryStore implements Store for tests and single-process development.
// Counters live in the same keyspace as plain values so they round-trip
// through Get the way Redis counters do.
type MemoryStore struct {
	mutex  deadlock.Mutex
	values map[string]string
	lists  map[string][]string
	subs   map[string]struct{}
	inbox  []Message
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string]string),
		lists:  make(map[string][]string),
		subs:   make(map[string]struct{}),
	}
}

func (m *MemoryStore) add(key string, amount int64) (int64, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	current := int64(0)
	if value, ok := m.values[key]; ok {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0, err
		}
		current = parsed
	}

	current += amount
	m.values[key] = strconv.FormatInt(current, 10)
	return current, nil
}

func (m *MemoryStore) Incr(ctx context.Context, key string) (int64, error) {
	return m.add(key, 1)
}

func (m *MemoryStore) IncrBy(ctx context.Context, key string, amount int64) (int64, error) {
	return m.add(key, amount)
}

func (m *MemoryStore) Decr(ctx context.Context, key string) (int64, error) {
	return m.add(key, -1)
}

func (m *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	value, ok := m.values[key]
	if !ok {
		return "", ErrNil
	}
	return value, nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value string) error {
	m.mutex.Lock()
	m.values[key] = value
	m.mutex.Unlock()
	return nil
}

func (m *MemoryStore) PushSlot(ctx context.Context, key string, value string) error {
	m.mutex.Lock()
	m.lists[key] = append([]string{value}, m.lists[key]...)
	m.mutex.Unlock()
	return nil
}

func (m *MemoryStore) PopSlot(ctx context.Context, key string) (string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	list := m.lists[key]
	if len(list) == 0 {
		return "", ErrNil
	}

	value := list[len(list)-1]
	m.lists[key] = list[:len(list)-1]
	return value, nil
}

func (m *MemoryStore) PeekSlot(ctx context.Context, key string) (string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	list := m.lists[key]
	if len(list) == 0 {
		return "", ErrNil
	}
	return list[0], nil
}

func (m *MemoryStore) RemoveSlot(ctx context.Context, key string, value string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	list := m.lists[key]
	for i, entry := range list {
		if entry != value {
			continue
		}
		m.lists[key] = append(append([]string{}, list[:i]...), list[i+1:]...)
		break
	}
	return nil
}

func (m *MemoryStore) Publish(ctx context.Context, channel string, payload []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.subs[channel]; !ok {
		return nil
	}

	m.inbox = append(m.inbox, Message{
		Channel: channel,
		Payload: payload,
	})
	return nil
}

func (m *MemoryStore) Subscribe(ctx context.Context, channel string) error {
	m.mutex.Lock()
	m.subs[channel] = struct{}{}
	m.mutex.Unlock()
	return nil
}

func (m *MemoryStore) Unsubscribe(ctx context.Context, channel string) error {
	m.mutex.Lock()
	delete(m.subs, channel)
	m.mutex.Unlock()
	return nil
}

func (m *MemoryStore) Poll(ctx context.Context) ([]Message, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	messages := m.inbox
	m.inbox = nil
	return messages, nil
}
