package match

import (
	"context"

	"github.com/evenyaru/evenyaru/pkg/store"

	"github.com/sasha-s/go-deadlock"
)

type roomEntry struct {
	mutex deadlock.Mutex
	count int
}

// Subscriptions tracks how many locally-connected sockets are bound to each
// room and keeps this process's store subscription in step with that count:
// subscribed iff the count is at least one. This is process-local
// bookkeeping, not authoritative room membership.
//
// Each room has its own exclusive section so that churn in one room never
// serializes joins in another.
type Subscriptions struct {
	store store.Store
	mutex deadlock.Mutex
	rooms map[string]*roomEntry
}

func NewSubscriptions(s store.Store) *Subscriptions {
	return &Subscriptions{
		store: s,
		rooms: make(map[string]*roomEntry),
	}
}

func (s *Subscriptions) room(name string) *roomEntry {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entry, ok := s.rooms[name]
	if !ok {
		entry = &roomEntry{}
		s.rooms[name] = entry
	}
	return entry
}

// Join records one more local socket bound to room, opening the process's
// channel subscription on the first.
func (s *Subscriptions) Join(ctx context.Context, room string) error {
	entry := s.room(room)
	entry.mutex.Lock()
	defer entry.mutex.Unlock()

	entry.count++
	if entry.count == 1 {
		return s.store.Subscribe(ctx, room)
	}
	return nil
}

// Leave records one local socket unbinding from room, closing the channel
// subscription when the last one goes. Leaving a room this process never
// tracked is a no-op.
func (s *Subscriptions) Leave(ctx context.Context, room string) error {
	entry := s.room(room)
	entry.mutex.Lock()
	defer entry.mutex.Unlock()

	if entry.count == 0 {
		return nil
	}

	entry.count--
	if entry.count == 0 {
		return s.store.Unsubscribe(ctx, room)
	}
	return nil
}

// Count returns the number of local sockets bound to room.
func (s *Subscriptions) Count(room string) int {
	entry := s.room(room)
	entry.mutex.Lock()
	defer entry.mutex.Unlock()
	return entry.count
}

// Rooms lists the rooms with at least one local socket.
func (s *Subscriptions) Rooms() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	names := make([]string, 0, len(s.rooms))
	for name, entry := range s.rooms {
		entry.mutex.Lock()
		count := entry.count
		entry.mutex.Unlock()
		if count > 0 {
			names = append(names, name)
		}
	}
	return names
}
