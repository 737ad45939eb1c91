package match

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/evenyaru/evenyaru/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(value int) *int {
	return &value
}

func newCoordinator() (*Coordinator, *store.MemoryStore) {
	memory := store.NewMemoryStore()
	return NewCoordinator(memory, NewSubscriptions(memory)), memory
}

func occupants(t *testing.T, s store.Store, room string) string {
	value, err := s.Get(context.Background(), roomPlayersKey(room))
	if errors.Is(err, store.ErrNil) {
		return "0"
	}
	require.NoError(t, err)
	return value
}

func TestFirstJoinerDefaultsToTeamZero(t *testing.T) {
	ctx := context.Background()
	coordinator, _ := newCoordinator()

	team, err := coordinator.Join(ctx, "token-a", "r1", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, team)
}

func TestFirstJoinerMayRequestTeam(t *testing.T) {
	ctx := context.Background()
	coordinator, _ := newCoordinator()

	team, err := coordinator.Join(ctx, "token-a", "r1", intPtr(1))
	require.NoError(t, err)
	assert.Equal(t, 1, team)
}

func TestSecondJoinerGetsComplement(t *testing.T) {
	ctx := context.Background()
	coordinator, _ := newCoordinator()

	_, err := coordinator.Join(ctx, "token-a", "r1", intPtr(1))
	require.NoError(t, err)

	team, err := coordinator.Join(ctx, "token-b", "r1", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, team)
}

func TestRoomFull(t *testing.T) {
	ctx := context.Background()
	coordinator, memory := newCoordinator()

	_, err := coordinator.Join(ctx, "token-a", "r1", nil)
	require.NoError(t, err)
	_, err = coordinator.Join(ctx, "token-b", "r1", nil)
	require.NoError(t, err)

	_, err = coordinator.Join(ctx, "token-c", "r1", nil)
	assert.True(t, errors.Is(err, ErrRoomFull))

	// The failed join rolled its increment back
	assert.Equal(t, "2", occupants(t, memory, "r1"))
}

func TestStickyTeamSurvivesReconnect(t *testing.T) {
	ctx := context.Background()
	coordinator, _ := newCoordinator()

	team, err := coordinator.Join(ctx, "token-a", "r1", intPtr(1))
	require.NoError(t, err)
	require.NoError(t, coordinator.Leave(ctx, "token-a", "r1", team))

	// An opponent takes the other side in the meantime
	_, err = coordinator.Join(ctx, "token-b", "r1", intPtr(0))
	require.NoError(t, err)

	// The reconnecting token recovers its old team
	team, err = coordinator.Join(ctx, "token-a", "r1", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, team)
}

func TestRequestingOccupiedTeamFails(t *testing.T) {
	ctx := context.Background()
	coordinator, memory := newCoordinator()

	_, err := coordinator.Join(ctx, "token-a", "r1", nil)
	require.NoError(t, err)

	// A fresh token asking for the side token-a already holds
	_, err = coordinator.Join(ctx, "token-b", "r1", intPtr(0))
	assert.True(t, errors.Is(err, ErrWrongTeam))
	assert.Equal(t, "1", occupants(t, memory, "r1"))
}

func TestWrongTeam(t *testing.T) {
	ctx := context.Background()
	coordinator, memory := newCoordinator()

	team, err := coordinator.Join(ctx, "token-a", "r1", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, team)

	// token-b played here before as team 1 and may not switch
	_, err = coordinator.Join(ctx, "token-b", "r2", intPtr(1))
	require.NoError(t, err)
	require.NoError(t, coordinator.Leave(ctx, "token-b", "r2", 1))

	_, err = coordinator.Join(ctx, "token-b", "r1", intPtr(0))
	assert.True(t, errors.Is(err, ErrWrongTeam))
	assert.Equal(t, "1", occupants(t, memory, "r1"))
}

func TestConcurrentJoinsNeverExceedCapacity(t *testing.T) {
	ctx := context.Background()
	coordinator, memory := newCoordinator()

	var mutex sync.Mutex
	admitted := 0

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token := fmt.Sprintf("token-%d", i)
			_, err := coordinator.Join(ctx, token, "r1", nil)
			if err == nil {
				mutex.Lock()
				admitted++
				mutex.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 2, admitted)
	assert.Equal(t, "2", occupants(t, memory, "r1"))
}

func TestLeaveRemovesOneTeamEntry(t *testing.T) {
	ctx := context.Background()
	coordinator, memory := newCoordinator()

	_, err := coordinator.Join(ctx, "token-a", "r1", intPtr(0))
	require.NoError(t, err)
	_, err = coordinator.Join(ctx, "token-b", "r1", intPtr(1))
	require.NoError(t, err)

	require.NoError(t, coordinator.Leave(ctx, "token-b", "r1", 1))

	// token-a's entry is still there for the next joiner to derive from
	value, err := memory.PeekSlot(ctx, roomTeamsKey("r1"))
	require.NoError(t, err)
	assert.Equal(t, "0", value)
	assert.Equal(t, "1", occupants(t, memory, "r1"))
}

func TestSubscriptionRefCounting(t *testing.T) {
	ctx := context.Background()
	memory := store.NewMemoryStore()
	subs := NewSubscriptions(memory)

	require.NoError(t, subs.Join(ctx, "r1"))
	require.NoError(t, subs.Join(ctx, "r1"))
	assert.Equal(t, 2, subs.Count("r1"))

	// Still subscribed after the first leave: published messages arrive
	require.NoError(t, subs.Leave(ctx, "r1"))
	require.NoError(t, memory.Publish(ctx, "r1", []byte(`{}`)))
	messages, err := memory.Poll(ctx)
	require.NoError(t, err)
	assert.Len(t, messages, 1)

	// The last leave unsubscribes
	require.NoError(t, subs.Leave(ctx, "r1"))
	assert.Equal(t, 0, subs.Count("r1"))
	require.NoError(t, memory.Publish(ctx, "r1", []byte(`{}`)))
	messages, err = memory.Poll(ctx)
	require.NoError(t, err)
	assert.Empty(t, messages)

	// Leaving an untracked room is a no-op
	require.NoError(t, subs.Leave(ctx, "r2"))
	assert.Equal(t, 0, subs.Count("r2"))
}

func TestRoomsListsActiveRoomsOnly(t *testing.T) {
	ctx := context.Background()
	memory := store.NewMemoryStore()
	subs := NewSubscriptions(memory)

	require.NoError(t, subs.Join(ctx, "r1"))
	require.NoError(t, subs.Join(ctx, "r2"))
	require.NoError(t, subs.Leave(ctx, "r2"))

	assert.Equal(t, []string{"r1"}, subs.Rooms())
}
