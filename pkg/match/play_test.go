package match

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/evenyaru/evenyaru/pkg/game"
	"github.com/evenyaru/evenyaru/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPlayCoordinator(t *testing.T) (*PlayCoordinator, *store.MemoryStore) {
	memory := store.NewMemoryStore()
	// Watch the room channel the way the relay would
	require.NoError(t, memory.Subscribe(context.Background(), "r1"))
	return NewPlayCoordinator(memory, NewScoreTracker(memory)), memory
}

func drain(t *testing.T, memory *store.MemoryStore) []map[string]json.RawMessage {
	messages, err := memory.Poll(context.Background())
	require.NoError(t, err)

	var decoded []map[string]json.RawMessage
	for _, message := range messages {
		var data map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(message.Payload, &data))
		decoded = append(decoded, data)
	}
	return decoded
}

func TestFirstPlayParks(t *testing.T) {
	ctx := context.Background()
	plays, memory := newPlayCoordinator(t)

	require.NoError(t, plays.Play(ctx, "r1", 0, game.ChoiceRock))

	messages := drain(t, memory)
	require.Len(t, messages, 1)

	// Only the team is revealed, never the choice
	var team int
	require.NoError(t, json.Unmarshal(messages[0]["move"], &team))
	assert.Equal(t, 0, team)
	assert.NotContains(t, messages[0], "winner")
	assert.NotContains(t, messages[0], "choice")
}

func TestOpposingPlayResolves(t *testing.T) {
	ctx := context.Background()
	plays, memory := newPlayCoordinator(t)
	scores := NewScoreTracker(memory)

	require.NoError(t, plays.Play(ctx, "r1", 0, game.ChoiceRock))
	drain(t, memory)

	require.NoError(t, plays.Play(ctx, "r1", 1, game.ChoiceScissors))

	messages := drain(t, memory)
	require.Len(t, messages, 2)

	var winner *int
	require.NoError(t, json.Unmarshal(messages[0]["winner"], &winner))
	require.NotNil(t, winner)
	assert.Equal(t, 0, *winner)

	var score Score
	require.NoError(t, json.Unmarshal(messages[1]["score"], &score))
	assert.Equal(t, Score{"0": "1", "1": "0"}, score)

	snapshot, err := scores.Snapshot(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, Score{"0": "1", "1": "0"}, snapshot)

	// The slot was consumed
	_, err = memory.PopSlot(ctx, "r1")
	assert.ErrorIs(t, err, store.ErrNil)
}

func TestTiePaysBothTeams(t *testing.T) {
	ctx := context.Background()
	plays, memory := newPlayCoordinator(t)

	require.NoError(t, plays.Play(ctx, "r1", 0, game.ChoicePaper))
	drain(t, memory)
	require.NoError(t, plays.Play(ctx, "r1", 1, game.ChoicePaper))

	messages := drain(t, memory)
	require.Len(t, messages, 2)

	var winner *int
	require.NoError(t, json.Unmarshal(messages[0]["winner"], &winner))
	assert.Nil(t, winner)

	var score Score
	require.NoError(t, json.Unmarshal(messages[1]["score"], &score))
	assert.Equal(t, Score{"0": "2", "1": "2"}, score)
}

func TestSelfPlayGuard(t *testing.T) {
	ctx := context.Background()
	plays, memory := newPlayCoordinator(t)

	require.NoError(t, plays.Play(ctx, "r1", 0, game.ChoiceRock))
	require.NoError(t, plays.Play(ctx, "r1", 0, game.ChoicePaper))

	// Two move notifications, never a winner
	messages := drain(t, memory)
	require.Len(t, messages, 2)
	for _, message := range messages {
		assert.Contains(t, message, "move")
		assert.NotContains(t, message, "winner")
	}

	// The slot holds exactly the most recent move
	value, err := memory.PopSlot(ctx, "r1")
	require.NoError(t, err)
	var pending game.Play
	require.NoError(t, json.Unmarshal([]byte(value), &pending))
	assert.Equal(t, game.Play{Team: 0, Choice: game.ChoicePaper}, pending)

	_, err = memory.PopSlot(ctx, "r1")
	assert.ErrorIs(t, err, store.ErrNil)
}

func TestScoresAccumulate(t *testing.T) {
	ctx := context.Background()
	memory := store.NewMemoryStore()
	scores := NewScoreTracker(memory)

	require.NoError(t, scores.RecordWin(ctx, "r1", 1))
	require.NoError(t, scores.RecordWin(ctx, "r1", 1))
	require.NoError(t, scores.RecordTie(ctx, "r1"))

	snapshot, err := scores.Snapshot(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, Score{"0": "2", "1": "4"}, snapshot)

	// Other rooms are untouched
	snapshot, err = scores.Snapshot(ctx, "r2")
	require.NoError(t, err)
	assert.Equal(t, Score{"0": "0", "1": "0"}, snapshot)
}
