package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTies(t *testing.T) {
	for _, choice := range []Choice{ChoiceRock, ChoicePaper, ChoiceScissors} {
		winner := Resolve(
			Play{Team: 0, Choice: choice},
			Play{Team: 1, Choice: choice},
		)
		assert.Nil(t, winner, "%s against itself should tie", choice)
	}
}

func TestCyclicPairs(t *testing.T) {
	pairs := []struct {
		winning Choice
		losing  Choice
	}{
		{ChoiceRock, ChoiceScissors},
		{ChoiceScissors, ChoicePaper},
		{ChoicePaper, ChoiceRock},
	}

	for _, pair := range pairs {
		// First mover wins
		winner := Resolve(
			Play{Team: 0, Choice: pair.winning},
			Play{Team: 1, Choice: pair.losing},
		)
		require.NotNil(t, winner)
		assert.Equal(t, 0, *winner, "%s should beat %s", pair.winning, pair.losing)

		// Second mover wins with the pair reversed
		winner = Resolve(
			Play{Team: 0, Choice: pair.losing},
			Play{Team: 1, Choice: pair.winning},
		)
		require.NotNil(t, winner)
		assert.Equal(t, 1, *winner, "%s should lose to %s", pair.losing, pair.winning)
	}
}

func TestTeamsAreReported(t *testing.T) {
	// The winner is a team id, not a position
	winner := Resolve(
		Play{Team: 1, Choice: ChoiceRock},
		Play{Team: 0, Choice: ChoiceScissors},
	)
	require.NotNil(t, winner)
	assert.Equal(t, 1, *winner)
}

func TestIsValidChoice(t *testing.T) {
	assert.True(t, IsValidChoice(ChoiceRock))
	assert.True(t, IsValidChoice(ChoicePaper))
	assert.True(t, IsValidChoice(ChoiceScissors))
	assert.False(t, IsValidChoice("lizard"))
	assert.False(t, IsValidChoice(""))
}
