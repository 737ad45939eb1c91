package match

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/evenyaru/evenyaru/pkg/game"
	"github.com/evenyaru/evenyaru/pkg/store"

	"github.com/rs/zerolog/log"
)

// PlayCoordinator owns the room's single pending-move slot. The first play
// to find the slot empty parks there; the next play from the other team
// consumes it and resolves the round.
type PlayCoordinator struct {
	store  store.Store
	scores *ScoreTracker
}

func NewPlayCoordinator(s store.Store, scores *ScoreTracker) *PlayCoordinator {
	return &PlayCoordinator{
		store:  s,
		scores: scores,
	}
}

// Play submits one team's move. Outcomes surface as room-channel
// notifications, not return values: either a move notification (the choice
// itself stays hidden until both sides committed) or a winner notification
// followed by a score snapshot.
func (p *PlayCoordinator) Play(ctx context.Context, room string, team int, choice game.Choice) error {
	var pending *game.Play

	value, err := p.store.PopSlot(ctx, room)
	if err != nil && !errors.Is(err, store.ErrNil) {
		return err
	}
	if err == nil {
		var move game.Play
		if err := json.Unmarshal([]byte(value), &move); err != nil {
			return err
		}
		pending = &move
	}

	// An empty slot parks the move. So does a same-team pending entry: a
	// client that reconnected mid-round must not be matched against its
	// own earlier move, so the newer one replaces it.
	if pending == nil || pending.Team == team {
		entry, err := json.Marshal(game.Play{Team: team, Choice: choice})
		if err != nil {
			return err
		}
		if err := p.store.PushSlot(ctx, room, string(entry)); err != nil {
			return err
		}

		payload, err := json.Marshal(map[string]int{"move": team})
		if err != nil {
			return err
		}

		log.Info().
			Str("room", room).
			Int("team", team).
			Str("choice", string(choice)).
			Msg("move is waiting for an opponent")

		return p.store.Publish(ctx, room, payload)
	}

	winner := game.Resolve(*pending, game.Play{Team: team, Choice: choice})

	payload, err := json.Marshal(map[string]*int{"winner": winner})
	if err != nil {
		return err
	}
	if err := p.store.Publish(ctx, room, payload); err != nil {
		return err
	}

	if winner == nil {
		if err := p.scores.RecordTie(ctx, room); err != nil {
			return err
		}
	} else {
		if err := p.scores.RecordWin(ctx, room, *winner); err != nil {
			return err
		}
	}

	event := log.Info().
		Str("room", room).
		Str("choice", string(choice)).
		Str("against", string(pending.Choice))
	if winner == nil {
		event.Msg("round tied")
	} else {
		event.Int("winner", *winner).Msg("round resolved")
	}

	return p.scores.PublishSnapshot(ctx, room)
}
