package match

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/evenyaru/evenyaru/pkg/store"
)

// Score maps a team id ("0" or "1") to that team's points. Values stay
// strings end to end; store counters already read back that way and the
// clients expect it.
type Score map[string]string

// ScoreTracker keeps the per-room, per-team point counters. A decisive win
// is worth one point; a tie pays both teams two so the total-points
// accounting needs no separate draws counter.
type ScoreTracker struct {
	store store.Store
}

func NewScoreTracker(s store.Store) *ScoreTracker {
	return &ScoreTracker{store: s}
}

func (s *ScoreTracker) RecordWin(ctx context.Context, room string, team int) error {
	_, err := s.store.Incr(ctx, roomScoreKey(room, team))
	return err
}

func (s *ScoreTracker) RecordTie(ctx context.Context, room string) error {
	for team := 0; team < 2; team++ {
		_, err := s.store.IncrBy(ctx, roomScoreKey(room, team), 2)
		if err != nil {
			return err
		}
	}
	return nil
}

// Snapshot reads both counters, defaulting a missing one to zero.
func (s *ScoreTracker) Snapshot(ctx context.Context, room string) (Score, error) {
	score := Score{"0": "0", "1": "0"}

	for team := 0; team < 2; team++ {
		value, err := s.store.Get(ctx, roomScoreKey(room, team))
		if errors.Is(err, store.ErrNil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		score[strconv.Itoa(team)] = value
	}

	return score, nil
}

// PublishSnapshot tells every room member the current score through the
// room's channel.
func (s *ScoreTracker) PublishSnapshot(ctx context.Context, room string) error {
	snapshot, err := s.Snapshot(ctx, room)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]Score{"score": snapshot})
	if err != nil {
		return err
	}

	return s.store.Publish(ctx, room, payload)
}
