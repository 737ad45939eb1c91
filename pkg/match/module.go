package match

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/evenyaru/evenyaru/pkg/store"

	"github.com/rs/zerolog/log"
)

var (
	ErrRoomFull  = errors.New("room is full")
	ErrWrongTeam = errors.New("wrong team")
)

const (
	ROOM_CAPACITY = 2

	// The first occupant pushes its team entry right after the counter
	// increment that made it first; a concurrent second joiner may peek
	// before that push lands.
	TEAM_READ_ATTEMPTS = 5
	TEAM_READ_DELAY    = 5 * time.Millisecond
)

// Coordinator owns room membership: capacity enforcement, team assignment,
// sticky team recovery, and the process's ref-counted channel subscriptions.
type Coordinator struct {
	store store.Store
	subs  *Subscriptions
}

func NewCoordinator(s store.Store, subs *Subscriptions) *Coordinator {
	return &Coordinator{
		store: s,
		subs:  subs,
	}
}

// stickyTeam returns the team this token was last assigned, if any.
func (c *Coordinator) stickyTeam(ctx context.Context, token string) *int {
	value, err := c.store.Get(ctx, tokenTeamKey(token))
	if err != nil {
		if !errors.Is(err, store.ErrNil) {
			log.Error().Err(err).Msg("failed to read sticky team")
		}
		return nil
	}

	team, err := strconv.Atoi(value)
	if err != nil {
		return nil
	}
	return &team
}

// complementTeam derives the second occupant's team from the first
// occupant's entry in the room's team list, retrying briefly while the first
// joiner's push is still in flight.
func (c *Coordinator) complementTeam(ctx context.Context, room string) int {
	for attempt := 0; attempt < TEAM_READ_ATTEMPTS; attempt++ {
		value, err := c.store.PeekSlot(ctx, roomTeamsKey(room))
		if err == nil {
			if other, err := strconv.Atoi(value); err == nil {
				return 1 - other
			}
		} else if !errors.Is(err, store.ErrNil) {
			log.Error().Err(err).Str("room", room).Msg("failed to read team list")
			break
		}

		time.Sleep(TEAM_READ_DELAY)
	}

	// Unreadable first occupant; the default assignment is team 0, so
	// claim its complement.
	return 1
}

// Join admits token into room and returns its team. Capacity is enforced
// solely by the atomic occupant counter: every failure path rolls the
// increment back, so no interleaving of concurrent joins can leave more than
// two occupants behind.
func (c *Coordinator) Join(ctx context.Context, token string, room string, requested *int) (int, error) {
	playersKey := roomPlayersKey(room)
	occupants, err := c.store.Incr(ctx, playersKey)
	if err != nil {
		return 0, err
	}

	rollback := func() {
		if _, err := c.store.Decr(ctx, playersKey); err != nil {
			log.Error().Err(err).Str("room", room).Msg("failed to roll back occupant counter")
		}
	}

	if occupants > ROOM_CAPACITY {
		rollback()
		return 0, ErrRoomFull
	}

	sticky := c.stickyTeam(ctx, token)

	var team int
	if occupants == 1 {
		switch {
		case requested != nil:
			team = *requested
		case sticky != nil:
			team = *sticky
		default:
			team = 0
		}
	} else {
		// The second occupant can only take the side the first one
		// left open; requesting the occupied side is spoofing.
		open := c.complementTeam(ctx, room)
		team = open
		if requested != nil && *requested != open {
			rollback()
			return 0, ErrWrongTeam
		}

		// A reconnecting client may not switch sides either.
		if sticky != nil && team != *sticky {
			rollback()
			return 0, ErrWrongTeam
		}
	}

	if err := c.store.PushSlot(ctx, roomTeamsKey(room), strconv.Itoa(team)); err != nil {
		rollback()
		return 0, err
	}

	if err := c.store.Set(ctx, tokenTeamKey(token), strconv.Itoa(team)); err != nil {
		log.Error().Err(err).Str("token", token).Msg("failed to persist team assignment")
	}

	if err := c.subs.Join(ctx, room); err != nil {
		log.Error().Err(err).Str("room", room).Msg("failed to subscribe to room channel")
	}

	log.Info().
		Str("token", token).
		Str("room", room).
		Int("team", team).
		Msg("client joined room")

	return team, nil
}

// Leave is the disconnect-time counterpart of Join. It removes one occupant
// and at most one matching team-list entry, then releases this process's
// interest in the room's channel.
func (c *Coordinator) Leave(ctx context.Context, token string, room string, team int) error {
	if _, err := c.store.Decr(ctx, roomPlayersKey(room)); err != nil {
		return err
	}

	if err := c.store.RemoveSlot(ctx, roomTeamsKey(room), strconv.Itoa(team)); err != nil {
		return err
	}

	log.Info().
		Str("token", token).
		Str("room", room).
		Msg("client left room")

	return c.subs.Leave(ctx, room)
}
