package relay

import (
	"context"
	"encoding/json"
	"time"

	"github.com/evenyaru/evenyaru/pkg/match"
	"github.com/evenyaru/evenyaru/pkg/protocol"
	"github.com/evenyaru/evenyaru/pkg/store"
	"github.com/evenyaru/evenyaru/pkg/utils"

	"github.com/rs/zerolog/log"
)

// Event is one store notification bound for every socket in a room. Payload
// is a protocol event ready for marshalling.
type Event struct {
	Room    string
	Payload interface{}
}

// Relay is the sole consumer of this process's store subscription handle. It
// drains whatever payloads have arrived each tick and republishes them as
// typed events on an in-process topic, so a slow socket can never stall a
// play call.
type Relay struct {
	store    store.Store
	topic    *utils.Topic[Event]
	interval time.Duration
}

func NewRelay(s store.Store, interval time.Duration) *Relay {
	return &Relay{
		store:    s,
		topic:    utils.NewTopic[Event](),
		interval: interval,
	}
}

func (r *Relay) Subscribe() *utils.Subscriber[Event] {
	return r.topic.Subscribe()
}

// Poll runs until ctx is done. The drain step never blocks on a quiescent
// channel; when there is nothing to read it idles until the next tick.
func (r *Relay) Poll(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			messages, err := r.store.Poll(ctx)
			if err != nil {
				log.Error().Err(err).Msg("failed to drain store channel")
				continue
			}

			for _, message := range messages {
				r.dispatch(message)
			}
		}
	}
}

func (r *Relay) dispatch(message store.Message) {
	room := message.Channel

	var data map[string]json.RawMessage
	if err := json.Unmarshal(message.Payload, &data); err != nil {
		log.Warn().
			Str("room", room).
			Str("payload", string(message.Payload)).
			Msg("undecodable store message")
		return
	}

	if raw, ok := data["score"]; ok {
		var score match.Score
		if err := json.Unmarshal(raw, &score); err != nil {
			log.Warn().Str("room", room).Msg("malformed score message")
			return
		}
		r.topic.Publish(Event{Room: room, Payload: protocol.ScoreUpdate(score)})
		return
	}

	if raw, ok := data["move"]; ok {
		var team int
		if err := json.Unmarshal(raw, &team); err != nil {
			log.Warn().Str("room", room).Msg("malformed move message")
			return
		}
		r.topic.Publish(Event{Room: room, Payload: protocol.Move(team)})
		return
	}

	if raw, ok := data["winner"]; ok {
		var winner *int
		if err := json.Unmarshal(raw, &winner); err != nil {
			log.Warn().Str("room", room).Msg("malformed winner message")
			return
		}
		log.Info().Str("room", room).Msg("relaying round result")
		r.topic.Publish(Event{Room: room, Payload: protocol.Winner(winner)})
		return
	}

	log.Warn().
		Str("room", room).
		Str("payload", string(message.Payload)).
		Msg("unknown store message")
}
