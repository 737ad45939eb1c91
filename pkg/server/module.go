package server

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"math"
	"math/big"
	"time"

	"github.com/evenyaru/evenyaru/pkg/game"
	"github.com/evenyaru/evenyaru/pkg/match"
	"github.com/evenyaru/evenyaru/pkg/protocol"
	"github.com/evenyaru/evenyaru/pkg/relay"
	"github.com/evenyaru/evenyaru/pkg/server/ingress"
	"github.com/evenyaru/evenyaru/pkg/state"
	"github.com/evenyaru/evenyaru/pkg/store"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
)

// Server ties the coordination engine to live connections: it dispatches
// inbound client events to the coordinators and fans relayed store events
// out to the sockets locally bound to each room.
type Server struct {
	mutex   deadlock.Mutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}

	store   store.Store
	subs    *match.Subscriptions
	scores  *match.ScoreTracker
	matches *match.Coordinator
	plays   *match.PlayCoordinator
	relay   *relay.Relay
	audit   *state.AuditLog
}

func New(s store.Store, audit *state.AuditLog, pollInterval time.Duration) *Server {
	subs := match.NewSubscriptions(s)
	scores := match.NewScoreTracker(s)

	return &Server{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
		store:   s,
		subs:    subs,
		scores:  scores,
		matches: match.NewCoordinator(s, subs),
		plays:   match.NewPlayCoordinator(s, scores),
		relay:   relay.NewRelay(s, pollInterval),
		audit:   audit,
	}
}

func (server *Server) NewClientID() (uint16, error) {
	server.mutex.Lock()
	defer server.mutex.Unlock()

	for attempts := 0; attempts < math.MaxUint16; attempts++ {
		number, _ := rand.Int(rand.Reader, big.NewInt(math.MaxUint16))
		truncated := uint16(number.Uint64())

		taken := false
		for client := range server.clients {
			if client.id == truncated {
				taken = true
			}
		}
		if taken {
			continue
		}

		return truncated, nil
	}

	return 0, errors.New("failed to assign client ID")
}

// StartRelay launches the store drain loop and the goroutine that turns its
// events into room-scoped broadcasts. Broadcasting happens here, decoupled
// from the request path; the relay never re-publishes to the store.
func (server *Server) StartRelay(ctx context.Context) {
	go server.relay.Poll(ctx)

	subscriber := server.relay.Subscribe()
	go func() {
		defer subscriber.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-subscriber.Recv():
				server.BroadcastRoom(event.Room, event.Payload)
			}
		}
	}()
}

// BroadcastRoom delivers an event to every socket locally bound to room.
func (server *Server) BroadcastRoom(room string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("room", room).Msg("failed to encode broadcast")
		return
	}

	server.mutex.Lock()
	defer server.mutex.Unlock()

	for client := range server.rooms[room] {
		client.conn.Send(data)
	}
}

func (server *Server) bindRoom(client *Client, room string) {
	server.mutex.Lock()
	members, ok := server.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		server.rooms[room] = members
	}
	members[client] = struct{}{}
	server.mutex.Unlock()
}

func (server *Server) unbindRoom(client *Client, room string) {
	server.mutex.Lock()
	if members, ok := server.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(server.rooms, room)
		}
	}
	server.mutex.Unlock()
}

// Poll accepts new connections until ctx is done.
func (server *Server) Poll(ctx context.Context, newConnections <-chan ingress.Connection) {
	for {
		select {
		case <-ctx.Done():
			return
		case connection := <-newConnections:
			go server.handleConnection(ctx, connection)
		}
	}
}

func (server *Server) handleConnection(ctx context.Context, conn ingress.Connection) {
	id, err := server.NewClientID()
	if err != nil {
		log.Error().Err(err).Msg("could not admit connection")
		return
	}

	client := &Client{
		id:   id,
		conn: conn,
	}

	server.mutex.Lock()
	server.clients[client] = struct{}{}
	server.mutex.Unlock()

	logger := log.With().
		Str("client", client.Reference()).
		Str("host", conn.Host()).
		Logger()

	for {
		select {
		case <-conn.Ctx().Done():
			server.handleDisconnect(ctx, client, logger)
			return
		case <-ctx.Done():
			return
		case data := <-conn.Receive():
			server.handleMessage(ctx, client, data, logger)
		}
	}
}

func (server *Server) handleMessage(ctx context.Context, client *Client, data []byte, logger zerolog.Logger) {
	var envelope protocol.Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		logger.Warn().Msg("undecodable client message")
		return
	}

	switch envelope.Event {
	case protocol.HelloOp:
		var message protocol.HelloMessage
		if err := json.Unmarshal(data, &message); err != nil {
			logger.Warn().Msg("malformed hello")
			return
		}
		server.handleHello(client, message, logger)

	case protocol.JoinOp:
		var message protocol.JoinMessage
		if err := json.Unmarshal(data, &message); err != nil {
			logger.Warn().Msg("malformed join")
			return
		}
		server.handleJoin(ctx, client, message, logger)

	case protocol.PlayOp:
		var message protocol.PlayMessage
		if err := json.Unmarshal(data, &message); err != nil {
			logger.Warn().Msg("malformed play")
			return
		}
		server.handlePlay(ctx, client, message, logger)

	case protocol.LogEmailOp:
		var message protocol.LogEmailMessage
		if err := json.Unmarshal(data, &message); err != nil {
			logger.Warn().Msg("malformed log_email")
			return
		}
		server.handleLogEmail(ctx, client, message, logger)

	default:
		logger.Warn().Str("event", envelope.Event).Msg("unknown client event")
	}
}

// handleHello echoes a client-supplied token or mints a fresh one.
func (server *Server) handleHello(client *Client, message protocol.HelloMessage, logger zerolog.Logger) {
	token := message.Token
	if token == "" {
		token = makeToken()
	}
	client.SetToken(token)

	logger.Info().Str("token", token).Msg("client said hello")
	client.sendEvent(protocol.Connected(token))
}

func (server *Server) handleJoin(ctx context.Context, client *Client, message protocol.JoinMessage, logger zerolog.Logger) {
	token := client.Token()
	if token == "" {
		// A client that skipped hello still gets an identity; it just
		// never learns it until it asks.
		token = makeToken()
		client.SetToken(token)
	}

	team, err := server.matches.Join(ctx, token, message.Room, message.Team)
	switch {
	case errors.Is(err, match.ErrRoomFull):
		client.sendEvent(protocol.Fail(message.Room, protocol.FailRoomFull))
		return
	case errors.Is(err, match.ErrWrongTeam):
		client.sendEvent(protocol.Fail(message.Room, protocol.FailWrongTeam))
		return
	case err != nil:
		logger.Error().Err(err).Str("room", message.Room).Msg("join failed")
		client.sendEvent(protocol.Fail(message.Room, protocol.FailInternal))
		return
	}

	client.EnterRoom(message.Room, team)
	server.bindRoom(client, message.Room)

	// Ready goes to the joining client alone; the score snapshot reaches
	// the whole room, this client included, through the relay.
	client.sendEvent(protocol.Ready(message.Room, team))

	if err := server.scores.PublishSnapshot(ctx, message.Room); err != nil {
		logger.Error().Err(err).Str("room", message.Room).Msg("failed to publish score")
	}
}

func (server *Server) handlePlay(ctx context.Context, client *Client, message protocol.PlayMessage, logger zerolog.Logger) {
	room, team, ok := client.Room()
	if !ok {
		client.sendEvent(protocol.Fail("", protocol.FailNotInRoom))
		return
	}

	choice := game.Choice(message.Choice)
	if !game.IsValidChoice(choice) {
		client.sendEvent(protocol.Fail(room, protocol.FailInvalidChoice))
		return
	}

	if err := server.plays.Play(ctx, room, team, choice); err != nil {
		logger.Error().Err(err).Str("room", room).Msg("play failed")
		client.sendEvent(protocol.Fail(room, protocol.FailInternal))
	}
}

func (server *Server) handleLogEmail(ctx context.Context, client *Client, message protocol.LogEmailMessage, logger zerolog.Logger) {
	room, team, _ := client.Room()

	logger.Info().
		Str("token", client.Token()).
		Str("room", room).
		Int("team", team).
		Str("address", message.Address).
		Msg("client gave an email address")

	if err := server.audit.RecordEmail(ctx, client.Token(), room, team, message.Address); err != nil {
		logger.Error().Err(err).Msg("failed to record email address")
	}
}

func (server *Server) handleDisconnect(ctx context.Context, client *Client, logger zerolog.Logger) {
	if room, team, ok := client.Room(); ok {
		if err := server.matches.Leave(ctx, client.Token(), room, team); err != nil {
			logger.Error().Err(err).Str("room", room).Msg("failed to leave room")
		}
		server.unbindRoom(client, room)
		client.LeaveRoom()
	}

	server.mutex.Lock()
	delete(server.clients, client)
	server.mutex.Unlock()

	logger.Info().Str("token", client.Token()).Msg("client disconnected")
}

// Shutdown releases every locally-held occupant slot so an interrupted
// process does not leave phantom players behind in the shared store.
func (server *Server) Shutdown(ctx context.Context) {
	server.mutex.Lock()
	clients := make([]*Client, 0, len(server.clients))
	for client := range server.clients {
		clients = append(clients, client)
	}
	server.mutex.Unlock()

	for _, client := range clients {
		if room, team, ok := client.Room(); ok {
			if err := server.matches.Leave(ctx, client.Token(), room, team); err != nil {
				log.Error().Err(err).Str("room", room).Msg("failed to release occupant")
			}
			server.unbindRoom(client, room)
			client.LeaveRoom()
		}
	}
}
