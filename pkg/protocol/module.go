package protocol

import "github.com/evenyaru/evenyaru/pkg/match"

// Every frame on the wire is a JSON object tagged by its "event" field.
const (
	// client -> server
	HelloOp    = "hello"
	JoinOp     = "join"
	PlayOp     = "play"
	LogEmailOp = "log_email"

	// server -> client
	ConnectedOp = "connected"
	ReadyOp     = "ready"
	FailOp      = "fail"
	MoveOp      = "move"
	WinnerOp    = "winner"
	ScoreOp     = "score"
)

// Envelope is the minimal probe used to dispatch an inbound frame.
type Envelope struct {
	Event string `json:"event"`
}

type HelloMessage struct {
	Event string `json:"event"`
	Token string `json:"token,omitempty"`
}

type JoinMessage struct {
	Event string `json:"event"`
	Room  string `json:"room"`
	Team  *int   `json:"team,omitempty"`
}

type PlayMessage struct {
	Event  string `json:"event"`
	Choice string `json:"choice"`
}

type LogEmailMessage struct {
	Event   string `json:"event"`
	Address string `json:"address"`
}

type ConnectedEvent struct {
	Event string `json:"event"`
	Token string `json:"token"`
}

type ReadyEvent struct {
	Event string `json:"event"`
	Room  string `json:"room"`
	Team  int    `json:"team"`
}

// Fail reasons. JoinMessage failures carry the room they were about.
const (
	FailRoomFull      = "room is full"
	FailWrongTeam     = "wrong team"
	FailNotInRoom     = "not in a room"
	FailInvalidChoice = "invalid choice"
	FailInternal      = "internal error"
)

type FailEvent struct {
	Event string `json:"event"`
	Room  string `json:"room"`
	Type  string `json:"type"`
}

type MoveEvent struct {
	Event string `json:"event"`
	Move  int    `json:"move"`
}

type WinnerEvent struct {
	Event  string `json:"event"`
	Winner *int   `json:"winner"`
}

type ScoreEvent struct {
	Event string      `json:"event"`
	Score match.Score `json:"score"`
}

func Connected(token string) ConnectedEvent {
	return ConnectedEvent{Event: ConnectedOp, Token: token}
}

func Ready(room string, team int) ReadyEvent {
	return ReadyEvent{Event: ReadyOp, Room: room, Team: team}
}

func Fail(room string, reason string) FailEvent {
	return FailEvent{Event: FailOp, Room: room, Type: reason}
}

func Move(team int) MoveEvent {
	return MoveEvent{Event: MoveOp, Move: team}
}

func Winner(team *int) WinnerEvent {
	return WinnerEvent{Event: WinnerOp, Winner: team}
}

func ScoreUpdate(score match.Score) ScoreEvent {
	return ScoreEvent{Event: ScoreOp, Score: score}
}
