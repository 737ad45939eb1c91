package server

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/evenyaru/evenyaru/pkg/server/ingress"

	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
)

// Client is one connected socket together with its session state. The state
// is explicit here rather than ambient in the transport: the token is set by
// hello, the room binding by a successful join, and everything is cleared on
// disconnect.
type Client struct {
	id   uint16
	conn ingress.Connection

	mutex  deadlock.Mutex
	token  string
	room   string
	team   int
	inRoom bool
}

func (c *Client) Reference() string {
	return fmt.Sprintf("ws:%d", c.id)
}

func (c *Client) Token() string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.token
}

func (c *Client) SetToken(token string) {
	c.mutex.Lock()
	c.token = token
	c.mutex.Unlock()
}

// Room returns the client's room binding, if it has one.
func (c *Client) Room() (string, int, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.room, c.team, c.inRoom
}

func (c *Client) EnterRoom(room string, team int) {
	c.mutex.Lock()
	c.room = room
	c.team = team
	c.inRoom = true
	c.mutex.Unlock()
}

func (c *Client) LeaveRoom() {
	c.mutex.Lock()
	c.room = ""
	c.team = 0
	c.inRoom = false
	c.mutex.Unlock()
}

func (c *Client) sendEvent(payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("client", c.Reference()).Msg("failed to encode event")
		return
	}
	c.conn.Send(data)
}

// makeToken mints an identity for a client that did not supply one. A
// timestamp is easier to debug than something opaque.
func makeToken() string {
	now := time.Now()
	return fmt.Sprintf("%s-%06d", now.Format("20060102-150405"), now.Nanosecond()/1000)
}
