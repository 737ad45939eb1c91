package ingress

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/evenyaru/evenyaru/pkg/utils"

	"github.com/mileusna/useragent"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
)

type WSConnection struct {
	session   utils.Session
	host      string
	receive   chan []byte
	send      chan []byte
	closeSlow func()
}

var _ Connection = (*WSConnection)(nil)

func (c *WSConnection) Host() string {
	return c.host
}

func (c *WSConnection) Ctx() context.Context {
	return c.session.Ctx()
}

func (c *WSConnection) Receive() <-chan []byte {
	return c.receive
}

func (c *WSConnection) Send(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		go c.closeSlow()
		return false
	}
}

// WSIngress accepts websocket clients and hands them to the coordination
// layer over newConnections as transport-agnostic Connections.
type WSIngress struct {
	newConnections chan<- Connection
}

func NewWSIngress(newConnections chan<- Connection) *WSIngress {
	return &WSIngress{
		newConnections: newConnections,
	}
}

func WriteTimeout(ctx context.Context, timeout time.Duration, c *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.Write(ctx, websocket.MessageText, msg)
}

func (server *WSIngress) HandleClient(ctx context.Context, c *websocket.Conn, host string) error {
	session := utils.NewSession(ctx)
	defer session.Cancel()

	client := &WSConnection{
		session: session,
		host:    host,
		receive: make(chan []byte, CLIENT_MESSAGE_LIMIT),
		send:    make(chan []byte, CLIENT_MESSAGE_LIMIT),
		closeSlow: func() {
			c.Close(websocket.StatusPolicyViolation, "connection too slow to keep up with messages")
		},
	}

	server.newConnections <- client

	logger := log.With().Str("host", host).Logger()

	limiter := rate.NewLimiter(rate.Limit(MESSAGES_PER_SECOND), MESSAGE_BURST)

	go func() {
		for {
			if session.IsDone() {
				return
			}

			typ, message, err := c.Read(session.Ctx())
			if err != nil {
				session.Cancel()
				return
			}
			if typ != websocket.MessageText {
				continue
			}
			if !limiter.Allow() {
				logger.Warn().Msg("client exceeded message rate limit")
				continue
			}
			select {
			case client.receive <- message:
			case <-session.Ctx().Done():
				return
			}
		}
	}()

	for {
		select {
		case msg := <-client.send:
			err := WriteTimeout(session.Ctx(), time.Second*5, c, msg)
			if err != nil {
				logger.Error().Msg("client missed write timeout; disconnecting")
				return err
			}
		case <-session.Ctx().Done():
			logger.Info().Msg("client left")
			return session.Ctx().Err()
		}
	}
}

func (server *WSIngress) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})

	if err != nil {
		log.Error().Err(err).Msg("error accepting client connection")
		return
	}

	defer c.Close(websocket.StatusInternalError, "operational fault during relay")

	// We sit behind a proxy in every deployment, so check this first
	hostname := r.RemoteAddr

	original, ok := r.Header["X-Forwarded-For"]
	if ok {
		hostname = original[0]
	}

	agent := useragent.Parse(r.Header.Get("User-Agent"))
	log.Info().
		Str("host", hostname).
		Str("browser", agent.Name).
		Str("os", agent.OS).
		Msg("client connected")

	err = server.HandleClient(r.Context(), c, hostname)
	if errors.Is(err, context.Canceled) {
		return
	}
	if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
		websocket.CloseStatus(err) == websocket.StatusGoingAway {
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to close client port")
		return
	}
}
