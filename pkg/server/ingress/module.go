package ingress

import (
	"context"
)

const (
	// Cap on buffered frames in either direction for one socket.
	CLIENT_MESSAGE_LIMIT = 16

	// Inbound frame rate limit per socket.
	MESSAGES_PER_SECOND = 20
	MESSAGE_BURST       = 40
)

// Connection is one bidirectional client socket, detached from its
// transport. The context it carries ends when the socket goes away, which is
// how disconnect cleanup is triggered.
type Connection interface {
	// Host the socket connected from, for logging.
	Host() string

	// Ctx is done once the connection is closed.
	Ctx() context.Context

	// Receive yields raw inbound frames.
	Receive() <-chan []byte

	// Send queues a frame, reporting false if the client cannot keep up.
	Send(data []byte) bool
}
