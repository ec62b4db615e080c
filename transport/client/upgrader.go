package client

import (
	"net/http"

	"github.com/gorilla/websocket"
)

// Upgrader takes ownership of a connection whose handshake switched to the
// protocol it is keyed by and turns it into an outcome.
type Upgrader interface {
	Protocol() string
	Upgrade(conn *websocket.Conn, resp *http.Response) (UpgradeOutcome, error)
}

// NotUpgradedFunc builds the outcome for a response that did not switch
// protocols. It must not touch the connection.
type NotUpgradedFunc func(resp *http.Response) (UpgradeOutcome, error)

type webSocketUpgrader struct {
	maxFrameSize int
	allocator    *BufferPool
}

// NewWebSocketUpgrader returns the upgrader for the "websocket" token. The
// resulting stream rejects frames larger than maxFrameSize.
func NewWebSocketUpgrader(maxFrameSize int, allocator *BufferPool) Upgrader {
	if maxFrameSize <= 0 {
		maxFrameSize = DefaultMaxFrameSize
	}
	return &webSocketUpgrader{maxFrameSize: maxFrameSize, allocator: allocator}
}

func (u *webSocketUpgrader) Protocol() string {
	return ProtocolWebSocket
}

func (u *webSocketUpgrader) Upgrade(conn *websocket.Conn, _ *http.Response) (UpgradeOutcome, error) {
	return newUpgraded(newFrameStream(conn, u.maxFrameSize, u.allocator)), nil
}

// DefaultNotUpgraded records the response status and headers.
func DefaultNotUpgraded(resp *http.Response) (UpgradeOutcome, error) {
	return newNotUpgraded(resp), nil
}
