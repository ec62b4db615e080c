package client

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// MessageType represents the type of a message.
type MessageType int

const (
	// TextMessage represents a text message.
	TextMessage MessageType = websocket.TextMessage
	// BinaryMessage represents a binary message.
	BinaryMessage MessageType = websocket.BinaryMessage
)

func (t MessageType) String() string {
	switch t {
	case TextMessage:
		return "text"
	case BinaryMessage:
		return "binary"
	}
	return "unknown"
}

// Role is the side of the connection a session speaks for.
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

func (r Role) String() string {
	if r == RoleServer {
		return "server"
	}
	return "client"
}

// Direction tells a FrameObserver which way a frame travelled.
type Direction int

const (
	Inbound Direction = iota
	Outbound
)

func (d Direction) String() string {
	if d == Outbound {
		return "out"
	}
	return "in"
}

// FrameObserver sees every data frame a session reads or writes. It runs on
// the reading or writing goroutine and must not block.
type FrameObserver interface {
	ObserveFrame(sessionID string, dir Direction, mt MessageType, payload []byte)
}

// FrameObserverFunc adapts a function to FrameObserver.
type FrameObserverFunc func(sessionID string, dir Direction, mt MessageType, payload []byte)

func (f FrameObserverFunc) ObserveFrame(sessionID string, dir Direction, mt MessageType, payload []byte) {
	f(sessionID, dir, mt, payload)
}

// Session is the handler's view of an upgraded connection. Reads must come
// from a single goroutine; writes are serialized internally.
type Session struct {
	id     string
	role   Role
	stream *FrameStream

	writeMu  sync.Mutex
	observer FrameObserver
}

func newSession(stream *FrameStream, role Role) *Session {
	return &Session{
		id:     uuid.New().String(),
		role:   role,
		stream: stream,
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Role() Role {
	return s.role
}

// Subprotocol returns the negotiated subprotocol, if any.
func (s *Session) Subprotocol() string {
	return s.stream.conn.Subprotocol()
}

// MaxFrameSize is the largest inbound message the session accepts.
func (s *Session) MaxFrameSize() int {
	return s.stream.maxFrameSize
}

// SetFrameObserver installs o. Call it before the first read or write.
func (s *Session) SetFrameObserver(o FrameObserver) {
	s.observer = o
}

// ReadMessage returns the next data message. An orderly close by the peer
// is reported as io.EOF.
func (s *Session) ReadMessage() (MessageType, []byte, error) {
	mt, data, err := s.stream.conn.ReadMessage()
	if err != nil {
		if IsExpectedCloseError(err) {
			return 0, nil, io.EOF
		}
		return 0, nil, err
	}
	if s.observer != nil {
		s.observer.ObserveFrame(s.id, Inbound, MessageType(mt), data)
	}
	return MessageType(mt), data, nil
}

// WriteMessage sends one data message.
func (s *Session) WriteMessage(mt MessageType, data []byte) error {
	s.writeMu.Lock()
	err := s.stream.conn.WriteMessage(int(mt), data)
	s.writeMu.Unlock()
	if err != nil {
		return err
	}
	if s.observer != nil {
		s.observer.ObserveFrame(s.id, Outbound, mt, data)
	}
	return nil
}

// Ping sends a ping control frame.
func (s *Session) Ping(data []byte) error {
	return s.stream.conn.WriteControl(websocket.PingMessage, data, time.Now().Add(closeGracePeriod))
}

// WriteClose starts the closing handshake with the given status code.
func (s *Session) WriteClose(code int, text string) error {
	msg := websocket.FormatCloseMessage(code, text)
	return s.stream.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
}

// Close releases the underlying stream. It is safe to call more than once
// and concurrently with the Bridge's own release.
func (s *Session) Close() error {
	return s.stream.Release()
}

// IsExpectedCloseError reports whether err is a clean disconnection.
func IsExpectedCloseError(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}
