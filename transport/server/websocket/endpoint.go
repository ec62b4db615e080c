package websocket

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/vkviyu/wsbridge/transport/auth"
)

// DefaultUpgrader accepts every origin.
var DefaultUpgrader = Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Upgrader is an alias for gorilla/websocket.Upgrader.
type Upgrader = websocket.Upgrader

type WebSocketConn = websocket.Conn

// ConnId represents the ID of a WebSocket connection.
type ConnId = string

// EndpointPath represents the path of a WebSocket endpoint.
type EndpointPath = string

type MsgChan = chan *Message

// MessageWriter sends data messages on one connection. Writes through it are
// serialized with every other writer of that connection.
type MessageWriter interface {
	WriteMessage(messageType MessageType, data []byte) error
}

type endpointConn struct {
	*WebSocketConn
	writeMu sync.Mutex
}

func (c *endpointConn) WriteMessage(messageType MessageType, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.WebSocketConn.WriteMessage(int(messageType), data)
}

type UpgraderFunc func(w http.ResponseWriter, r *http.Request) (*WebSocketConn, error)

// UpgradeFailFunc is called after a failed upgrade. The upgrader has already
// answered the request.
type UpgradeFailFunc func(r *http.Request, err error)

// MsgHandlerFunc handles one message read from a connection; w writes back
// to it. A non-nil error closes the connection.
type MsgHandlerFunc func(w MessageWriter, msg *Message) error

// Endpoint upgrades requests on one path and serves each connection until it
// closes.
type Endpoint struct {
	EndpointPath    EndpointPath
	AuthFunc        auth.AuthFunc
	AuthFailFunc    auth.AuthFailFunc
	UpgradeFunc     UpgraderFunc
	UpgradeFailFunc UpgradeFailFunc
	MsgHandler      MsgHandlerFunc
	ReadLimit       int64
	Logger          logrus.FieldLogger

	mu      sync.RWMutex
	connMap map[ConnId]*endpointConn
}

func NewEndpoint(path EndpointPath, options ...EndpointOption) *Endpoint {
	endpoint := &Endpoint{
		EndpointPath: path,
	}
	endpoint.SetOptions(options...)
	endpoint.applyDefaultsIfNil()
	return endpoint
}

type EndpointOption func(*Endpoint)

func (e *Endpoint) SetOptions(options ...EndpointOption) {
	for _, option := range options {
		option(e)
	}
}

func WithAuthFunc(authFunc auth.AuthFunc) EndpointOption {
	return func(e *Endpoint) {
		e.AuthFunc = authFunc
	}
}

func WithAuthFailFunc(authFailFunc auth.AuthFailFunc) EndpointOption {
	return func(e *Endpoint) {
		e.AuthFailFunc = authFailFunc
	}
}

func WithUpgradeFunc(upgradeFunc UpgraderFunc) EndpointOption {
	return func(e *Endpoint) {
		e.UpgradeFunc = upgradeFunc
	}
}

func WithUpgradeFailFunc(upgradeFailFunc UpgradeFailFunc) EndpointOption {
	return func(e *Endpoint) {
		e.UpgradeFailFunc = upgradeFailFunc
	}
}

func WithMsgHandler(handler MsgHandlerFunc) EndpointOption {
	return func(e *Endpoint) {
		e.MsgHandler = handler
	}
}

// WithMsgChan forwards every received message to msgChan instead of echoing.
func WithMsgChan(msgChan MsgChan) EndpointOption {
	return func(e *Endpoint) {
		e.MsgHandler = func(_ MessageWriter, msg *Message) error {
			msgChan <- msg
			return nil
		}
	}
}

func WithReadLimit(limit int64) EndpointOption {
	return func(e *Endpoint) {
		e.ReadLimit = limit
	}
}

func WithLogger(logger logrus.FieldLogger) EndpointOption {
	return func(e *Endpoint) {
		e.Logger = logger
	}
}

func (e *Endpoint) applyDefaultsIfNil() {
	if e.AuthFunc == nil {
		e.AuthFunc = auth.DefaultAuthFunc
	}
	if e.AuthFailFunc == nil {
		e.AuthFailFunc = auth.DefaultAuthFailFunc
	}
	if e.UpgradeFunc == nil {
		e.UpgradeFunc = DefaultUpgradeFunc
	}
	if e.Logger == nil {
		e.Logger = logrus.StandardLogger()
	}
	if e.UpgradeFailFunc == nil {
		logger := e.Logger
		e.UpgradeFailFunc = func(r *http.Request, err error) {
			logger.WithError(err).WithField("remote", r.RemoteAddr).Warn("websocket upgrade failed")
		}
	}
	if e.MsgHandler == nil {
		e.MsgHandler = EchoMsgHandler
	}
	if e.connMap == nil {
		e.connMap = make(map[ConnId]*endpointConn)
	}
}

func (e *Endpoint) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	authResult, connId := e.AuthFunc(r)
	if !authResult {
		e.AuthFailFunc(rw, r)
		return
	}
	wsConn, err := e.UpgradeFunc(rw, r)
	if err != nil {
		e.UpgradeFailFunc(r, err)
		return
	}
	if e.ReadLimit > 0 {
		wsConn.SetReadLimit(e.ReadLimit)
	}
	conn := &endpointConn{WebSocketConn: wsConn}
	e.addConn(connId, conn)
	defer func() {
		e.removeConn(connId)
		conn.Close()
	}()
	logger := e.Logger.WithFields(logrus.Fields{"endpoint": e.EndpointPath, "conn": connId})
	logger.Debug("connection opened")
	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.WithError(err).Debug("connection read failed")
			}
			return
		}
		msg := &Message{
			MessageType:  MessageType(messageType),
			Message:      message,
			EndpointPath: e.EndpointPath,
			ConnId:       connId,
		}
		if err := e.MsgHandler(conn, msg); err != nil {
			logger.WithError(err).Debug("message handler failed")
			return
		}
	}
}

func (e *Endpoint) addConn(connId ConnId, conn *endpointConn) {
	e.mu.Lock()
	e.connMap[connId] = conn
	e.mu.Unlock()
}

func (e *Endpoint) removeConn(connId ConnId) {
	e.mu.Lock()
	delete(e.connMap, connId)
	e.mu.Unlock()
}

// GetConn returns a writer for connId, or nil if it is not connected.
func (e *Endpoint) GetConn(connId ConnId) MessageWriter {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if conn, ok := e.connMap[connId]; ok {
		return conn
	}
	return nil
}

// ConnIds lists the open connections.
func (e *Endpoint) ConnIds() []ConnId {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]ConnId, 0, len(e.connMap))
	for id := range e.connMap {
		ids = append(ids, id)
	}
	return ids
}

func (e *Endpoint) GetConnCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.connMap)
}

// SendMessage writes msg to the listed connections, or to every connection
// when msg.ConnIds is empty.
func (e *Endpoint) SendMessage(msg *EndpointMessage) error {
	e.mu.RLock()
	targets := make(map[ConnId]*endpointConn, len(e.connMap))
	if len(msg.ConnIds) == 0 {
		for id, conn := range e.connMap {
			targets[id] = conn
		}
	}
	var errs []error
	for _, connId := range msg.ConnIds {
		conn, ok := e.connMap[connId]
		if !ok {
			errs = append(errs, &ConnNotFoundError{EndpointPath: e.EndpointPath, ConnId: connId})
			continue
		}
		targets[connId] = conn
	}
	e.mu.RUnlock()

	for _, conn := range targets {
		if err := conn.WriteMessage(msg.messageType(), msg.Message); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return &EndpointMessageError{
			EndpointPath: e.EndpointPath,
			Errors:       errs,
		}
	}
	return nil
}

// Close sends a going-away close frame to every open connection.
func (e *Endpoint) Close() {
	e.mu.RLock()
	defer e.mu.RUnlock()
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "endpoint closing")
	deadline := time.Now().Add(time.Second)
	for _, conn := range e.connMap {
		conn.WriteControl(websocket.CloseMessage, msg, deadline)
	}
}

func DefaultUpgradeFunc(w http.ResponseWriter, r *http.Request) (*WebSocketConn, error) {
	return DefaultUpgrader.Upgrade(w, r, nil)
}

// EchoMsgHandler writes every message back to its sender.
func EchoMsgHandler(w MessageWriter, msg *Message) error {
	return w.WriteMessage(msg.MessageType, msg.Message)
}
