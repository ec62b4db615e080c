package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// PipelineState is the lifecycle position of a Pipeline.
type PipelineState int

const (
	StateIdle PipelineState = iota
	StateNegotiating
	StateUpgraded
	StateNotUpgraded
	StateClosed
)

func (s PipelineState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNegotiating:
		return "negotiating"
	case StateUpgraded:
		return "upgraded"
	case StateNotUpgraded:
		return "not upgraded"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("PipelineState(%d)", int(s))
}

var errConnConsumed = errors.New("pipeline connection already handed to a handshake")

// UpgradeConfiguration is everything a Pipeline needs to run one upgrade.
// Both continuations are installed together by ConfigureUpgrade.
type UpgradeConfiguration struct {
	Request     UpgradeRequest
	Upgraders   []Upgrader
	NotUpgraded NotUpgradedFunc

	HandshakeTimeout time.Duration
	Subprotocols     []string
	ReadBufferSize   int
	WriteBufferSize  int
}

// Pipeline wraps an established connection that has not yet spoken HTTP.
// It can be configured for an upgrade once; after that the connection
// belongs to the handshake and, on success, to the resulting FrameStream.
type Pipeline struct {
	mu    sync.Mutex
	conn  net.Conn
	host  string
	state PipelineState
}

// NewPipeline wraps conn. host is sent as the Host header; when empty the
// remote address is used.
func NewPipeline(conn net.Conn, host string) *Pipeline {
	if host == "" && conn != nil && conn.RemoteAddr() != nil {
		host = conn.RemoteAddr().String()
	}
	return &Pipeline{conn: conn, host: host}
}

func (p *Pipeline) State() PipelineState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Close closes the connection if it was never handed to a handshake.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateIdle {
		return nil
	}
	p.state = StateClosed
	conn := p.conn
	p.conn = nil
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// ConfigureUpgrade validates cfg, installs both continuations and only then
// submits the upgrade request. A *ConfigurationError means nothing was
// written to the connection.
func (p *Pipeline) ConfigureUpgrade(ctx context.Context, cfg UpgradeConfiguration) (*Negotiation, error) {
	upgraders, err := indexUpgraders(cfg.Upgraders)
	if err != nil {
		return nil, err
	}
	if cfg.NotUpgraded == nil {
		return nil, &ConfigurationError{Reason: "no not-upgraded handler registered"}
	}
	if cfg.Request.header == nil {
		return nil, &ConfigurationError{Reason: "upgrade request was not built with NewUpgradeRequest"}
	}
	if _, ok := cfg.Request.header["Sec-Websocket-Protocol"]; ok && len(cfg.Subprotocols) > 0 {
		return nil, &ConfigurationError{Reason: "subprotocols given both as header and as option"}
	}

	p.mu.Lock()
	if p.state != StateIdle {
		state := p.state
		p.mu.Unlock()
		return nil, &ConfigurationError{Reason: "pipeline is " + state.String()}
	}
	if p.conn == nil {
		p.mu.Unlock()
		return nil, &ConfigurationError{Reason: "pipeline has no connection"}
	}
	conn, host := p.conn, p.host
	p.conn = nil
	p.state = StateNegotiating
	p.mu.Unlock()

	n := newNegotiation()
	go func() {
		outcome, err := p.submit(ctx, conn, host, cfg, upgraders)
		p.settle(outcome, err)
		n.resolve(outcome, err)
	}()
	return n, nil
}

func indexUpgraders(list []Upgrader) (map[string]Upgrader, error) {
	if len(list) == 0 {
		return nil, &ConfigurationError{Reason: "no upgrader registered"}
	}
	upgraders := make(map[string]Upgrader, len(list))
	for _, u := range list {
		token := strings.ToLower(u.Protocol())
		if _, dup := upgraders[token]; dup {
			return nil, &ConfigurationError{Reason: "duplicate upgrader for " + token}
		}
		upgraders[token] = u
	}
	return upgraders, nil
}

func (p *Pipeline) settle(outcome UpgradeOutcome, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case err != nil:
		p.state = StateClosed
	case isUpgraded(outcome):
		p.state = StateUpgraded
	default:
		p.state = StateNotUpgraded
	}
}

func isUpgraded(o UpgradeOutcome) bool {
	_, ok := o.(*Upgraded)
	return ok
}

// submit writes the request and reads the response through the gorilla
// dialer, which is handed conn instead of dialing. The dialer closes conn on
// any failure.
func (p *Pipeline) submit(ctx context.Context, conn net.Conn, host string, cfg UpgradeConfiguration, upgraders map[string]Upgrader) (UpgradeOutcome, error) {
	var (
		once   sync.Once
		handed bool
	)
	dialer := &websocket.Dialer{
		NetDialContext: func(context.Context, string, string) (net.Conn, error) {
			c, err := net.Conn(nil), errConnConsumed
			once.Do(func() { c, err, handed = conn, nil, true })
			return c, err
		},
		HandshakeTimeout: cfg.HandshakeTimeout,
		Subprotocols:     cfg.Subprotocols,
		ReadBufferSize:   cfg.ReadBufferSize,
		WriteBufferSize:  cfg.WriteBufferSize,
	}
	target := "ws://" + host + cfg.Request.URI()
	ws, resp, err := dialer.DialContext(ctx, target, cfg.Request.Header())
	if err != nil {
		if !handed {
			conn.Close()
		}
		if errors.Is(err, websocket.ErrBadHandshake) && resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			return cfg.NotUpgraded(resp)
		}
		return nil, &TransportError{Op: "handshake", Err: err}
	}
	token := strings.ToLower(resp.Header.Get("Upgrade"))
	upgrader, ok := upgraders[token]
	if !ok {
		ws.Close()
		return nil, &TransportError{Op: "upgrade", Err: fmt.Errorf("no upgrader for protocol %q", token)}
	}
	return upgrader.Upgrade(ws, resp)
}
