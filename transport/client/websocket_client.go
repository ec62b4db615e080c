package client

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultHandshakeTimeout bounds dialing plus the upgrade exchange. Both
// steps share one deadline.
var DefaultHandshakeTimeout = 10 * time.Second

// WebSocketClient connects to one websocket URL and runs a handler on the
// resulting session. Each Run dials a new connection.
type WebSocketClient struct {
	url     *url.URL
	handler Handler

	MaxFrameSize     int
	Header           http.Header
	Logger           logrus.FieldLogger
	HandlerContext   *HandlerContext
	TLSConfig        *tls.Config
	HandshakeTimeout time.Duration
	Dialer           *net.Dialer
	Subprotocols     []string
	Allocator        *BufferPool
}

type ClientOption func(*WebSocketClient)

// NewWebSocketClient validates rawURL (ws or wss) and builds a client.
func NewWebSocketClient(rawURL string, handler Handler, options ...ClientOption) (*WebSocketClient, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &ConfigurationError{Reason: err.Error()}
	}
	if u.Scheme != "ws" && u.Scheme != "wss" || u.Host == "" {
		return nil, &ConfigurationError{Reason: "not a websocket url: " + rawURL}
	}
	if handler == nil {
		return nil, &ConfigurationError{Reason: "nil handler"}
	}
	c := &WebSocketClient{url: u, handler: handler}
	c.SetOptions(options...)
	c.applyDefaultsIfNil()
	return c, nil
}

func (c *WebSocketClient) SetOptions(options ...ClientOption) {
	for _, option := range options {
		option(c)
	}
}

func WithMaxFrameSize(size int) ClientOption {
	return func(c *WebSocketClient) {
		c.MaxFrameSize = size
	}
}

// WithHeader adds headers to the upgrade request. Later calls win on
// colliding names.
func WithHeader(header http.Header) ClientOption {
	return func(c *WebSocketClient) {
		c.Header = MergeHeaders(c.Header, header)
	}
}

func WithLogger(logger logrus.FieldLogger) ClientOption {
	return func(c *WebSocketClient) {
		c.Logger = logger
	}
}

// WithHandlerContext lends hctx to every session the client runs.
func WithHandlerContext(hctx *HandlerContext) ClientOption {
	return func(c *WebSocketClient) {
		c.HandlerContext = hctx
	}
}

func WithTLSConfig(config *tls.Config) ClientOption {
	return func(c *WebSocketClient) {
		c.TLSConfig = config
	}
}

func WithHandshakeTimeout(timeout time.Duration) ClientOption {
	return func(c *WebSocketClient) {
		c.HandshakeTimeout = timeout
	}
}

func WithDialer(dialer *net.Dialer) ClientOption {
	return func(c *WebSocketClient) {
		c.Dialer = dialer
	}
}

func WithSubprotocols(protocols ...string) ClientOption {
	return func(c *WebSocketClient) {
		c.Subprotocols = protocols
	}
}

func WithAllocator(allocator *BufferPool) ClientOption {
	return func(c *WebSocketClient) {
		c.Allocator = allocator
	}
}

func (c *WebSocketClient) applyDefaultsIfNil() {
	if c.MaxFrameSize == 0 {
		c.MaxFrameSize = DefaultMaxFrameSize
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Dialer == nil {
		c.Dialer = &net.Dialer{}
	}
	if c.Allocator == nil {
		c.Allocator = NewBufferPool(c.MaxFrameSize)
	}
}

// URL returns the target URL.
func (c *WebSocketClient) URL() *url.URL {
	return c.url
}

// Setup dials the server and sends the upgrade request.
func (c *WebSocketClient) Setup(ctx context.Context) (*Negotiation, error) {
	req, err := NewUpgradeRequest(c.url.RequestURI(), c.MaxFrameSize, c.Header)
	if err != nil {
		return nil, err
	}
	deadline := time.Now().Add(c.HandshakeTimeout)
	conn, err := c.dial(ctx, deadline)
	if err != nil {
		return nil, err
	}
	remaining := time.Until(deadline)
	if remaining <= 0 {
		conn.Close()
		return nil, &TransportError{Op: "handshake", Err: context.DeadlineExceeded}
	}
	pipeline := NewPipeline(conn, c.url.Host)
	negotiator := &Negotiator{
		Logger:           c.Logger,
		HandshakeTimeout: remaining,
		Subprotocols:     c.Subprotocols,
		Allocator:        c.Allocator,
	}
	n, err := negotiator.Negotiate(ctx, pipeline, req)
	if err != nil {
		pipeline.Close()
		return nil, err
	}
	return n, nil
}

// Run connects and drives the handler until the session ends. It returns the
// handler's error unchanged, *UpgradeDeclinedError if the server refused the
// upgrade, or a *ConfigurationError / *TransportError from the handshake.
func (c *WebSocketClient) Run(ctx context.Context) error {
	n, err := c.Setup(ctx)
	if err != nil {
		return err
	}
	return NewBridge(c.Logger, c.HandlerContext).Run(ctx, n, c.handler)
}

func (c *WebSocketClient) dial(ctx context.Context, deadline time.Time) (net.Conn, error) {
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()
	addr := hostPort(c.url)
	var (
		conn net.Conn
		err  error
	)
	if c.url.Scheme == "wss" {
		config := c.TLSConfig.Clone()
		if config == nil {
			config = &tls.Config{}
		}
		if config.ServerName == "" {
			config.ServerName = c.url.Hostname()
		}
		conn, err = (&tls.Dialer{NetDialer: c.Dialer, Config: config}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = c.Dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, &TransportError{Op: "dial " + addr, Err: err}
	}
	return conn, nil
}

func hostPort(u *url.URL) string {
	if u.Port() != "" {
		return u.Host
	}
	if u.Scheme == "wss" {
		return net.JoinHostPort(u.Hostname(), "443")
	}
	return net.JoinHostPort(u.Hostname(), "80")
}

// GetWebSocketConn dials rawURL and returns the upgraded stream without
// running a handler. The caller owns the stream and must Release it.
func GetWebSocketConn(ctx context.Context, rawURL string, header http.Header) (*FrameStream, error) {
	c, err := NewWebSocketClient(rawURL, HandlerFunc(func(context.Context, *Session, *HandlerContext) error {
		return nil
	}), WithHeader(header))
	if err != nil {
		return nil, err
	}
	n, err := c.Setup(ctx)
	if err != nil {
		return nil, err
	}
	outcome, err := n.Wait(ctx)
	if err != nil {
		return nil, err
	}
	switch o := outcome.(type) {
	case *Upgraded:
		return o.Take(), nil
	case *NotUpgraded:
		return nil, &UpgradeDeclinedError{StatusCode: o.StatusCode}
	}
	return nil, &ConfigurationError{Reason: "unexpected upgrade outcome"}
}
