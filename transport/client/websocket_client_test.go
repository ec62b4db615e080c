package client

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkviyu/wsbridge/transport/server"
)

func noopHandler() HandlerFunc {
	return func(context.Context, *Session, *HandlerContext) error { return nil }
}

func TestNewWebSocketClient(t *testing.T) {
	c, err := NewWebSocketClient("ws://example.com/chat?room=1", noopHandler(),
		WithHeader(http.Header{"X-A": {"1"}}),
		WithHeader(http.Header{"X-A": {"2"}, "X-B": {"3"}}),
	)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxFrameSize, c.MaxFrameSize)
	assert.Equal(t, DefaultHandshakeTimeout, c.HandshakeTimeout)
	assert.Equal(t, "/chat?room=1", c.URL().RequestURI())
	assert.Equal(t, "2", c.Header.Get("X-A"))
	assert.Equal(t, "3", c.Header.Get("X-B"))
	assert.NotNil(t, c.Allocator)

	for _, raw := range []string{"http://example.com/", "ws:///nohost", "://bad"} {
		_, err := NewWebSocketClient(raw, noopHandler())
		assert.ErrorIs(t, err, ErrConfiguration, raw)
	}
	_, err = NewWebSocketClient("ws://example.com/", nil)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestHostPort(t *testing.T) {
	c, err := NewWebSocketClient("wss://example.com/", noopHandler())
	require.NoError(t, err)
	assert.Equal(t, "example.com:443", hostPort(c.URL()))

	c, err = NewWebSocketClient("ws://example.com:9000/", noopHandler())
	require.NoError(t, err)
	assert.Equal(t, "example.com:9000", hostPort(c.URL()))

	c, err = NewWebSocketClient("ws://[::1]/", noopHandler())
	require.NoError(t, err)
	assert.Equal(t, "[::1]:80", hostPort(c.URL()))
}

func TestClientRunEcho(t *testing.T) {
	srv := newTestServer(t, server.Options{})
	received := make(chan string, 1)
	c, err := NewWebSocketClient(wsURL(srv, "/chat"), HandlerFunc(func(ctx context.Context, s *Session, hctx *HandlerContext) error {
		if err := s.WriteMessage(TextMessage, []byte("hi")); err != nil {
			return err
		}
		_, data, err := s.ReadMessage()
		if err != nil {
			return err
		}
		received <- string(data)
		return nil
	}), WithLogger(quietLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	require.NoError(t, c.Run(ctx))
	assert.Equal(t, "hi", <-received)
}

func TestClientRunDeclined(t *testing.T) {
	srv := newTestServer(t, server.Options{})
	c, err := NewWebSocketClient(wsURL(srv, "/plain"), HandlerFunc(func(context.Context, *Session, *HandlerContext) error {
		t.Error("handler must not run")
		return nil
	}), WithLogger(quietLogger()))
	require.NoError(t, err)

	err = c.Run(context.Background())
	var de *UpgradeDeclinedError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, http.StatusOK, de.StatusCode)
}

func TestClientBearerToken(t *testing.T) {
	srv := newTestServer(t, server.Options{Token: "secret"})

	t.Run("missing", func(t *testing.T) {
		p, _ := dialPipeline(t, srv.Listener.Addr().String())
		outcome, err := negotiate(t, p, "/chat", 0, nil, quietLogger())
		require.NoError(t, err)
		declined, ok := outcome.(*NotUpgraded)
		require.True(t, ok, "got %T", outcome)
		assert.Equal(t, http.StatusUnauthorized, declined.StatusCode)
		assert.Contains(t, string(declined.Body), "bearer token")
	})

	t.Run("present", func(t *testing.T) {
		c, err := NewWebSocketClient(wsURL(srv, "/chat"), echoOnce("authorized"),
			WithHeader(http.Header{"Authorization": {"Bearer secret"}}),
			WithLogger(quietLogger()))
		require.NoError(t, err)
		assert.NoError(t, c.Run(context.Background()))
	})
}

func TestClientHandlerEOFOnServerClose(t *testing.T) {
	srv := newTestServer(t, server.Options{})
	c, err := NewWebSocketClient(wsURL(srv, "/chat"), HandlerFunc(func(ctx context.Context, s *Session, hctx *HandlerContext) error {
		if err := s.WriteClose(1000, "bye"); err != nil {
			return err
		}
		_, _, err := s.ReadMessage()
		return err
	}), WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.ErrorIs(t, c.Run(context.Background()), io.EOF)
}

func TestClientDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c, err := NewWebSocketClient("ws://"+addr+"/chat", noopHandler(),
		WithHandshakeTimeout(time.Second), WithLogger(quietLogger()))
	require.NoError(t, err)
	err = c.Run(context.Background())

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Contains(t, te.Op, "dial")
	assert.False(t, errors.Is(err, ErrUpgradeDeclined))
}

func TestHandshakeTransportErrors(t *testing.T) {
	cases := map[string]string{
		"garbage response": "this is not http\r\n\r\n",
		"bad accept key": "HTTP/1.1 101 Switching Protocols\r\n" +
			"Upgrade: websocket\r\n" +
			"Connection: Upgrade\r\n" +
			"Sec-WebSocket-Accept: bm90IHRoZSByaWdodCBrZXk=\r\n\r\n",
	}
	for name, response := range cases {
		t.Run(name, func(t *testing.T) {
			p, conn := dialPipeline(t, rawServer(t, response))
			outcome, err := negotiate(t, p, "/chat", 0, nil, quietLogger())

			assert.Nil(t, outcome)
			assert.ErrorIs(t, err, ErrTransport)
			assert.False(t, errors.Is(err, ErrUpgradeDeclined))
			assert.Equal(t, StateClosed, p.State())
			assert.Equal(t, int64(1), conn.closes.Load())
		})
	}
}

func TestGetWebSocketConn(t *testing.T) {
	srv := newTestServer(t, server.Options{})
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	stream, err := GetWebSocketConn(ctx, wsURL(srv, "/chat"), nil)
	require.NoError(t, err)
	require.NotNil(t, stream)
	require.NoError(t, stream.Conn().WriteMessage(int(BinaryMessage), []byte{1, 2, 3}))
	mt, data, err := stream.Conn().ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, int(BinaryMessage), mt)
	assert.Equal(t, []byte{1, 2, 3}, data)

	require.NoError(t, stream.Release())
	assert.NoError(t, stream.Release())
	select {
	case <-stream.Released():
	default:
		t.Fatal("stream not marked released")
	}

	_, err = GetWebSocketConn(ctx, wsURL(srv, "/plain"), nil)
	assert.ErrorIs(t, err, ErrUpgradeDeclined)
}

func TestBufferPool(t *testing.T) {
	pool := NewBufferPool(8)
	b := pool.Get()
	assert.Empty(t, b)
	assert.GreaterOrEqual(t, cap(b), 8)
	pool.Put(append(b, 1, 2, 3))
	assert.Empty(t, pool.Get())

	assert.NotPanics(t, func() { pool.Put(make([]byte, 0, 64)) })
	assert.Equal(t, DefaultMaxFrameSize, cap(NewBufferPool(0).Get()))
}

func TestHandshakeTimeoutCoversDialAndUpgrade(t *testing.T) {
	const (
		timeout   = 400 * time.Millisecond
		dialDelay = 300 * time.Millisecond
	)
	// The server reads the request and never answers.
	addr := rawServer(t, "")
	dialer := &net.Dialer{Control: func(string, string, syscall.RawConn) error {
		time.Sleep(dialDelay)
		return nil
	}}
	c, err := NewWebSocketClient("ws://"+addr+"/chat", noopHandler(),
		WithDialer(dialer), WithHandshakeTimeout(timeout), WithLogger(quietLogger()))
	require.NoError(t, err)

	start := time.Now()
	err = c.Run(context.Background())
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrTransport)
	assert.Less(t, elapsed, timeout+dialDelay-50*time.Millisecond)
}
