package client

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/vkviyu/wsbridge/transport/server"
)

const testTimeout = 5 * time.Second

// countingConn counts writes and closes on the wrapped connection.
type countingConn struct {
	net.Conn
	writes atomic.Int64
	closes atomic.Int64
}

func (c *countingConn) Write(p []byte) (int, error) {
	c.writes.Add(1)
	return c.Conn.Write(p)
}

func (c *countingConn) Close() error {
	c.closes.Add(1)
	return c.Conn.Close()
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestServer(t *testing.T, opts server.Options) *httptest.Server {
	t.Helper()
	if opts.Path == "" {
		opts.Path = "/chat"
	}
	if opts.PlainPath == "" {
		opts.PlainPath = "/plain"
	}
	h, manager := server.NewHandler(opts, quietLogger())
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		manager.Close()
		srv.Close()
	})
	return srv
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func dialPipeline(t *testing.T, addr string) (*Pipeline, *countingConn) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, testTimeout)
	require.NoError(t, err)
	cc := &countingConn{Conn: conn}
	return NewPipeline(cc, addr), cc
}

func negotiate(t *testing.T, p *Pipeline, uri string, maxFrameSize int, header http.Header, logger logrus.FieldLogger) (UpgradeOutcome, error) {
	t.Helper()
	req, err := NewUpgradeRequest(uri, maxFrameSize, header)
	require.NoError(t, err)
	n, err := (&Negotiator{Logger: logger, HandshakeTimeout: testTimeout}).Negotiate(context.Background(), p, req)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	return n.Wait(ctx)
}

// rawServer accepts one connection, reads the request and answers with
// response verbatim. The connection stays open until the test ends.
func rawServer(t *testing.T, response string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan struct{})
	t.Cleanup(func() {
		close(done)
		ln.Close()
	})
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		if _, err := http.ReadRequest(bufio.NewReader(conn)); err != nil {
			return
		}
		if response != "" {
			conn.Write([]byte(response))
		}
		<-done
	}()
	return ln.Addr().String()
}

// capturingServer accepts one connection, hands the parsed upgrade request
// to the returned channel and answers 200 without switching protocols.
func capturingServer(t *testing.T) (string, <-chan *http.Request) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	requests := make(chan *http.Request, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		req, err := http.ReadRequest(bufio.NewReader(conn))
		if err != nil {
			return
		}
		requests <- req
		conn.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n"))
	}()
	return ln.Addr().String(), requests
}
