package client

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// closeGracePeriod bounds how long Release waits to deliver the close frame.
var closeGracePeriod = time.Second

// FrameStream owns an upgraded connection. It is created by an Upgrader and
// released exactly once, by whoever holds it last.
type FrameStream struct {
	conn         *websocket.Conn
	maxFrameSize int
	allocator    *BufferPool

	releaseOnce sync.Once
	releaseErr  error
	released    chan struct{}
}

func newFrameStream(conn *websocket.Conn, maxFrameSize int, allocator *BufferPool) *FrameStream {
	conn.SetReadLimit(int64(maxFrameSize))
	return &FrameStream{
		conn:         conn,
		maxFrameSize: maxFrameSize,
		allocator:    allocator,
		released:     make(chan struct{}),
	}
}

// Conn exposes the underlying websocket connection.
func (s *FrameStream) Conn() *websocket.Conn {
	return s.conn
}

func (s *FrameStream) MaxFrameSize() int {
	return s.maxFrameSize
}

// Allocator returns the buffer pool bound to this connection, or nil.
func (s *FrameStream) Allocator() *BufferPool {
	return s.allocator
}

// Release sends a best effort close frame and closes the connection. Only
// the first call does anything; later calls return the first result.
func (s *FrameStream) Release() error {
	s.releaseOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
		s.releaseErr = s.conn.Close()
		close(s.released)
	})
	return s.releaseErr
}

// Released is closed once the stream has been released.
func (s *FrameStream) Released() <-chan struct{} {
	return s.released
}

// BufferPool hands out reusable byte slices for building frame payloads.
// It is safe for concurrent use and may be shared between connections.
type BufferPool struct {
	size int
	pool sync.Pool
}

// NewBufferPool creates a pool whose slices start with capacity size.
func NewBufferPool(size int) *BufferPool {
	if size <= 0 {
		size = DefaultMaxFrameSize
	}
	p := &BufferPool{size: size}
	p.pool.New = func() any {
		b := make([]byte, 0, p.size)
		return &b
	}
	return p
}

// Get returns an empty slice with at least the pool's capacity.
func (p *BufferPool) Get() []byte {
	return (*p.pool.Get().(*[]byte))[:0]
}

// Put returns b to the pool. Oversized slices are dropped.
func (p *BufferPool) Put(b []byte) {
	if cap(b) > 4*p.size {
		return
	}
	b = b[:0]
	p.pool.Put(&b)
}
