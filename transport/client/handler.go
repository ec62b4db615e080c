package client

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Handler processes the frames of one session. It is the only consumer of
// the session's frames and should return when the session ends.
type Handler interface {
	Handle(ctx context.Context, session *Session, hctx *HandlerContext) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, session *Session, hctx *HandlerContext) error

func (f HandlerFunc) Handle(ctx context.Context, session *Session, hctx *HandlerContext) error {
	return f(ctx, session, hctx)
}

// ContextProvider is implemented by handlers that already carry a context
// scoped to a longer lived session. The Bridge borrows it instead of
// building one.
type ContextProvider interface {
	AlreadySetupContext() *HandlerContext
}

// HandlerContext carries the logger and allocator a handler uses for one
// session.
type HandlerContext struct {
	Logger    logrus.FieldLogger
	Allocator *BufferPool

	mu       sync.Mutex
	cleanups []func()
}

// NewHandlerContext builds a context; nil arguments get defaults.
func NewHandlerContext(logger logrus.FieldLogger, allocator *BufferPool) *HandlerContext {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if allocator == nil {
		allocator = NewBufferPool(DefaultMaxFrameSize)
	}
	return &HandlerContext{Logger: logger, Allocator: allocator}
}

// OnRelease registers fn to run when the context's owner releases it. For a
// context built by the Bridge that is when the session ends; a context
// supplied from outside is released by whoever created it.
func (c *HandlerContext) OnRelease(fn func()) {
	c.mu.Lock()
	c.cleanups = append(c.cleanups, fn)
	c.mu.Unlock()
}

// Release runs the registered cleanups in reverse order, once.
func (c *HandlerContext) Release() {
	c.mu.Lock()
	cleanups := c.cleanups
	c.cleanups = nil
	c.mu.Unlock()
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

// contextLease records whether the Bridge built the context it hands out.
// Only owned contexts are torn down when the session ends.
type contextLease struct {
	hctx  *HandlerContext
	owned bool
}

func borrowContext(hctx *HandlerContext) contextLease {
	return contextLease{hctx: hctx}
}

func ownContext(logger logrus.FieldLogger, allocator *BufferPool) contextLease {
	return contextLease{hctx: NewHandlerContext(logger, allocator), owned: true}
}

func (l contextLease) release() {
	if l.owned {
		l.hctx.Release()
	}
}
