// Package recorder persists the frames exchanged on client sessions.
package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/vkviyu/wsbridge/transport/client"
)

// Record is one stored frame.
type Record struct {
	Seq       uint64    `json:"seq"`
	SessionID string    `json:"session_id" validate:"required"`
	Direction string    `json:"direction" validate:"oneof=in out"`
	Type      string    `json:"type" validate:"oneof=text binary"`
	Payload   []byte    `json:"payload"`
	At        time.Time `json:"at"`
}

// Store keeps records grouped by session. Implementations are safe for
// concurrent use.
type Store interface {
	// Append assigns rec.Seq and stores it.
	Append(rec Record) (uint64, error)
	// Records returns the records of sessionID in Seq order.
	Records(sessionID string) ([]Record, error)
	// Sessions lists the ids that have at least one record.
	Sessions() ([]string, error)
	Close() error
}

// Backend names a Store implementation.
type Backend string

const (
	BackendNone   Backend = "none"
	BackendBolt   Backend = "bbolt"
	BackendBadger Backend = "badger"
)

// Open opens the store for backend at path. BackendNone returns nil, nil.
func Open(backend Backend, path string) (Store, error) {
	switch backend {
	case BackendNone, "":
		return nil, nil
	case BackendBolt:
		return NewBoltStore(path)
	case BackendBadger:
		return NewBadgerStore(path)
	}
	return nil, fmt.Errorf("recorder: unknown backend %q", backend)
}

type recordingHandler struct {
	next  client.Handler
	store Store
}

// Wrap returns a handler that records every frame of the session in store
// and then runs next. Storage failures are logged and never interrupt the
// session.
func Wrap(next client.Handler, store Store) client.Handler {
	if store == nil {
		return next
	}
	return &recordingHandler{next: next, store: store}
}

func (h *recordingHandler) Handle(ctx context.Context, session *client.Session, hctx *client.HandlerContext) error {
	logger := hctx.Logger
	session.SetFrameObserver(client.FrameObserverFunc(func(sessionID string, dir client.Direction, mt client.MessageType, payload []byte) {
		rec := Record{
			SessionID: sessionID,
			Direction: dir.String(),
			Type:      mt.String(),
			Payload:   append([]byte(nil), payload...),
			At:        time.Now(),
		}
		if _, err := h.store.Append(rec); err != nil && logger != nil {
			logger.WithError(err).WithField("session", sessionID).Warn("record frame")
		}
	}))
	return h.next.Handle(ctx, session, hctx)
}

// AlreadySetupContext forwards to the wrapped handler so wrapping does not
// change which context the Bridge uses.
func (h *recordingHandler) AlreadySetupContext() *client.HandlerContext {
	if p, ok := h.next.(client.ContextProvider); ok {
		return p.AlreadySetupContext()
	}
	return nil
}
