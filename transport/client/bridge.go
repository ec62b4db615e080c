package client

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Bridge drives a handler against the stream of an upgraded connection.
type Bridge struct {
	logger logrus.FieldLogger
	// context, when set, is lent to handlers that do not provide their own.
	context *HandlerContext
}

// NewBridge creates a Bridge. hctx may be nil, in which case each session
// gets a fresh context owned by the Bridge.
func NewBridge(logger logrus.FieldLogger, hctx *HandlerContext) *Bridge {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Bridge{logger: logger, context: hctx}
}

// Run waits for n to resolve and hands the outcome to Handle.
func (b *Bridge) Run(ctx context.Context, n *Negotiation, h Handler) error {
	outcome, err := n.Wait(ctx)
	if err != nil {
		return err
	}
	return b.Handle(ctx, outcome, h)
}

// Handle invokes h on an upgraded outcome and returns its error unchanged.
// A NotUpgraded outcome never reaches h; it is logged once and reported as
// *UpgradeDeclinedError.
func (b *Bridge) Handle(ctx context.Context, outcome UpgradeOutcome, h Handler) error {
	switch o := outcome.(type) {
	case *Upgraded:
		stream := o.Take()
		if stream == nil {
			return &ConfigurationError{Reason: "upgraded stream already taken"}
		}
		return b.bridge(ctx, stream, h)
	case *NotUpgraded:
		// The upgrade to websocket did not succeed.
		b.logger.WithField("status", o.StatusCode).Debug("Upgrade declined")
		return &UpgradeDeclinedError{StatusCode: o.StatusCode}
	}
	return fmt.Errorf("websocket client: unexpected upgrade outcome %T", outcome)
}

func (b *Bridge) bridge(ctx context.Context, stream *FrameStream, h Handler) error {
	session := newSession(stream, RoleClient)
	lease := b.leaseContext(h, session, stream)
	defer lease.release()

	stop := context.AfterFunc(ctx, func() {
		stream.Release()
	})
	defer stop()

	err := h.Handle(ctx, session, lease.hctx)
	if rerr := stream.Release(); rerr != nil && err == nil {
		b.logger.WithField("session", session.ID()).WithError(rerr).Debug("release websocket stream")
	}
	return err
}

func (b *Bridge) leaseContext(h Handler, session *Session, stream *FrameStream) contextLease {
	if p, ok := h.(ContextProvider); ok {
		if hctx := p.AlreadySetupContext(); hctx != nil {
			return borrowContext(hctx)
		}
	}
	if b.context != nil {
		return borrowContext(b.context)
	}
	logger := b.logger.WithFields(logrus.Fields{
		"session": session.ID(),
		"role":    session.Role().String(),
	})
	return ownContext(logger, stream.Allocator())
}
