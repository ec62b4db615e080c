package client

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Negotiator runs the upgrade handshake on a Pipeline.
type Negotiator struct {
	Logger           logrus.FieldLogger
	HandshakeTimeout time.Duration
	Subprotocols     []string
	// Allocator is bound to every stream this negotiator produces.
	Allocator *BufferPool
}

// Negotiate registers a websocket upgrader sized by req.MaxFrameSize and a
// not-upgraded continuation on p, then sends req. The returned Negotiation
// resolves to exactly one of *Upgraded or *NotUpgraded, or to a
// *TransportError.
func (n *Negotiator) Negotiate(ctx context.Context, p *Pipeline, req UpgradeRequest) (*Negotiation, error) {
	logger := n.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	neg, err := p.ConfigureUpgrade(ctx, UpgradeConfiguration{
		Request:          req,
		Upgraders:        []Upgrader{NewWebSocketUpgrader(req.MaxFrameSize(), n.Allocator)},
		NotUpgraded:      DefaultNotUpgraded,
		HandshakeTimeout: n.HandshakeTimeout,
		Subprotocols:     n.Subprotocols,
	})
	if err != nil {
		logger.WithError(err).Trace("configure upgrade")
		return nil, err
	}
	logger.WithFields(logrus.Fields{
		"uri":            req.URI(),
		"max_frame_size": req.MaxFrameSize(),
	}).Trace("upgrade request submitted")
	return neg, nil
}
