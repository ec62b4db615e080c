package client

import (
	"context"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
)

// UpgradeOutcome is the result of a negotiation. It is either *Upgraded or
// *NotUpgraded; no other implementation exists.
type UpgradeOutcome interface {
	upgradeOutcome()
}

// Upgraded holds the only handle to the upgraded connection until Take moves
// it out.
type Upgraded struct {
	stream      atomic.Pointer[FrameStream]
	subprotocol string
}

// NotUpgraded reports a server answer that did not switch protocols. The
// response body is capped by the handshake layer.
type NotUpgraded struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (*Upgraded) upgradeOutcome()    {}
func (*NotUpgraded) upgradeOutcome() {}

func newUpgraded(stream *FrameStream) *Upgraded {
	u := &Upgraded{subprotocol: stream.conn.Subprotocol()}
	u.stream.Store(stream)
	return u
}

// Take moves the stream out of the outcome. Only the first call gets it.
func (u *Upgraded) Take() *FrameStream {
	return u.stream.Swap(nil)
}

// Subprotocol returns the subprotocol the server selected, if any.
func (u *Upgraded) Subprotocol() string {
	return u.subprotocol
}

func newNotUpgraded(resp *http.Response) *NotUpgraded {
	n := &NotUpgraded{StatusCode: resp.StatusCode, Header: resp.Header.Clone()}
	if resp.Body != nil {
		n.Body, _ = io.ReadAll(resp.Body)
		resp.Body.Close()
	}
	return n
}

// Negotiation is the pending result of one upgrade attempt. It resolves
// exactly once.
type Negotiation struct {
	once    sync.Once
	done    chan struct{}
	outcome UpgradeOutcome
	err     error
}

func newNegotiation() *Negotiation {
	return &Negotiation{done: make(chan struct{})}
}

func (n *Negotiation) resolve(outcome UpgradeOutcome, err error) {
	n.once.Do(func() {
		n.outcome, n.err = outcome, err
		close(n.done)
	})
}

// Done is closed once the negotiation has resolved.
func (n *Negotiation) Done() <-chan struct{} {
	return n.done
}

// Wait blocks until the negotiation resolves or ctx is done. A caller that
// gives up through ctx abandons the attempt: if it later resolves as
// Upgraded, the stream is released instead of leaking.
func (n *Negotiation) Wait(ctx context.Context) (UpgradeOutcome, error) {
	select {
	case <-n.done:
		return n.outcome, n.err
	case <-ctx.Done():
		go n.discard()
		return nil, ctx.Err()
	}
}

func (n *Negotiation) discard() {
	<-n.done
	if up, ok := n.outcome.(*Upgraded); ok {
		if stream := up.Take(); stream != nil {
			stream.Release()
		}
	}
}
