package client

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// DefaultMaxFrameSize is the largest frame accepted when no bound is given.
const DefaultMaxFrameSize = 1 << 14

// ProtocolWebSocket is the Upgrade token the websocket upgrader is keyed by.
const ProtocolWebSocket = "websocket"

// reservedHeaders are written by the upgrade strategy itself.
var reservedHeaders = []string{
	"Upgrade",
	"Connection",
	"Sec-Websocket-Key",
	"Sec-Websocket-Version",
	"Sec-Websocket-Extensions",
}

// FixedHeaders returns the headers every upgrade request starts from.
func FixedHeaders() http.Header {
	h := make(http.Header, 2)
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Content-Length", "0")
	return h
}

// MergeHeaders returns base overlaid with extra. Keys are compared in their
// canonical form and a key present in extra replaces the whole value list of
// base, so the merge is right-biased on collisions. Neither input is modified.
func MergeHeaders(base, extra http.Header) http.Header {
	merged := make(http.Header, len(base)+len(extra))
	for k, vs := range base {
		merged[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}
	for k, vs := range extra {
		merged[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}
	return merged
}

// UpgradeRequest describes one upgrade attempt. It is immutable once built.
type UpgradeRequest struct {
	uri          string
	maxFrameSize int
	header       http.Header
}

// NewUpgradeRequest validates its inputs and builds an UpgradeRequest for the
// request target uri (for example "/chat?room=1"). A zero maxFrameSize selects
// DefaultMaxFrameSize.
func NewUpgradeRequest(uri string, maxFrameSize int, additional http.Header) (UpgradeRequest, error) {
	if uri == "" {
		uri = "/"
	}
	if _, err := url.ParseRequestURI(uri); err != nil || !strings.HasPrefix(uri, "/") {
		return UpgradeRequest{}, &ConfigurationError{Reason: fmt.Sprintf("invalid request target %q", uri)}
	}
	if maxFrameSize == 0 {
		maxFrameSize = DefaultMaxFrameSize
	}
	if maxFrameSize < 0 {
		return UpgradeRequest{}, &ConfigurationError{Reason: fmt.Sprintf("max frame size must be positive, got %d", maxFrameSize)}
	}
	for k := range additional {
		for _, name := range reservedHeaders {
			if http.CanonicalHeaderKey(k) == name {
				return UpgradeRequest{}, &ConfigurationError{Reason: "header " + name + " is set by the upgrader"}
			}
		}
	}
	return UpgradeRequest{
		uri:          uri,
		maxFrameSize: maxFrameSize,
		header:       MergeHeaders(FixedHeaders(), additional),
	}, nil
}

// Method is always GET.
func (r UpgradeRequest) Method() string {
	return http.MethodGet
}

func (r UpgradeRequest) URI() string {
	return r.uri
}

func (r UpgradeRequest) MaxFrameSize() int {
	return r.maxFrameSize
}

// Header returns a copy of the merged request headers.
func (r UpgradeRequest) Header() http.Header {
	return r.header.Clone()
}
