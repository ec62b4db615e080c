// Package server assembles the websocket peer served by "wsbridge serve".
package server

import (
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
	"github.com/vkviyu/wsbridge/transport/auth"
	"github.com/vkviyu/wsbridge/transport/server/handler"
	"github.com/vkviyu/wsbridge/transport/server/response"
	"github.com/vkviyu/wsbridge/transport/server/websocket"
)

type Options struct {
	// Path is where the echo endpoint upgrades connections.
	Path string
	// PlainPath, when set, answers GET with 200 and never upgrades.
	PlainPath string
	// Token, when set, is required as a bearer token on Path.
	Token     string
	ReadLimit int64
}

// PlainStatus is the body served on PlainPath.
type PlainStatus struct {
	Status  string `json:"status"`
	Upgrade bool   `json:"upgrade"`
}

// NewHandler builds the mux and returns it together with the endpoint
// manager so callers can close connections on shutdown.
func NewHandler(opts Options, logger logrus.FieldLogger) (http.Handler, *websocket.Manager) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	manager := websocket.NewManager()
	manager.AddEndpoint(websocket.NewEndpoint(opts.Path,
		websocket.WithAuthFunc(auth.BearerTokenAuthFunc(opts.Token)),
		websocket.WithAuthFailFunc(func(rw http.ResponseWriter, r *http.Request) {
			response.WriteUnauthorized(rw, "missing or invalid bearer token")
		}),
		websocket.WithReadLimit(opts.ReadLimit),
		websocket.WithLogger(logger),
	))

	handlers := handler.NewHandlerMap()
	manager.Mount(handlers)
	if opts.PlainPath != "" {
		handlers.Add(opts.PlainPath, handler.NewDynamicHandler(handler.DynamicHandlerConfig{
			Get: func(w http.ResponseWriter, r *http.Request, _ url.Values) {
				response.WriteOK(w, PlainStatus{Status: "ok", Upgrade: false})
			},
		}))
	}
	return handler.GetServeMux(handlers, logger), manager
}
