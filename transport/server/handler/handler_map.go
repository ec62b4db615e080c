package handler

import (
	"net/http"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// HandlerMap maps ServeMux patterns to handlers.
type HandlerMap map[string]http.Handler

func NewHandlerMap() HandlerMap {
	return make(HandlerMap)
}

func (h HandlerMap) Add(pattern string, handler http.Handler) {
	h[pattern] = handler
}

func (h HandlerMap) AddFunc(pattern string, handlerFunc func(http.ResponseWriter, *http.Request)) {
	h[pattern] = http.HandlerFunc(handlerFunc)
}

func (h HandlerMap) Get(pattern string) http.Handler {
	return h[pattern]
}

// Patterns returns the registered patterns in sorted order.
func (h HandlerMap) Patterns() []string {
	patterns := make([]string, 0, len(h))
	for pattern := range h {
		patterns = append(patterns, pattern)
	}
	sort.Strings(patterns)
	return patterns
}

// GetServeMux builds a ServeMux from handlerMap. When logger is non-nil every
// request is logged after it has been served.
func GetServeMux(handlerMap HandlerMap, logger logrus.FieldLogger) *http.ServeMux {
	mux := http.NewServeMux()
	for _, pattern := range handlerMap.Patterns() {
		handler := handlerMap[pattern]
		if logger != nil {
			handler = logRequests(logger, handler)
		}
		mux.Handle(pattern, handler)
	}
	return mux
}

func logRequests(logger logrus.FieldLogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"remote":   r.RemoteAddr,
			"duration": time.Since(start),
		}).Debug("request served")
	})
}
