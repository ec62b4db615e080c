package handler

import (
	"net/http"
	"net/url"
	"strings"
)

type DynamicHandlerConfig struct {
	// Get is the handler function for GET requests, with query parameters.
	// It also serves HEAD requests.
	Get func(w http.ResponseWriter, r *http.Request, query url.Values)
	// Post is the handler function for POST requests
	Post func(w http.ResponseWriter, r *http.Request)
	// Put is the handler function for PUT requests
	Put func(w http.ResponseWriter, r *http.Request)
	// Delete is the handler function for DELETE requests, with query parameters.
	Delete func(w http.ResponseWriter, r *http.Request, query url.Values)
}

func (c DynamicHandlerConfig) allowed() string {
	var methods []string
	if c.Get != nil {
		methods = append(methods, http.MethodGet, http.MethodHead)
	}
	if c.Post != nil {
		methods = append(methods, http.MethodPost)
	}
	if c.Put != nil {
		methods = append(methods, http.MethodPut)
	}
	if c.Delete != nil {
		methods = append(methods, http.MethodDelete)
	}
	return strings.Join(methods, ", ")
}

// NewDynamicHandler dispatches on the request method. Methods without a
// handler get 405 with an Allow header.
func NewDynamicHandler(config DynamicHandlerConfig) http.HandlerFunc {
	allow := config.allowed()
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead:
			if config.Get != nil {
				config.Get(w, r, r.URL.Query())
				return
			}
		case http.MethodPost:
			if config.Post != nil {
				config.Post(w, r)
				return
			}
		case http.MethodPut:
			if config.Put != nil {
				config.Put(w, r)
				return
			}
		case http.MethodDelete:
			if config.Delete != nil {
				config.Delete(w, r, r.URL.Query())
				return
			}
		}
		w.Header().Set("Allow", allow)
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
