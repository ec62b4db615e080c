package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// AuthFunc is a function that authenticates a connection.
// It takes an HTTP request and returns a boolean indicating whether the connection is authenticated
// and a string identifying the connection.
type AuthFunc func(r *http.Request) (authResult bool, id string)

type AuthFailFunc func(rw http.ResponseWriter, r *http.Request)

// DefaultAuthFunc accepts every request and assigns a random connection id.
var DefaultAuthFunc AuthFunc = func(r *http.Request) (bool, string) {
	return true, uuid.New().String()
}

var DefaultAuthFailFunc AuthFailFunc = func(rw http.ResponseWriter, r *http.Request) {
	http.Error(rw, "Unauthorized", http.StatusUnauthorized)
}

// BearerTokenAuthFunc accepts requests carrying "Authorization: Bearer <token>".
// An empty token disables the check.
func BearerTokenAuthFunc(token string) AuthFunc {
	if token == "" {
		return DefaultAuthFunc
	}
	return func(r *http.Request) (bool, string) {
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			return false, ""
		}
		return true, uuid.New().String()
	}
}
