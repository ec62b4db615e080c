package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDynamicHandler(t *testing.T) {
	h := NewDynamicHandler(DynamicHandlerConfig{
		Get: func(w http.ResponseWriter, r *http.Request, query url.Values) {
			w.Write([]byte("get " + query.Get("q")))
		},
		Post: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		},
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?q=x", nil))
	assert.Equal(t, "get x", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, HEAD, POST", rec.Header().Get("Allow"))
}

func TestGetServeMux(t *testing.T) {
	handlers := NewHandlerMap()
	handlers.AddFunc("/b", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("b")) })
	handlers.Add("/a", http.NotFoundHandler())
	assert.Equal(t, []string{"/a", "/b"}, handlers.Patterns())
	require.NotNil(t, handlers.Get("/b"))
	assert.Nil(t, handlers.Get("/c"))

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	mux := GetServeMux(handlers, logger)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/b", nil))
	assert.Equal(t, "b", rec.Body.String())
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, "/b", hook.LastEntry().Data["path"])
}
