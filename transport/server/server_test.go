package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkviyu/wsbridge/transport/server/response"
	"github.com/vkviyu/wsbridge/utils/jsonutil"
)

func TestNewHandler(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	h, manager := NewHandler(Options{Path: "/chat", PlainPath: "/plain", Token: "secret"}, logger)
	defer manager.Close()
	require.NotNil(t, manager.GetEndpoint("/chat"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plain", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	status, err := jsonutil.ParseJson[PlainStatus](rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, PlainStatus{Status: "ok"}, *status)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body, err := jsonutil.ParseJson[response.ErrorBody](rec.Body.Bytes())
	require.NoError(t, err)
	assert.Contains(t, body.Error, "bearer token")
}
