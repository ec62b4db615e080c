package cmd

import (
	"bytes"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkviyu/wsbridge/recorder"
	"github.com/vkviyu/wsbridge/transport/server"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	w := NewWsBridgeCmd()
	var out bytes.Buffer
	w.SetInput(strings.NewReader(stdin))
	w.SetOutput(&out)
	w.SetArgs(append(args, "--log-level", "error"))
	err := w.Execute()
	return out.String(), err
}

func TestConfigCmd(t *testing.T) {
	out, err := run(t, "", "config", "--set", "server.addr=0.0.0.0:9000", "-s", "client.max_frame_size=100")
	require.NoError(t, err)
	assert.Contains(t, out, "addr: 0.0.0.0:9000")
	assert.Contains(t, out, "max_frame_size: 100")
	assert.Contains(t, out, "level: error")
}

func TestConfigCmdRejects(t *testing.T) {
	_, err := run(t, "", "config", "--set", "novalue")
	assert.ErrorContains(t, err, "KEY=VALUE")

	_, err = run(t, "", "config", "--set", "recorder.backend=sqlite")
	assert.Error(t, err)
}

func TestConnectCmd(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	h, manager := server.NewHandler(server.Options{Path: "/chat", PlainPath: "/plain", Token: "secret"}, logger)
	srv := httptest.NewServer(h)
	defer srv.Close()
	defer manager.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	dbPath := filepath.Join(t.TempDir(), "records.db")
	out, err := run(t, "hello\nworld\n", "connect", url+"/chat",
		"-H", "Authorization: Bearer secret",
		"--record", "bbolt", "--record-path", dbPath,
		"--handshake-timeout", (5 * time.Second).String())
	require.NoError(t, err)
	assert.Equal(t, "< hello\n< world\n", out)

	store, err := recorder.Open(recorder.BackendBolt, dbPath)
	require.NoError(t, err)
	sessions, err := store.Sessions()
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	records, err := store.Records(sessions[0])
	require.NoError(t, err)
	assert.Len(t, records, 4)
	require.NoError(t, store.Close())

	out, err = run(t, "", "records", "--set", "recorder.backend=bbolt", "--set", "recorder.path="+dbPath)
	require.NoError(t, err)
	assert.Equal(t, sessions[0]+"\n", out)

	_, err = run(t, "", "connect", url+"/plain")
	assert.ErrorContains(t, err, "does not accept websocket upgrades")

	_, err = run(t, "", "connect", url+"/chat")
	assert.ErrorContains(t, err, "does not accept websocket upgrades")

	_, err = run(t, "", "connect")
	assert.ErrorContains(t, err, "no url")
}

func TestParseHeader(t *testing.T) {
	name, value, err := parseHeader("X-A: 1")
	require.NoError(t, err)
	assert.Equal(t, "X-A", name)
	assert.Equal(t, "1", value)

	name, value, err = parseHeader("X-B=two")
	require.NoError(t, err)
	assert.Equal(t, "X-B", name)
	assert.Equal(t, "two", value)

	_, _, err = parseHeader("novalue")
	assert.Error(t, err)
}
