package rpc

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/modgraph/internal/record"
)

func dialWS(t *testing.T, baseURL string, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(baseURL, "http") + "/ws"
	return websocket.DefaultDialer.Dial(wsURL, header)
}

func TestServerWebSocketPushesChanges(t *testing.T) {
	ts, e, _ := startTestServer(t)

	conn, _, err := dialWS(t, ts.URL, nil)
	require.NoError(t, err)
	defer conn.Close()

	e.MergeRecord(entryURL, record.PartialRecord{Entrypoint: record.Ptr(true)})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var c record.Change
	require.NoError(t, conn.ReadJSON(&c))
	assert.Equal(t, record.ChangeMerged, c.Kind)
	assert.Equal(t, uint64(1), c.Version)

	e.ClearAll()

	require.NoError(t, conn.ReadJSON(&c))
	assert.Equal(t, record.ChangeCleared, c.Kind)
	assert.Equal(t, uint64(1), c.Epoch)
}

func TestServerWebSocketRejectsForeignOrigin(t *testing.T) {
	ts, _, _ := startTestServer(t, WithAllowedOrigins([]string{"chrome-extension://abc"}))

	_, resp, err := dialWS(t, ts.URL, http.Header{"Origin": {"https://evil.test"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := dialWS(t, ts.URL, http.Header{"Origin": {"chrome-extension://abc"}})
	require.NoError(t, err)
	conn.Close()
}

func TestServerWebSocketClosesOnStop(t *testing.T) {
	ts, _, srv := startTestServer(t)

	conn, _, err := dialWS(t, ts.URL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, srv.Stop(context.Background()))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}
