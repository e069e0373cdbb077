package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newWSServer starts a test websocket backend whose handler receives decoded
// requests and returns result objects. A nil result stays silent.
func newWSServer(t *testing.T, handle func(req rpcRequest) map[string]interface{}) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			req, err := decodeRequest(msg)
			if err != nil {
				continue
			}
			result := handle(req)
			if result == nil {
				continue
			}
			resp, _ := json.Marshal(map[string]interface{}{
				"jsonrpc": "2.0",
				"id":      req.ID,
				"result":  result,
			})
			if err := conn.WriteMessage(websocket.TextMessage, resp); err != nil {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return strings.Replace(server.URL, "http", "ws", 1)
}

func TestWebSocketTransport_Call(t *testing.T) {
	server := newWSServer(t, func(req rpcRequest) map[string]interface{} {
		return map[string]interface{}{"echo": req.Method}
	})
	defer server.Close()

	tr := NewWebSocket("remote", wsURL(server), map[string]string{"Authorization": "Bearer token"})
	require.NoError(t, tr.Start(context.Background()))
	defer tr.Close()

	result, err := tr.Call(context.Background(), "tools/list", nil, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "tools/list", result["echo"])
}

func TestWebSocketTransport_Call_Timeout(t *testing.T) {
	server := newWSServer(t, func(req rpcRequest) map[string]interface{} {
		return nil // never answer
	})
	defer server.Close()

	tr := NewWebSocket("remote", wsURL(server), nil)
	require.NoError(t, tr.Start(context.Background()))
	defer tr.Close()

	_, err := tr.Call(context.Background(), "tools/call", nil, 100*time.Millisecond)
	require.Error(t, err)

	var timeoutErr *TimeoutError
	require.True(t, errors.As(err, &timeoutErr))
}

func TestWebSocketTransport_Start_ConnectionRefused(t *testing.T) {
	tr := NewWebSocket("remote", "ws://127.0.0.1:1/rpc", nil)

	err := tr.Start(context.Background())
	require.Error(t, err)

	var connErr *ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, "remote", connErr.ServerID)
}

func TestWebSocketTransport_Call_NotConnected(t *testing.T) {
	tr := NewWebSocket("remote", "ws://example.invalid", nil)

	_, err := tr.Call(context.Background(), "tools/list", nil, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
}

func TestWebSocketTransport_Close_Idempotent(t *testing.T) {
	server := newWSServer(t, func(req rpcRequest) map[string]interface{} {
		return map[string]interface{}{}
	})
	defer server.Close()

	tr := NewWebSocket("remote", wsURL(server), nil)
	require.NoError(t, tr.Start(context.Background()))

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
}
