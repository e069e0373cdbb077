package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketTransport speaks JSON-RPC over a persistent duplex connection to a
// remote tool backend.
type WebSocketTransport struct {
	serverID string
	url      string
	headers  map[string]string

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// NewWebSocket creates a websocket transport for the given backend.
func NewWebSocket(serverID, url string, headers map[string]string) *WebSocketTransport {
	return &WebSocketTransport{
		serverID: serverID,
		url:      url,
		headers:  headers,
	}
}

// Start dials the remote server.
func (t *WebSocketTransport) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return nil
	}

	log.Info().
		Str("server", t.serverID).
		Str("url", t.url).
		Msg("Connecting to websocket server")

	header := http.Header{}
	for k, v := range t.headers {
		header.Set(k, v)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, t.url, header)
	if err != nil {
		return &ConnectionError{ServerID: t.serverID, Err: err}
	}

	t.conn = conn
	return nil
}

// Call sends one request and waits for the matching response, serialized
// under the transport's lock.
func (t *WebSocketTransport) Call(ctx context.Context, method string, params map[string]interface{}, timeout time.Duration) (map[string]interface{}, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil, fmt.Errorf("websocket server %s not connected", t.serverID)
	}

	req := newRequest(method, params)
	data, err := encodeRequest(req)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	_ = t.conn.SetWriteDeadline(deadline)
	if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return nil, fmt.Errorf("failed to write to server %s: %w", t.serverID, err)
	}

	_ = t.conn.SetReadDeadline(deadline)
	for {
		_, msg, err := t.conn.ReadMessage()
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				return nil, &TimeoutError{ServerID: t.serverID, Method: method, Timeout: timeout}
			}
			return nil, &ProtocolError{ServerID: t.serverID, Message: fmt.Sprintf("read failed: %v", err)}
		}

		resp, result, err := decodeResponse(t.serverID, msg)
		if err != nil {
			return nil, err
		}
		if responseID(resp) != req.ID {
			log.Debug().
				Str("server", t.serverID).
				Str("id", responseID(resp)).
				Msg("Dropping response with stale correlation id")
			continue
		}
		return result, nil
	}
}

// Close closes the connection. It is idempotent.
func (t *WebSocketTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	if t.conn == nil {
		return nil
	}

	_ = t.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return t.conn.Close()
}
