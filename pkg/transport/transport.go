// Package transport provides point-to-point request/response channels to tool
// backends. Two variants exist: a stdio transport that launches a child
// process and speaks newline-delimited JSON-RPC over its standard streams, and
// a websocket transport that speaks the same message shapes over a persistent
// connection.
//
// Calls on a single transport are serialized under a mutex so that wire
// traffic never interleaves: one request, one response, in order.
package transport

import (
	"context"
	"time"
)

// Transport is a request/response channel to one backend.
type Transport interface {
	// Start establishes the channel. It fails with a *ConnectionError if the
	// subprocess cannot launch or the socket cannot be reached.
	Start(ctx context.Context) error

	// Call sends one request and returns the decoded result object. It fails
	// with a *TimeoutError if no response arrives within timeout, or a
	// *ProtocolError if the peer returns an error envelope or a malformed
	// message.
	Call(ctx context.Context, method string, params map[string]interface{}, timeout time.Duration) (map[string]interface{}, error)

	// Close releases the channel. It is idempotent.
	Close() error
}
