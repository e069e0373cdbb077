package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePeer simulates a backend on the far side of the stdio framing using
// in-memory pipes.
type fakePeer struct {
	stdinReader  *io.PipeReader
	stdoutWriter *io.PipeWriter
}

// attachFakePeer wires a transport to an in-process peer and returns it.
func attachFakePeer(t *StdioTransport) *fakePeer {
	stdinReader, stdinWriter := io.Pipe()
	stdoutReader, stdoutWriter := io.Pipe()

	t.attach(stdinWriter, stdoutReader)

	return &fakePeer{
		stdinReader:  stdinReader,
		stdoutWriter: stdoutWriter,
	}
}

// serve answers every request with handle's response object. A nil response
// means stay silent.
func (p *fakePeer) serve(handle func(req rpcRequest) map[string]interface{}) {
	go func() {
		scanner := bufio.NewScanner(p.stdinReader)
		for scanner.Scan() {
			req, err := decodeRequest(scanner.Bytes())
			if err != nil {
				continue
			}
			result := handle(req)
			if result == nil {
				continue
			}
			resp := map[string]interface{}{
				"jsonrpc": "2.0",
				"id":      req.ID,
				"result":  result,
			}
			data, _ := json.Marshal(resp)
			if _, err := p.stdoutWriter.Write(append(data, '\n')); err != nil {
				return
			}
		}
	}()
}

func (p *fakePeer) close() {
	p.stdinReader.Close()
	p.stdoutWriter.Close()
}

func TestStdioTransport_Call(t *testing.T) {
	tr := NewStdio("test", "unused", nil, nil)
	peer := attachFakePeer(tr)
	defer peer.close()

	peer.serve(func(req rpcRequest) map[string]interface{} {
		return map[string]interface{}{"echo": req.Method}
	})

	result, err := tr.Call(context.Background(), "tools/list", nil, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "tools/list", result["echo"])
}

func TestStdioTransport_Call_Timeout(t *testing.T) {
	tr := NewStdio("test", "unused", nil, nil)
	peer := attachFakePeer(tr)
	defer peer.close()

	peer.serve(func(req rpcRequest) map[string]interface{} {
		return nil // never answer
	})

	_, err := tr.Call(context.Background(), "tools/call", nil, 50*time.Millisecond)
	require.Error(t, err)

	var timeoutErr *TimeoutError
	require.True(t, errors.As(err, &timeoutErr))
	assert.Equal(t, "tools/call", timeoutErr.Method)
}

func TestStdioTransport_Call_DropsStaleResponses(t *testing.T) {
	tr := NewStdio("test", "unused", nil, nil)
	peer := attachFakePeer(tr)
	defer peer.close()

	go func() {
		scanner := bufio.NewScanner(peer.stdinReader)
		for scanner.Scan() {
			req, err := decodeRequest(scanner.Bytes())
			if err != nil {
				continue
			}
			// A leftover response from an earlier timed-out call arrives
			// first; the real answer follows.
			stale, _ := json.Marshal(map[string]interface{}{
				"jsonrpc": "2.0",
				"id":      "stale-id",
				"result":  map[string]interface{}{"stale": true},
			})
			fresh, _ := json.Marshal(map[string]interface{}{
				"jsonrpc": "2.0",
				"id":      req.ID,
				"result":  map[string]interface{}{"fresh": true},
			})
			peer.stdoutWriter.Write(append(stale, '\n'))
			peer.stdoutWriter.Write(append(fresh, '\n'))
		}
	}()

	result, err := tr.Call(context.Background(), "tools/call", nil, time.Second)
	require.NoError(t, err)
	assert.Equal(t, true, result["fresh"])
	assert.NotContains(t, result, "stale")
}

func TestStdioTransport_Call_ErrorEnvelope(t *testing.T) {
	tr := NewStdio("test", "unused", nil, nil)
	peer := attachFakePeer(tr)
	defer peer.close()

	go func() {
		scanner := bufio.NewScanner(peer.stdinReader)
		for scanner.Scan() {
			req, err := decodeRequest(scanner.Bytes())
			if err != nil {
				continue
			}
			resp, _ := json.Marshal(map[string]interface{}{
				"jsonrpc": "2.0",
				"id":      req.ID,
				"error":   map[string]interface{}{"code": -32000, "message": "permission denied"},
			})
			peer.stdoutWriter.Write(append(resp, '\n'))
		}
	}()

	_, err := tr.Call(context.Background(), "tools/call", nil, time.Second)
	require.Error(t, err)

	var protoErr *ProtocolError
	require.True(t, errors.As(err, &protoErr))
	assert.Contains(t, protoErr.Message, "permission denied")
}

func TestStdioTransport_SerializesConcurrentCalls(t *testing.T) {
	tr := NewStdio("test", "unused", nil, nil)
	peer := attachFakePeer(tr)
	defer peer.close()

	peer.serve(func(req rpcRequest) map[string]interface{} {
		return map[string]interface{}{"echo": req.Method}
	})

	// Concurrent callers must each get their own response back; the lock
	// keeps request/response pairs from interleaving on the wire.
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			method := fmt.Sprintf("method/%d", i)
			result, err := tr.Call(context.Background(), method, nil, time.Second)
			assert.NoError(t, err)
			assert.Equal(t, method, result["echo"])
		}(i)
	}
	wg.Wait()
}

func TestStdioTransport_Call_NotStarted(t *testing.T) {
	tr := NewStdio("test", "unused", nil, nil)

	_, err := tr.Call(context.Background(), "tools/list", nil, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not started")
}

func TestStdioTransport_Close_Idempotent(t *testing.T) {
	tr := NewStdio("test", "unused", nil, nil)
	peer := attachFakePeer(tr)
	defer peer.close()

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
}

func TestStdioTransport_Close_GracefulAfterStartContextCancel(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "term-received")
	script := fmt.Sprintf("trap 'touch %s; exit 0' TERM; while true; do sleep 0.1; done", marker)

	tr := NewStdio("shell", "/bin/sh", []string{"-c", script}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, tr.Start(ctx))

	// Cancelling the Start context must not kill the child out from under
	// the graceful shutdown: Close still delivers SIGTERM.
	cancel()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, tr.Close())

	deadline := time.After(2 * time.Second)
	for {
		if _, err := os.Stat(marker); err == nil {
			return
		}
		select {
		case <-deadline:
			t.Fatal("backend never received SIGTERM")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestStdioTransport_Start_LaunchFailure(t *testing.T) {
	tr := NewStdio("test", "/nonexistent/definitely-not-a-binary", nil, nil)

	err := tr.Start(context.Background())
	require.Error(t, err)

	var connErr *ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, "test", connErr.ServerID)
}
