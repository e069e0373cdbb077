package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

const stopGracePeriod = 5 * time.Second

// StdioTransport launches a tool backend as a child process and exchanges
// newline-delimited JSON-RPC messages over its standard streams.
type StdioTransport struct {
	serverID string
	command  string
	args     []string
	env      map[string]string

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	lines  chan []byte
	closed bool
}

// NewStdio creates a stdio transport for the given backend.
func NewStdio(serverID, command string, args []string, env map[string]string) *StdioTransport {
	return &StdioTransport{
		serverID: serverID,
		command:  command,
		args:     args,
		env:      env,
	}
}

// Start launches the child process and begins reading its stdout.
func (t *StdioTransport) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cmd != nil {
		return nil
	}

	log.Info().
		Str("server", t.serverID).
		Str("command", t.command).
		Strs("args", t.args).
		Msg("Starting stdio server")

	// The process lifetime is owned by Close, not the Start context:
	// cancellation must not bypass the SIGTERM-then-grace shutdown.
	cmd := exec.Command(t.command, t.args...)
	cmd.Env = os.Environ()
	for k, v := range t.env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &ConnectionError{ServerID: t.serverID, Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &ConnectionError{ServerID: t.serverID, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &ConnectionError{ServerID: t.serverID, Err: err}
	}

	if err := cmd.Start(); err != nil {
		return &ConnectionError{ServerID: t.serverID, Err: err}
	}

	t.cmd = cmd
	t.attach(stdin, stdout)
	go t.drainStderr(stderr)

	return nil
}

// attach wires the transport to its peer's streams and starts the reader.
// Split out so tests can drive the framing over in-memory pipes.
func (t *StdioTransport) attach(stdin io.WriteCloser, stdout io.Reader) {
	t.stdin = stdin
	t.lines = make(chan []byte, 4)

	go func(lines chan<- []byte) {
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := make([]byte, len(scanner.Bytes()))
			copy(line, scanner.Bytes())
			lines <- line
		}
		close(lines)
	}(t.lines)
}

func (t *StdioTransport) drainStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		log.Debug().
			Str("server", t.serverID).
			Str("stderr", scanner.Text()).
			Msg("Backend stderr")
	}
}

// Call sends one request and waits for the matching response. Calls are
// serialized: the transport holds its lock for the full request/response
// exchange so wire traffic never interleaves.
func (t *StdioTransport) Call(ctx context.Context, method string, params map[string]interface{}, timeout time.Duration) (map[string]interface{}, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stdin == nil {
		return nil, fmt.Errorf("stdio server %s not started", t.serverID)
	}

	req := newRequest(method, params)
	data, err := encodeRequest(req)
	if err != nil {
		return nil, err
	}

	if _, err := t.stdin.Write(append(data, '\n')); err != nil {
		return nil, fmt.Errorf("failed to write to server %s: %w", t.serverID, err)
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case line, ok := <-t.lines:
			if !ok {
				return nil, &ProtocolError{ServerID: t.serverID, Message: "server closed unexpectedly"}
			}
			resp, result, err := decodeResponse(t.serverID, line)
			if err != nil {
				return nil, err
			}
			if responseID(resp) != req.ID {
				// Stale response from an earlier timed-out call.
				log.Debug().
					Str("server", t.serverID).
					Str("id", responseID(resp)).
					Msg("Dropping response with stale correlation id")
				continue
			}
			return result, nil

		case <-ctx.Done():
			return nil, ctx.Err()

		case <-deadline.C:
			return nil, &TimeoutError{ServerID: t.serverID, Method: method, Timeout: timeout}
		}
	}
}

// Close stops the child process, escalating from SIGTERM to SIGKILL after a
// grace period. It is idempotent.
func (t *StdioTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	if t.stdin != nil {
		_ = t.stdin.Close()
	}

	if t.cmd == nil || t.cmd.Process == nil {
		return nil
	}

	if err := t.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		log.Debug().Err(err).Str("server", t.serverID).Msg("Failed to signal backend, killing")
		return t.cmd.Process.Kill()
	}

	done := make(chan error, 1)
	go func() {
		done <- t.cmd.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-time.After(stopGracePeriod):
		log.Warn().Str("server", t.serverID).Msg("Backend did not stop in time, killing")
		return t.cmd.Process.Kill()
	}
}
