// Package router maintains live connections to a dynamic set of tool-providing
// backends, discovers their callable tools, classifies which are sensitive,
// and multiplexes call traffic per backend under hot-reloadable configuration.
package router

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/akeildev/basicsHalo/internal/config"
	"github.com/akeildev/basicsHalo/internal/logger"
	"github.com/akeildev/basicsHalo/internal/metrics"
	"github.com/akeildev/basicsHalo/pkg/transport"
)

const (
	initializeTimeout = 5 * time.Second
	discoveryTimeout  = 8 * time.Second
)

// Router owns the set of configured backends, their transports, and the
// aggregated tool catalog. Backend map and catalog are mutated only by the
// router's own connect/disconnect/discovery/reload paths; readers observe a
// consistent snapshot because rebuilds replace the whole collection.
type Router struct {
	loader  *config.Loader
	metrics *metrics.Metrics

	// transportFactory builds transports from server configs; replaceable in
	// tests.
	transportFactory func(config.ServerConfig) (transport.Transport, error)

	mu       sync.RWMutex
	cfg      *config.Config
	clients  map[string]transport.Transport
	tools    []ToolSpec
	keywords []string

	reloadCancel context.CancelFunc
	reloadDone   chan struct{}
}

// New creates a router reading its configuration from configPath.
func New(configPath string) *Router {
	return &Router{
		loader:  config.NewLoader(configPath),
		clients: make(map[string]transport.Transport),
	}
}

// SetMetrics attaches a metrics registry. Optional.
func (r *Router) SetMetrics(m *metrics.Metrics) {
	r.metrics = m
}

// Start loads configuration, connects every configured backend, and runs tool
// discovery. A single backend's connection failure is logged and that backend
// is simply absent from the routable set; it is not fatal to the others.
func (r *Router) Start(ctx context.Context) error {
	cfg, err := r.loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	r.mu.Lock()
	r.applyConfigLocked(cfg)
	r.mu.Unlock()

	log.Info().Int("servers", len(cfg.Servers)).Msg("Starting tool router")

	for _, server := range cfg.Servers {
		r.connectServer(ctx, server)
	}

	r.refreshTools(ctx)

	if cfg.Runtime.HotReload {
		log.Info().Float64("interval_sec", cfg.Runtime.ReloadEverySec).Msg("Hot reload enabled")
		reloadCtx, cancel := context.WithCancel(context.Background())
		r.reloadCancel = cancel
		r.reloadDone = make(chan struct{})
		go r.reloadLoop(reloadCtx)
	}

	return nil
}

// Stop cancels the hot-reload loop and closes every backend's transport.
func (r *Router) Stop() {
	log.Info().Msg("Stopping tool router")

	if r.reloadCancel != nil {
		r.reloadCancel()
		<-r.reloadDone
		r.reloadCancel = nil
	}

	r.mu.Lock()
	clients := r.clients
	r.clients = make(map[string]transport.Transport)
	r.tools = nil
	r.mu.Unlock()

	for id, client := range clients {
		log.Info().Str("server", id).Msg("Disconnecting backend")
		if err := client.Close(); err != nil {
			log.Error().Err(err).Str("server", id).Msg("Error closing backend")
		}
	}

	r.updateGauges()
}

// Policy returns the currently loaded policy configuration.
func (r *Router) Policy() config.PolicyConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cfg == nil {
		return config.DefaultConfig().Policy
	}
	return r.cfg.Policy
}

// Runtime returns the currently loaded runtime configuration.
func (r *Router) Runtime() config.RuntimeConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cfg == nil {
		return config.DefaultConfig().Runtime
	}
	return r.cfg.Runtime
}

// FindTools scores each known tool by the count of query tokens occurring in
// its name or description and returns the top maxResults, sorted by
// descending score then by name.
func (r *Router) FindTools(query string, maxResults int) []ToolSpec {
	tokens := tokenize(query)

	r.mu.RLock()
	tools := r.tools
	r.mu.RUnlock()

	type scored struct {
		score int
		tool  ToolSpec
	}

	matches := make([]scored, 0, len(tools))
	for _, tool := range tools {
		haystack := strings.ToLower(tool.Name + " " + tool.Description)
		score := 0
		for _, token := range tokens {
			if strings.Contains(haystack, token) {
				score++
			}
		}
		if score > 0 {
			matches = append(matches, scored{score: score, tool: tool})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].tool.Name < matches[j].tool.Name
	})

	if maxResults > 0 && len(matches) > maxResults {
		matches = matches[:maxResults]
	}

	result := make([]ToolSpec, len(matches))
	for i, m := range matches {
		result[i] = m.tool
	}
	return result
}

// GetToolByName returns the tool with the exact given name, or nil.
func (r *Router) GetToolByName(name string) *ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, tool := range r.tools {
		if tool.Name == name {
			spec := tool
			return &spec
		}
	}
	return nil
}

// Tools returns the current catalog snapshot.
func (r *Router) Tools() []ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools
}

// CallTool dispatches a call to the owning backend's transport. A zero
// timeout uses the policy default.
func (r *Router) CallTool(ctx context.Context, tool ToolSpec, arguments map[string]interface{}, timeout time.Duration) (map[string]interface{}, error) {
	if timeout <= 0 {
		timeout = r.defaultToolTimeout()
	}

	log.Info().
		Str("tool", tool.Name).
		Str("server", tool.ServerID).
		Interface("args", logger.SanitizeArgs(arguments)).
		Msg("Calling tool")

	start := time.Now()
	result, err := r.rpc(ctx, tool.ServerID, "tools/call", map[string]interface{}{
		"name":      tool.Name,
		"arguments": arguments,
	}, timeout)
	duration := time.Since(start)

	if err != nil {
		log.Error().
			Err(err).
			Str("tool", tool.Name).
			Dur("duration", duration).
			Msg("Tool call failed")
		if r.metrics != nil {
			r.metrics.ToolCallsTotal.WithLabelValues(tool.Name, "error").Inc()
			r.metrics.ToolCallErrorsTotal.WithLabelValues(tool.Name, errorType(err)).Inc()
		}
		return nil, err
	}

	log.Info().
		Str("tool", tool.Name).
		Dur("duration", duration).
		Msg("Tool call completed")
	if r.metrics != nil {
		r.metrics.ToolCallsTotal.WithLabelValues(tool.Name, "success").Inc()
		r.metrics.ToolCallDuration.WithLabelValues(tool.Name).Observe(duration.Seconds())
	}

	return result, nil
}

// rpc makes one call to a specific backend.
func (r *Router) rpc(ctx context.Context, serverID, method string, params map[string]interface{}, timeout time.Duration) (map[string]interface{}, error) {
	r.mu.RLock()
	client, ok := r.clients[serverID]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("server %s not connected", serverID)
	}

	return client.Call(ctx, method, params, timeout)
}

// connectServer connects one backend and performs the best-effort initialize
// handshake. Failures are logged and contained.
func (r *Router) connectServer(ctx context.Context, server config.ServerConfig) {
	client, err := r.newTransport(server)
	if err != nil {
		log.Error().Err(err).Str("server", server.ID).Msg("Failed to create transport")
		return
	}

	if err := client.Start(ctx); err != nil {
		log.Error().Err(err).Str("server", server.ID).Msg("Failed to connect to server")
		return
	}

	r.mu.Lock()
	r.clients[server.ID] = client
	r.mu.Unlock()
	r.updateGauges()

	log.Info().Str("server", server.ID).Msg("Connected to server")

	// Not all servers require the handshake, so a failure here is non-fatal.
	if _, err := client.Call(ctx, "initialize", initializeParams(), initializeTimeout); err != nil {
		log.Debug().Err(err).Str("server", server.ID).Msg("Optional initialize handshake failed")
	} else {
		log.Info().Str("server", server.ID).Msg("Initialized server")
	}
}

// disconnectServer removes a backend from the routable set and purges its
// tools in the same critical section, then closes the transport.
func (r *Router) disconnectServer(id string) {
	r.mu.Lock()
	client, ok := r.clients[id]
	if ok {
		delete(r.clients, id)
		kept := r.tools[:0:0]
		for _, tool := range r.tools {
			if tool.ServerID != id {
				kept = append(kept, tool)
			}
		}
		r.tools = kept
	}
	r.mu.Unlock()

	if !ok {
		return
	}

	if err := client.Close(); err != nil {
		log.Error().Err(err).Str("server", id).Msg("Error closing server")
	}
	r.updateGauges()
}

func (r *Router) newTransport(server config.ServerConfig) (transport.Transport, error) {
	if r.transportFactory != nil {
		return r.transportFactory(server)
	}
	switch server.Transport {
	case "stdio", "":
		return transport.NewStdio(server.ID, server.Command, server.Args, server.Env), nil
	case "ws", "websocket":
		return transport.NewWebSocket(server.ID, server.URL, server.Headers), nil
	default:
		return nil, fmt.Errorf("unknown transport type: %s", server.Transport)
	}
}

// applyConfigLocked installs a loaded config document. Caller holds r.mu.
func (r *Router) applyConfigLocked(cfg *config.Config) {
	r.cfg = cfg
	r.keywords = make([]string, 0, len(cfg.Policy.SensitiveKeywords))
	for _, kw := range cfg.Policy.SensitiveKeywords {
		r.keywords = append(r.keywords, strings.ToLower(kw))
	}
}

func (r *Router) defaultToolTimeout() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sec float64
	if r.cfg != nil {
		sec = r.cfg.Policy.ToolTimeoutSec
	}
	if sec <= 0 {
		sec = 25
	}
	return time.Duration(sec * float64(time.Second))
}

func (r *Router) updateGauges() {
	if r.metrics == nil {
		return
	}
	r.mu.RLock()
	backends := len(r.clients)
	tools := len(r.tools)
	r.mu.RUnlock()
	r.metrics.BackendsConnected.Set(float64(backends))
	r.metrics.ToolsDiscovered.Set(float64(tools))
}

func initializeParams() map[string]interface{} {
	return map[string]interface{}{
		"protocolVersion": "1.0.0",
		"capabilities": map[string]interface{}{
			"tools":     map[string]interface{}{"call": true},
			"resources": map[string]interface{}{"list": false, "read": false},
			"prompts":   map[string]interface{}{"list": false, "get": false},
		},
		"clientInfo": map[string]interface{}{
			"name":    "halo-voice-agent",
			"version": "1.0.0",
		},
	}
}

func tokenize(query string) []string {
	return strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == ','
	})
}

func errorType(err error) string {
	switch {
	case transport.IsTimeout(err):
		return "timeout"
	default:
		return "error"
	}
}
