package router

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
)

// refreshTools rebuilds the tool catalog from every connected backend. The
// catalog is replaced wholesale; a backend whose discovery call fails is
// disconnected and excluded, without aborting discovery for the others.
func (r *Router) refreshTools(ctx context.Context) {
	r.mu.RLock()
	clients := make([]string, 0, len(r.clients))
	for id := range r.clients {
		clients = append(clients, id)
	}
	keywords := r.keywords
	r.mu.RUnlock()

	log.Info().Int("servers", len(clients)).Msg("Refreshing tool catalog")

	var tools []ToolSpec
	for _, serverID := range clients {
		result, err := r.rpc(ctx, serverID, "tools/list", nil, discoveryTimeout)
		if err != nil {
			log.Error().Err(err).Str("server", serverID).Msg("Tool discovery failed")
			log.Warn().Str("server", serverID).Msg("Disconnecting unhealthy server")
			r.disconnectServer(serverID)
			continue
		}

		serverTools := parseToolList(serverID, result, keywords)
		log.Info().
			Str("server", serverID).
			Int("tools", len(serverTools)).
			Msg("Loaded tools from server")
		tools = append(tools, serverTools...)
	}

	r.mu.Lock()
	r.tools = tools
	r.mu.Unlock()
	r.updateGauges()

	log.Info().Int("total", len(tools)).Msg("Tool catalog rebuilt")
}

// parseToolList converts a tools/list result into ToolSpecs, classifying a
// tool sensitive when any configured keyword occurs in its name or
// description.
func parseToolList(serverID string, result map[string]interface{}, keywords []string) []ToolSpec {
	rawTools, _ := result["tools"].([]interface{})

	specs := make([]ToolSpec, 0, len(rawTools))
	for _, raw := range rawTools {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}

		name, _ := entry["name"].(string)
		if name == "" {
			continue
		}
		description, _ := entry["description"].(string)

		schema, _ := entry["inputSchema"].(map[string]interface{})
		if schema == nil {
			schema, _ = entry["input_schema"].(map[string]interface{})
		}

		haystack := strings.ToLower(name + " " + description)
		sensitive := false
		for _, kw := range keywords {
			if strings.Contains(haystack, kw) {
				sensitive = true
				break
			}
		}

		specs = append(specs, ToolSpec{
			ServerID:    serverID,
			Name:        name,
			Description: description,
			InputSchema: schema,
			Sensitive:   sensitive,
		})
	}

	return specs
}
