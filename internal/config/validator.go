package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for structural problems before it is
// allowed to replace the running state.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	seen := make(map[string]bool, len(cfg.Servers))
	for i, server := range cfg.Servers {
		if strings.TrimSpace(server.ID) == "" {
			return fmt.Errorf("server[%d]: id is required", i)
		}
		if seen[server.ID] {
			return fmt.Errorf("server[%d]: duplicate id %q", i, server.ID)
		}
		seen[server.ID] = true

		switch server.Transport {
		case "stdio", "":
			if strings.TrimSpace(server.Command) == "" {
				return fmt.Errorf("server %q: stdio transport requires a command", server.ID)
			}
		case "ws", "websocket":
			if strings.TrimSpace(server.URL) == "" {
				return fmt.Errorf("server %q: websocket transport requires a url", server.ID)
			}
		default:
			// Unknown transports are skipped at connect time rather than
			// failing the whole document.
		}
	}

	if cfg.Policy.ConfirmTimeoutSec < 0 {
		return fmt.Errorf("policy: confirm_timeout_sec must not be negative")
	}
	if cfg.Policy.ToolTimeoutSec < 0 {
		return fmt.Errorf("policy: tool_timeout_sec must not be negative")
	}
	if cfg.Policy.Filler.FirstAfterMS < 0 || cfg.Policy.Filler.IntervalMS < 0 {
		return fmt.Errorf("policy: filler delays must not be negative")
	}
	if cfg.Runtime.ReloadEverySec < 0 {
		return fmt.Errorf("runtime: reload_every_sec must not be negative")
	}

	return nil
}
