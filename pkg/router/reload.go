package router

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/akeildev/basicsHalo/internal/config"
)

// reloadLoop re-reads the config document on a fixed interval whenever its
// modification time changes, diffs the backend set, and re-runs discovery. A
// watcher on the config file's directory nudges the loop so edits are picked
// up without waiting a full interval; the mtime check stays authoritative.
// The loop runs until cancelled at Stop.
func (r *Router) reloadLoop(ctx context.Context) {
	defer close(r.reloadDone)

	interval := r.reloadInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	nudge := make(chan struct{}, 1)
	watcher := r.watchConfig(ctx, nudge)
	if watcher != nil {
		defer watcher.Close()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-nudge:
		}

		r.reloadOnce(ctx)
	}
}

// reloadOnce performs one reload cycle. All-or-nothing: a load failure keeps
// the previous fully-connected state, and no backend's failure aborts the
// cycle for the others.
func (r *Router) reloadOnce(ctx context.Context) {
	cfg, changed, err := r.loader.LoadIfChanged()
	if err != nil {
		log.Error().Err(err).Msg("Failed to reload config, keeping previous state")
		if r.metrics != nil {
			r.metrics.ConfigReloadsTotal.WithLabelValues("error").Inc()
		}
		return
	}
	if !changed {
		return
	}

	log.Info().Int("servers", len(cfg.Servers)).Msg("Config changed, reloading")

	r.mu.RLock()
	current := make(map[string]bool, len(r.clients))
	for id := range r.clients {
		current[id] = true
	}
	r.mu.RUnlock()

	wanted := make(map[string]bool, len(cfg.Servers))
	for _, server := range cfg.Servers {
		wanted[server.ID] = true
	}

	// Disconnect removed backends.
	for id := range current {
		if !wanted[id] {
			log.Info().Str("server", id).Msg("Removing server")
			r.disconnectServer(id)
		}
	}

	r.mu.Lock()
	r.applyConfigLocked(cfg)
	r.mu.Unlock()

	// Connect added backends; unchanged ones stay connected.
	for _, server := range cfg.Servers {
		if !current[server.ID] {
			log.Info().Str("server", server.ID).Msg("Adding server")
			r.connectServer(ctx, server)
		}
	}

	r.refreshTools(ctx)

	if r.metrics != nil {
		r.metrics.ConfigReloadsTotal.WithLabelValues("ok").Inc()
	}
}

// watchConfig watches the config file's directory and nudges the reload loop
// on writes to the file. Best-effort: when the watcher cannot be created the
// interval poll still covers reloads.
func (r *Router) watchConfig(ctx context.Context, nudge chan<- struct{}) *fsnotify.Watcher {
	configPath := r.loader.ConfigPath()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create config watcher, relying on interval poll")
		return nil
	}

	if err := watcher.Add(filepath.Dir(configPath)); err != nil {
		log.Warn().Err(err).Str("path", configPath).Msg("Failed to watch config directory")
		watcher.Close()
		return nil
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != configPath {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				select {
				case nudge <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("Config watcher error")
			}
		}
	}()

	return watcher
}

func (r *Router) reloadInterval() time.Duration {
	rt := r.Runtime()
	sec := rt.ReloadEverySec
	if sec <= 0 {
		sec = config.DefaultConfig().Runtime.ReloadEverySec
	}
	return time.Duration(sec * float64(time.Second))
}
