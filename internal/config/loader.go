package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Loader reads the configuration document and tracks its modification time so
// the hot-reload loop can cheaply detect changes.
type Loader struct {
	configPath string
	lastMtime  time.Time
}

// NewLoader creates a new config loader for the given path.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// Load loads the configuration from file. A missing file yields the defaults.
func (l *Loader) Load() (*Config, error) {
	info, err := os.Stat(l.configPath)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(l.configPath)
	v.SetConfigType("json")

	v.SetEnvPrefix("HALO")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	l.lastMtime = info.ModTime()
	return cfg, nil
}

// LoadIfChanged loads the configuration only if the file's modification time
// differs from the last successful load. Returns (nil, false, nil) when the
// file is unchanged. On any failure the previous state is kept and the error
// is returned for logging.
func (l *Loader) LoadIfChanged() (*Config, bool, error) {
	info, err := os.Stat(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to stat config file: %w", err)
	}

	if info.ModTime().Equal(l.lastMtime) {
		return nil, false, nil
	}

	cfg, err := l.Load()
	if err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}

// ConfigPath returns the config file path.
func (l *Loader) ConfigPath() string {
	return l.configPath
}

// Load is a convenience function that creates a loader and loads the config.
func Load(configPath string) (*Config, error) {
	loader := NewLoader(configPath)
	return loader.Load()
}
