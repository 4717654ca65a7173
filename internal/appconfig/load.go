package appconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"pkt.systems/tilesync/schema"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("server.url", cfg.Server.URL)
	v.SetDefault("server.document", cfg.Server.Document)
	v.SetDefault("server.origin", cfg.Server.Origin)
	v.SetDefault("server.handshake_timeout_seconds", cfg.Server.HandshakeTimeoutSeconds)
	v.SetDefault("viewport.width", cfg.Viewport.Width)
	v.SetDefault("viewport.height", cfg.Viewport.Height)
	v.SetDefault("viewport.zoom", cfg.Viewport.Zoom)
	v.SetDefault("viewport.min_zoom", cfg.Viewport.MinZoom)
	v.SetDefault("viewport.max_zoom", cfg.Viewport.MaxZoom)
	v.SetDefault("tiles.size", cfg.Tiles.Size)
	v.SetDefault("tiles.twips", cfg.Tiles.Twips)
	v.SetDefault("tiles.reference_zoom", cfg.Tiles.ReferenceZoom)
	v.SetDefault("tiles.prefetch", cfg.Tiles.Prefetch)
	v.SetDefault("tiles.prefetch_rings", cfg.Tiles.PrefetchRings)
	v.SetDefault("tiles.prefetch_interval_ms", cfg.Tiles.PrefetchIntervalMS)
	v.SetDefault("selection.debounce_ms", cfg.Selection.DebounceMS)
	v.SetDefault("search.rearm_ms", cfg.Search.RearmMS)
	v.SetDefault("session.permission", cfg.Session.Permission)
	v.SetDefault("record.path", cfg.Record.Path)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Server.URL != "" {
		normalized, err := schema.NormalizeServerURL(cfg.Server.URL)
		if err != nil {
			return fmt.Errorf("server.url: %w", err)
		}
		cfg.Server.URL = normalized
	}
	if cfg.Viewport.Width <= 0 || cfg.Viewport.Height <= 0 {
		return fmt.Errorf("%w: viewport.width and viewport.height must be positive", schema.ErrInvalidConfig)
	}
	if cfg.Viewport.MinZoom > cfg.Viewport.MaxZoom {
		return fmt.Errorf("%w: viewport.min_zoom exceeds viewport.max_zoom", schema.ErrInvalidConfig)
	}
	if cfg.Viewport.Zoom < cfg.Viewport.MinZoom || cfg.Viewport.Zoom > cfg.Viewport.MaxZoom {
		return fmt.Errorf("%w: viewport.zoom %d outside [%d, %d]", schema.ErrInvalidConfig, cfg.Viewport.Zoom, cfg.Viewport.MinZoom, cfg.Viewport.MaxZoom)
	}
	if cfg.Tiles.PrefetchIntervalMS < 0 {
		return fmt.Errorf("%w: tiles.prefetch_interval_ms must not be negative", schema.ErrInvalidConfig)
	}
	if _, err := schema.NormalizeEngineConfig(cfg.EngineConfig()); err != nil {
		return err
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.Server.URL = expandEnv(cfg.Server.URL)
	cfg.Server.Document = expandEnv(cfg.Server.Document)
	cfg.Server.Origin = expandEnv(cfg.Server.Origin)
	cfg.Record.Path = expandEnv(cfg.Record.Path)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
