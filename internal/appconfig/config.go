package appconfig

import (
	"os"
	"path/filepath"
	"time"

	"pkt.systems/tilesync/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int             `mapstructure:"config_version" yaml:"config_version"`
	Server        ServerConfig    `mapstructure:"server" yaml:"server"`
	Viewport      ViewportConfig  `mapstructure:"viewport" yaml:"viewport"`
	Tiles         TilesConfig     `mapstructure:"tiles" yaml:"tiles"`
	Selection     SelectionConfig `mapstructure:"selection" yaml:"selection"`
	Search        SearchConfig    `mapstructure:"search" yaml:"search"`
	Session       SessionConfig   `mapstructure:"session" yaml:"session"`
	Record        RecordConfig    `mapstructure:"record" yaml:"record"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// ServerConfig names the document server and the document to open.
type ServerConfig struct {
	URL                     string `mapstructure:"url" yaml:"url"`
	Document                string `mapstructure:"document" yaml:"document"`
	Origin                  string `mapstructure:"origin" yaml:"origin"`
	HandshakeTimeoutSeconds int    `mapstructure:"handshake_timeout_seconds" yaml:"handshake_timeout_seconds"`
}

// ViewportConfig sizes the headless viewport.
type ViewportConfig struct {
	Width   int `mapstructure:"width" yaml:"width"`
	Height  int `mapstructure:"height" yaml:"height"`
	Zoom    int `mapstructure:"zoom" yaml:"zoom"`
	MinZoom int `mapstructure:"min_zoom" yaml:"min_zoom"`
	MaxZoom int `mapstructure:"max_zoom" yaml:"max_zoom"`
}

// TilesConfig controls tile geometry and pre-fetching.
type TilesConfig struct {
	Size               int  `mapstructure:"size" yaml:"size"`
	Twips              int  `mapstructure:"twips" yaml:"twips"`
	ReferenceZoom      int  `mapstructure:"reference_zoom" yaml:"reference_zoom"`
	Prefetch           bool `mapstructure:"prefetch" yaml:"prefetch"`
	PrefetchRings      int  `mapstructure:"prefetch_rings" yaml:"prefetch_rings"`
	PrefetchIntervalMS int  `mapstructure:"prefetch_interval_ms" yaml:"prefetch_interval_ms"`
}

// SelectionConfig controls selection content fetching.
type SelectionConfig struct {
	DebounceMS int `mapstructure:"debounce_ms" yaml:"debounce_ms"`
}

// SearchConfig controls the not-found indication.
type SearchConfig struct {
	RearmMS int `mapstructure:"rearm_ms" yaml:"rearm_ms"`
}

// SessionConfig controls the initial interaction mode.
type SessionConfig struct {
	Permission string `mapstructure:"permission" yaml:"permission"`
}

// RecordConfig controls transcript recording of inbound frames.
type RecordConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Server: ServerConfig{
			URL:                     "ws://localhost:9980/lool/ws",
			Document:                "",
			Origin:                  "",
			HandshakeTimeoutSeconds: 10,
		},
		Viewport: ViewportConfig{
			Width:   1024,
			Height:  768,
			Zoom:    schema.DefaultReferenceZoom,
			MinZoom: 1,
			MaxZoom: 18,
		},
		Tiles: TilesConfig{
			Size:               schema.DefaultTileSize,
			Twips:              schema.DefaultTileTwips,
			ReferenceZoom:      schema.DefaultReferenceZoom,
			Prefetch:           true,
			PrefetchRings:      5,
			PrefetchIntervalMS: 250,
		},
		Selection: SelectionConfig{
			DebounceMS: int(schema.DefaultSelectionDebounce / time.Millisecond),
		},
		Search: SearchConfig{
			RearmMS: int(schema.DefaultSearchRearm / time.Millisecond),
		},
		Session: SessionConfig{
			Permission: string(schema.PermissionView),
		},
		Record: RecordConfig{
			Path: "",
		},
	}, nil
}

// EngineConfig maps the configuration onto the engine's settings.
func (c Config) EngineConfig() schema.EngineConfig {
	rings := 0
	if c.Tiles.Prefetch {
		rings = c.Tiles.PrefetchRings
	}
	return schema.EngineConfig{
		TileSize:          c.Tiles.Size,
		TileTwips:         c.Tiles.Twips,
		ReferenceZoom:     c.Tiles.ReferenceZoom,
		SelectionDebounce: time.Duration(c.Selection.DebounceMS) * time.Millisecond,
		SearchRearm:       time.Duration(c.Search.RearmMS) * time.Millisecond,
		Permission:        schema.Permission(c.Session.Permission),
		PrefetchRings:     rings,
	}
}

// PrefetchInterval returns the pre-fetch tick, or zero when pre-fetching is off.
func (c Config) PrefetchInterval() time.Duration {
	if !c.Tiles.Prefetch || c.Tiles.PrefetchRings == 0 {
		return 0
	}
	return time.Duration(c.Tiles.PrefetchIntervalMS) * time.Millisecond
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tilesync", "config.yaml"), nil
}
