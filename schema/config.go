package schema

import (
	"fmt"
	"time"
)

// EngineConfig defines the tile geometry and timing of one session engine.
type EngineConfig struct {
	// TileSize is the tile edge in pixels.
	TileSize int
	// TileTwips is the tile edge in twips at ReferenceZoom.
	TileTwips int
	// ReferenceZoom is the zoom at which a tile spans TileTwips. Zero selects
	// DefaultReferenceZoom, so zoom 0 cannot be the reference.
	ReferenceZoom int
	// SelectionDebounce delays the selection content fetch.
	SelectionDebounce time.Duration
	// SearchRearm is how long a "not found" indication stays up.
	SearchRearm time.Duration
	Permission  Permission
	// PrefetchRings bounds speculative pre-fetching around the visible area;
	// 0 disables it.
	PrefetchRings int
}

const (
	// DefaultTileSize is the default tile edge in pixels.
	DefaultTileSize = 256
	// DefaultTileTwips is the default tile edge in twips at the reference zoom.
	DefaultTileTwips = 3840
	// DefaultReferenceZoom is the zoom at which a tile spans DefaultTileTwips.
	DefaultReferenceZoom = 10
	// DefaultSelectionDebounce is the selection content fetch delay.
	DefaultSelectionDebounce = 100 * time.Millisecond
	// DefaultSearchRearm is the not-found indication lifetime.
	DefaultSearchRearm = 500 * time.Millisecond
)

// NormalizeEngineConfig applies defaults and validates the config.
func NormalizeEngineConfig(cfg EngineConfig) (EngineConfig, error) {
	if cfg.TileSize <= 0 {
		cfg.TileSize = DefaultTileSize
	}
	if cfg.TileTwips <= 0 {
		cfg.TileTwips = DefaultTileTwips
	}
	switch {
	case cfg.ReferenceZoom < 0:
		return EngineConfig{}, fmt.Errorf("%w: reference zoom must not be negative", ErrInvalidConfig)
	case cfg.ReferenceZoom == 0:
		cfg.ReferenceZoom = DefaultReferenceZoom
	}
	if cfg.SelectionDebounce <= 0 {
		cfg.SelectionDebounce = DefaultSelectionDebounce
	}
	if cfg.SearchRearm <= 0 {
		cfg.SearchRearm = DefaultSearchRearm
	}
	perm, err := ParsePermission(string(cfg.Permission))
	if err != nil {
		return EngineConfig{}, err
	}
	cfg.Permission = perm
	if cfg.PrefetchRings < 0 {
		return EngineConfig{}, fmt.Errorf("%w: prefetch rings must not be negative", ErrInvalidConfig)
	}
	return cfg, nil
}
