package schema

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeServerURL(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		want  string
		valid bool
	}{
		{"ws", "ws://localhost:9980/lool", "ws://localhost:9980/lool", true},
		{"wss", "wss://example.com/ws", "wss://example.com/ws", true},
		{"http-rewritten", "http://localhost:9980", "ws://localhost:9980", true},
		{"https-rewritten", "https://example.com", "wss://example.com", true},
		{"trimmed", "  ws://h ", "ws://h", true},
		{"empty", "", "", false},
		{"no-host", "ws:///path", "", false},
		{"bad-scheme", "ftp://example.com", "", false},
	}

	for _, tc := range cases {
		got, err := NormalizeServerURL(tc.raw)
		if tc.valid && err != nil {
			t.Fatalf("case %q expected valid, got error: %v", tc.name, err)
		}
		if !tc.valid {
			if err == nil {
				t.Fatalf("case %q expected error, got nil", tc.name)
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("case %q expected ErrInvalidConfig, got %v", tc.name, err)
			}
			continue
		}
		if got != tc.want {
			t.Fatalf("case %q expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestNormalizeDocumentURL(t *testing.T) {
	if _, err := NormalizeDocumentURL("file:///tmp/a b.odt"); err == nil {
		t.Fatalf("expected whitespace to be rejected")
	}
	got, err := NormalizeDocumentURL(" file:///tmp/doc.odt ")
	if err != nil || got != "file:///tmp/doc.odt" {
		t.Fatalf("unexpected result %q, %v", got, err)
	}
}

func TestNormalizeEngineConfigDefaults(t *testing.T) {
	cfg, err := NormalizeEngineConfig(EngineConfig{})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.TileSize != 256 || cfg.TileTwips != 3840 || cfg.ReferenceZoom != 10 {
		t.Fatalf("unexpected geometry defaults %+v", cfg)
	}
	if cfg.SelectionDebounce != 100*time.Millisecond || cfg.SearchRearm != 500*time.Millisecond {
		t.Fatalf("unexpected timing defaults %+v", cfg)
	}
	if cfg.Permission != PermissionView {
		t.Fatalf("expected view permission, got %q", cfg.Permission)
	}
	if _, err := NormalizeEngineConfig(EngineConfig{Permission: "owner"}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected invalid permission error, got %v", err)
	}
	if _, err := NormalizeEngineConfig(EngineConfig{PrefetchRings: -1}); err == nil {
		t.Fatalf("expected negative rings to be rejected")
	}
	if _, err := NormalizeEngineConfig(EngineConfig{ReferenceZoom: -1}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected negative reference zoom to be rejected, got %v", err)
	}
	if cfg, err := NormalizeEngineConfig(EngineConfig{ReferenceZoom: 3}); err != nil || cfg.ReferenceZoom != 3 {
		t.Fatalf("expected explicit reference zoom kept, got %+v, %v", cfg, err)
	}
}

func TestDegenerateRect(t *testing.T) {
	if !RectXYWH(0, 0, 0, 0).Empty() || !NoRect.Empty() {
		t.Fatalf("all-zero rectangle must be the sentinel")
	}
	if RectXYWH(0, 0, 1, 0).Empty() {
		t.Fatalf("non-degenerate rectangle reported as sentinel")
	}
	if !RectXYWH(0, 0, 10, 10).Intersects(RectXYWH(10, 10, 5, 5)) {
		t.Fatalf("touching edges must intersect")
	}
}
