package appconfig

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pkt.systems/tilesync/schema"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def, _ := DefaultConfig()
	if cfg.Tiles != def.Tiles || cfg.Viewport != def.Viewport {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadRejectsUnsupportedConfigVersion(t *testing.T) {
	path := writeConfig(t, `
config_version: 9
server:
  url: ws://localhost:9980/ws
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unsupported config_version") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadRequiresConfigVersion(t *testing.T) {
	path := writeConfig(t, `
server:
  url: ws://localhost:9980/ws
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "config_version is required") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadNormalizesServerURL(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
server:
  url: https://docs.example.com/lool/ws
  document: file:///srv/doc.odt
tiles:
  prefetch_rings: 2
session:
  permission: edit
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.URL != "wss://docs.example.com/lool/ws" {
		t.Fatalf("unexpected url %q", cfg.Server.URL)
	}
	engine := cfg.EngineConfig()
	if engine.PrefetchRings != 2 || engine.Permission != schema.PermissionEdit {
		t.Fatalf("unexpected engine config %+v", engine)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"scheme": `
config_version: 1
server:
  url: ftp://example.com
`,
		"permission": `
config_version: 1
session:
  permission: owner
`,
		"zoom": `
config_version: 1
viewport:
  zoom: 40
`,
		"rings": `
config_version: 1
tiles:
  prefetch_rings: -1
`,
	}
	for name, content := range cases {
		path := writeConfig(t, content)
		if _, err := Load(path); !errors.Is(err, schema.ErrInvalidConfig) {
			t.Fatalf("%s: expected invalid config, got %v", name, err)
		}
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("FOO", "bar")
	value := expandEnv("$FOO/$UID/$GID/$MISSING")
	if !strings.HasPrefix(value, "bar/") {
		t.Fatalf("expected env expansion, got %q", value)
	}
	if strings.Contains(value, "$UID") || strings.Contains(value, "$GID") {
		t.Fatalf("expected UID/GID expansion, got %q", value)
	}
	if !strings.HasSuffix(value, "/$MISSING") {
		t.Fatalf("expected missing vars to remain, got %q", value)
	}
}

func TestLoadExpandsRecordPath(t *testing.T) {
	t.Setenv("TILESYNC_TEST_DIR", "/tmp/rec")
	path := writeConfig(t, `
config_version: 1
record:
  path: $TILESYNC_TEST_DIR/session.jsonl
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Record.Path != "/tmp/rec/session.jsonl" {
		t.Fatalf("unexpected record path %q", cfg.Record.Path)
	}
}

func TestWriteDefaultRespectsOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	written, err := WriteDefault(path, false)
	if err != nil {
		t.Fatalf("write default: %v", err)
	}
	if written != path {
		t.Fatalf("expected path %q, got %q", path, written)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config to exist: %v", err)
	}
	if _, err := WriteDefault(path, false); err == nil {
		t.Fatalf("expected error when config exists")
	}
	if _, err := WriteDefault(path, true); err != nil {
		t.Fatalf("expected overwrite to succeed: %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("expected written default to load: %v", err)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
