package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseJSONOverridesDefaults(t *testing.T) {
	path := writeTempConfig(t, `{"selection":"PRIMARY","target":"UTF8_STRING","once":true,"poll":500}`)

	cfg := Config{Selection: "CLIPBOARD", Poll: 250}
	if err := ParseJSON(&cfg, path); err != nil {
		t.Fatalf("ParseJSON returned error: %v", err)
	}

	if cfg.Selection != "PRIMARY" || cfg.Target != "UTF8_STRING" {
		t.Fatalf("unexpected selection/target: %+v", cfg)
	}
	if !cfg.Once || cfg.Poll != 500 {
		t.Fatalf("unexpected once/poll: %+v", cfg)
	}
}

func TestParseJSONMissingFile(t *testing.T) {
	var cfg Config
	missing := filepath.Join(t.TempDir(), "missing.json")
	if err := ParseJSON(&cfg, missing); err == nil {
		t.Fatalf("ParseJSON expected error for missing file")
	}
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}
