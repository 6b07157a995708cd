package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("REFINERY_DB", "")
	t.Setenv("REFINERY_LOG_LEVEL", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Setenv("REFINERY_DB", "")
	t.Setenv("REFINERY_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "refinery.yaml")
	src := `logging:
  level: debug
  json: true
database:
  path: /tmp/t.db
patterns:
  defaults:
    - "(?f, _) : _"
  file: patterns.txt
  watch: true
solve:
  depth: 8
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.JSON {
		t.Errorf("logging: %+v", cfg.Logging)
	}
	if cfg.Database.Path != "/tmp/t.db" {
		t.Errorf("database: %+v", cfg.Database)
	}
	if diff := cmp.Diff([]string{"(?f, _) : _"}, cfg.Patterns.Defaults); diff != "" {
		t.Errorf("patterns (-want +got):\n%s", diff)
	}
	if !cfg.Patterns.Watch || cfg.Patterns.File != "patterns.txt" {
		t.Errorf("patterns: %+v", cfg.Patterns)
	}
	if cfg.Solve.Depth != 8 {
		t.Errorf("solve depth: %d", cfg.Solve.Depth)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	for name, src := range map[string]string{
		"level.yaml": "logging:\n  level: shouting\n",
		"depth.yaml": "solve:\n  depth: -1\n",
		"yaml.yaml":  "logging: [not a map\n",
	} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("REFINERY_DB", "")
	t.Setenv("REFINERY_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "sub", "refinery.yaml")
	want := DefaultConfig()
	want.Database.Path = "x.db"
	want.Patterns.Watch = true
	if err := want.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip (-want +got):\n%s", diff)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("REFINERY_DB", "/env/override.db")
	t.Setenv("REFINERY_LOG_LEVEL", "warn")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/env/override.db" {
		t.Errorf("database path: %s", cfg.Database.Path)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("log level: %s", cfg.Logging.Level)
	}
}

func TestLogger(t *testing.T) {
	cfg := DefaultConfig()
	log, err := cfg.Logger()
	if err != nil {
		t.Fatalf("Logger: %v", err)
	}
	log.Debug("suppressed at info level")

	cfg.Logging.JSON = true
	cfg.Logging.Level = "error"
	if _, err := cfg.Logger(); err != nil {
		t.Fatalf("Logger(json): %v", err)
	}

	cfg.Logging.Level = "shouting"
	if _, err := cfg.Logger(); err == nil {
		t.Error("expected error for unknown level")
	}
}
