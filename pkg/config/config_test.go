package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if !cfg.EnableInlineCaches {
		t.Errorf("inline caches should be on by default")
	}
	if cfg.ProfilerOutput != "stats.toml" {
		t.Errorf("ProfilerOutput = %q", cfg.ProfilerOutput)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "mdr.toml", `
hot-call-threshold = 3
inline-caches = false
profile-stats = true
stats-format = "cbor"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HotCallThreshold != 3 || cfg.EnableInlineCaches || !cfg.ProfileStats || cfg.StatsFormat != "cbor" {
		t.Errorf("unexpected config %+v", cfg)
	}
	// untouched keys keep defaults
	if !cfg.EnableCounters || cfg.ProfilerOutput != "stats.toml" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "mdr.yaml", "hot-call-threshold: 5\ntimers: true\nodir: out\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HotCallThreshold != 5 || !cfg.EnableTimers {
		t.Errorf("unexpected config %+v", cfg)
	}
	if got, want := cfg.StatsPath(), filepath.Join("out", "stats.toml"); got != want {
		t.Errorf("StatsPath() = %q, want %q", got, want)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name, file, content string
	}{
		{"unknown extension", "mdr.ini", "x=1"},
		{"bad format value", "mdr.toml", `stats-format = "xml"`},
		{"negative threshold", "mdr.toml", "hot-call-threshold = -1"},
		{"broken toml", "mdr.toml", "hot-call-threshold = "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeFile(t, tt.file, tt.content)); err == nil {
				t.Errorf("expected an error")
			}
		})
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Errorf("expected an error for a missing file")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("MDR_HOT_CALL_THRESHOLD", "42")
	t.Setenv("MDR_INLINE_CACHES", "false")
	t.Setenv("MDR_COUNTERS", "not-a-bool")
	t.Setenv("MDR_PROFILER_OUTPUT", "/tmp/x.cbor")

	cfg := Default().ApplyEnv()
	if cfg.HotCallThreshold != 42 {
		t.Errorf("HotCallThreshold = %d", cfg.HotCallThreshold)
	}
	if cfg.EnableInlineCaches {
		t.Errorf("inline caches should be disabled")
	}
	if !cfg.EnableCounters {
		t.Errorf("invalid bool should keep the default")
	}
	if cfg.StatsPath() != "/tmp/x.cbor" {
		t.Errorf("absolute output should not be joined, got %q", cfg.StatsPath())
	}
}
