package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestLoadGlobalConfigReadsFile(t *testing.T) {
	tempDir := t.TempDir()
	restore := overrideUserHomeDir(func() (string, error) {
		return tempDir, nil
	})
	t.Cleanup(restore)

	writeConfig(t, filepath.Join(tempDir, ".reshai", "config.json"), `{
		"schemaVersion": 1,
		"channels": [{"id": "gh", "provider": "copilot"}],
		"ai": {"maxHistory": 12}
	}`)

	cfg, present, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !present {
		t.Fatalf("expected config to be present")
	}
	if cfg.SchemaVersion == nil || *cfg.SchemaVersion != 1 {
		t.Fatalf("expected schemaVersion 1, got %#v", cfg.SchemaVersion)
	}
	if cfg.AI == nil || cfg.AI.MaxHistory == nil || *cfg.AI.MaxHistory != 12 {
		t.Fatalf("expected maxHistory 12, got %#v", cfg.AI)
	}
	if cfg.AI.Mode != nil {
		t.Fatalf("expected mode to be nil, got %#v", cfg.AI.Mode)
	}
	if len(cfg.Channels) != 1 || cfg.Channels[0].Provider != ProviderCopilot {
		t.Fatalf("channels = %#v", cfg.Channels)
	}
}

func TestLoadGlobalConfigMissingFileSkips(t *testing.T) {
	tempDir := t.TempDir()
	restore := overrideUserHomeDir(func() (string, error) {
		return tempDir, nil
	})
	t.Cleanup(restore)

	cfg, present, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if present {
		t.Fatalf("expected config to be missing")
	}
	if cfg.AI != nil || cfg.Channels != nil {
		t.Fatalf("expected empty config, got %#v", cfg)
	}
}

func TestLoadGlobalConfigWithoutHomeSkips(t *testing.T) {
	restore := overrideUserHomeDir(func() (string, error) {
		return "", errors.New("no home")
	})
	t.Cleanup(restore)

	_, present, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if present {
		t.Fatalf("expected config to be missing")
	}
}

func TestLoadConfigFileDetailedWarnings(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    LayerWarningKind
	}{
		{name: "invalid json", content: `{"ai":`, want: LayerWarningInvalidJSON},
		{name: "trailing data", content: `{} {}`, want: LayerWarningInvalidJSON},
		{name: "unsupported schema", content: `{"schemaVersion":99}`, want: LayerWarningUnsupportedSchema},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			writeConfig(t, path, tt.content)

			_, present, warning, err := loadConfigFileDetailed(path)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if present {
				t.Fatalf("expected layer to be skipped")
			}
			if warning == nil || *warning != tt.want {
				t.Fatalf("warning = %v, want %s", warning, tt.want)
			}
		})
	}
}

func TestLoadConfigProjectOverridesGlobal(t *testing.T) {
	homeDir := t.TempDir()
	projectDir := t.TempDir()
	restore := overrideUserHomeDir(func() (string, error) {
		return homeDir, nil
	})
	t.Cleanup(restore)

	writeConfig(t, filepath.Join(homeDir, ".reshai", "config.json"),
		`{"ai":{"mode":"ask","maxHistory":40},"trace":{"enabled":true}}`)
	writeConfig(t, filepath.Join(projectDir, ".reshai", "config.json"),
		`{"ai":{"mode":"agent"}}`)

	cfg, err := LoadConfig(projectDir)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.AI.Mode != ModeAgent {
		t.Fatalf("mode = %q, want agent", cfg.AI.Mode)
	}
	if cfg.AI.MaxHistory != 40 {
		t.Fatalf("maxHistory = %d, want 40", cfg.AI.MaxHistory)
	}
	if !cfg.Trace.Enabled {
		t.Fatalf("expected trace enabled from global layer")
	}
}

func TestDataDirDefaultsUnderHome(t *testing.T) {
	homeDir := t.TempDir()
	restore := overrideUserHomeDir(func() (string, error) {
		return homeDir, nil
	})
	t.Cleanup(restore)

	dir, err := DataDir(DefaultResolvedConfig())
	if err != nil {
		t.Fatalf("data dir: %v", err)
	}
	if dir != filepath.Join(homeDir, ".reshai") {
		t.Fatalf("dir = %q", dir)
	}

	cfg := DefaultResolvedConfig()
	cfg.Storage.Dir = "/var/lib/reshai"
	dir, err = DataDir(cfg)
	if err != nil || dir != "/var/lib/reshai" {
		t.Fatalf("dir = %q, err = %v", dir, err)
	}
}

func overrideUserHomeDir(fn func() (string, error)) func() {
	orig := userHomeDir
	userHomeDir = fn
	return func() {
		userHomeDir = orig
	}
}
