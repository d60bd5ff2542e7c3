package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), DefaultFileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Capture.Window != 3 {
		t.Errorf("window = %d, want default 3", cfg.Capture.Window)
	}
	if cfg.Log.MaxSizeMB != 10 {
		t.Errorf("max size = %d, want default 10", cfg.Log.MaxSizeMB)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[adapter]
addr = "127.0.0.1:5678"
runtime = "python"

[capture]
marker = "peek"
window = 5
output_dir = "/tmp/captures"
compact = true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Adapter.Addr != "127.0.0.1:5678" || cfg.Adapter.Runtime != "python" {
		t.Errorf("adapter = %+v", cfg.Adapter)
	}
	if cfg.Capture.Marker != "peek" || cfg.Capture.Window != 5 || !cfg.Capture.Compact {
		t.Errorf("capture = %+v", cfg.Capture)
	}
	if cfg.Log.MaxBackups != 3 {
		t.Errorf("unset log section must keep defaults, got %+v", cfg.Log)
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	path := writeConfig(t, "not [valid toml")

	if _, err := Load(path); err == nil {
		t.Error("Load of invalid TOML must fail")
	}
}

func TestLoadRejectsNegativeWindow(t *testing.T) {
	path := writeConfig(t, "[capture]\nwindow = -1\n")

	if _, err := Load(path); err == nil {
		t.Error("negative inference window must be rejected")
	}
}

func TestLoadRejectsCommandAndAddr(t *testing.T) {
	path := writeConfig(t, `
[adapter]
command = "node"
addr = "127.0.0.1:5678"
`)

	if _, err := Load(path); err == nil {
		t.Error("command and addr together must be rejected")
	}
}

func TestLoadAdapterCommandArgs(t *testing.T) {
	path := writeConfig(t, `
[adapter]
command = "node"
args = ["dap-server.js", "--stdio"]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Adapter.Command != "node" || len(cfg.Adapter.Args) != 2 {
		t.Errorf("adapter = %+v", cfg.Adapter)
	}
}
