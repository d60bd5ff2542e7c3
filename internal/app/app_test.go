package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dshills/jsonpeek/internal/config"
)

func TestParseBreakpoint(t *testing.T) {
	tests := []struct {
		spec     string
		wantPath string
		wantLine int
		wantErr  bool
	}{
		{"/src/app.js:12", "/src/app.js", 12, false},
		{"C:\\src\\app.cs:7", "C:\\src\\app.cs", 7, false},
		{"main.py:1", "main.py", 1, false},
		{"main.py", "", 0, true},
		{"main.py:", "", 0, true},
		{"main.py:zero", "", 0, true},
		{"main.py:0", "", 0, true},
		{":12", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			path, line, err := ParseBreakpoint(tt.spec)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseBreakpoint(%q) succeeded, want error", tt.spec)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseBreakpoint(%q): %v", tt.spec, err)
			}
			if path != tt.wantPath || line != tt.wantLine {
				t.Errorf("got (%q, %d), want (%q, %d)", path, line, tt.wantPath, tt.wantLine)
			}
		})
	}
}

func TestMergeOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Adapter.Addr = "127.0.0.1:5678"

	mergeOptions(&cfg, Options{
		AdapterCommand: "node",
		AdapterArgs:    []string{"dap.js"},
		Runtime:        "nodejs",
		OutputDir:      "/tmp/out",
	})

	if cfg.Adapter.Command != "node" {
		t.Errorf("command = %q", cfg.Adapter.Command)
	}
	if cfg.Adapter.Addr != "" {
		t.Error("command override must clear the configured addr")
	}
	if cfg.Adapter.Runtime != "nodejs" || cfg.Capture.OutputDir != "/tmp/out" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestNewRequiresAdapter(t *testing.T) {
	// Point at an empty config dir so no adapter is configured anywhere.
	path := filepath.Join(t.TempDir(), "jsonpeek.toml")

	if _, err := New(Options{ConfigPath: path}); err == nil {
		t.Error("New without an adapter must fail")
	}
}

func TestNewWithAdapter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jsonpeek.toml")
	content := "[adapter]\naddr = \"127.0.0.1:5678\"\n\n[capture]\noutput_dir = \"" + filepath.ToSlash(filepath.Join(dir, "captures")) + "\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	a, err := New(Options{ConfigPath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if a.cfg.Adapter.Addr != "127.0.0.1:5678" {
		t.Errorf("addr = %q", a.cfg.Adapter.Addr)
	}
}
