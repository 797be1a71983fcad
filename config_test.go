package ggui

import (
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
viewport: {width: 320, height: 240}
scale: 2
background: "#102030"
fade: {enabled: true}
max_fps: 30
`))
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.Viewport.Width != 320 || cfg.Viewport.Height != 240 || cfg.Scale != 2 {
		t.Errorf("viewport, scale = %+v, %g", cfg.Viewport, cfg.Scale)
	}
	if !cfg.Fade.Enabled || cfg.Fade.Step != 0.25 {
		t.Errorf("Fade = %+v, want enabled with default step", cfg.Fade)
	}
	if cfg.Cache.BudgetMiB != 64 {
		t.Errorf("Cache.BudgetMiB = %d, want default 64", cfg.Cache.BudgetMiB)
	}
	bg, err := cfg.BackgroundColor()
	if err != nil || bg != (color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xff}) {
		t.Errorf("BackgroundColor() = %v, %v", bg, err)
	}
}

func TestParseConfigEmpty(t *testing.T) {
	cfg, err := ParseConfig(nil)
	if err != nil {
		t.Fatalf("ParseConfig(nil) error = %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("ParseConfig(nil) = %+v, want defaults", cfg)
	}
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown key", "colour: red", "field colour not found"},
		{"scale", "scale: 0", "Scale"},
		{"background", `background: "red"`, "Background"},
		{"fade step", "fade: {step: 2}", "Step"},
		{"entry over budget", "cache: {budget_mib: 1, entry_limit_kib: 2048}", "entry_limit_kib"},
		{"workers", "measure_workers: -1", "MeasureWorkers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			if err == nil {
				t.Fatal("ParseConfig() error = nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestValidateWrapsErrInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Viewport.Height = 0
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ggui.yaml")
	if err := os.WriteFile(path, []byte("scale: 1.5\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Scale != 1.5 {
		t.Errorf("Scale = %g, want 1.5", cfg.Scale)
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadConfig(missing) error = %v, want ErrNotExist", err)
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.RGBA
	}{
		{"#fff", color.RGBA{255, 255, 255, 255}},
		{"#f008", color.RGBA{255, 0, 0, 0x88}},
		{"#00ff00", color.RGBA{0, 255, 0, 255}},
		{"#0000ff80", color.RGBA{0, 0, 255, 0x80}},
	}
	for _, tt := range tests {
		got, err := ParseHexColor(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseHexColor(%q) = %v, %v, want %v", tt.in, got, err, tt.want)
		}
	}
	for _, bad := range []string{"fff", "#ff", "#gggggg", "#1234567"} {
		if _, err := ParseHexColor(bad); err == nil {
			t.Errorf("ParseHexColor(%q) error = nil", bad)
		}
	}
}
