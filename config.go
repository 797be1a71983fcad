package ggui

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when a Config fails validation.
var ErrInvalidConfig = errors.New("ggui: invalid config")

// Config is the file-loadable tree configuration.
//
// Example YAML:
//
//	viewport: {width: 800, height: 600}
//	scale: 2
//	background: "#ffffff"
//	fade: {enabled: true, step: 0.25, tolerance: 32}
//	overlay: {enabled: false}
//	cache: {budget_mib: 64, entry_limit_kib: 16384}
//	measure_workers: 4
//	max_fps: 60
type Config struct {
	Viewport       ViewportConfig `yaml:"viewport"`
	Scale          float64        `yaml:"scale" validate:"gt=0,lte=8"`
	Background     string         `yaml:"background" validate:"omitempty,hexcolor"`
	Fade           FadeConfig     `yaml:"fade"`
	Overlay        OverlayConfig  `yaml:"overlay"`
	Cache          CacheConfig    `yaml:"cache"`
	MeasureWorkers int            `yaml:"measure_workers" validate:"gte=0,lte=256"`
	MaxFPS         float64        `yaml:"max_fps" validate:"gte=0,lte=1000"`
}

// ViewportConfig is the logical viewport size.
type ViewportConfig struct {
	Width  float64 `yaml:"width" validate:"gt=0"`
	Height float64 `yaml:"height" validate:"gt=0"`
}

// FadeConfig controls revalidation cross-fades.
type FadeConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Step      float64 `yaml:"step" validate:"gt=0,lte=1"`
	Tolerance float64 `yaml:"tolerance" validate:"gte=0"`
}

// OverlayConfig toggles the performance overlay.
type OverlayConfig struct {
	Enabled bool `yaml:"enabled"`
}

// CacheConfig sizes the render cache.
type CacheConfig struct {
	BudgetMiB     int `yaml:"budget_mib" validate:"gte=1"`
	EntryLimitKiB int `yaml:"entry_limit_kib" validate:"gte=1"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		Viewport:   ViewportConfig{Width: 800, Height: 600},
		Scale:      1,
		Background: "#ffffff",
		Fade:       FadeConfig{Enabled: false, Step: 0.25, Tolerance: 32},
		Cache:      CacheConfig{BudgetMiB: 64, EntryLimitKiB: 16 << 10},
		MaxFPS:     60,
	}
}

var configValidate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges. Errors wrap ErrInvalidConfig.
func (c Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s=%s)", fe.Namespace(), fe.Tag(), fe.Param()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Cache.EntryLimitKiB > c.Cache.BudgetMiB<<10 {
		return fmt.Errorf("%w: cache.entry_limit_kib exceeds cache.budget_mib", ErrInvalidConfig)
	}
	return nil
}

// ParseConfig decodes YAML over DefaultConfig and validates the result.
// Unknown keys are rejected.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("ggui: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return Config{}, fmt.Errorf("ggui: load config: %w", err)
	}
	return ParseConfig(data)
}

// BackgroundColor parses Background. An empty string is opaque white.
func (c Config) BackgroundColor() (color.RGBA, error) {
	if c.Background == "" {
		return color.RGBA{R: 255, G: 255, B: 255, A: 255}, nil
	}
	return ParseHexColor(c.Background)
}

// ParseHexColor parses #rgb, #rgba, #rrggbb and #rrggbbaa.
func ParseHexColor(s string) (color.RGBA, error) {
	hex, ok := strings.CutPrefix(s, "#")
	if !ok {
		return color.RGBA{}, fmt.Errorf("ggui: color %q: missing '#'", s)
	}
	if len(hex) == 3 || len(hex) == 4 {
		var b strings.Builder
		for _, r := range hex {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		hex = b.String()
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.RGBA{}, fmt.Errorf("ggui: color %q: bad length", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("ggui: color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
