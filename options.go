package ggui

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/gogpu/ggui/measure"
)

// Option configures a Tree during creation.
//
// Example:
//
//	// Defaults: 800x600 viewport, go-text shaping, no fade
//	t, _ := ggui.New()
//
//	// From a config file, with a custom font registry
//	cfg, _ := ggui.LoadConfig("ggui.yaml")
//	t, _ := ggui.New(ggui.WithConfig(cfg), ggui.WithShaper(measure.NewShaper(fonts)))
type Option func(*treeOptions)

// treeOptions holds optional configuration for Tree creation.
type treeOptions struct {
	cfg    Config
	text   measure.TextMetrics
	images measure.ImageMetrics
	tracer trace.TracerProvider
}

// defaultOptions returns the default tree options.
func defaultOptions() treeOptions {
	return treeOptions{
		cfg: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration. Individual options applied
// after it override single fields.
func WithConfig(cfg Config) Option {
	return func(o *treeOptions) {
		o.cfg = cfg
	}
}

// WithViewport sets the logical viewport size.
func WithViewport(width, height float64) Option {
	return func(o *treeOptions) {
		o.cfg.Viewport = ViewportConfig{Width: width, Height: height}
	}
}

// WithScale sets the device scale factor.
func WithScale(scale float64) Option {
	return func(o *treeOptions) {
		o.cfg.Scale = scale
	}
}

// WithFade enables or disables revalidation cross-fades.
func WithFade(enabled bool) Option {
	return func(o *treeOptions) {
		o.cfg.Fade.Enabled = enabled
	}
}

// WithOverlay enables or disables the performance overlay.
func WithOverlay(enabled bool) Option {
	return func(o *treeOptions) {
		o.cfg.Overlay.Enabled = enabled
	}
}

// WithShaper uses s for text measurement. Pass the same shaper to the
// raster backend so painted lines break where layout broke them.
func WithShaper(s *measure.Shaper) Option {
	return func(o *treeOptions) {
		if s != nil {
			o.text = s
		}
	}
}

// WithTextMetrics sets the text measurement service.
func WithTextMetrics(m measure.TextMetrics) Option {
	return func(o *treeOptions) {
		o.text = m
	}
}

// WithImageMetrics sets the image measurement service.
func WithImageMetrics(m measure.ImageMetrics) Option {
	return func(o *treeOptions) {
		o.images = m
	}
}

// WithTracerProvider sets the OpenTelemetry provider for frame spans.
// The global provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *treeOptions) {
		o.tracer = tp
	}
}
