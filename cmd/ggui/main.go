// Command ggui renders YAML scene files with the ggui layout tree.
//
//	ggui render scene.yaml -o scene.png
//	ggui render scene.yaml --dry-run --frames 2
//	ggui watch scene.yaml -o scene.png --metrics-addr :9464
//	ggui backends
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/gogpu/ggui"
)

type globalFlags struct {
	config    string
	logLevel  string
	logFormat string
	scale     float64
	overlay   bool
	fade      bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "ggui",
		Short:         "Render scene files with the ggui layout tree",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			l, err := newLogger(cmd.ErrOrStderr(), g.logLevel, g.logFormat)
			if err != nil {
				return err
			}
			ggui.SetLogger(l)
			return nil
		},
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&g.config, "config", "c", "", "YAML config file")
	pf.StringVar(&g.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	pf.StringVar(&g.logFormat, "log-format", "auto", "log format: auto, text, json")
	pf.Float64Var(&g.scale, "scale", 0, "device scale factor (overrides config)")
	pf.BoolVar(&g.overlay, "overlay", false, "draw the performance overlay")
	pf.BoolVar(&g.fade, "fade", false, "cross-fade revalidated regions")

	root.AddCommand(newRenderCmd(g), newWatchCmd(g), newBackendsCmd())
	return root
}

// treeConfig loads the config file, if any, and applies flag overrides.
func (g *globalFlags) treeConfig(cmd *cobra.Command) (ggui.Config, error) {
	cfg := ggui.DefaultConfig()
	if g.config != "" {
		var err error
		if cfg, err = ggui.LoadConfig(g.config); err != nil {
			return cfg, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("scale") {
		cfg.Scale = g.scale
	}
	if flags.Changed("overlay") {
		cfg.Overlay.Enabled = g.overlay
	}
	if flags.Changed("fade") {
		cfg.Fade.Enabled = g.fade
	}
	return cfg, cfg.Validate()
}

// newLogger picks a text handler on a terminal and JSON otherwise.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lv}
	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "auto", "":
		if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
			return slog.New(slog.NewTextHandler(w, opts)), nil
		}
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("log format %q: want auto, text or json", format)
	}
}
