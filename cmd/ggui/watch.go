package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/ggui"
	"github.com/gogpu/ggui/internal/logging"
	"github.com/gogpu/ggui/internal/scenefile"
	"github.com/gogpu/ggui/metrics"
)

type watchFlags struct {
	output      string
	metricsAddr string
	debounce    time.Duration
}

func newWatchCmd(g *globalFlags) *cobra.Command {
	f := &watchFlags{}
	cmd := &cobra.Command{
		Use:   "watch <scene.yaml>",
		Short: "Re-render a scene whenever the file changes",
		Long: `watch keeps one tree alive and reconciles every saved version of the
scene into it, so only the nodes that changed are laid out and repainted.
Each frame is written to the output PNG.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.treeConfig(cmd)
			if err != nil {
				return err
			}
			return runWatch(cmd.Context(), cmd.OutOrStdout(), cfg, args[0], f)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.output, "output", "o", "scene.png", "PNG output path")
	fl.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9464)")
	fl.DurationVar(&f.debounce, "debounce", 100*time.Millisecond, "wait this long after a change before reloading")
	return cmd
}

func runWatch(ctx context.Context, out io.Writer, cfg ggui.Config, path string, f *watchFlags) error {
	s, err := newSession(cfg, false)
	if err != nil {
		return err
	}
	defer s.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	obs, err := metrics.Register(reg, s.tree)
	if err != nil {
		return err
	}

	if err := reload(out, s, path); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	// Editors often replace the file, so watch the directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ignoreCanceled(s.tree.Run(ctx, s.surface, func(fs ggui.FrameStats) {
			obs.Observe(fs)
			if err := s.raster.SavePNG(f.output); err != nil {
				logging.L().Error("ggui: write frame", "path", f.output, "err", err)
				return
			}
			printFrame(out, int(s.tree.Stats().Frames), fs, fs.LayoutTime+fs.PaintTime)
		}))
	})
	g.Go(func() error {
		return ignoreCanceled(watchScene(ctx, watcher, path, f.debounce, func() {
			if err := reload(out, s, path); err != nil {
				logging.L().Warn("ggui: scene not applied", "path", path, "err", err)
				fmt.Fprintf(out, "error: %v\n", err)
			}
		}))
	})
	if f.metricsAddr != "" {
		srv := &http.Server{
			Addr:              f.metricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logging.L().Info("ggui: serving metrics", "addr", f.metricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return srv.Shutdown(shutdown)
		})
	}
	fmt.Fprintf(out, "watching %s (ctrl-c to stop)\n", path)
	return g.Wait()
}

func reload(out io.Writer, s *session, path string) error {
	scene, err := scenefile.Load(path)
	if err != nil {
		return err
	}
	d, err := s.rec.Apply(scene)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "applied %s: +%d ~%d >%d -%d\n", path, d.Inserted, d.Updated, d.Moved, d.Removed)
	return nil
}

// watchScene calls apply once per burst of changes to path.
func watchScene(ctx context.Context, w *fsnotify.Watcher, path string, debounce time.Duration, apply func()) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name, err := filepath.Abs(ev.Name)
			if err != nil || name != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				timer.Reset(debounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logging.L().Warn("ggui: watch error", "err", err)
		case <-timer.C:
			if _, err := os.Stat(target); err != nil {
				// Mid-replace; the Create event re-arms the timer.
				continue
			}
			apply()
		}
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
