package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/gogpu/ggui"
	"github.com/gogpu/ggui/backend/raster"
	"github.com/gogpu/ggui/compositor"
	"github.com/gogpu/ggui/internal/scenefile"
	"github.com/gogpu/ggui/measure"
	"github.com/gogpu/ggui/recording"
)

type renderFlags struct {
	output string
	dryRun bool
	frames int
	width  float64
	height float64
}

func newRenderCmd(g *globalFlags) *cobra.Command {
	f := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "render <scene.yaml>",
		Short: "Lay out and paint a scene once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.treeConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("width") || cmd.Flags().Changed("height") {
				cfg.Viewport = ggui.ViewportConfig{Width: f.width, Height: f.height}
			}
			return runRender(cmd.Context(), cmd.OutOrStdout(), cfg, args[0], f)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.output, "output", "o", "scene.png", "PNG output path")
	fl.BoolVar(&f.dryRun, "dry-run", false, "paint onto a recording surface and print draw counts")
	fl.IntVar(&f.frames, "frames", 1, "frames to paint (later frames show cache reuse)")
	fl.Float64Var(&f.width, "width", 800, "viewport width in logical pixels")
	fl.Float64Var(&f.height, "height", 600, "viewport height in logical pixels")
	return cmd
}

// session is a tree, its scene reconciler and a surface sized for it.
type session struct {
	tree    *ggui.Tree
	rec     *scenefile.Reconciler
	shaper  *measure.Shaper
	surface compositor.Surface
	raster  *raster.Surface // nil in dry-run mode
}

func newSession(cfg ggui.Config, dryRun bool) (*session, error) {
	shaper := measure.NewShaper(nil)
	tree, err := ggui.New(ggui.WithConfig(cfg), ggui.WithShaper(shaper))
	if err != nil {
		return nil, err
	}
	s := &session{tree: tree, rec: scenefile.NewReconciler(tree), shaper: shaper}
	w, h := tree.DeviceSize()
	if dryRun {
		if s.surface, err = compositor.NewSurface("recording", w, h); err != nil {
			return nil, err
		}
		return s, nil
	}
	if s.raster, err = raster.New(w, h, raster.WithShaper(shaper)); err != nil {
		return nil, err
	}
	s.surface = s.raster
	return s, nil
}

func (s *session) close() {
	if s.raster != nil {
		_ = s.raster.Close()
	}
}

func runRender(ctx context.Context, out io.Writer, cfg ggui.Config, path string, f *renderFlags) error {
	scene, err := scenefile.Load(path)
	if err != nil {
		return err
	}
	s, err := newSession(cfg, f.dryRun)
	if err != nil {
		return err
	}
	defer s.close()

	diff, err := s.rec.Apply(scene)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "scene %s: %d nodes (inserted %d)\n", path, scene.Len(), diff.Inserted)

	for i := range max(f.frames, 1) {
		if r, ok := s.surface.(*recording.Recorder); ok {
			r.Reset()
		}
		start := time.Now()
		fs, err := s.tree.Frame(ctx, s.surface)
		if err != nil {
			return err
		}
		printFrame(out, i+1, fs, time.Since(start))
		if r, ok := s.surface.(*recording.Recorder); ok {
			fmt.Fprintf(out, "  recorded: %d draws, %d blits, %d layers\n",
				r.DrawCalls(), r.Count(recording.CmdBlit), r.Count(recording.CmdLayerPop))
		}
	}
	for _, d := range s.tree.Diagnostics() {
		fmt.Fprintf(out, "diagnostic: %v\n", d)
	}

	if s.raster == nil {
		return nil
	}
	if err := s.raster.SavePNG(f.output); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s\n", f.output)
	return nil
}

func newBackendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the registered drawing backends",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range compositor.Backends() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}

func printFrame(out io.Writer, n int, fs ggui.FrameStats, took time.Duration) {
	p := fs.Paint
	fmt.Fprintf(out, "frame %d: closure %d, changed %d, measured %d | items %d, hits %d, misses %d, fading %d, draws %d | %v\n",
		n, fs.Layout.Closure, fs.Layout.Changed, fs.Layout.Measured,
		p.Items, p.Hits, p.Misses, p.Fading, p.DrawCalls, took.Round(time.Microsecond))
}
