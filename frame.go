package ggui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gogpu/ggui/compositor"
	"github.com/gogpu/ggui/internal/logging"
	"github.com/gogpu/ggui/layout"
	"github.com/gogpu/ggui/rendercache"
)

// FrameStats describes one frame.
type FrameStats struct {
	Layout   LayoutStats
	Paint    compositor.FrameReport
	Rejected int // queued batches dropped because they failed validation

	LayoutTime time.Duration
	PaintTime  time.Duration
}

// LayoutStats summarizes the layout pass of a frame.
type LayoutStats struct {
	Closure     int // nodes in the dirty closure
	Changed     int // nodes whose generation was incremented
	Measured    int
	Prefetched  int
	Diagnostics int
	Evicted     int // cache entries dropped for removed nodes
}

// Stats is the running total for a tree. It is what the metrics package
// exports.
type Stats struct {
	Tree   string
	Frames uint64

	Nodes     int
	Rejected  uint64
	Measured  uint64
	LastFrame FrameStats
	Cache     rendercache.Stats
}

// Stats returns a snapshot of the tree's counters.
func (t *Tree) Stats() Stats {
	t.statsMu.Lock()
	s := t.stats
	t.statsMu.Unlock()
	s.Cache = t.cache.Stats()
	return s
}

// Frame applies queued batches, resolves layout for the dirty closure and
// paints onto s. Only the layout part holds the tree lock.
//
// Paint errors do not abort the frame; the first one is returned together
// with the stats of the completed frame. While cached regions are still
// fading, Frame requests the next frame itself. A frame overtaken by a
// concurrent newer frame is not painted and returns an error wrapping
// compositor.ErrSuperseded.
func (t *Tree) Frame(ctx context.Context, s compositor.Surface) (FrameStats, error) {
	if s == nil {
		return FrameStats{}, compositor.ErrNoSurface
	}
	if err := ctx.Err(); err != nil {
		return FrameStats{}, err
	}
	ctx, span := t.tracer.Start(ctx, "ggui.frame",
		trace.WithAttributes(attribute.String("ggui.tree", t.id.String())))
	defer span.End()

	var fs FrameStats
	list, err := t.layoutPass(ctx, &fs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "layout")
		return fs, err
	}

	_, pspan := t.tracer.Start(ctx, "ggui.paint")
	start := time.Now()
	t.paintMu.Lock()
	report, perr := t.comp.PaintFrame(list, s)
	t.paintMu.Unlock()
	if errors.Is(perr, compositor.ErrSuperseded) {
		pspan.End()
		logging.L().Debug("ggui: frame superseded", "tree", t.id, "seq", list.Seq)
		return fs, fmt.Errorf("ggui: paint: %w", perr)
	}
	fs.Paint = report
	fs.PaintTime = time.Since(start)
	pspan.SetAttributes(
		attribute.Int("ggui.items", report.Items),
		attribute.Int("ggui.hits", report.Hits),
		attribute.Int("ggui.misses", report.Misses),
		attribute.Int("ggui.draw_calls", report.DrawCalls),
	)
	if perr != nil {
		pspan.RecordError(perr)
		pspan.SetStatus(codes.Error, "paint")
		span.SetStatus(codes.Error, "paint")
	}
	pspan.End()

	t.statsMu.Lock()
	t.stats.Frames++
	t.stats.Nodes = len(list.Items)
	t.stats.Rejected += uint64(fs.Rejected)
	t.stats.Measured += uint64(fs.Layout.Measured)
	t.stats.LastFrame = fs
	t.statsMu.Unlock()

	if report.Fading > 0 {
		t.RequestFrame()
	}
	if perr != nil {
		return fs, fmt.Errorf("ggui: paint: %w", perr)
	}
	return fs, nil
}

func (t *Tree) layoutPass(ctx context.Context, fs *FrameStats) (*compositor.DisplayList, error) {
	ctx, span := t.tracer.Start(ctx, "ggui.layout")
	defer span.End()
	start := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	fs.Rejected = len(t.drainQueue())

	closure := t.tracker.DrainClosure(t.store)
	if reqs := t.engine.PendingMeasurements(closure); len(reqs) > 0 {
		// The closure is already drained, so a cancelled prefetch only
		// means Resolve measures the rest synchronously.
		if err := t.measure.Prefetch(ctx, reqs); err != nil {
			logging.L().Warn("ggui: measurement prefetch incomplete", "tree", t.id, "err", err)
		}
		fs.Layout.Prefetched = len(reqs)
	}

	res := t.engine.Resolve(closure)
	for _, id := range res.Changed {
		t.cache.Invalidate(id)
	}
	if len(t.removed) > 0 {
		fs.Layout.Evicted = t.cache.Evict(t.removed...)
		t.removed = t.removed[:0]
	}

	list, err := compositor.Build(t.store, t.engine.Viewport())
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("ggui: build display list: %w", err)
	}
	t.seq++
	list.Seq, list.Epoch = t.seq, t.cache.Epoch()
	t.list = list
	t.lastRes = res

	fs.Layout = LayoutStats{
		Closure:     res.Resolved,
		Changed:     len(res.Changed),
		Measured:    res.Measured,
		Prefetched:  fs.Layout.Prefetched,
		Diagnostics: len(res.Diagnostics),
		Evicted:     fs.Layout.Evicted,
	}
	fs.LayoutTime = time.Since(start)
	span.SetAttributes(
		attribute.Int("ggui.closure", res.Resolved),
		attribute.Int("ggui.changed", len(res.Changed)),
		attribute.Int("ggui.measured", res.Measured),
	)
	return list, nil
}

// LastLayout returns the result of the most recent layout pass.
func (t *Tree) LastLayout() layout.Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastRes
}

// Run produces frames on s until ctx is done. A frame is produced whenever
// one was requested (by Commit, Submit, ResizeViewport or a running fade),
// paced by Config.MaxFPS. onFrame, if non-nil, is called after each frame.
//
// Frame errors are logged and do not stop the loop. Run returns ctx.Err().
func (t *Tree) Run(ctx context.Context, s compositor.Surface, onFrame func(FrameStats)) error {
	logging.L().Info("ggui: run loop started", "tree", t.id, "max_fps", t.cfg.MaxFPS)
	defer logging.L().Info("ggui: run loop stopped", "tree", t.id)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.wake:
		}
		if err := t.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		fs, err := t.Frame(ctx, s)
		if errors.Is(err, compositor.ErrSuperseded) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logging.L().Error("ggui: frame failed", "tree", t.id, "err", err)
		}
		if onFrame != nil {
			onFrame(fs)
		}
	}
}
