package ggui

import (
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/gogpu/ggui/compositor"
	"github.com/gogpu/ggui/internal/logging"
	"github.com/gogpu/ggui/layout"
	"github.com/gogpu/ggui/measure"
	"github.com/gogpu/ggui/rendercache"
)

// Tree is a retained layout tree with an incremental paint pipeline.
//
// Mutations arrive as batches, either committed synchronously (Batch.Commit)
// or queued from any goroutine (Submit) and applied at the start of the next
// frame. Frame resolves layout for the dirty closure, invalidates the render
// cache for nodes whose geometry or content changed and paints the display
// list, reusing cached regions for everything else.
//
// All methods are safe for concurrent use. Layout runs under the tree lock;
// painting runs on a frame-local display list under a separate lock, so the
// next layout pass may start while the previous frame is still painting.
// Display lists are numbered; a frame whose list was overtaken by a newer
// one before it got to paint is dropped with compositor.ErrSuperseded.
type Tree struct {
	id     uuid.UUID
	cfg    Config
	tracer trace.Tracer

	mu      sync.Mutex // guards the layout state below
	store   *layout.Store
	tracker *layout.Tracker
	engine  *layout.Engine
	measure *measure.Service
	removed []layout.ID // removed since the last frame
	list    *compositor.DisplayList
	lastRes layout.Result
	seq     uint64 // display lists built

	paintMu sync.Mutex // serializes painting
	cache   *rendercache.Cache
	comp    *compositor.Compositor

	qmu   sync.Mutex
	queue []*Batch

	wake    chan struct{}
	limiter *rate.Limiter

	statsMu sync.Mutex
	stats   Stats
}

// New creates an empty tree. The configuration is validated; errors wrap
// ErrInvalidConfig.
func New(opts ...Option) (*Tree, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	cfg := o.cfg
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	bg, err := cfg.BackgroundColor()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	tp := o.tracer
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	t := &Tree{
		id:      uuid.New(),
		cfg:     cfg,
		tracer:  tp.Tracer("github.com/gogpu/ggui"),
		tracker: layout.NewTracker(),
		measure: measure.NewService(o.text, o.images, measure.WithWorkers(cfg.MeasureWorkers)),
		cache: rendercache.New(
			rendercache.WithBudget(int64(cfg.Cache.BudgetMiB)<<20),
			rendercache.WithEntryLimit(int64(cfg.Cache.EntryLimitKiB)<<10),
			rendercache.WithTolerance(cfg.Fade.Tolerance),
			rendercache.WithFade(cfg.Fade.Enabled),
		),
		wake:    make(chan struct{}, 1),
		limiter: frameLimiter(cfg.MaxFPS),
	}
	t.store = layout.NewStore(t.tracker)
	t.engine = layout.NewEngine(t.store, t.measure)
	t.engine.SetViewport(cfg.Viewport.Width, cfg.Viewport.Height)
	t.comp = compositor.New(t.cache,
		compositor.WithScale(cfg.Scale),
		compositor.WithBackground(bg),
		compositor.WithFadeStep(cfg.Fade.Step),
		compositor.WithOverlay(cfg.Overlay.Enabled),
	)
	t.stats.Tree = t.id.String()

	logging.L().Debug("ggui: tree created", "tree", t.id,
		"viewport", fmt.Sprintf("%gx%g", cfg.Viewport.Width, cfg.Viewport.Height), "scale", cfg.Scale)
	return t, nil
}

func frameLimiter(maxFPS float64) *rate.Limiter {
	if maxFPS <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(maxFPS), 1)
}

// ID returns the tree's instance id, used in logs and metric labels.
func (t *Tree) ID() uuid.UUID { return t.id }

// Config returns the configuration the tree was created with.
func (t *Tree) Config() Config { return t.cfg }

// DeviceSize returns the viewport size in device pixels, the size a
// surface passed to Frame should have.
func (t *Tree) DeviceSize() (width, height int) {
	t.mu.Lock()
	vp := t.engine.Viewport()
	t.mu.Unlock()
	s := t.comp.Scale()
	return int(math.Ceil(vp.Width * s)), int(math.Ceil(vp.Height * s))
}

// Submit queues b for the next frame and requests one. Batches submitted
// from different goroutines are applied in submission order.
func (t *Tree) Submit(b *Batch) {
	t.qmu.Lock()
	t.queue = append(t.queue, b)
	t.qmu.Unlock()
	t.RequestFrame()
}

// drainQueue applies queued batches. A failing batch is logged and skipped;
// the others still apply. The caller holds t.mu.
func (t *Tree) drainQueue() []error {
	t.qmu.Lock()
	queue := t.queue
	t.queue = nil
	t.qmu.Unlock()

	var errs []error
	for _, b := range queue {
		if _, err := t.apply(b); err != nil {
			logging.L().Warn("ggui: queued batch rejected", "tree", t.id, "ops", b.Len(), "err", err)
			errs = append(errs, err)
		}
	}
	return errs
}

// RequestFrame asks Run to produce a frame. Requests coalesce.
func (t *Tree) RequestFrame() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// ResizeViewport changes the logical viewport. The whole tree is laid out
// again on the next frame.
func (t *Tree) ResizeViewport(width, height float64) error {
	if !(width > 0) || !(height > 0) || math.IsInf(width, 0) || math.IsInf(height, 0) {
		return fmt.Errorf("%w: viewport %gx%g", ErrInvalidConfig, width, height)
	}
	t.mu.Lock()
	t.engine.SetViewport(width, height)
	if root := t.store.Root(); !root.IsZero() {
		t.tracker.Mark(root, layout.ReasonViewport)
	}
	t.mu.Unlock()
	t.RequestFrame()
	return nil
}

// SetScale changes the device scale factor. Every cached region is
// invalidated.
func (t *Tree) SetScale(scale float64) error {
	if !(scale > 0) || math.IsInf(scale, 0) {
		return fmt.Errorf("%w: scale %g", ErrInvalidConfig, scale)
	}
	t.paintMu.Lock()
	t.comp.SetScale(scale)
	t.paintMu.Unlock()
	t.RequestFrame()
	return nil
}

// SetOverlay toggles the performance overlay.
func (t *Tree) SetOverlay(enabled bool) {
	t.paintMu.Lock()
	t.comp.SetOverlay(enabled)
	t.paintMu.Unlock()
	t.RequestFrame()
}

// Root returns the root id, NoID for an empty tree.
func (t *Tree) Root() layout.ID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.Root()
}

// Len returns the number of live nodes.
func (t *Tree) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.Len()
}

// Geometry returns the geometry resolved by the last frame.
func (t *Tree) Geometry(id layout.ID) (layout.Geometry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.Geometry(id)
}

// Children returns id's ordered children.
func (t *Tree) Children(id layout.ID) ([]layout.ID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.Children(id)
}

// Parent returns id's parent, NoID for the root.
func (t *Tree) Parent(id layout.ID) (layout.ID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.Parent(id)
}

// Style returns id's style.
func (t *Tree) Style(id layout.ID) (layout.Style, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.Style(id)
}

// Content returns id's content.
func (t *Tree) Content(id layout.ID) (layout.Content, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.Content(id)
}

// Diagnostics returns the measurement failures recorded for live nodes, in
// paint order.
func (t *Tree) Diagnostics() []*layout.MeasureError {
	t.mu.Lock()
	defer t.mu.Unlock()
	root := t.store.Root()
	if root.IsZero() {
		return nil
	}
	var out []*layout.MeasureError
	_ = t.store.Walk(root, func(id layout.ID, _ int) bool {
		if d, ok := t.store.Diagnostic(id); ok {
			out = append(out, d)
		}
		return true
	})
	return out
}

// HitTest returns the topmost node whose bounds contain the logical point
// (x, y), honoring paint order: later siblings and descendants win.
// It consults the display list of the last frame.
func (t *Tree) HitTest(x, y float64) (layout.ID, bool) {
	t.mu.Lock()
	list := t.list
	t.mu.Unlock()
	if list == nil {
		return layout.NoID, false
	}
	for i := len(list.Items) - 1; i >= 0; i-- {
		it := &list.Items[i]
		if !it.Bounds.IsEmpty() && it.Bounds.Contains(x, y) {
			return it.ID, true
		}
	}
	return layout.NoID, false
}
