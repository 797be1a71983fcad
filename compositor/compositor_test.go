package compositor_test

import (
	"errors"
	"image"
	"image/color"
	"slices"
	"testing"
	"unicode/utf8"

	"github.com/gogpu/ggui/compositor"
	"github.com/gogpu/ggui/layout"
	"github.com/gogpu/ggui/recording"
	"github.com/gogpu/ggui/rendercache"
)

var (
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	gray  = color.RGBA{R: 128, G: 128, B: 128, A: 255}
	red   = color.RGBA{R: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
)

type scene struct {
	t       *testing.T
	store   *layout.Store
	tracker *layout.Tracker
	engine  *layout.Engine
	cache   *rendercache.Cache
	comp    *compositor.Compositor
	rec     *recording.Recorder
}

func newScene(t *testing.T, cacheOpts []rendercache.Option, opts ...compositor.Option) *scene {
	t.Helper()
	tr := layout.NewTracker()
	st := layout.NewStore(tr)
	m := layout.MeasureFunc(func(_ layout.ID, c layout.Content, _ float64) (layout.Size, error) {
		return layout.Size{Width: float64(8 * utf8.RuneCountInString(c.Text)), Height: 16}, nil
	})
	e := layout.NewEngine(st, m)
	e.SetViewport(400, 300)
	cache := rendercache.New(cacheOpts...)
	return &scene{
		t:       t,
		store:   st,
		tracker: tr,
		engine:  e,
		cache:   cache,
		comp:    compositor.New(cache, opts...),
		rec:     recording.NewRecorder(400, 300),
	}
}

func (s *scene) add(parent layout.ID, st layout.Style, c layout.Content) layout.ID {
	s.t.Helper()
	id, err := s.store.Insert(parent, st, c)
	if err != nil {
		s.t.Fatalf("Insert: %v", err)
	}
	return id
}

func (s *scene) frame() compositor.FrameReport {
	s.t.Helper()
	res := s.engine.Resolve(s.tracker.DrainClosure(s.store))
	for _, id := range res.Changed {
		s.cache.Invalidate(id)
	}
	list, err := compositor.Build(s.store, s.engine.Viewport())
	if err != nil {
		s.t.Fatalf("Build: %v", err)
	}
	s.rec.Reset()
	rep, err := s.comp.PaintFrame(list, s.rec)
	if err != nil {
		s.t.Fatalf("PaintFrame: %v", err)
	}
	if !s.rec.Balanced() {
		s.t.Fatal("clip/transform stack not balanced after frame")
	}
	return rep
}

func box(w, h float64, bg color.RGBA) layout.Style {
	st := layout.DefaultStyle()
	st.Width, st.Height = layout.Fixed(w), layout.Fixed(h)
	st.Visual.Background = bg
	return st
}

type dashboard struct {
	root, header, title, body, left, leftText, right, rightText layout.ID
}

func buildDashboard(s *scene) dashboard {
	var d dashboard
	rs := box(400, 300, white)
	rs.Direction = layout.Column
	d.root = s.add(layout.NoID, rs, layout.NoContent)

	hs := box(400, 40, gray)
	d.header = s.add(d.root, hs, layout.NoContent)
	d.title = s.add(d.header, layout.DefaultStyle(), layout.Text("Title", layout.Font{Size: 14}))

	bs := layout.DefaultStyle()
	bs.Width, bs.Height = layout.Grow(1), layout.Grow(1)
	bs.Gap = 20
	d.body = s.add(d.root, bs, layout.NoContent)
	d.left = s.add(d.body, box(100, 100, red), layout.NoContent)
	d.leftText = s.add(d.left, layout.DefaultStyle(), layout.Text("a", layout.Font{Size: 12}))
	d.right = s.add(d.body, box(100, 100, blue), layout.NoContent)
	d.rightText = s.add(d.right, layout.DefaultStyle(), layout.Text("b", layout.Font{Size: 12}))
	return d
}

func TestSecondFrameAllHits(t *testing.T) {
	s := newScene(t, nil)
	buildDashboard(s)

	first := s.frame()
	if first.DrawCalls == 0 || s.rec.DrawCalls() != first.DrawCalls {
		t.Errorf("first frame draws = %d (recorded %d)", first.DrawCalls, s.rec.DrawCalls())
	}
	if first.Hits != 0 || first.Forced != 0 || first.Misses != first.Items {
		t.Errorf("first frame = %+v, want every item a miss", first)
	}
	if len(first.Damage) == 0 {
		t.Error("first frame reported no damage")
	}

	second := s.frame()
	if got := s.rec.DrawCalls(); got != 0 {
		t.Errorf("second frame recorded %d draw calls, want 0", got)
	}
	if second.Hits != second.Items || second.Misses != 0 || second.Forced != 0 {
		t.Errorf("second frame = %+v, want every item a hit", second)
	}
	if got := s.rec.Count(recording.CmdBlit); got != second.Items {
		t.Errorf("blits = %d, want %d", got, second.Items)
	}
	if len(second.Damage) != 0 {
		t.Errorf("unchanged frame damage = %v", second.Damage)
	}
}

func TestContentChangeInvalidatesOnlyLeaf(t *testing.T) {
	s := newScene(t, nil)
	d := buildDashboard(s)
	s.frame()
	s.frame()

	if err := s.store.UpdateContent(d.rightText, layout.Text("bbbb", layout.Font{Size: 12})); err != nil {
		t.Fatal(err)
	}
	rep := s.frame()
	if rep.Misses != 1 || rep.Forced != 0 {
		t.Errorf("report = %+v, want exactly one miss", rep)
	}
	if rep.Hits != rep.Items-1 {
		t.Errorf("Hits = %d, want %d", rep.Hits, rep.Items-1)
	}
	if got := s.rec.DrawCalls(); got != 1 {
		t.Errorf("draw calls = %d, want 1", got)
	}
	var texts []string
	for _, c := range s.rec.Commands() {
		if tc, ok := c.(recording.TextCommand); ok {
			texts = append(texts, tc.Text)
		}
	}
	if !slices.Equal(texts, []string{"bbbb"}) {
		t.Errorf("redrawn text = %v, want [bbbb]", texts)
	}
}

func TestPaintChangeKeepsChildrenCached(t *testing.T) {
	s := newScene(t, nil)
	d := buildDashboard(s)
	s.frame()
	s.frame()

	if err := s.store.UpdateStyle(d.left, box(100, 100, gray)); err != nil {
		t.Fatal(err)
	}
	rep := s.frame()
	if rep.Misses != 1 || rep.Forced != 0 || rep.Hits != rep.Items-1 {
		t.Errorf("report = %+v, want only the repainted panel redrawn", rep)
	}
	if got := s.rec.DrawCalls(); got != 1 {
		t.Errorf("draw calls = %d, want 1 (the panel background)", got)
	}
	if e, ok := s.cache.Get(d.leftText); !ok || !e.Valid {
		t.Error("text above the repainted panel lost its cache entry")
	}
	if e, ok := s.cache.Get(d.right); !ok || !e.Valid {
		t.Error("sibling panel lost its cache entry")
	}
}

func TestGrowingContainerKeepsSiblingCached(t *testing.T) {
	s := newScene(t, nil)
	rs := box(400, 300, white)
	rs.Align = layout.AlignStart
	root := s.add(layout.NoID, rs, layout.NoContent)
	cs := layout.DefaultStyle()
	cs.Direction = layout.Column
	cs.Visual.Background = blue
	col := s.add(root, cs, layout.NoContent)
	label := s.add(col, layout.DefaultStyle(), layout.Text("hi", layout.Font{Size: 12}))
	mark := s.add(col, box(10, 10, red), layout.NoContent)
	s.frame()
	before, _ := s.store.Geometry(mark)

	if err := s.store.UpdateContent(label, layout.Text("hello world", layout.Font{Size: 12})); err != nil {
		t.Fatal(err)
	}
	rep := s.frame()
	if g, _ := s.store.Geometry(col); g.Abs.Width != 88 {
		t.Fatalf("container width = %v, want 88", g.Abs.Width)
	}
	if after, _ := s.store.Geometry(mark); after.Abs != before.Abs {
		t.Fatalf("sibling moved from %v to %v", before.Abs, after.Abs)
	}
	// The container and the label are redrawn; the root and the red mark,
	// which lies on top of the redrawn container, are reused.
	if rep.Hits != 2 || rep.Misses != 2 || rep.Forced != 0 {
		t.Errorf("report = %+v, want 2 hits and 2 misses", rep)
	}
	for _, c := range s.rec.Commands() {
		if rc, ok := c.(recording.RectCommand); ok && rc.Paint.Fill == red {
			t.Error("unchanged sibling redrawn")
		}
	}
}

func TestZeroSizeSkipped(t *testing.T) {
	s := newScene(t, nil)
	root := s.add(layout.NoID, box(400, 300, white), layout.NoContent)
	empty := s.add(root, box(0, 50, red), layout.NoContent)

	rep := s.frame()
	if rep.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", rep.Skipped)
	}
	if _, ok := s.cache.Get(empty); ok {
		t.Error("zero-size node cached")
	}
	for _, c := range s.rec.Commands() {
		if rc, ok := c.(recording.RectCommand); ok && rc.Paint.Fill == red {
			t.Error("zero-size node drawn")
		}
	}
}

func TestScopesRestoredOnDrawError(t *testing.T) {
	s := newScene(t, nil)
	buildDashboard(s)
	s.engine.Resolve(s.tracker.DrainClosure(s.store))
	list, err := compositor.Build(s.store, s.engine.Viewport())
	if err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	s.rec.FailDraws(boom)
	rep, err := s.comp.PaintFrame(list, s.rec)
	if !errors.Is(err, boom) {
		t.Errorf("PaintFrame error = %v, want boom", err)
	}
	if rep.Items != list.Len() {
		t.Errorf("frame stopped early: %d of %d items", rep.Items, list.Len())
	}
	if !s.rec.Balanced() {
		t.Error("clip/transform stack not balanced after errors")
	}
	if s.rec.Count(recording.CmdClipPush) != s.rec.Count(recording.CmdClipPop) {
		t.Error("clip push/pop mismatch")
	}
}

func TestFadeConvergesToHit(t *testing.T) {
	s := newScene(t,
		[]rendercache.Option{rendercache.WithFade(true)},
		compositor.WithFadeStep(0.5))
	rs := box(200, 200, white)
	rs.Direction = layout.Column
	rs.Padding = layout.EdgeAll(20)
	root := s.add(layout.NoID, rs, layout.NoContent)
	item := s.add(root, box(160, 40, red), layout.NoContent)
	s.frame()
	s.frame()

	rs.Offset = layout.Point{Y: 10}
	if err := s.store.UpdateStyle(root, rs); err != nil {
		t.Fatal(err)
	}

	var progress []float64
	var fading []int
	for range 4 {
		rep := s.frame()
		fading = append(fading, rep.Fading)
		e, ok := s.cache.Get(item)
		if !ok {
			t.Fatal("fading entry dropped")
		}
		progress = append(progress, e.Fade)
	}
	if !slices.Equal(fading, []int{1, 1, 0, 0}) {
		t.Errorf("fading per frame = %v, want [1 1 0 0]", fading)
	}
	for i := 1; i < len(progress); i++ {
		if progress[i] < progress[i-1] {
			t.Errorf("fade progress decreased: %v", progress)
		}
	}
	if progress[len(progress)-1] != 1 {
		t.Errorf("fade did not settle: %v", progress)
	}
	if got := s.rec.DrawCalls(); got != 0 {
		t.Errorf("settled frame draw calls = %d, want 0", got)
	}
}

func TestFadeBlendsOldRegion(t *testing.T) {
	s := newScene(t,
		[]rendercache.Option{rendercache.WithFade(true)},
		compositor.WithFadeStep(0.5))
	rs := box(200, 200, white)
	rs.Padding = layout.EdgeAll(20)
	root := s.add(layout.NoID, rs, layout.NoContent)
	s.add(root, box(160, 40, red), layout.NoContent)
	s.frame()

	rs.Offset = layout.Point{X: 4}
	if err := s.store.UpdateStyle(root, rs); err != nil {
		t.Fatal(err)
	}

	blits := func() []float64 {
		var out []float64
		for _, c := range s.rec.Commands() {
			if b, ok := c.(recording.BlitCommand); ok {
				out = append(out, b.Opacity)
			}
		}
		return out
	}
	// Root is a plain hit; the moved item lays its old pixels over the
	// fresh drawing at 1-p.
	s.frame()
	if got, want := blits(), []float64{1, 1}; !slices.Equal(got, want) {
		t.Errorf("frame 1 blits = %v, want %v", got, want)
	}
	s.frame()
	if got, want := blits(), []float64{1, 0.5}; !slices.Equal(got, want) {
		t.Errorf("frame 2 blits = %v, want %v", got, want)
	}
	s.frame()
	if got, want := blits(), []float64{1, 1}; !slices.Equal(got, want) {
		t.Errorf("settled blits = %v, want %v", got, want)
	}
	if s.rec.DrawCalls() != 0 {
		t.Errorf("settled frame draw calls = %d", s.rec.DrawCalls())
	}
}

func TestScaleFactor(t *testing.T) {
	s := newScene(t, nil, compositor.WithScale(2))
	s.add(layout.NoID, box(100, 50, red), layout.NoContent)
	s.frame()

	var dev []layout.Rect
	for _, c := range s.rec.Commands() {
		if rc, ok := c.(recording.RectCommand); ok {
			dev = append(dev, rc.Device)
		}
	}
	if want := []layout.Rect{{Width: 200, Height: 100}}; !slices.Equal(dev, want) {
		t.Errorf("device rects = %v, want %v", dev, want)
	}
	var captured []image.Rectangle
	for _, c := range s.rec.Commands() {
		if lc, ok := c.(recording.LayerPopCommand); ok {
			captured = append(captured, lc.Rect)
		}
	}
	if want := []image.Rectangle{image.Rect(0, 0, 200, 100)}; !slices.Equal(captured, want) {
		t.Errorf("layers = %v, want %v", captured, want)
	}

	s.frame()
	s.comp.SetScale(1)
	rep := s.frame()
	if rep.Hits != 0 || rep.Misses != 1 {
		t.Errorf("after scale change = %+v, want a full redraw", rep)
	}
}

func TestOverlay(t *testing.T) {
	s := newScene(t, nil, compositor.WithOverlay(true))
	root := s.add(layout.NoID, box(400, 300, white), layout.NoContent)
	s.add(root, layout.DefaultStyle(), layout.Text("x", layout.Font{Size: 10}))
	first := s.frame()
	if first.OverlayDrawCalls == 0 {
		t.Error("overlay drew nothing")
	}
	second := s.frame()
	if second.DrawCalls != 0 {
		t.Errorf("node draw calls = %d, want 0", second.DrawCalls)
	}
	if s.rec.DrawCalls() != second.OverlayDrawCalls {
		t.Errorf("recorded %d draws, want only the %d overlay draws", s.rec.DrawCalls(), second.OverlayDrawCalls)
	}
}

func TestRemovedNodeDamage(t *testing.T) {
	s := newScene(t, nil)
	d := buildDashboard(s)
	s.frame()
	s.frame()

	removed, err := s.store.Remove(d.right)
	if err != nil {
		t.Fatal(err)
	}
	s.cache.Evict(removed...)
	rep := s.frame()
	if len(rep.Damage) == 0 {
		t.Error("removal produced no damage")
	}
	for _, id := range removed {
		if _, ok := s.cache.Get(id); ok {
			t.Errorf("entry for removed node %v survived", id)
		}
	}
}

func TestBuildSubtreeRanges(t *testing.T) {
	s := newScene(t, nil)
	d := buildDashboard(s)
	s.engine.Resolve(s.tracker.DrainClosure(s.store))
	list, err := compositor.Build(s.store, s.engine.Viewport())
	if err != nil {
		t.Fatal(err)
	}
	order := make([]layout.ID, 0, list.Len())
	for _, it := range list.Items {
		order = append(order, it.ID)
	}
	want := []layout.ID{d.root, d.header, d.title, d.body, d.left, d.leftText, d.right, d.rightText}
	if !slices.Equal(order, want) {
		t.Fatalf("paint order = %v, want %v", order, want)
	}
	ends := []int{8, 3, 3, 8, 6, 6, 8, 8}
	for i, it := range list.Items {
		if it.End != ends[i] {
			t.Errorf("item %d End = %d, want %d", i, it.End, ends[i])
		}
	}
}

func TestPaintFrameNilSurface(t *testing.T) {
	c := compositor.New(rendercache.New())
	if _, err := c.PaintFrame(nil, nil); !errors.Is(err, compositor.ErrNoSurface) {
		t.Errorf("PaintFrame(nil) error = %v, want ErrNoSurface", err)
	}
}

func TestSupersededListRefused(t *testing.T) {
	s := newScene(t, nil)
	d := buildDashboard(s)
	s.engine.Resolve(s.tracker.DrainClosure(s.store))
	build := func(seq uint64) *compositor.DisplayList {
		list, err := compositor.Build(s.store, s.engine.Viewport())
		if err != nil {
			t.Fatal(err)
		}
		list.Seq, list.Epoch = seq, s.cache.Epoch()
		return list
	}
	stale := build(1)

	// The next frame's layout removes a panel before the first frame
	// has painted.
	removed, err := s.store.Remove(d.right)
	if err != nil {
		t.Fatal(err)
	}
	s.cache.Evict(removed...)
	s.engine.Resolve(s.tracker.DrainClosure(s.store))
	fresh := build(2)

	if _, err := s.comp.PaintFrame(stale, s.rec); err != nil {
		t.Fatalf("PaintFrame(stale) error = %v", err)
	}
	for _, id := range removed {
		if _, ok := s.cache.Get(id); ok {
			t.Errorf("region stored for removed node %v", id)
		}
	}
	if _, err := s.comp.PaintFrame(fresh, s.rec); err != nil {
		t.Fatalf("PaintFrame(fresh) error = %v", err)
	}

	s.rec.Reset()
	if _, err := s.comp.PaintFrame(stale, s.rec); !errors.Is(err, compositor.ErrSuperseded) {
		t.Errorf("PaintFrame(older list) error = %v, want ErrSuperseded", err)
	}
	if n := len(s.rec.Commands()); n != 0 {
		t.Errorf("superseded frame recorded %d commands", n)
	}
}
