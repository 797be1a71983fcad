package compositor

import (
	"errors"
	"image"
	"image/color"
	"math"

	"github.com/gogpu/ggui/internal/logging"
	"github.com/gogpu/ggui/layout"
	"github.com/gogpu/ggui/rendercache"
)

// DefaultFadeStep is the fade progress added per frame.
const DefaultFadeStep = 0.25

var (
	// ErrNoSurface is returned when painting without a surface.
	ErrNoSurface = errors.New("compositor: no surface")

	// ErrSuperseded is returned for a sequenced display list older than
	// one already painted. Nothing is drawn.
	ErrSuperseded = errors.New("compositor: display list superseded")
)

// FrameReport describes what one PaintFrame call did.
type FrameReport struct {
	Frame uint64

	Items   int
	Hits    int
	Misses  int
	Fading  int // revalidated regions blended this frame
	Forced  int // cached regions redrawn because only part of them was visible
	Skipped int // zero-size items
	Culled  int // items entirely outside the surface
	Stored  int

	// DrawCalls counts backend draw operations for nodes. Clears and
	// blits are not draw calls.
	DrawCalls        int
	OverlayDrawCalls int
	Blits            int

	// Damage lists the surface tiles whose pixels may differ from the
	// previous frame.
	Damage []image.Rectangle
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithScale sets the device pixels per logical pixel.
func WithScale(s float64) Option {
	return func(c *Compositor) {
		if s > 0 {
			c.scale = s
		}
	}
}

// WithBackground sets the color the surface is cleared to.
func WithBackground(col color.RGBA) Option {
	return func(c *Compositor) { c.background = col }
}

// WithFadeStep sets the fade progress added per frame, in (0, 1].
func WithFadeStep(step float64) Option {
	return func(c *Compositor) {
		if step > 0 && step <= 1 {
			c.fadeStep = step
		}
	}
}

// WithOverlay enables the performance overlay.
func WithOverlay(enabled bool) Option {
	return func(c *Compositor) { c.overlay = enabled }
}

// WithTileSize sets the damage tile edge in device pixels.
func WithTileSize(px int) Option {
	return func(c *Compositor) {
		if px > 0 {
			c.tile = px
		}
	}
}

// Compositor paints display lists. It borrows cache entries only for the
// duration of PaintFrame. Not safe for concurrent use.
type Compositor struct {
	cache      *rendercache.Cache
	scale      float64
	background color.RGBA
	fadeStep   float64
	overlay    bool
	tile       int

	frame   uint64
	lastSeq uint64
	prev    map[layout.ID]image.Rectangle
	damage *Damage
	dw, dh int
}

// New creates a compositor backed by cache.
func New(cache *rendercache.Cache, opts ...Option) *Compositor {
	c := &Compositor{
		cache:      cache,
		scale:      1,
		background: color.RGBA{R: 255, G: 255, B: 255, A: 255},
		fadeStep:   DefaultFadeStep,
		tile:       DefaultTileSize,
		prev:       make(map[layout.ID]image.Rectangle),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Scale returns the device pixels per logical pixel.
func (c *Compositor) Scale() float64 { return c.scale }

// SetScale changes the scale factor. Every cached region is dropped since
// none matches the new resolution.
func (c *Compositor) SetScale(s float64) {
	if s <= 0 || s == c.scale {
		return
	}
	c.scale = s
	c.cache.InvalidateAll()
	clear(c.prev)
	if c.damage != nil {
		c.damage.MarkAll()
	}
}

// SetOverlay toggles the performance overlay.
func (c *Compositor) SetOverlay(enabled bool) { c.overlay = enabled }

type frameState struct {
	surface Surface
	bounds  image.Rectangle
	report  FrameReport
	redrawn []int
	seen    map[layout.ID]image.Rectangle
	err     error
}

func (f *frameState) fail(err error) {
	if err != nil && f.err == nil {
		f.err = err
	}
}

// PaintFrame paints list onto s. Drawing errors do not stop the frame;
// the first one is returned after every item has been processed.
//
// A sequenced list older than the last painted one is refused with
// ErrSuperseded, so frames never paint out of order.
func (c *Compositor) PaintFrame(list *DisplayList, s Surface) (FrameReport, error) {
	if s == nil {
		return FrameReport{}, ErrNoSurface
	}
	if list == nil {
		list = &DisplayList{}
	}
	if list.Seq != 0 {
		if list.Seq < c.lastSeq {
			return FrameReport{}, ErrSuperseded
		}
		c.lastSeq = list.Seq
	}
	c.frame++
	w, h := s.Size()
	if c.damage == nil || c.dw != w || c.dh != h {
		c.damage = NewDamage(w, h, c.tile)
		c.dw, c.dh = w, h
		c.damage.MarkAll()
	}

	f := &frameState{
		surface: s,
		bounds:  image.Rect(0, 0, w, h),
		seen:    make(map[layout.ID]image.Rectangle, len(list.Items)),
	}
	f.report.Frame = c.frame
	f.report.Items = len(list.Items)
	f.fail(s.Clear(c.background))

	for i := range list.Items {
		c.paintItem(f, list, i)
	}

	for id, old := range c.prev {
		if _, ok := f.seen[id]; !ok {
			c.damage.MarkRect(old)
		}
	}
	c.prev = f.seen

	if c.overlay {
		c.paintOverlay(f, list)
	}

	f.report.Damage = clipRects(c.damage.TakeRects(), f.bounds)
	if list.Seq != 0 {
		c.cache.Prune(list.Epoch)
	}
	logging.L().Debug("compositor: frame painted",
		"frame", c.frame, "items", f.report.Items, "hits", f.report.Hits,
		"misses", f.report.Misses, "fading", f.report.Fading, "draws", f.report.DrawCalls)
	return f.report, f.err
}

func (c *Compositor) paintItem(f *frameState, list *DisplayList, i int) {
	it := &list.Items[i]
	if it.Bounds.Width <= 0 || it.Bounds.Height <= 0 {
		f.report.Skipped++
		return
	}
	dev := DeviceRect(it.Bounds, c.scale)
	if !dev.Overlaps(f.bounds) {
		f.report.Culled++
		return
	}
	old, hadOld := c.prev[it.ID]
	f.seen[it.ID] = dev
	if !hadOld || old != dev {
		if hadOld {
			c.damage.MarkRect(old)
		}
		c.damage.MarkRect(dev)
	}

	// Regions of partially visible items hold only the visible part, so
	// they are reusable only in place.
	vis := dev.Intersect(f.bounds)
	if vis != dev && hadOld && old != dev {
		if _, cached := c.cache.Get(it.ID); cached {
			c.cache.Invalidate(it.ID)
			f.report.Forced++
			c.redraw(f, it, i, dev)
			return
		}
	}

	// Cached regions hold only the node's own pixels, so a hit stays valid
	// whatever was redrawn beneath it this frame.
	entry, status := c.cache.Lookup(it.ID, it.Fingerprint, it.Bounds)
	switch status {
	case rendercache.Hit:
		f.report.Hits++
		f.blit(entry.Region, vis.Min, 1)
	case rendercache.Revalidated:
		c.fade(f, it, i, dev, entry)
	default:
		f.report.Misses++
		c.redraw(f, it, i, dev)
	}
}

func (f *frameState) blit(r rendercache.Region, at image.Point, opacity float64) {
	f.report.Blits++
	f.fail(f.surface.Blit(r, at, opacity))
}

// redraw draws the item on its own layer and stores the layer.
func (c *Compositor) redraw(f *frameState, it *Item, i int, dev image.Rectangle) {
	region, calls := c.drawLayer(f, it, dev)
	if calls > 0 {
		c.damage.MarkRect(dev)
		f.redrawn = append(f.redrawn, i)
	}
	c.store(f, it, region)
}

// drawLayer draws the item onto a transparent layer, which the surface
// composites in place. The returned region holds only the item's pixels;
// it is nil when the layer could not be used, in which case the item is
// drawn directly.
func (c *Compositor) drawLayer(f *frameState, it *Item, dev image.Rectangle) (rendercache.Region, int) {
	if err := f.surface.PushLayer(dev.Intersect(f.bounds)); err != nil {
		logging.L().Warn("compositor: layer failed", "node", it.ID, "err", err)
		f.fail(err)
		return nil, c.drawNode(f, it)
	}
	calls := c.drawNode(f, it)
	region, err := f.surface.PopLayer()
	if err != nil {
		logging.L().Warn("compositor: layer failed", "node", it.ID, "err", err)
		f.fail(err)
		return nil, calls
	}
	return region, calls
}

func (c *Compositor) store(f *frameState, it *Item, region rendercache.Region) {
	if region == nil {
		return
	}
	if c.cache.Store(it.ID, it.Fingerprint, region, it.Bounds) {
		f.report.Stored++
	}
}

// fade draws the item fresh and blends the previous region over it at
// 1-p. Once the progress reaches 1 the fresh pixels replace the entry.
func (c *Compositor) fade(f *frameState, it *Item, i int, dev image.Rectangle, entry rendercache.Entry) {
	f.report.Fading++
	p := entry.Fade
	next, _ := c.cache.AdvanceFade(it.ID, c.fadeStep)

	region, _ := c.drawLayer(f, it, dev)
	c.damage.MarkRect(dev)
	f.redrawn = append(f.redrawn, i)
	if next >= 1 {
		c.store(f, it, region)
	}
	if opacity := 1 - p; opacity > 0 {
		f.blit(entry.Region, dev.Intersect(f.bounds).Min, opacity)
	}
}

// drawNode renders one node's own visual and content inside a scoped
// transform and clip. It returns the number of draw calls issued.
func (c *Compositor) drawNode(f *frameState, it *Item) (calls int) {
	s := f.surface
	s.TransformPush(Transform{Tx: it.Bounds.X * c.scale, Ty: it.Bounds.Y * c.scale, Scale: c.scale})
	defer s.TransformPop()
	local := layout.Rect{Width: it.Bounds.Width, Height: it.Bounds.Height}
	s.ClipPush(local)
	defer s.ClipPop()
	defer func() { f.report.DrawCalls += calls }()

	v := it.Visual
	if v.Background.A > 0 {
		calls++
		f.fail(s.DrawRect(local, Paint{Fill: v.Background, Radius: v.CornerRadius}))
	}
	if v.BorderWidth > 0 && v.BorderColor.A > 0 {
		calls++
		inner := local.Inset(layout.EdgeAll(v.BorderWidth / 2))
		f.fail(s.DrawRect(inner, Paint{Stroke: v.BorderColor, StrokeWidth: v.BorderWidth, Radius: v.CornerRadius}))
	}

	box := it.Content.Translate(-it.Bounds.X, -it.Bounds.Y)
	switch it.Body.Kind {
	case layout.ContentText:
		if it.Body.Text == "" {
			return calls
		}
		fg := v.Foreground
		if fg == (color.RGBA{}) {
			fg = color.RGBA{A: 255}
		}
		maxWidth := box.Width
		if maxWidth <= 0 {
			maxWidth = math.Inf(1)
		}
		calls++
		f.fail(s.DrawText(it.Body.Text, it.Body.Font, box.Min(), maxWidth, fg))
	case layout.ContentImage:
		if box.IsEmpty() {
			return calls
		}
		calls++
		if err := s.DrawImage(it.Body.Image, box); err != nil {
			logging.L().Warn("compositor: image draw failed", "node", it.ID, "err", err)
			f.fail(err)
		}
	}
	return calls
}

func clipRects(rs []image.Rectangle, bounds image.Rectangle) []image.Rectangle {
	out := rs[:0]
	for _, r := range rs {
		if r = r.Intersect(bounds); !r.Empty() {
			out = append(out, r)
		}
	}
	return out
}
