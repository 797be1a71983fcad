package recording

import (
	"errors"
	"image"
	"image/color"

	"github.com/gogpu/ggui/compositor"
	"github.com/gogpu/ggui/layout"
	"github.com/gogpu/ggui/rendercache"
)

var (
	// ErrForeignRegion is returned when blitting a region another backend
	// captured.
	ErrForeignRegion = errors.New("recording: region not captured by this recorder")

	// ErrLayer is returned for a nested PushLayer or a PopLayer without a
	// matching push.
	ErrLayer = errors.New("recording: unbalanced layer")
)

func init() {
	compositor.Register("recording", func(w, h int) (compositor.Surface, error) {
		return NewRecorder(w, h), nil
	})
}

// Region is the token returned by Recorder.PopLayer.
type Region struct {
	ID   uint64
	Rect image.Rectangle
}

// Bytes reports the size of the equivalent RGBA pixels.
func (r *Region) Bytes() int64 {
	return int64(r.Rect.Dx()) * int64(r.Rect.Dy()) * 4
}

// Recorder is a compositor.Surface that records commands.
//
// The Recorder is not safe for concurrent use.
type Recorder struct {
	width, height int
	commands      []Command
	counts        [len(commandTypeNames)]int

	transforms []compositor.Transform
	clips      int
	underflows int
	regions    uint64
	layer      *image.Rectangle
	failWith   error
}

// NewRecorder creates a recorder for a width x height device surface.
func NewRecorder(width, height int) *Recorder {
	return &Recorder{width: width, height: height}
}

func (r *Recorder) record(c Command) {
	r.commands = append(r.commands, c)
	r.counts[c.Type()]++
}

func (r *Recorder) current() compositor.Transform {
	if n := len(r.transforms); n > 0 {
		return r.transforms[n-1]
	}
	return compositor.Identity
}

// FailDraws makes every subsequent draw command return err. A nil error
// restores normal behavior.
func (r *Recorder) FailDraws(err error) { r.failWith = err }

// Size implements compositor.Surface.
func (r *Recorder) Size() (int, int) { return r.width, r.height }

// Clear implements compositor.Surface.
func (r *Recorder) Clear(c color.RGBA) error {
	r.record(ClearCommand{Color: c})
	return nil
}

// DrawRect implements compositor.Surface.
func (r *Recorder) DrawRect(rect layout.Rect, p compositor.Paint) error {
	t := r.current()
	p0 := t.Apply(rect.Min())
	dev := layout.Rect{X: p0.X, Y: p0.Y, Width: rect.Width * t.Scale, Height: rect.Height * t.Scale}
	r.record(RectCommand{Rect: rect, Paint: p, Device: dev})
	return r.failWith
}

// DrawPath implements compositor.Surface.
func (r *Recorder) DrawPath(path *compositor.Path, p compositor.Paint) error {
	cmd := PathCommand{Paint: p}
	if path != nil {
		cmd.Path.Ops = append([]compositor.PathOp(nil), path.Ops...)
	}
	r.record(cmd)
	return r.failWith
}

// DrawText implements compositor.Surface.
func (r *Recorder) DrawText(s string, f layout.Font, at layout.Point, maxWidth float64, c color.RGBA) error {
	r.record(TextCommand{Text: s, Font: f, At: at, MaxWidth: maxWidth, Color: c})
	return r.failWith
}

// DrawImage implements compositor.Surface.
func (r *Recorder) DrawImage(img layout.ImageSource, dst layout.Rect) error {
	r.record(ImageCommand{Key: img.Key, Dst: dst})
	return r.failWith
}

// ClipPush implements compositor.Surface.
func (r *Recorder) ClipPush(rect layout.Rect) {
	r.clips++
	r.record(ClipPushCommand{Rect: rect})
}

// ClipPop implements compositor.Surface.
func (r *Recorder) ClipPop() {
	if r.clips == 0 {
		r.underflows++
	} else {
		r.clips--
	}
	r.record(ClipPopCommand{})
}

// TransformPush implements compositor.Surface.
func (r *Recorder) TransformPush(t compositor.Transform) {
	r.transforms = append(r.transforms, t.Then(r.current()))
	r.record(TransformPushCommand{Transform: t})
}

// TransformPop implements compositor.Surface.
func (r *Recorder) TransformPop() {
	if n := len(r.transforms); n == 0 {
		r.underflows++
	} else {
		r.transforms = r.transforms[:n-1]
	}
	r.record(TransformPopCommand{})
}

// PushLayer implements compositor.Surface.
func (r *Recorder) PushLayer(rect image.Rectangle) error {
	if r.layer != nil {
		r.underflows++
		return ErrLayer
	}
	r.layer = &rect
	r.record(LayerPushCommand{Rect: rect})
	return nil
}

// PopLayer implements compositor.Surface.
func (r *Recorder) PopLayer() (rendercache.Region, error) {
	if r.layer == nil {
		r.underflows++
		return nil, ErrLayer
	}
	rect := *r.layer
	r.layer = nil
	r.regions++
	reg := &Region{ID: r.regions, Rect: rect}
	r.record(LayerPopCommand{Rect: rect, Region: reg.ID})
	return reg, nil
}

// Blit implements compositor.Surface.
func (r *Recorder) Blit(region rendercache.Region, at image.Point, opacity float64) error {
	reg, ok := region.(*Region)
	if !ok {
		return ErrForeignRegion
	}
	r.record(BlitCommand{Region: reg.ID, At: at, Opacity: opacity})
	return nil
}

// Commands returns the recorded commands in order.
func (r *Recorder) Commands() []Command { return r.commands }

// Count returns how many commands of type t were recorded.
func (r *Recorder) Count(t CommandType) int {
	if int(t) >= len(r.counts) {
		return 0
	}
	return r.counts[t]
}

// DrawCalls returns the number of recorded draw commands.
func (r *Recorder) DrawCalls() int {
	n := 0
	for t, c := range r.counts {
		if CommandType(t).IsDraw() {
			n += c
		}
	}
	return n
}

// Balanced reports whether every clip, transform and layer push was
// popped and no pop happened without a push.
func (r *Recorder) Balanced() bool {
	return r.clips == 0 && len(r.transforms) == 0 && r.layer == nil && r.underflows == 0
}

// Reset discards recorded commands and counters, keeping the size and
// region numbering.
func (r *Recorder) Reset() {
	r.commands = r.commands[:0]
	r.counts = [len(commandTypeNames)]int{}
	r.transforms = r.transforms[:0]
	r.clips = 0
	r.layer = nil
	r.underflows = 0
}
