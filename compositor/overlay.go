package compositor

import (
	"fmt"
	"image/color"
	"math"

	"github.com/gogpu/ggui/layout"
)

var (
	overlayRedrawn = color.RGBA{R: 255, B: 255, A: 200}
	overlayDiag    = color.RGBA{R: 230, A: 255}
	overlayPanel   = color.RGBA{A: 180}
	overlayText    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	overlayFont    = layout.Font{Family: "mono", Size: 12}
)

// paintOverlay outlines nodes redrawn this frame, crosses out nodes with a
// measurement diagnostic and prints the frame counters. It runs after all
// layers are popped, so overlay pixels never enter the cache.
func (c *Compositor) paintOverlay(f *frameState, list *DisplayList) {
	s := f.surface
	s.TransformPush(Transform{Scale: c.scale})
	defer s.TransformPop()

	draw := func(err error) {
		f.report.OverlayDrawCalls++
		f.fail(err)
	}

	for _, i := range f.redrawn {
		r := list.Items[i].Bounds
		draw(s.DrawRect(r, Paint{Stroke: overlayRedrawn, StrokeWidth: 1}))
	}
	for i := range list.Items {
		it := &list.Items[i]
		if !it.Diagnostic {
			continue
		}
		// Zero-size nodes get a fixed marker so they stay visible.
		r := it.Bounds
		if r.Width < 8 || r.Height < 8 {
			r = layout.Rect{X: r.X - 4, Y: r.Y - 4, Width: 8, Height: 8}
		}
		p := new(Path).
			MoveTo(r.X, r.Y).LineTo(r.X+r.Width, r.Y+r.Height).
			MoveTo(r.X+r.Width, r.Y).LineTo(r.X, r.Y+r.Height)
		draw(s.DrawPath(p, Paint{Stroke: overlayDiag, StrokeWidth: 2}))
	}

	rep := &f.report
	line := fmt.Sprintf("frame %d  items %d  hit %d  miss %d  fade %d  forced %d  draws %d",
		rep.Frame, rep.Items, rep.Hits, rep.Misses, rep.Fading, rep.Forced, rep.DrawCalls)
	panel := layout.Rect{X: 4, Y: 4, Width: 7 * float64(len(line)), Height: 18}
	draw(s.DrawRect(panel, Paint{Fill: overlayPanel, Radius: 3}))
	draw(s.DrawText(line, overlayFont, layout.Point{X: 8, Y: 6}, math.Inf(1), overlayText))
}
