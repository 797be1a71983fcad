package compositor

import (
	"image"
	"image/color"

	"github.com/gogpu/ggui/layout"
	"github.com/gogpu/ggui/rendercache"
)

// Surface is the drawing backend contract.
//
// Drawing coordinates are in user space: TransformPush maps them to device
// pixels and ClipPush restricts drawing to a user-space rectangle. Layers
// and Blit work directly in device pixels.
type Surface interface {
	// Size returns the surface size in device pixels.
	Size() (width, height int)

	// Clear fills the whole surface, ignoring clip and transform.
	Clear(c color.RGBA) error

	DrawRect(r layout.Rect, p Paint) error
	DrawPath(path *Path, p Paint) error

	// DrawText draws s with its top-left corner at at, wrapping lines
	// longer than maxWidth. maxWidth may be +Inf.
	DrawText(s string, f layout.Font, at layout.Point, maxWidth float64, c color.RGBA) error

	// DrawImage decodes img and scales it into dst.
	DrawImage(img layout.ImageSource, dst layout.Rect) error

	ClipPush(r layout.Rect)
	ClipPop()
	TransformPush(t Transform)
	TransformPop()

	// PushLayer starts a transparent layer over the device rectangle r.
	// Drawing goes to the layer until PopLayer. Layers do not nest.
	PushLayer(r image.Rectangle) error

	// PopLayer composites the layer over the pixels beneath it and returns
	// the layer's own pixels, which do not depend on that backdrop.
	PopLayer() (rendercache.Region, error)

	// Blit composites a captured region over the surface with its top-left
	// corner at at, scaled by opacity.
	Blit(region rendercache.Region, at image.Point, opacity float64) error
}

// Paint describes how a shape is filled and stroked. A zero alpha color
// disables the corresponding operation.
type Paint struct {
	Fill        color.RGBA
	Stroke      color.RGBA
	StrokeWidth float64
	Radius      float64 // corner radius for rectangles
}

// Transform maps user space to device space: p -> p*Scale + (Tx, Ty).
type Transform struct {
	Tx, Ty float64
	Scale  float64
}

// Identity is the transform that leaves coordinates unchanged.
var Identity = Transform{Scale: 1}

// Apply maps p through t.
func (t Transform) Apply(p layout.Point) layout.Point {
	return layout.Point{X: p.X*t.Scale + t.Tx, Y: p.Y*t.Scale + t.Ty}
}

// Then returns the transform applying t first and u second.
func (t Transform) Then(u Transform) Transform {
	return Transform{
		Tx:    t.Tx*u.Scale + u.Tx,
		Ty:    t.Ty*u.Scale + u.Ty,
		Scale: t.Scale * u.Scale,
	}
}

// PathVerb identifies a path segment.
type PathVerb uint8

const (
	MoveTo PathVerb = iota
	LineTo
	QuadTo
	CubicTo
	Close
)

// PathOp is one path segment. Pts holds 1, 2 or 3 points depending on Verb.
type PathOp struct {
	Verb PathVerb
	Pts  [3]layout.Point
}

// Path is a sequence of segments in user space.
type Path struct {
	Ops []PathOp
}

// MoveTo starts a new subpath.
func (p *Path) MoveTo(x, y float64) *Path {
	p.Ops = append(p.Ops, PathOp{Verb: MoveTo, Pts: [3]layout.Point{{X: x, Y: y}}})
	return p
}

// LineTo adds a line segment.
func (p *Path) LineTo(x, y float64) *Path {
	p.Ops = append(p.Ops, PathOp{Verb: LineTo, Pts: [3]layout.Point{{X: x, Y: y}}})
	return p
}

// QuadTo adds a quadratic Bézier segment.
func (p *Path) QuadTo(cx, cy, x, y float64) *Path {
	p.Ops = append(p.Ops, PathOp{Verb: QuadTo, Pts: [3]layout.Point{{X: cx, Y: cy}, {X: x, Y: y}}})
	return p
}

// CubicTo adds a cubic Bézier segment.
func (p *Path) CubicTo(c1x, c1y, c2x, c2y, x, y float64) *Path {
	p.Ops = append(p.Ops, PathOp{Verb: CubicTo, Pts: [3]layout.Point{{X: c1x, Y: c1y}, {X: c2x, Y: c2y}, {X: x, Y: y}}})
	return p
}

// Close closes the current subpath.
func (p *Path) Close() *Path {
	p.Ops = append(p.Ops, PathOp{Verb: Close})
	return p
}

// DeviceRect converts a logical rectangle to the smallest enclosing device
// pixel rectangle at the given scale.
func DeviceRect(r layout.Rect, scale float64) image.Rectangle {
	s := r.Scale(scale)
	return image.Rect(
		floor(s.X), floor(s.Y),
		ceil(s.X+s.Width), ceil(s.Y+s.Height),
	)
}

func floor(v float64) int {
	i := int(v)
	if float64(i) > v {
		i--
	}
	return i
}

func ceil(v float64) int {
	i := int(v)
	if float64(i) < v {
		i++
	}
	return i
}
