// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/draw"

	"github.com/gogpu/ggui/compositor"
	"github.com/gogpu/ggui/layout"
	"github.com/gogpu/ggui/measure"
	"github.com/gogpu/ggui/rendercache"
)

// Errors returned by Surface.
var (
	// ErrForeignRegion is returned when blitting a region captured by another surface.
	ErrForeignRegion = errors.New("raster: region not captured by this surface")

	// ErrClosed is returned by operations on a closed surface.
	ErrClosed = errors.New("raster: surface closed")

	// ErrLayer is returned for a nested PushLayer or a PopLayer without a
	// matching push.
	ErrLayer = errors.New("raster: unbalanced layer")
)

// maxDecoded bounds the decoded image cache. It is reset when full.
const maxDecoded = 64

func init() {
	compositor.Register("raster", func(w, h int) (compositor.Surface, error) {
		return New(w, h)
	})
}

// Region is a block of captured device pixels.
type Region struct {
	owner *Surface
	img   *image.NRGBA
}

// Bytes implements rendercache.Region.
func (r *Region) Bytes() int64 { return int64(len(r.img.Pix)) }

// Bounds returns the device rectangle the region was captured from.
func (r *Region) Bounds() image.Rectangle { return r.img.Bounds() }

// Surface is a compositor.Surface drawing into a gg Pixmap through a
// gg Context.
//
// Geometry is mapped to device space before it reaches gg, so the gg
// transform stays at identity. The backing pixmap holds straight
// (non-premultiplied) RGBA, which is how it is exposed to image/draw.
// Text lines break where measure.Shaper broke them during layout.
//
// A Surface is not safe for concurrent use.
type Surface struct {
	width, height int
	pm            *gg.Pixmap
	dc            *gg.Context
	pix           *image.NRGBA // aliases pm's pixels

	shaper *measure.Shaper

	transforms []compositor.Transform
	clips      []image.Rectangle

	// layer is the open layer's backdrop, nil when drawing goes straight
	// to the surface.
	layer *image.NRGBA

	sources map[string]*text.FontSource
	decoded map[string]*gg.ImageBuf
	closed  bool
}

// Option configures a Surface.
type Option func(*Surface)

// WithShaper sets the shaper used for line breaking and font lookup.
// Pass the shaper the layout measures with so wrapping agrees.
func WithShaper(s *measure.Shaper) Option {
	return func(sf *Surface) { sf.shaper = s }
}

// New creates a width x height surface.
func New(width, height int, opts ...Option) (*Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("raster: invalid surface size %dx%d", width, height)
	}
	pm := gg.NewPixmap(width, height)
	s := &Surface{
		width:   width,
		height:  height,
		pm:      pm,
		dc:      gg.NewContext(width, height, gg.WithPixmap(pm)),
		pix:     &image.NRGBA{Pix: pm.Data(), Stride: width * 4, Rect: image.Rect(0, 0, width, height)},
		sources: make(map[string]*text.FontSource),
		decoded: make(map[string]*gg.ImageBuf),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.shaper == nil {
		s.shaper = measure.NewShaper(nil)
	}
	return s, nil
}

// Size implements compositor.Surface.
func (s *Surface) Size() (int, int) { return s.width, s.height }

// Image returns a copy of the surface pixels.
func (s *Surface) Image() *image.NRGBA {
	img := image.NewNRGBA(s.pix.Rect)
	copy(img.Pix, s.pix.Pix)
	return img
}

// Pixels returns the surface pixels in RGBA order. The slice aliases the
// surface and is overwritten by the next frame.
func (s *Surface) Pixels() []byte { return s.pm.Data() }

// SavePNG writes the surface to path as PNG.
func (s *Surface) SavePNG(path string) error { return s.pm.SavePNG(path) }

// Close releases the gg context.
func (s *Surface) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.dc.Close()
}

func (s *Surface) current() compositor.Transform {
	if n := len(s.transforms); n > 0 {
		return s.transforms[n-1]
	}
	return compositor.Identity
}

func (s *Surface) clip() image.Rectangle {
	if n := len(s.clips); n > 0 {
		return s.clips[n-1]
	}
	return s.pix.Rect
}

// device maps a user-space rectangle to device space.
func (s *Surface) device(r layout.Rect) (x, y, w, h float64) {
	t := s.current()
	p := t.Apply(r.Min())
	return p.X, p.Y, r.Width * t.Scale, r.Height * t.Scale
}

// Clear implements compositor.Surface.
func (s *Surface) Clear(c color.RGBA) error {
	if s.closed {
		return ErrClosed
	}
	s.dc.ClearWithColor(gg.FromColor(c))
	return nil
}

// DrawRect implements compositor.Surface.
func (s *Surface) DrawRect(r layout.Rect, p compositor.Paint) error {
	if s.closed {
		return ErrClosed
	}
	x, y, w, h := s.device(r)
	radius := p.Radius * s.current().Scale
	box := bbox{x, y, x + w, y + h}
	return s.paint(box, p, func(dc *gg.Context, dx, dy float64) {
		if radius > 0 {
			dc.DrawRoundedRectangle(x-dx, y-dy, w, h, radius)
		} else {
			dc.DrawRectangle(x-dx, y-dy, w, h)
		}
	})
}

// DrawPath implements compositor.Surface.
func (s *Surface) DrawPath(path *compositor.Path, p compositor.Paint) error {
	if s.closed {
		return ErrClosed
	}
	if len(path.Ops) == 0 {
		return nil
	}
	t := s.current()
	ops := make([]compositor.PathOp, len(path.Ops))
	box := bbox{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
	for i, op := range path.Ops {
		ops[i].Verb = op.Verb
		for j, pt := range op.Pts[:pointsOf(op.Verb)] {
			ops[i].Pts[j] = t.Apply(pt)
			box = box.extend(ops[i].Pts[j])
		}
	}
	return s.paint(box, p, func(dc *gg.Context, dx, dy float64) {
		for _, op := range ops {
			a, b, c := op.Pts[0], op.Pts[1], op.Pts[2]
			switch op.Verb {
			case compositor.MoveTo:
				dc.MoveTo(a.X-dx, a.Y-dy)
			case compositor.LineTo:
				dc.LineTo(a.X-dx, a.Y-dy)
			case compositor.QuadTo:
				dc.QuadraticTo(a.X-dx, a.Y-dy, b.X-dx, b.Y-dy)
			case compositor.CubicTo:
				dc.CubicTo(a.X-dx, a.Y-dy, b.X-dx, b.Y-dy, c.X-dx, c.Y-dy)
			case compositor.Close:
				dc.ClosePath()
			}
		}
	})
}

func pointsOf(v compositor.PathVerb) int {
	switch v {
	case compositor.MoveTo, compositor.LineTo:
		return 1
	case compositor.QuadTo:
		return 2
	case compositor.CubicTo:
		return 3
	default:
		return 0
	}
}

// bbox is a device-space bounding box: min x, min y, max x, max y.
type bbox [4]float64

func (b bbox) extend(p layout.Point) bbox {
	return bbox{math.Min(b[0], p.X), math.Min(b[1], p.Y), math.Max(b[2], p.X), math.Max(b[3], p.Y)}
}

func (b bbox) outset(d float64) bbox {
	return bbox{b[0] - d, b[1] - d, b[2] + d, b[3] + d}
}

func (b bbox) within(r image.Rectangle) bool {
	return b[0] >= float64(r.Min.X) && b[1] >= float64(r.Min.Y) &&
		b[2] <= float64(r.Max.X) && b[3] <= float64(r.Max.Y)
}

// paint fills and then strokes the shape built by shape. gg fills ignore
// the clip, so a shape reaching outside the current clip is drawn into a
// clip-sized layer that is then composited inside the clip.
func (s *Surface) paint(box bbox, p compositor.Paint, shape func(dc *gg.Context, dx, dy float64)) error {
	fill := p.Fill.A > 0
	stroke := p.Stroke.A > 0 && p.StrokeWidth > 0
	if !fill && !stroke {
		return nil
	}
	width := p.StrokeWidth * s.current().Scale
	if stroke {
		box = box.outset(width / 2)
	}

	clip := s.clip()
	dc, dx, dy := s.dc, 0.0, 0.0
	var layer *gg.Pixmap
	if !box.within(clip) {
		if clip.Empty() {
			return nil
		}
		layer = gg.NewPixmap(clip.Dx(), clip.Dy())
		dc = gg.NewContext(clip.Dx(), clip.Dy(), gg.WithPixmap(layer))
		defer func() { _ = dc.Close() }()
		dx, dy = float64(clip.Min.X), float64(clip.Min.Y)
	}

	if fill {
		shape(dc, dx, dy)
		dc.SetColor(p.Fill)
		if err := dc.Fill(); err != nil {
			return fmt.Errorf("raster: fill: %w", err)
		}
	}
	if stroke {
		shape(dc, dx, dy)
		dc.SetColor(p.Stroke)
		dc.SetLineWidth(width)
		if err := dc.Stroke(); err != nil {
			return fmt.Errorf("raster: stroke: %w", err)
		}
	}
	if layer != nil {
		src := &image.NRGBA{Pix: layer.Data(), Stride: clip.Dx() * 4, Rect: image.Rect(0, 0, clip.Dx(), clip.Dy())}
		draw.Draw(s.pix, clip, src, image.Point{}, draw.Over)
	}
	return nil
}

// DrawText implements compositor.Surface.
func (s *Surface) DrawText(str string, f layout.Font, at layout.Point, maxWidth float64, c color.RGBA) error {
	if s.closed {
		return ErrClosed
	}
	tl, err := s.shaper.Layout(str, f, maxWidth)
	if err != nil {
		return fmt.Errorf("raster: text: %w", err)
	}
	t := s.current()
	face, err := s.face(f, t.Scale)
	if err != nil {
		return err
	}
	dst, ok := s.pix.SubImage(s.clip()).(*image.NRGBA)
	if !ok || dst.Rect.Empty() {
		return nil
	}
	for i, ln := range tl.Lines {
		if ln.Text == "" {
			continue
		}
		base := t.Apply(layout.Point{X: at.X, Y: at.Y + tl.Ascent + float64(i)*tl.LineHeight()})
		text.Draw(dst, ln.Text, face, base.X, base.Y, c)
	}
	return nil
}

// face returns a gg text face for f at the device scale.
func (s *Surface) face(f layout.Font, scale float64) (text.Face, error) {
	family := f.Family
	if family == "" {
		family = measure.DefaultFamily
	}
	src, ok := s.sources[family]
	if !ok {
		data, err := s.shaper.Fonts().Data(family)
		if err != nil {
			return nil, fmt.Errorf("raster: text: %w", err)
		}
		if src, err = text.NewFontSource(data); err != nil {
			return nil, fmt.Errorf("raster: font %q: %w", family, err)
		}
		s.sources[family] = src
	}
	size := f.Size
	if size == 0 {
		size = measure.DefaultFontSize
	}
	return src.Face(size * scale), nil
}

// DrawImage implements compositor.Surface.
func (s *Surface) DrawImage(img layout.ImageSource, dst layout.Rect) error {
	if s.closed {
		return ErrClosed
	}
	buf, err := s.decode(img)
	if err != nil {
		return err
	}
	x, y, w, h := s.device(dst)
	s.dc.DrawImageEx(buf, gg.DrawImageOptions{X: x, Y: y, DstWidth: w, DstHeight: h, Opacity: 1})
	return nil
}

func (s *Surface) decode(img layout.ImageSource) (*gg.ImageBuf, error) {
	key := fmt.Sprintf("%s/%d", img.Key, len(img.Data))
	if buf, ok := s.decoded[key]; ok {
		return buf, nil
	}
	if len(img.Data) == 0 {
		return nil, fmt.Errorf("%w: %q", measure.ErrEmptyImage, img.Key)
	}
	decoded, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return nil, fmt.Errorf("raster: decode %q: %w", img.Key, err)
	}
	if len(s.decoded) >= maxDecoded {
		clear(s.decoded)
	}
	buf := gg.ImageBufFromImage(decoded)
	s.decoded[key] = buf
	return buf, nil
}

// ClipPush implements compositor.Surface.
func (s *Surface) ClipPush(r layout.Rect) {
	x, y, w, h := s.device(r)
	dev := image.Rect(int(math.Floor(x)), int(math.Floor(y)), int(math.Ceil(x+w)), int(math.Ceil(y+h)))
	s.clips = append(s.clips, dev.Intersect(s.clip()))
}

// ClipPop implements compositor.Surface.
func (s *Surface) ClipPop() {
	if len(s.clips) == 0 {
		return
	}
	s.clips = s.clips[:len(s.clips)-1]
}

// TransformPush implements compositor.Surface.
func (s *Surface) TransformPush(t compositor.Transform) {
	s.transforms = append(s.transforms, t.Then(s.current()))
}

// TransformPop implements compositor.Surface.
func (s *Surface) TransformPop() {
	if len(s.transforms) > 0 {
		s.transforms = s.transforms[:len(s.transforms)-1]
	}
}

// PushLayer implements compositor.Surface. The pixels under r are set
// aside and r is cleared to transparent, so drawing until PopLayer yields
// only the layer's own pixels. Drawing is clipped to r.
func (s *Surface) PushLayer(r image.Rectangle) error {
	if s.closed {
		return ErrClosed
	}
	if s.layer != nil {
		return ErrLayer
	}
	vis := r.Intersect(s.pix.Rect)
	if vis.Empty() {
		return fmt.Errorf("raster: layer %v outside surface", r)
	}
	s.layer = image.NewNRGBA(vis)
	draw.Copy(s.layer, vis.Min, s.pix, vis, draw.Src, nil)
	draw.Draw(s.pix, vis, image.Transparent, image.Point{}, draw.Src)
	s.clips = append(s.clips, vis.Intersect(s.clip()))
	return nil
}

// PopLayer implements compositor.Surface. The layer is copied out, the
// backdrop restored and the layer composited over it.
func (s *Surface) PopLayer() (rendercache.Region, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if s.layer == nil {
		return nil, ErrLayer
	}
	back := s.layer
	s.layer = nil
	s.clips = s.clips[:len(s.clips)-1]

	vis := back.Rect
	own := image.NewNRGBA(vis)
	draw.Copy(own, vis.Min, s.pix, vis, draw.Src, nil)
	draw.Draw(s.pix, vis, back, vis.Min, draw.Src)
	draw.Draw(s.pix, vis, own, vis.Min, draw.Over)
	return &Region{owner: s, img: own}, nil
}

// Blit implements compositor.Surface.
func (s *Surface) Blit(region rendercache.Region, at image.Point, opacity float64) error {
	if s.closed {
		return ErrClosed
	}
	reg, ok := region.(*Region)
	if !ok || reg.owner != s {
		return ErrForeignRegion
	}
	if opacity <= 0 {
		return nil
	}
	src := reg.img
	dr := image.Rectangle{Min: at, Max: at.Add(src.Rect.Size())}
	if opacity >= 1 {
		draw.Draw(s.pix, dr, src, src.Rect.Min, draw.Over)
		return nil
	}
	mask := image.NewUniform(color.Alpha{A: uint8(math.Round(opacity * 255))})
	draw.DrawMask(s.pix, dr, src, src.Rect.Min, mask, image.Point{}, draw.Over)
	return nil
}
