// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package present uploads painted frames to a GPU texture through the
// gpucontext interfaces, so a host window (for example a gogpu app) can
// show them without ggui depending on a GPU stack.
//
// Only the damaged rectangles of a frame are uploaded when the texture
// supports region updates.
package present

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/ggui/internal/logging"
)

// Format is the pixel layout of every uploaded frame.
const Format = gputypes.TextureFormatRGBA8Unorm

var (
	// ErrNoCreator is returned when the drawer has no texture creator.
	ErrNoCreator = errors.New("present: drawer has no texture creator")

	// ErrPixelSize is returned when a source's pixel slice does not match
	// its size.
	ErrPixelSize = errors.New("present: pixel data does not match surface size")

	// ErrClosed is returned by Present after Close.
	ErrClosed = errors.New("present: presenter closed")
)

// Source is a painted frame. *raster.Surface satisfies it.
type Source interface {
	Size() (width, height int)
	// Pixels returns tightly packed non-premultiplied RGBA rows.
	Pixels() []byte
}

// Stats describes one Present call.
type Stats struct {
	Recreated bool // a new texture was created
	Regions   int  // damaged rectangles uploaded
	Bytes     int  // pixel bytes uploaded
}

type textureDestroyer interface {
	Destroy()
}

// Presenter keeps one texture alive across frames.
//
// A Presenter is not safe for concurrent use; call it from the thread the
// host draws on.
type Presenter struct {
	tex    gpucontext.Texture
	width  int
	height int
	packed []byte
	closed bool
}

// New creates a presenter without a texture. The texture is created by the
// first Present.
func New() *Presenter { return &Presenter{} }

// Present uploads src to the presenter's texture and draws it at (x, y).
// damage lists the device rectangles that changed since the previous
// Present; an empty list with an existing texture uploads nothing.
func (p *Presenter) Present(dc gpucontext.TextureDrawer, src Source, damage []image.Rectangle, x, y float32) (Stats, error) {
	var st Stats
	if p.closed {
		return st, ErrClosed
	}
	w, h := src.Size()
	pix := src.Pixels()
	if len(pix) != w*h*4 {
		return st, fmt.Errorf("%w: %d bytes for %dx%d", ErrPixelSize, len(pix), w, h)
	}

	switch {
	case p.tex == nil || w != p.width || h != p.height:
		if err := p.recreate(dc, w, h, pix); err != nil {
			return st, err
		}
		st.Recreated, st.Bytes = true, len(pix)
	case len(damage) == 0:
	default:
		n, regions, err := p.update(dc, pix, damage)
		if err != nil {
			return st, err
		}
		st.Bytes, st.Regions = n, regions
	}

	if err := dc.DrawTexture(p.tex, x, y); err != nil {
		return st, fmt.Errorf("present: draw texture: %w", err)
	}
	return st, nil
}

func (p *Presenter) recreate(dc gpucontext.TextureDrawer, w, h int, pix []byte) error {
	creator := dc.TextureCreator()
	if creator == nil {
		return ErrNoCreator
	}
	tex, err := creator.NewTextureFromRGBA(w, h, pix)
	if err != nil {
		return fmt.Errorf("present: NewTextureFromRGBA: %w", err)
	}
	if pt, ok := tex.(interface{ SetPremultiplied(bool) }); ok {
		pt.SetPremultiplied(false)
	}
	// The old texture may only go once the new one exists.
	p.destroy()
	p.tex, p.width, p.height = tex, w, h
	logging.L().Debug("present: texture created", "width", w, "height", h, "format", Format.String())
	return nil
}

// update uploads the damaged parts of pix, falling back to a full upload or
// a new texture when the texture cannot update regions.
func (p *Presenter) update(dc gpucontext.TextureDrawer, pix []byte, damage []image.Rectangle) (bytes, regions int, err error) {
	bounds := image.Rect(0, 0, p.width, p.height)
	switch tex := p.tex.(type) {
	case gpucontext.TextureRegionUpdater:
		stride := p.width * 4
		for _, r := range damage {
			r = r.Intersect(bounds)
			if r.Empty() {
				continue
			}
			data := p.pack(pix, stride, r)
			if err := tex.UpdateRegion(r.Min.X, r.Min.Y, r.Dx(), r.Dy(), data); err != nil {
				return bytes, regions, fmt.Errorf("present: update region %v: %w", r, err)
			}
			bytes += len(data)
			regions++
		}
		return bytes, regions, nil
	case gpucontext.TextureUpdater:
		if err := tex.UpdateData(pix); err != nil {
			return 0, 0, fmt.Errorf("present: update texture: %w", err)
		}
		return len(pix), len(damage), nil
	default:
		if err := p.recreate(dc, p.width, p.height, pix); err != nil {
			return 0, 0, err
		}
		return len(pix), len(damage), nil
	}
}

// pack copies the rows of r into a dense buffer reused across calls.
func (p *Presenter) pack(pix []byte, stride int, r image.Rectangle) []byte {
	row := r.Dx() * 4
	need := row * r.Dy()
	if cap(p.packed) < need {
		p.packed = make([]byte, need)
	}
	buf := p.packed[:need]
	for y := range r.Dy() {
		off := (r.Min.Y+y)*stride + r.Min.X*4
		copy(buf[y*row:(y+1)*row], pix[off:off+row])
	}
	return buf
}

func (p *Presenter) destroy() {
	if d, ok := p.tex.(textureDestroyer); ok {
		d.Destroy()
	}
	p.tex = nil
}

// Close destroys the texture. Close is idempotent.
func (p *Presenter) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.destroy()
	return nil
}
