// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package present

import (
	"bytes"
	"errors"
	"image"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/ggui/backend/raster"
)

type fakeTexture struct {
	w, h      int
	data      []byte
	regions   []image.Rectangle
	destroyed bool
}

func (t *fakeTexture) Width() int  { return t.w }
func (t *fakeTexture) Height() int { return t.h }
func (t *fakeTexture) Destroy()    { t.destroyed = true }

// regionTexture supports partial uploads.
type regionTexture struct{ fakeTexture }

func (t *regionTexture) UpdateRegion(x, y, w, h int, data []byte) error {
	if len(data) != w*h*4 {
		return errors.New("bad region size")
	}
	for row := range h {
		off := ((y+row)*t.w + x) * 4
		copy(t.data[off:off+w*4], data[row*w*4:(row+1)*w*4])
	}
	t.regions = append(t.regions, image.Rect(x, y, x+w, y+h))
	return nil
}

type fakeDrawer struct {
	regional bool
	created  []*fakeTexture
	draws    int
}

func (d *fakeDrawer) NewTextureFromRGBA(w, h int, data []byte) (gpucontext.Texture, error) {
	ft := fakeTexture{w: w, h: h, data: bytes.Clone(data)}
	if d.regional {
		t := &regionTexture{fakeTexture: ft}
		d.created = append(d.created, &t.fakeTexture)
		return t, nil
	}
	t := &ft
	d.created = append(d.created, t)
	return t, nil
}

func (d *fakeDrawer) DrawTexture(gpucontext.Texture, float32, float32) error {
	d.draws++
	return nil
}

func (d *fakeDrawer) TextureCreator() gpucontext.TextureCreator { return d }

func newSource(t *testing.T, w, h int) *raster.Surface {
	t.Helper()
	s, err := raster.New(w, h)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestFormat(t *testing.T) {
	if Format != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("Format = %v, want RGBA8Unorm", Format)
	}
}

func TestPresentCreatesThenUpdatesRegions(t *testing.T) {
	src := newSource(t, 8, 4)
	d := &fakeDrawer{regional: true}
	p := New()

	st, err := p.Present(d, src, nil, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !st.Recreated || st.Bytes != 8*4*4 || len(d.created) != 1 {
		t.Errorf("first Present = %+v, created %d", st, len(d.created))
	}

	// Unchanged frame: no upload, still drawn.
	st, err = p.Present(d, src, nil, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if st.Bytes != 0 || d.draws != 2 {
		t.Errorf("idle Present = %+v, draws %d", st, d.draws)
	}

	pix := src.Pixels()
	pix[(1*8+2)*4] = 0xAB
	st, err = p.Present(d, src, []image.Rectangle{image.Rect(2, 1, 4, 3), image.Rect(20, 20, 30, 30)}, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if st.Regions != 1 || st.Bytes != 2*2*4 {
		t.Errorf("damaged Present = %+v, want 1 region of 16 bytes", st)
	}
	if got := d.created[0].data[(1*8+2)*4]; got != 0xAB {
		t.Errorf("uploaded byte = %#x, want 0xab", got)
	}
}

func TestPresentResizeRecreates(t *testing.T) {
	d := &fakeDrawer{}
	p := New()
	if _, err := p.Present(d, newSource(t, 4, 4), nil, 0, 0); err != nil {
		t.Fatal(err)
	}
	st, err := p.Present(d, newSource(t, 6, 4), nil, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !st.Recreated || len(d.created) != 2 || !d.created[0].destroyed {
		t.Errorf("resize: stats %+v, created %d, old destroyed %v", st, len(d.created), d.created[0].destroyed)
	}
}

func TestPresentFallsBackToRecreate(t *testing.T) {
	src := newSource(t, 4, 4)
	d := &fakeDrawer{}
	p := New()
	if _, err := p.Present(d, src, nil, 0, 0); err != nil {
		t.Fatal(err)
	}
	st, err := p.Present(d, src, []image.Rectangle{image.Rect(0, 0, 1, 1)}, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if st.Bytes != 4*4*4 || len(d.created) != 2 {
		t.Errorf("fallback: stats %+v, created %d", st, len(d.created))
	}
}

type badSource struct{}

func (badSource) Size() (int, int) { return 4, 4 }
func (badSource) Pixels() []byte   { return make([]byte, 3) }

func TestPresentErrors(t *testing.T) {
	p := New()
	if _, err := p.Present(&fakeDrawer{}, badSource{}, nil, 0, 0); !errors.Is(err, ErrPixelSize) {
		t.Errorf("Present(bad source) error = %v, want ErrPixelSize", err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Present(&fakeDrawer{}, newSource(t, 2, 2), nil, 0, 0); !errors.Is(err, ErrClosed) {
		t.Errorf("Present after Close error = %v, want ErrClosed", err)
	}
}
