package layout

import (
	"errors"
	"testing"
	"unicode/utf8"
)

var errBadImage = errors.New("bad image")

// fakeMeasurer sizes text at 10px per rune by 20px, and images at 16x16
// unless their data is empty.
type fakeMeasurer struct {
	calls int
}

func (f *fakeMeasurer) Measure(_ ID, c Content, maxWidth float64) (Size, error) {
	f.calls++
	switch c.Kind {
	case ContentText:
		w := float64(10 * utf8.RuneCountInString(c.Text))
		lines := 1.0
		for w > maxWidth && maxWidth > 0 {
			w -= maxWidth
			lines++
		}
		if lines > 1 {
			w = maxWidth
		}
		return Size{Width: w, Height: 20 * lines}, nil
	case ContentImage:
		if len(c.Image.Data) == 0 {
			return Size{}, errBadImage
		}
		return Size{Width: 16, Height: 16}, nil
	}
	return Size{}, nil
}

type harness struct {
	t       *testing.T
	store   *Store
	tracker *Tracker
	engine  *Engine
	meas    *fakeMeasurer
}

func newHarness(t *testing.T, w, h float64) *harness {
	t.Helper()
	tr := NewTracker()
	s := NewStore(tr)
	m := &fakeMeasurer{}
	e := NewEngine(s, m)
	e.SetViewport(w, h)
	return &harness{t: t, store: s, tracker: tr, engine: e, meas: m}
}

func (h *harness) insert(parent ID, st Style, c Content) ID {
	h.t.Helper()
	id, err := h.store.Insert(parent, st, c)
	if err != nil {
		h.t.Fatalf("Insert(%v) error: %v", parent, err)
	}
	return id
}

func (h *harness) resolve() Result {
	return h.engine.Resolve(h.tracker.DrainClosure(h.store))
}

func (h *harness) geom(id ID) Geometry {
	h.t.Helper()
	g, err := h.store.Geometry(id)
	if err != nil {
		h.t.Fatalf("Geometry(%v) error: %v", id, err)
	}
	return g
}

func styleWH(w, h Dimension) Style {
	st := DefaultStyle()
	st.Width, st.Height = w, h
	return st
}
