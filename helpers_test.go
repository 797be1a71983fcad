package ggui

import (
	"errors"
	"image/color"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/gogpu/ggui/layout"
	"github.com/gogpu/ggui/recording"
)

var errFakeMeasure = errors.New("fake measure failure")

// fakeText measures 8px per rune and 16px per line, ignoring wrapping.
type fakeText struct {
	fail  bool
	calls atomic.Int64
}

func (f *fakeText) Measure(s string, _ layout.Font, _ float64) (w, h float64, err error) {
	f.calls.Add(1)
	if f.fail {
		return 0, 0, errFakeMeasure
	}
	return float64(8 * utf8.RuneCountInString(s)), 16, nil
}

type testTree struct {
	*Tree
	measurer *fakeText
	surface  *recording.Recorder
}

func newTestTree(t *testing.T, opts ...Option) *testTree {
	t.Helper()
	ft := &fakeText{}
	opts = append([]Option{WithViewport(200, 200), WithTextMetrics(ft)}, opts...)
	tree, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	w, h := tree.DeviceSize()
	return &testTree{Tree: tree, measurer: ft, surface: recording.NewRecorder(w, h)}
}

func fixedBox(w, h float64) layout.Style {
	st := layout.DefaultStyle()
	st.Width = layout.Fixed(w)
	st.Height = layout.Fixed(h)
	return st
}

func filledBox(w, h float64, c color.RGBA) layout.Style {
	st := fixedBox(w, h)
	st.Visual.Background = c
	return st
}

func textContent(s string) layout.Content {
	return layout.Text(s, layout.Font{Size: 14})
}

// mustCommit commits b and fails the test on error.
func mustCommit(t *testing.T, b *Batch) *Applied {
	t.Helper()
	a, err := b.Commit()
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	return a
}
