package compositor

import (
	"image"
	"slices"
	"testing"

	"github.com/gogpu/ggui/layout"
)

func TestDamageMarkRect(t *testing.T) {
	d := NewDamage(256, 128, 64) // 4x2 tiles
	d.MarkRect(image.Rect(10, 10, 70, 20))
	if got := d.Count(); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}
	if !d.IsDirty(0, 0) || !d.IsDirty(1, 0) || d.IsDirty(2, 0) {
		t.Error("wrong tiles marked")
	}
	d.MarkRect(image.Rect(-50, -50, -1, -1))
	d.MarkRect(image.Rect(5, 5, 5, 50))
	if got := d.Count(); got != 2 {
		t.Errorf("Count() after no-op marks = %d, want 2", got)
	}
}

func TestDamageTakeRectsMergesRuns(t *testing.T) {
	d := NewDamage(256, 128, 64)
	d.MarkRect(image.Rect(0, 0, 130, 10))
	d.MarkRect(image.Rect(200, 70, 210, 80))
	got := d.TakeRects()
	want := []image.Rectangle{
		image.Rect(0, 0, 192, 64),
		image.Rect(192, 64, 256, 128),
	}
	if !slices.Equal(got, want) {
		t.Errorf("TakeRects() = %v, want %v", got, want)
	}
	if d.Count() != 0 {
		t.Error("TakeRects did not clear")
	}
}

func TestDamageMarkAll(t *testing.T) {
	d := NewDamage(100, 100, 10)
	d.MarkAll()
	if got := d.Count(); got != 100 {
		t.Errorf("Count() = %d, want 100", got)
	}
}

func TestDeviceRect(t *testing.T) {
	tests := []struct {
		r     layout.Rect
		scale float64
		want  image.Rectangle
	}{
		{layout.Rect{X: 1, Y: 2, Width: 3, Height: 4}, 1, image.Rect(1, 2, 4, 6)},
		{layout.Rect{X: 0.5, Y: 0.5, Width: 1, Height: 1}, 1, image.Rect(0, 0, 2, 2)},
		{layout.Rect{X: 10, Y: 10, Width: 5, Height: 5}, 1.5, image.Rect(15, 15, 23, 23)},
		{layout.Rect{X: -1.5, Y: 0, Width: 1, Height: 1}, 1, image.Rect(-2, 0, 0, 1)},
	}
	for _, tt := range tests {
		if got := DeviceRect(tt.r, tt.scale); got != tt.want {
			t.Errorf("DeviceRect(%+v, %v) = %v, want %v", tt.r, tt.scale, got, tt.want)
		}
	}
}

func TestTransformThen(t *testing.T) {
	a := Transform{Tx: 10, Ty: 0, Scale: 2}
	b := Transform{Tx: 1, Ty: 1, Scale: 3}
	p := layout.Point{X: 1, Y: 1}
	if got, want := a.Then(b).Apply(p), b.Apply(a.Apply(p)); got != want {
		t.Errorf("Then().Apply = %+v, want %+v", got, want)
	}
}
