package layout

import (
	"errors"
	"testing"
)

func TestParseDimension(t *testing.T) {
	tests := []struct {
		in   string
		want Dimension
	}{
		{"", Auto()},
		{"auto", Auto()},
		{"120", Fixed(120)},
		{" 120px ", Fixed(120)},
		{"50%", Percent(50)},
		{"grow", Grow(1)},
		{"grow(2)", Grow(2)},
		{"shrink", Shrink(1)},
		{"shrink(0.5)", Shrink(0.5)},
	}
	for _, tt := range tests {
		got, err := ParseDimension(tt.in)
		if err != nil {
			t.Errorf("ParseDimension(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDimension(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
		if tt.in != "" && tt.in != " 120px " {
			back, err := ParseDimension(got.String())
			if err != nil || back != got {
				t.Errorf("ParseDimension(%q.String()) = %+v, %v", tt.in, back, err)
			}
		}
	}
}

func TestParseDimensionInvalid(t *testing.T) {
	for _, in := range []string{"-5", "abc", "50 %x", "grow(", "grow(0)", "shrink(-1)", "-3%", "calc(100% - 8px)"} {
		if _, err := ParseDimension(in); !errors.Is(err, ErrInvalidDimension) {
			t.Errorf("ParseDimension(%q) error = %v, want ErrInvalidDimension", in, err)
		}
	}
}

func TestDimensionWeights(t *testing.T) {
	if g := Grow(0); g.Amount != 1 {
		t.Errorf("Grow(0).Amount = %v, want 1", g.Amount)
	}
	if s := Shrink(-2); s.Amount != 1 {
		t.Errorf("Shrink(-2).Amount = %v, want 1", s.Amount)
	}
	if !Shrink(1).DependsOnContent() || !Auto().DependsOnContent() {
		t.Error("auto and shrink must depend on content")
	}
	if Fixed(1).DependsOnContent() || Grow(1).DependsOnContent() || Percent(5).DependsOnContent() {
		t.Error("fixed, grow and percent must not depend on content")
	}
}

func TestRectOps(t *testing.T) {
	r := NewRect(10, 10, 20, -5)
	if r.Height != 0 || !r.IsEmpty() {
		t.Errorf("NewRect negative height = %+v", r)
	}

	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	b := Rect{X: 5, Y: 5, Width: 10, Height: 10}
	if got, want := a.Union(b), (Rect{Width: 15, Height: 15}); got != want {
		t.Errorf("Union = %+v, want %+v", got, want)
	}
	if got, want := a.Intersect(b), (Rect{X: 5, Y: 5, Width: 5, Height: 5}); got != want {
		t.Errorf("Intersect = %+v, want %+v", got, want)
	}
	if got := a.Intersect(Rect{X: 20, Width: 1, Height: 1}); got != (Rect{}) {
		t.Errorf("disjoint Intersect = %+v, want zero", got)
	}
	if !a.Contains(0, 0) || a.Contains(10, 5) {
		t.Error("Contains must include the top-left edge and exclude the right edge")
	}
	if got := a.Inset(EdgeAll(8)); got.Width != 0 || got.X != 8 {
		t.Errorf("Inset = %+v", got)
	}
	if got := a.Scale(2); got != (Rect{Width: 20, Height: 20}) {
		t.Errorf("Scale = %+v", got)
	}
}

func TestStyleSameGeometry(t *testing.T) {
	a := DefaultStyle()
	b := a
	b.Visual.CornerRadius = 4
	b.Offset = Point{X: 3}
	if !a.SameGeometry(b) {
		t.Error("visual and offset must not affect geometry")
	}
	b.Gap = 1
	if a.SameGeometry(b) {
		t.Error("gap affects geometry")
	}
}

func TestContentEqual(t *testing.T) {
	f := Font{Family: "Go", Size: 12}
	if !Text("a", f).Equal(Text("a", f)) {
		t.Error("equal text differs")
	}
	if Text("a", f).Equal(Text("a", Font{Size: 13})) {
		t.Error("font ignored")
	}
	if !Image("k", []byte{1, 2}).Equal(Image("k", []byte{1, 2})) {
		t.Error("equal images differ")
	}
	if Image("k", []byte{1}).Equal(Text("k", f)) {
		t.Error("kinds ignored")
	}
	if !NoContent.Equal(Content{}) || NoContent.IsLeaf() {
		t.Error("NoContent")
	}
}
