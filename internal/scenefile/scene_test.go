package scenefile

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/ggui/layout"
)

const sample = `
root:
  key: page
  width: 100%
  direction: column
  padding: [8, 16]
  gap: 4
  background: "#f0f0f0"
  children:
    - key: title
      text: Hello
      font: {size: 24}
      foreground: "#000"
    - width: grow
      height: 40
      margin: 2
      border_width: 1
      border_color: "#ff0000"
      radius: 4
`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(sample), ".")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
	root := s.Root.Style()
	if root.Width != layout.Percent(100) || root.Direction != layout.Column || root.Gap != 4 {
		t.Errorf("root style = %+v", root)
	}
	if root.Padding != layout.EdgeSymmetric(8, 16) {
		t.Errorf("root padding = %+v, want 8/16", root.Padding)
	}
	if root.Visual.Background != (color.RGBA{0xf0, 0xf0, 0xf0, 0xff}) {
		t.Errorf("background = %v", root.Visual.Background)
	}

	title := s.Root.Children[0]
	if c := title.Content(); c.Kind != layout.ContentText || c.Text != "Hello" || c.Font.Size != 24 {
		t.Errorf("title content = %+v", c)
	}

	box := s.Root.Children[1]
	if box.Key != "0.1" {
		t.Errorf("default key = %q, want 0.1", box.Key)
	}
	st := box.Style()
	if st.Width != layout.Grow(1) || st.Height != layout.Fixed(40) || st.Margin != layout.EdgeAll(2) {
		t.Errorf("box style = %+v", st)
	}
	if st.Visual.CornerRadius != 4 || st.Visual.BorderWidth != 1 {
		t.Errorf("box visual = %+v", st.Visual)
	}
}

func TestParseImage(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 3, 2))); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "dot.png"), buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
	scene := filepath.Join(dir, "scene.yaml")
	if err := os.WriteFile(scene, []byte("root: {image: dot.png}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := Load(scene)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	c := s.Root.Content()
	if c.Kind != layout.ContentImage || c.Image.Key != "dot.png" || !bytes.Equal(c.Image.Data, buf.Bytes()) {
		t.Errorf("image content = %v %q (%d bytes)", c.Kind, c.Image.Key, len(c.Image.Data))
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
		msg  string
	}{
		{"duplicate key", "root: {key: a, children: [{key: a}]}", ErrDuplicateKey, ""},
		{"bad direction", "root: {direction: diagonal}", ErrBadValue, "direction"},
		{"bad color", `root: {background: "blue"}`, ErrBadValue, "background"},
		{"bad edges", "root: {padding: [1, 2, 3]}", ErrBadValue, "1, 2 or 4"},
		{"text and image", "root: {text: a, image: b.png}", ErrBadValue, "exclusive"},
		{"bad width", "root: {width: wide}", layout.ErrInvalidDimension, ""},
		{"unknown field", "root: {colour: red}", nil, "colour"},
		{"missing image", "root: {image: nope.png}", os.ErrNotExist, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), t.TempDir())
			if err == nil {
				t.Fatal("Parse() error = nil")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Parse() error = %v, want %v", err, tt.want)
			}
			if tt.msg != "" && !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("error %q does not mention %q", err, tt.msg)
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	s, err := Parse([]byte("root: null\n"), ".")
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}
