// Package scenefile loads YAML scene descriptions and applies them to a
// tree as keyed batches.
//
// A scene is a single node hierarchy:
//
//	root:
//	  key: page
//	  width: 100%
//	  direction: column
//	  padding: [8, 16]
//	  background: "#f0f0f0"
//	  children:
//	    - key: title
//	      text: Hello
//	      font: {size: 24}
//	    - key: logo
//	      image: logo.png
//	      width: 64
//	      height: 64
//
// Nodes without a key are keyed by their path ("0", "0.1", ...). Keys must
// be unique within a scene.
package scenefile

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/ggui"
	"github.com/gogpu/ggui/layout"
)

var (
	// ErrDuplicateKey is returned when two nodes share a key.
	ErrDuplicateKey = errors.New("scenefile: duplicate key")

	// ErrBadValue is returned for an unparseable field value.
	ErrBadValue = errors.New("scenefile: bad value")
)

// Scene is a parsed scene file.
type Scene struct {
	Root *Node `yaml:"root"`
}

// Node is one scene node as written in the file.
type Node struct {
	Key string `yaml:"key"`

	Width     string  `yaml:"width"`
	Height    string  `yaml:"height"`
	Direction string  `yaml:"direction"`
	Align     string  `yaml:"align"`
	Justify   string  `yaml:"justify"`
	Gap       float64 `yaml:"gap"`
	Padding   Edges   `yaml:"padding"`
	Margin    Edges   `yaml:"margin"`
	Scroll    Point   `yaml:"scroll"`

	Background  string  `yaml:"background"`
	Foreground  string  `yaml:"foreground"`
	BorderColor string  `yaml:"border_color"`
	BorderWidth float64 `yaml:"border_width"`
	Radius      float64 `yaml:"radius"`

	Text  string `yaml:"text"`
	Font  Font   `yaml:"font"`
	Image string `yaml:"image"` // path relative to the scene file

	Children []*Node `yaml:"children"`

	style   layout.Style
	content layout.Content
}

// Font selects a registered family and size.
type Font struct {
	Family string  `yaml:"family"`
	Size   float64 `yaml:"size"`
}

// Point is a scroll offset.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Edges accepts CSS-style shorthand: a number, or a list of one, two or
// four numbers (top, right, bottom, left).
type Edges struct {
	layout.Edges
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (e *Edges) UnmarshalYAML(n *yaml.Node) error {
	var vals []float64
	switch n.Kind {
	case yaml.ScalarNode:
		var v float64
		if err := n.Decode(&v); err != nil {
			return err
		}
		vals = []float64{v}
	case yaml.SequenceNode:
		if err := n.Decode(&vals); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: line %d: edges must be a number or a list", ErrBadValue, n.Line)
	}
	switch len(vals) {
	case 1:
		e.Edges = layout.EdgeAll(vals[0])
	case 2:
		e.Edges = layout.EdgeSymmetric(vals[0], vals[1])
	case 4:
		e.Edges = layout.Edges{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[3]}
	default:
		return fmt.Errorf("%w: line %d: edges take 1, 2 or 4 values, got %d", ErrBadValue, n.Line, len(vals))
	}
	return nil
}

// Style returns the resolved layout style.
func (n *Node) Style() layout.Style { return n.style }

// Content returns the resolved content.
func (n *Node) Content() layout.Content { return n.content }

// Load reads and parses a scene file. Image paths resolve against the
// file's directory.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path) //nolint:gosec // scene path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("scenefile: %w", err)
	}
	return Parse(data, filepath.Dir(path))
}

// Parse decodes a scene. dir is the base directory for image paths.
func Parse(data []byte, dir string) (*Scene, error) {
	var s Scene
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("scenefile: %w", err)
	}
	if s.Root == nil {
		return &s, nil
	}
	seen := make(map[string]struct{})
	if err := s.Root.resolve("0", dir, seen); err != nil {
		return nil, err
	}
	return &s, nil
}

// Len returns the number of nodes.
func (s *Scene) Len() int {
	n := 0
	s.Walk(func(*Node, *Node, int) { n++ })
	return n
}

// Walk visits every node in pre-order with its parent (nil for the root)
// and its index among the parent's children.
func (s *Scene) Walk(fn func(n, parent *Node, index int)) {
	if s.Root == nil {
		return
	}
	var visit func(n, parent *Node, index int)
	visit = func(n, parent *Node, index int) {
		fn(n, parent, index)
		for i, c := range n.Children {
			visit(c, n, i)
		}
	}
	visit(s.Root, nil, 0)
}

func (n *Node) resolve(path, dir string, seen map[string]struct{}) error {
	if n.Key == "" {
		n.Key = path
	}
	if _, dup := seen[n.Key]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateKey, n.Key)
	}
	seen[n.Key] = struct{}{}

	st, err := n.buildStyle()
	if err != nil {
		return fmt.Errorf("scenefile: node %q: %w", n.Key, err)
	}
	n.style = st
	if n.content, err = n.buildContent(dir); err != nil {
		return fmt.Errorf("scenefile: node %q: %w", n.Key, err)
	}
	for i, c := range n.Children {
		if c == nil {
			return fmt.Errorf("%w: node %q: empty child %d", ErrBadValue, n.Key, i)
		}
		if err := c.resolve(path+"."+strconv.Itoa(i), dir, seen); err != nil {
			return err
		}
	}
	return nil
}

var (
	directions = map[string]layout.Direction{"": layout.Row, "row": layout.Row, "column": layout.Column}
	aligns     = map[string]layout.Align{
		"": layout.AlignStretch, "start": layout.AlignStart, "center": layout.AlignCenter,
		"end": layout.AlignEnd, "stretch": layout.AlignStretch,
	}
	justifies = map[string]layout.Justify{
		"": layout.JustifyStart, "start": layout.JustifyStart, "center": layout.JustifyCenter,
		"end": layout.JustifyEnd, "space-between": layout.JustifySpaceBetween,
	}
)

func (n *Node) buildStyle() (layout.Style, error) {
	st := layout.DefaultStyle()
	var err error
	if st.Width, err = layout.ParseDimension(n.Width); err != nil {
		return st, err
	}
	if st.Height, err = layout.ParseDimension(n.Height); err != nil {
		return st, err
	}
	var ok bool
	if st.Direction, ok = directions[n.Direction]; !ok {
		return st, fmt.Errorf("%w: direction %q", ErrBadValue, n.Direction)
	}
	if st.Align, ok = aligns[n.Align]; !ok {
		return st, fmt.Errorf("%w: align %q", ErrBadValue, n.Align)
	}
	if st.Justify, ok = justifies[n.Justify]; !ok {
		return st, fmt.Errorf("%w: justify %q", ErrBadValue, n.Justify)
	}
	st.Gap = n.Gap
	st.Padding = n.Padding.Edges
	st.Margin = n.Margin.Edges
	st.Offset = layout.Point{X: n.Scroll.X, Y: n.Scroll.Y}

	v := &st.Visual
	for _, c := range []struct {
		name string
		in   string
		out  *color.RGBA
	}{
		{"background", n.Background, &v.Background},
		{"foreground", n.Foreground, &v.Foreground},
		{"border_color", n.BorderColor, &v.BorderColor},
	} {
		if c.in == "" {
			continue
		}
		col, err := ggui.ParseHexColor(c.in)
		if err != nil {
			return st, fmt.Errorf("%w: %s: %v", ErrBadValue, c.name, err)
		}
		*c.out = col
	}
	v.BorderWidth = n.BorderWidth
	v.CornerRadius = n.Radius
	return st, nil
}

func (n *Node) buildContent(dir string) (layout.Content, error) {
	switch {
	case n.Text != "" && n.Image != "":
		return layout.Content{}, fmt.Errorf("%w: text and image are exclusive", ErrBadValue)
	case n.Text != "":
		return layout.Text(n.Text, layout.Font{Family: n.Font.Family, Size: n.Font.Size}), nil
	case n.Image != "":
		path := n.Image
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		data, err := os.ReadFile(path) //nolint:gosec // image paths come from the scene file
		if err != nil {
			return layout.Content{}, err
		}
		return layout.Image(n.Image, data), nil
	}
	return layout.Content{}, nil
}
