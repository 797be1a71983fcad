package layout

import "image/color"

// Direction specifies the main axis for laying out children.
type Direction uint8

const (
	Row    Direction = iota // Children laid out left-to-right
	Column                  // Children laid out top-to-bottom
)

// Align specifies how children are positioned on the cross axis.
type Align uint8

const (
	AlignStart   Align = iota // Align to start of cross axis
	AlignCenter               // Center on cross axis
	AlignEnd                  // Align to end of cross axis
	AlignStretch              // Stretch auto-sized children to fill cross axis
)

// Justify specifies how children are distributed along the main axis when
// they do not fill it.
type Justify uint8

const (
	JustifyStart        Justify = iota // Pack at start
	JustifyCenter                      // Center children
	JustifyEnd                         // Pack at end
	JustifySpaceBetween                // Even space between, none at edges
)

// Visual holds paint-only properties. Changing them never affects geometry.
type Visual struct {
	Background   color.RGBA
	Foreground   color.RGBA
	BorderColor  color.RGBA
	BorderWidth  float64
	CornerRadius float64
}

// Style contains all layout properties for a node.
type Style struct {
	Width  Dimension
	Height Dimension

	Padding Edges
	Margin  Edges

	Direction Direction
	Align     Align
	Justify   Justify
	Gap       float64 // Space between children (main axis only)

	// Offset scrolls the children: it is subtracted from their absolute
	// position without changing their relative geometry.
	Offset Point

	Visual Visual
}

// DefaultStyle returns an auto-sized row that stretches its children.
func DefaultStyle() Style {
	return Style{
		Width:     Auto(),
		Height:    Auto(),
		Direction: Row,
		Align:     AlignStretch,
	}
}

// DependsOnContent reports whether either axis is sized from content.
// Such a node must be re-measured when its children change.
func (s Style) DependsOnContent() bool {
	return s.Width.DependsOnContent() || s.Height.DependsOnContent()
}

// SameGeometry reports whether s and o lay out identically, ignoring
// paint-only and scroll properties.
func (s Style) SameGeometry(o Style) bool {
	s.Visual, o.Visual = Visual{}, Visual{}
	s.Offset, o.Offset = Point{}, Point{}
	return s == o
}

// dim returns the dimension along the axis (true = horizontal).
func (s Style) dim(horizontal bool) Dimension {
	if horizontal {
		return s.Width
	}
	return s.Height
}
