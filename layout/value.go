package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// SizeMode specifies how a Dimension is resolved along one axis.
type SizeMode uint8

const (
	SizeAuto    SizeMode = iota // Derived from content (auto-content)
	SizeFixed                   // Absolute logical pixels
	SizePercent                 // Percentage of the parent's content box
	SizeGrow                    // Share of the parent's positive free space
	SizeShrink                  // Content size, yields to a negative free space
)

// String returns the mode name.
func (m SizeMode) String() string {
	switch m {
	case SizeAuto:
		return "auto"
	case SizeFixed:
		return "fixed"
	case SizePercent:
		return "percent"
	case SizeGrow:
		return "grow"
	case SizeShrink:
		return "shrink"
	default:
		return fmt.Sprintf("SizeMode(%d)", m)
	}
}

// Dimension is a size request along one axis.
//
// Amount is interpreted per Mode: pixels for SizeFixed, 0-100 for
// SizePercent, a weight for SizeGrow and SizeShrink. It is ignored for
// SizeAuto.
type Dimension struct {
	Mode   SizeMode
	Amount float64
}

// Auto returns a Dimension sized from content.
func Auto() Dimension { return Dimension{Mode: SizeAuto} }

// Fixed returns a Dimension of px logical pixels.
func Fixed(px float64) Dimension { return Dimension{Mode: SizeFixed, Amount: px} }

// Percent returns a Dimension of p percent (0-100) of the parent content box.
func Percent(p float64) Dimension { return Dimension{Mode: SizePercent, Amount: p} }

// Grow returns a Dimension that takes a weighted share of free space.
// A non-positive weight is treated as 1.
func Grow(weight float64) Dimension {
	if weight <= 0 {
		weight = 1
	}
	return Dimension{Mode: SizeGrow, Amount: weight}
}

// Shrink returns a content-sized Dimension that gives up space, weighted,
// when siblings overflow the parent. A non-positive weight is treated as 1.
func Shrink(weight float64) Dimension {
	if weight <= 0 {
		weight = 1
	}
	return Dimension{Mode: SizeShrink, Amount: weight}
}

// DependsOnContent reports whether the resolved size follows the node's
// content (auto or shrink).
func (d Dimension) DependsOnContent() bool {
	return d.Mode == SizeAuto || d.Mode == SizeShrink
}

// String formats d in the syntax accepted by ParseDimension.
func (d Dimension) String() string {
	switch d.Mode {
	case SizeFixed:
		return strconv.FormatFloat(d.Amount, 'f', -1, 64)
	case SizePercent:
		return strconv.FormatFloat(d.Amount, 'f', -1, 64) + "%"
	case SizeGrow:
		return "grow(" + strconv.FormatFloat(d.Amount, 'f', -1, 64) + ")"
	case SizeShrink:
		return "shrink(" + strconv.FormatFloat(d.Amount, 'f', -1, 64) + ")"
	default:
		return "auto"
	}
}

// ParseDimension parses "auto", "120", "50%", "grow", "grow(2)", "shrink"
// and "shrink(0.5)".
func ParseDimension(s string) (Dimension, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "" || s == "auto":
		return Auto(), nil
	case strings.HasSuffix(s, "%"):
		p, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64)
		if err != nil || p < 0 {
			return Dimension{}, fmt.Errorf("%w: %q", ErrInvalidDimension, s)
		}
		return Percent(p), nil
	case strings.HasPrefix(s, "grow"):
		w, err := parseWeight(strings.TrimPrefix(s, "grow"))
		if err != nil {
			return Dimension{}, fmt.Errorf("%w: %q", ErrInvalidDimension, s)
		}
		return Grow(w), nil
	case strings.HasPrefix(s, "shrink"):
		w, err := parseWeight(strings.TrimPrefix(s, "shrink"))
		if err != nil {
			return Dimension{}, fmt.Errorf("%w: %q", ErrInvalidDimension, s)
		}
		return Shrink(w), nil
	}
	px, err := strconv.ParseFloat(strings.TrimSuffix(s, "px"), 64)
	if err != nil || px < 0 {
		return Dimension{}, fmt.Errorf("%w: %q", ErrInvalidDimension, s)
	}
	return Fixed(px), nil
}

// parseWeight parses an optional "(w)" suffix. An empty string means 1.
func parseWeight(s string) (float64, error) {
	if s == "" {
		return 1, nil
	}
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return 0, ErrInvalidDimension
	}
	w, err := strconv.ParseFloat(strings.TrimSpace(s[1:len(s)-1]), 64)
	if err != nil || w <= 0 {
		return 0, ErrInvalidDimension
	}
	return w, nil
}
