package layout

import (
	"cmp"
	"math"
	"slices"
)

// distribute splits total among weights and snaps the shares to whole
// pixels with the largest-remainder method: every share is floored, then
// the leftover pixels go one each to the largest fractional remainders,
// ties to the lower index. A fractional leftover below one pixel goes to the
// next share in that order, so the shares always sum to total.
//
// 200 split three ways yields 67, 67, 66.
func distribute(total float64, weights []float64) []float64 {
	shares := make([]float64, len(weights))
	if total <= 0 || len(weights) == 0 {
		return shares
	}
	var sum float64
	for _, w := range weights {
		if w > 0 {
			sum += w
		}
	}
	if sum == 0 {
		return shares
	}

	type rem struct {
		idx  int
		frac float64
	}
	rems := make([]rem, 0, len(weights))
	var assigned float64
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		q := total * w / sum
		f := math.Floor(q + snapEpsilon)
		shares[i] = f
		assigned += f
		rems = append(rems, rem{idx: i, frac: q - f})
	}
	slices.SortStableFunc(rems, func(a, b rem) int {
		if d := b.frac - a.frac; math.Abs(d) > snapEpsilon {
			return cmp.Compare(b.frac, a.frac)
		}
		return cmp.Compare(a.idx, b.idx)
	})

	left := total - assigned
	for _, r := range rems {
		if left <= snapEpsilon {
			break
		}
		step := math.Min(1, left)
		shares[r.idx] += step
		left -= step
	}
	return shares
}

const snapEpsilon = 1e-9

// line holds the main-axis sizing state of one child during arrangement.
type line struct {
	basis  float64
	size   float64
	marMin float64 // margin before, main axis
	marMax float64 // margin after, main axis
}

// flexMain resolves main-axis sizes for children of a container with avail
// pixels of content space: grow children share positive free space, shrink
// children absorb negative free space in proportion to weight times basis.
func flexMain(children []*node, horizontal bool, avail, gap float64) []line {
	lines := make([]line, len(children))
	used := gap * float64(max(len(children)-1, 0))
	for i, c := range children {
		d := c.style.dim(horizontal)
		l := &lines[i]
		if horizontal {
			l.marMin, l.marMax = c.style.Margin.Left, c.style.Margin.Right
		} else {
			l.marMin, l.marMax = c.style.Margin.Top, c.style.Margin.Bottom
		}
		switch d.Mode {
		case SizeFixed:
			l.basis = d.Amount
		case SizePercent:
			l.basis = avail * d.Amount / 100
		case SizeAuto, SizeShrink:
			l.basis = axisOf(c.intrinsic, horizontal)
		case SizeGrow:
			l.basis = 0
		}
		l.basis = nonNeg(l.basis)
		l.size = l.basis
		used += l.basis + l.marMin + l.marMax
	}

	free := avail - used
	weights := make([]float64, len(children))
	switch {
	case free > snapEpsilon:
		for i, c := range children {
			if d := c.style.dim(horizontal); d.Mode == SizeGrow {
				weights[i] = d.Amount
			}
		}
		for i, s := range distribute(free, weights) {
			lines[i].size += s
		}
	case free < -snapEpsilon:
		for i, c := range children {
			if d := c.style.dim(horizontal); d.Mode == SizeShrink {
				weights[i] = d.Amount * lines[i].basis
			}
		}
		for i, s := range distribute(-free, weights) {
			lines[i].size = nonNeg(lines[i].size - s)
		}
	}
	return lines
}

// crossSize resolves a child's size on the cross axis. avail is the
// container's cross content size minus the child's cross margins.
func crossSize(c *node, horizontal bool, align Align, contentCross, avail float64) float64 {
	d := c.style.dim(!horizontal)
	intrinsic := axisOf(c.intrinsic, !horizontal)
	var v float64
	switch d.Mode {
	case SizeFixed:
		v = d.Amount
	case SizePercent:
		v = contentCross * d.Amount / 100
	case SizeGrow:
		v = avail
	case SizeShrink:
		v = math.Min(intrinsic, avail)
	case SizeAuto:
		if align == AlignStretch {
			v = avail
		} else {
			v = intrinsic
		}
	}
	return nonNeg(v)
}

// justifyStart returns the leading offset and the extra space inserted
// between children.
func justifyStart(j Justify, remaining float64, n int) (lead, between float64) {
	if remaining <= 0 {
		return 0, 0
	}
	switch j {
	case JustifyCenter:
		return remaining / 2, 0
	case JustifyEnd:
		return remaining, 0
	case JustifySpaceBetween:
		if n > 1 {
			return 0, remaining / float64(n-1)
		}
	}
	return 0, 0
}

// alignOffset positions a child of size v inside avail on the cross axis.
func alignOffset(a Align, avail, v float64) float64 {
	switch a {
	case AlignCenter:
		return (avail - v) / 2
	case AlignEnd:
		return avail - v
	default:
		return 0
	}
}

func axisOf(s Size, horizontal bool) float64 {
	if horizontal {
		return s.Width
	}
	return s.Height
}
