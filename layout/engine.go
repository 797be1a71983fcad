package layout

import (
	"cmp"
	"math"
	"slices"

	"github.com/gogpu/ggui/internal/logging"
)

// Result summarizes one layout pass.
type Result struct {
	// Changed lists nodes whose generation was incremented, in the order
	// they were resolved. Their cached rasters are stale. Nodes that only
	// moved keep their generation.
	Changed []ID

	// Resolved is the closure size.
	Resolved int

	// Measured counts leaf measurements performed.
	Measured int

	// Diagnostics lists nodes whose measurement failed in this pass.
	Diagnostics []ID
}

// Engine resolves geometry for the nodes of a Store.
//
// Engine is not safe for concurrent use; it mutates the store in place.
type Engine struct {
	store    *Store
	measurer Measurer
	viewport Size

	// per-pass state
	closure  *Closure
	arranged map[ID]struct{}
	changed  map[ID]struct{}
	res      *Result
}

// NewEngine creates an engine over s. m may be nil if the tree never holds
// leaf content; leaves are then flagged with ErrNoMeasurer.
func NewEngine(s *Store, m Measurer) *Engine {
	return &Engine{store: s, measurer: m}
}

// SetViewport sets the size the root is resolved against. The caller is
// responsible for marking the root with ReasonViewport.
func (e *Engine) SetViewport(width, height float64) {
	e.viewport = Size{Width: nonNeg(width), Height: nonNeg(height)}
}

// Viewport returns the current viewport size.
func (e *Engine) Viewport() Size { return e.viewport }

// Resolve recomputes geometry for every node in c: intrinsic sizes bottom-up,
// then sizes and positions top-down. Absolute geometry of descendants of a
// moved node is re-derived even when they are outside c.
//
// Resolving an empty closure is a no-op, so a second pass without mutations
// changes nothing.
func (e *Engine) Resolve(c *Closure) Result {
	var res Result
	if c.Len() == 0 || e.store.root.IsZero() {
		return res
	}
	res.Resolved = c.Len()

	ids := c.IDs()
	depth := func(id ID) int { return e.store.mustGet(id).depth }
	slices.SortStableFunc(ids, func(a, b ID) int { return cmp.Compare(depth(b), depth(a)) })

	// Bottom-up: deepest first, so containers see fresh child intrinsics.
	for _, id := range ids {
		e.intrinsic(id, c.Reason(id), &res)
	}

	e.closure = c
	e.arranged = make(map[ID]struct{}, len(ids))
	e.changed = make(map[ID]struct{}, len(ids))
	e.res = &res
	defer func() {
		e.closure, e.arranged, e.changed, e.res = nil, nil, nil, nil
	}()

	// Top-down: shallowest first.
	slices.Reverse(ids)
	root := e.store.root
	if c.Has(root) {
		e.placeRoot(root)
	}
	for _, id := range ids {
		p := e.store.mustGet(id).parent
		if p.IsZero() {
			continue
		}
		if _, done := e.arranged[p]; !done {
			e.arrange(p)
		}
	}

	logging.L().Debug("layout: resolved",
		"closure", res.Resolved, "changed", len(res.Changed),
		"measured", res.Measured, "diagnostics", len(res.Diagnostics))
	return res
}

// intrinsic recomputes the content-derived border-box size of id.
func (e *Engine) intrinsic(id ID, own Reason, res *Result) {
	n := e.store.mustGet(id)
	st := n.style
	pad := Size{Width: st.Padding.Horizontal(), Height: st.Padding.Vertical()}

	if n.content.IsLeaf() {
		if !needsMeasure(n, own) {
			return // content and constraints unchanged since the last measurement
		}
		maxWidth := wrapWidth(st)
		res.Measured++
		sz, err := e.measure(id, n.content, maxWidth)
		if err != nil {
			n.diag = &MeasureError{ID: id, Err: err}
			res.Diagnostics = append(res.Diagnostics, id)
			logging.L().Warn("layout: measurement failed, using zero size", "node", id, "err", err)
			sz = Size{}
		} else {
			n.diag = nil
		}
		n.intrinsic = Size{Width: nonNeg(sz.Width) + pad.Width, Height: nonNeg(sz.Height) + pad.Height}
		return
	}

	horizontal := st.Direction == Row
	var main, cross float64
	for i, cid := range n.children {
		c := e.store.mustGet(cid)
		m := c.style.Margin
		cm, cc := contribution(c, horizontal), contribution(c, !horizontal)
		if horizontal {
			cm += m.Horizontal()
			cc += m.Vertical()
		} else {
			cm += m.Vertical()
			cc += m.Horizontal()
		}
		main += cm
		if i > 0 {
			main += st.Gap
		}
		cross = math.Max(cross, cc)
	}
	if horizontal {
		n.intrinsic = Size{Width: main + pad.Width, Height: cross + pad.Height}
	} else {
		n.intrinsic = Size{Width: cross + pad.Width, Height: main + pad.Height}
	}
}

// PendingMeasurements lists the leaves that resolving c would measure, in
// the order Resolve measures them. Callers use it to prefetch sizes
// concurrently before the pass.
func (e *Engine) PendingMeasurements(c *Closure) []MeasureRequest {
	var reqs []MeasureRequest
	for _, id := range c.IDs() {
		n, err := e.store.get(id)
		if err != nil || !n.content.IsLeaf() || !needsMeasure(n, c.Reason(id)) {
			continue
		}
		reqs = append(reqs, MeasureRequest{ID: id, Content: n.content, MaxWidth: wrapWidth(n.style)})
	}
	return reqs
}

func needsMeasure(n *node, own Reason) bool {
	return own&(ReasonContent|ReasonStyle|ReasonViewport) != 0 || n.geom.Generation == 0
}

// wrapWidth is the width available to wrapping content: the fixed content
// width, or +Inf.
func wrapWidth(st Style) float64 {
	if st.Width.Mode != SizeFixed {
		return math.Inf(1)
	}
	return nonNeg(st.Width.Amount - st.Padding.Horizontal())
}

func (e *Engine) measure(id ID, c Content, maxWidth float64) (sz Size, err error) {
	if e.measurer == nil {
		return Size{}, ErrNoMeasurer
	}
	return e.measurer.Measure(id, c, maxWidth)
}

// contribution is the size a child asks of an auto parent along one axis.
// Grow and percent children depend on the parent and contribute nothing.
func contribution(c *node, horizontal bool) float64 {
	d := c.style.dim(horizontal)
	switch d.Mode {
	case SizeFixed:
		return nonNeg(d.Amount)
	case SizeAuto, SizeShrink:
		return axisOf(c.intrinsic, horizontal)
	default:
		return 0
	}
}

// placeRoot sizes the root against the viewport. Auto and grow fill it.
func (e *Engine) placeRoot(id ID) {
	n := e.store.mustGet(id)
	m := n.style.Margin
	availW := nonNeg(e.viewport.Width - m.Horizontal())
	availH := nonNeg(e.viewport.Height - m.Vertical())
	w := rootAxis(n.style.Width, n.intrinsic.Width, availW, e.viewport.Width)
	h := rootAxis(n.style.Height, n.intrinsic.Height, availH, e.viewport.Height)
	rel := Rect{X: m.Left, Y: m.Top, Width: w, Height: h}
	e.place(id, n, rel, rel)
	if _, done := e.arranged[id]; !done {
		e.arrange(id)
	}
}

func rootAxis(d Dimension, intrinsic, avail, viewport float64) float64 {
	switch d.Mode {
	case SizeFixed:
		return nonNeg(d.Amount)
	case SizePercent:
		return nonNeg(viewport * d.Amount / 100)
	case SizeShrink:
		return math.Min(intrinsic, avail)
	default:
		return avail
	}
}

// place stores new geometry for id and reports whether its size changed.
func (e *Engine) place(id ID, n *node, rel, abs Rect) (sizeChanged, absChanged bool) {
	old := n.geom
	own := e.closure.Reason(id)
	sizeChanged = old.Rel.Size() != rel.Size()
	absChanged = old.Abs != abs
	if sizeChanged || own&(ReasonStyle|ReasonContent) != 0 || old.Generation == 0 {
		n.geom.Generation++
		if _, dup := e.changed[id]; !dup {
			e.changed[id] = struct{}{}
			e.res.Changed = append(e.res.Changed, id)
		}
	}
	n.geom.Rel = rel
	n.geom.Abs = abs
	n.geom.Content = abs.Inset(n.style.Padding)
	return sizeChanged, absChanged
}

// arrange lays out the children of p inside its current border box. It
// recurses into children that are in the closure or changed size, and
// shifts the subtrees of children that only moved.
func (e *Engine) arrange(p ID) {
	e.arranged[p] = struct{}{}
	pn := e.store.mustGet(p)
	if len(pn.children) == 0 {
		return
	}
	st := pn.style
	horizontal := st.Direction == Row
	box := Rect{Width: pn.geom.Rel.Width, Height: pn.geom.Rel.Height}.Inset(st.Padding)

	kids := make([]*node, len(pn.children))
	for i, cid := range pn.children {
		kids[i] = e.store.mustGet(cid)
	}

	mainAvail, crossAvail := box.Width, box.Height
	mainStart, crossStart := box.X, box.Y
	if !horizontal {
		mainAvail, crossAvail = box.Height, box.Width
		mainStart, crossStart = box.Y, box.X
	}

	lines := flexMain(kids, horizontal, mainAvail, st.Gap)
	used := st.Gap * float64(len(kids)-1)
	for _, l := range lines {
		used += l.size + l.marMin + l.marMax
	}
	lead, between := justifyStart(st.Justify, mainAvail-used, len(kids))

	origin := pn.geom.Abs.Min().Sub(st.Offset)
	cursor := mainStart + lead
	for i, c := range kids {
		l := lines[i]
		var cMin, cMax float64
		if horizontal {
			cMin, cMax = c.style.Margin.Top, c.style.Margin.Bottom
		} else {
			cMin, cMax = c.style.Margin.Left, c.style.Margin.Right
		}
		avail := nonNeg(crossAvail - cMin - cMax)
		cs := crossSize(c, horizontal, st.Align, crossAvail, avail)
		crossPos := crossStart + cMin + alignOffset(st.Align, avail, cs)
		mainPos := cursor + l.marMin
		cursor = mainPos + l.size + l.marMax + st.Gap + between

		var rel Rect
		if horizontal {
			rel = Rect{X: mainPos, Y: crossPos, Width: l.size, Height: cs}
		} else {
			rel = Rect{X: crossPos, Y: mainPos, Width: cs, Height: l.size}
		}
		abs := rel.Translate(origin.X, origin.Y)

		cid := pn.children[i]
		oldAbs := c.geom.Abs
		sizeChanged, absChanged := e.place(cid, c, rel, abs)
		switch {
		case e.closure.Has(cid) || sizeChanged:
			e.arrange(cid)
		case absChanged:
			e.shift(c, abs.X-oldAbs.X, abs.Y-oldAbs.Y)
		}
	}
}

// shift translates the absolute geometry of n's descendants. Their
// relative geometry and generations are untouched.
func (e *Engine) shift(n *node, dx, dy float64) {
	for _, cid := range n.children {
		c := e.store.mustGet(cid)
		c.geom.Abs = c.geom.Abs.Translate(dx, dy)
		c.geom.Content = c.geom.Content.Translate(dx, dy)
		e.shift(c, dx, dy)
	}
}
