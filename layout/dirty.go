package layout

import (
	"cmp"
	"slices"
	"strings"
)

// Reason is the set of causes that made a node dirty.
// Several marks on the same node merge into one entry.
type Reason uint8

const (
	ReasonStyle    Reason = 1 << iota // Geometry-affecting style changed
	ReasonContent                     // Content changed
	ReasonChildren                    // Child added, removed or moved
	ReasonViewport                    // Viewport resized (root only)
	ReasonScroll                      // Scroll offset changed
	ReasonPaint                       // Paint-only style changed
)

// layoutReasons are the reasons that require a layout pass.
const layoutReasons = ReasonStyle | ReasonContent | ReasonChildren | ReasonViewport | ReasonScroll

// Has reports whether r contains every bit of o.
func (r Reason) Has(o Reason) bool { return r&o == o && o != 0 }

// String lists the reasons joined by "|".
func (r Reason) String() string {
	if r == 0 {
		return "none"
	}
	names := [...]string{"style", "content", "children", "viewport", "scroll", "paint"}
	var parts []string
	for i, n := range names {
		if r&(1<<i) != 0 {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, "|")
}

// Tracker collects dirty entries between layout passes.
type Tracker struct {
	entries map[ID]Reason
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{entries: make(map[ID]Reason)}
}

// Mark adds reason to id's entry.
func (t *Tracker) Mark(id ID, reason Reason) {
	if reason == 0 {
		return
	}
	t.entries[id] |= reason
}

// Forget drops id's entry, if any.
func (t *Tracker) Forget(id ID) {
	delete(t.entries, id)
}

// Pending returns the number of queued entries.
func (t *Tracker) Pending() int { return len(t.entries) }

// Reason returns the queued reasons for id.
func (t *Tracker) Reason(id ID) Reason { return t.entries[id] }

// Closure is the set of nodes a layout pass must revisit.
type Closure struct {
	nodes   map[ID]Reason // own reasons; zero for nodes pulled in by the walk
	repaint []ID
	full    bool
}

// Has reports whether id is in the closure.
func (c *Closure) Has(id ID) bool {
	if c == nil {
		return false
	}
	_, ok := c.nodes[id]
	return ok
}

// Len returns the closure size.
func (c *Closure) Len() int {
	if c == nil {
		return 0
	}
	return len(c.nodes)
}

// Reason returns the node's own dirty reasons, zero when the node was only
// pulled in as an ancestor or descendant.
func (c *Closure) Reason(id ID) Reason {
	if c == nil {
		return 0
	}
	return c.nodes[id]
}

// Full reports whether the closure was forced to the whole tree.
func (c *Closure) Full() bool { return c != nil && c.full }

// Repaint returns nodes whose only change was paint-related. They need a
// new raster but no layout.
func (c *Closure) Repaint() []ID {
	if c == nil {
		return nil
	}
	return c.repaint
}

// IDs returns the closure sorted by arena index.
func (c *Closure) IDs() []ID {
	if c == nil {
		return nil
	}
	ids := make([]ID, 0, len(c.nodes))
	for id := range c.nodes {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b ID) int { return cmp.Compare(a.Index, b.Index) })
	return ids
}

func (c *Closure) add(id ID) {
	if _, ok := c.nodes[id]; !ok {
		c.nodes[id] = 0
	}
}

// DrainClosure consumes every queued entry and returns the nodes to
// re-measure: each dirty node, its descendants when its constraints changed,
// and its ancestors up to and including the first one whose size does not
// depend on content. A viewport entry on the root selects the whole tree.
func (t *Tracker) DrainClosure(s *Store) *Closure {
	c := &Closure{nodes: make(map[ID]Reason)}
	if len(t.entries) == 0 {
		return c
	}
	entries := t.entries
	t.entries = make(map[ID]Reason)

	if r, ok := entries[s.root]; ok && r&ReasonViewport != 0 {
		c.full = true
		s.walk(s.root, func(id ID, _ int) bool {
			c.nodes[id] = entries[id] & layoutReasons
			return true
		})
		c.collectRepaint(entries)
		return c
	}

	walked := make(map[ID]struct{})
	for id, r := range entries {
		n, err := s.get(id)
		if err != nil {
			continue
		}
		if r&layoutReasons == 0 {
			continue
		}
		c.nodes[id] |= r & layoutReasons

		if r&(ReasonStyle|ReasonViewport) != 0 {
			for _, ch := range n.children {
				s.walk(ch, func(d ID, _ int) bool {
					c.add(d)
					return true
				})
			}
		}

		resizes := r&ReasonStyle != 0 || n.style.DependsOnContent()
		for cur := n; resizes && !cur.parent.IsZero(); {
			p := cur.parent
			c.add(p)
			if _, seen := walked[p]; seen {
				break
			}
			walked[p] = struct{}{}
			cur = s.mustGet(p)
			resizes = cur.style.DependsOnContent()
		}
	}
	c.collectRepaint(entries)
	return c
}

func (c *Closure) collectRepaint(entries map[ID]Reason) {
	for id, r := range entries {
		if r&ReasonPaint != 0 && !c.Has(id) {
			c.repaint = append(c.repaint, id)
		}
	}
	slices.SortFunc(c.repaint, func(a, b ID) int { return cmp.Compare(a.Index, b.Index) })
}
