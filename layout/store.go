package layout

import (
	"fmt"
	"slices"

	"github.com/gogpu/ggui/internal/assert"
)

// Marker receives dirty notifications from Store mutations.
// *Tracker implements Marker.
type Marker interface {
	Mark(id ID, reason Reason)
	Forget(id ID)
}

type node struct {
	parent   ID
	children []ID
	depth    int

	style   Style
	content Content
	digest  uint64 // content.Digest(), computed when content is set

	geom      Geometry
	intrinsic Size  // border-box content size from the last bottom-up pass
	diag      *MeasureError // last measurement failure, nil when healthy
}

type slot struct {
	gen   uint32
	alive bool
	n     node
}

// Store is the arena owning every node of one tree.
//
// Store is NOT safe for concurrent use. Mutations from other goroutines must
// be funneled through a single queue (see ggui.Tree.Submit).
type Store struct {
	slots []slot
	free  []uint32
	root  ID
	count int
	mark  Marker
}

// NewStore creates an empty store that reports mutations to m.
// A nil Marker disables dirty tracking.
func NewStore(m Marker) *Store {
	return &Store{mark: m}
}

func (s *Store) notify(id ID, r Reason) {
	if s.mark != nil && !id.IsZero() {
		s.mark.Mark(id, r)
	}
}

func (s *Store) get(id ID) (*node, error) {
	if id.IsZero() || int(id.Index) >= len(s.slots) {
		return nil, notFound(id)
	}
	sl := &s.slots[id.Index]
	if !sl.alive || sl.gen != id.Gen {
		return nil, notFound(id)
	}
	return &sl.n, nil
}

// mustGet is used on ids taken from the store's own links.
func (s *Store) mustGet(id ID) *node {
	n, err := s.get(id)
	if err != nil {
		panic(fmt.Sprintf("layout: dangling link %v", id))
	}
	return n
}

// Contains reports whether id addresses a live node.
func (s *Store) Contains(id ID) bool {
	_, err := s.get(id)
	return err == nil
}

// Root returns the root id, or NoID for an empty store.
func (s *Store) Root() ID { return s.root }

// Len returns the number of live nodes.
func (s *Store) Len() int { return s.count }

func (s *Store) alloc(n node) ID {
	var idx uint32
	if k := len(s.free); k > 0 {
		idx = s.free[k-1]
		s.free = s.free[:k-1]
	} else {
		idx = uint32(len(s.slots)) //nolint:gosec // node counts stay far below 2^32
		s.slots = append(s.slots, slot{})
	}
	sl := &s.slots[idx]
	sl.gen++
	if sl.gen == 0 {
		sl.gen = 1
	}
	sl.alive = true
	sl.n = n
	s.count++
	return ID{Index: idx, Gen: sl.gen}
}

// Insert appends a new node to parent's children. A zero parent creates the
// root; ErrRootExists is returned if the store already has one.
func (s *Store) Insert(parent ID, style Style, content Content) (ID, error) {
	return s.InsertAt(parent, -1, style, content)
}

// InsertAt inserts a new node at child position index of parent.
// An index outside [0, len(children)] appends.
func (s *Store) InsertAt(parent ID, index int, style Style, content Content) (ID, error) {
	if parent.IsZero() {
		if !s.root.IsZero() {
			return NoID, assert.Invariant(ErrRootExists, "layout: second root rejected", "root", s.root)
		}
		id := s.alloc(node{style: style, content: content, digest: content.Digest()})
		s.root = id
		s.notify(id, ReasonStyle|ReasonContent)
		return id, nil
	}
	p, err := s.get(parent)
	if err != nil {
		return NoID, err
	}
	depth := p.depth + 1
	id := s.alloc(node{parent: parent, depth: depth, style: style, content: content, digest: content.Digest()})
	// alloc may grow s.slots; re-read the parent.
	p = s.mustGet(parent)
	p.children = insertID(p.children, index, id)
	s.notify(id, ReasonStyle|ReasonContent)
	s.notify(parent, ReasonChildren)
	return id, nil
}

func insertID(list []ID, index int, id ID) []ID {
	if index < 0 || index >= len(list) {
		return append(list, id)
	}
	return slices.Insert(list, index, id)
}

// Remove detaches id and its whole subtree and reclaims their slots.
// It returns the removed ids in pre-order. Every removed id becomes stale.
func (s *Store) Remove(id ID) ([]ID, error) {
	n, err := s.get(id)
	if err != nil {
		return nil, err
	}
	parent := n.parent
	removed := s.collect(id, nil)

	if parent.IsZero() {
		s.root = NoID
	} else {
		p := s.mustGet(parent)
		p.children = slices.DeleteFunc(p.children, func(c ID) bool { return c == id })
		s.notify(parent, ReasonChildren)
	}

	for _, rid := range removed {
		sl := &s.slots[rid.Index]
		sl.alive = false
		sl.n = node{}
		s.free = append(s.free, rid.Index)
		s.count--
		if s.mark != nil {
			s.mark.Forget(rid)
		}
	}
	return removed, nil
}

// collect appends id and all descendants in pre-order.
func (s *Store) collect(id ID, dst []ID) []ID {
	dst = append(dst, id)
	for _, c := range s.mustGet(id).children {
		dst = s.collect(c, dst)
	}
	return dst
}

// Descendants returns the ids of id's subtree, id first, in pre-order.
func (s *Store) Descendants(id ID) ([]ID, error) {
	if _, err := s.get(id); err != nil {
		return nil, err
	}
	return s.collect(id, nil), nil
}

// UpdateStyle replaces the node's style and marks it dirty. Paint-only
// changes are recorded with ReasonPaint, scroll changes with ReasonScroll.
// Setting an identical style is a no-op.
func (s *Store) UpdateStyle(id ID, style Style) error {
	n, err := s.get(id)
	if err != nil {
		return err
	}
	old := n.style
	if old == style {
		return nil
	}
	n.style = style
	var r Reason
	if !old.SameGeometry(style) {
		r |= ReasonStyle
	}
	if old.Offset != style.Offset {
		r |= ReasonScroll
	}
	if old.Visual != style.Visual {
		r |= ReasonPaint
	}
	s.notify(id, r)
	return nil
}

// UpdateContent replaces the node's content and marks it dirty.
// Setting equal content is a no-op.
func (s *Store) UpdateContent(id ID, content Content) error {
	n, err := s.get(id)
	if err != nil {
		return err
	}
	if n.content.Equal(content) {
		return nil
	}
	n.content = content
	n.digest = content.Digest()
	s.notify(id, ReasonContent)
	return nil
}

// Move reparents id under newParent at child position index. Moving a node
// under itself or one of its descendants is an invariant violation: it
// panics in ggdebug builds and is dropped with ErrCycle otherwise.
func (s *Store) Move(id, newParent ID, index int) error {
	n, err := s.get(id)
	if err != nil {
		return err
	}
	np, err := s.get(newParent)
	if err != nil {
		return err
	}
	if n.parent.IsZero() {
		return assert.Invariant(ErrCycle, "layout: root cannot be moved", "node", id)
	}
	for a := newParent; !a.IsZero(); a = s.mustGet(a).parent {
		if a == id {
			return assert.Invariant(fmt.Errorf("%w: %v under %v", ErrCycle, id, newParent),
				"layout: move dropped", "node", id, "parent", newParent)
		}
	}

	old := n.parent
	op := s.mustGet(old)
	op.children = slices.DeleteFunc(op.children, func(c ID) bool { return c == id })
	np.children = insertID(np.children, index, id)
	n.parent = newParent

	delta := np.depth + 1 - n.depth
	if delta != 0 {
		for _, d := range s.collect(id, nil) {
			s.mustGet(d).depth += delta
		}
	}
	s.notify(old, ReasonChildren)
	s.notify(newParent, ReasonChildren)
	s.notify(id, ReasonStyle)
	return nil
}

// Children returns a copy of id's ordered child list.
func (s *Store) Children(id ID) ([]ID, error) {
	n, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return slices.Clone(n.children), nil
}

// Parent returns id's parent, NoID for the root.
func (s *Store) Parent(id ID) (ID, error) {
	n, err := s.get(id)
	if err != nil {
		return NoID, err
	}
	return n.parent, nil
}

// Style returns id's style.
func (s *Store) Style(id ID) (Style, error) {
	n, err := s.get(id)
	if err != nil {
		return Style{}, err
	}
	return n.style, nil
}

// Content returns id's content.
func (s *Store) Content(id ID) (Content, error) {
	n, err := s.get(id)
	if err != nil {
		return Content{}, err
	}
	return n.content, nil
}

// ContentDigest returns the digest of id's content.
func (s *Store) ContentDigest(id ID) (uint64, error) {
	n, err := s.get(id)
	if err != nil {
		return 0, err
	}
	return n.digest, nil
}

// Geometry returns the last resolved geometry of id. It may be stale while
// dirty entries are pending; run a layout pass first for fresh data.
func (s *Store) Geometry(id ID) (Geometry, error) {
	n, err := s.get(id)
	if err != nil {
		return Geometry{}, err
	}
	return n.geom, nil
}

// Depth returns the number of ancestors of id.
func (s *Store) Depth(id ID) (int, error) {
	n, err := s.get(id)
	if err != nil {
		return 0, err
	}
	return n.depth, nil
}

// Diagnostic returns the last measurement failure of id and whether the
// node is flagged.
func (s *Store) Diagnostic(id ID) (*MeasureError, bool) {
	n, err := s.get(id)
	if err != nil {
		return nil, false
	}
	return n.diag, n.diag != nil
}

// Walk visits id's subtree in paint order (parent before children, children
// in index order). Returning false from fn skips the node's children.
func (s *Store) Walk(id ID, fn func(id ID, depth int) bool) error {
	if _, err := s.get(id); err != nil {
		return err
	}
	s.walk(id, fn)
	return nil
}

func (s *Store) walk(id ID, fn func(ID, int) bool) {
	n := s.mustGet(id)
	if !fn(id, n.depth) {
		return
	}
	for _, c := range n.children {
		s.walk(c, fn)
	}
}
