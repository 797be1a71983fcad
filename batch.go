package ggui

import (
	"errors"
	"fmt"

	"github.com/gogpu/ggui/internal/assert"
	"github.com/gogpu/ggui/layout"
)

// ErrForwardRef is returned when a batch operation names a node that an
// operation later in the same batch inserts.
var ErrForwardRef = errors.New("ggui: reference to a node inserted later in the batch")

// Ref names a node inside a Batch: either an existing node (Node) or one
// inserted earlier in the same batch (the value returned by Insert).
type Ref struct {
	id      layout.ID
	pending int // 1-based insert index, 0 for existing nodes
}

// NoParent is the parent Ref that makes an inserted node the root.
var NoParent = Ref{}

// Node returns a Ref to an existing node.
func Node(id layout.ID) Ref { return Ref{id: id} }

// IsZero reports whether r is NoParent.
func (r Ref) IsZero() bool { return r.pending == 0 && r.id.IsZero() }

func (r Ref) String() string {
	if r.pending > 0 {
		return fmt.Sprintf("insert#%d", r.pending)
	}
	return r.id.String()
}

type opKind uint8

const (
	opInsert opKind = iota
	opRemove
	opStyle
	opContent
	opMove
)

var opNames = [...]string{
	opInsert:  "insert",
	opRemove:  "remove",
	opStyle:   "update-style",
	opContent: "update-content",
	opMove:    "move",
}

func (k opKind) String() string { return opNames[k] }

type op struct {
	kind    opKind
	target  Ref // inserted ref for opInsert
	parent  Ref
	index   int
	style   layout.Style
	content layout.Content
}

// Batch collects tree mutations that are validated as a whole and then
// applied together. A batch that fails validation applies nothing.
//
// A Batch is not safe for concurrent use. Build it on one goroutine and
// either Commit it or hand it to Tree.Submit.
type Batch struct {
	tree    *Tree
	ops     []op
	inserts int
}

// Batch starts a new mutation batch for t.
func (t *Tree) Batch() *Batch {
	return &Batch{tree: t}
}

// Len returns the number of queued operations.
func (b *Batch) Len() int { return len(b.ops) }

// Insert appends a node under parent and returns a Ref usable by later
// operations in the same batch.
func (b *Batch) Insert(parent Ref, style layout.Style, content layout.Content) Ref {
	return b.InsertAt(parent, -1, style, content)
}

// InsertAt inserts a node at child position index of parent. An index
// outside the child range appends.
func (b *Batch) InsertAt(parent Ref, index int, style layout.Style, content layout.Content) Ref {
	b.inserts++
	r := Ref{pending: b.inserts}
	b.ops = append(b.ops, op{kind: opInsert, target: r, parent: parent, index: index, style: style, content: content})
	return r
}

// Remove removes r and its subtree.
func (b *Batch) Remove(r Ref) *Batch {
	b.ops = append(b.ops, op{kind: opRemove, target: r})
	return b
}

// UpdateStyle replaces r's style.
func (b *Batch) UpdateStyle(r Ref, style layout.Style) *Batch {
	b.ops = append(b.ops, op{kind: opStyle, target: r, style: style})
	return b
}

// UpdateContent replaces r's content.
func (b *Batch) UpdateContent(r Ref, content layout.Content) *Batch {
	b.ops = append(b.ops, op{kind: opContent, target: r, content: content})
	return b
}

// Move reparents r under parent at child position index.
func (b *Batch) Move(r, parent Ref, index int) *Batch {
	b.ops = append(b.ops, op{kind: opMove, target: r, parent: parent, index: index})
	return b
}

// Commit validates and applies the batch synchronously. The tree lock is
// held for the whole batch, so a concurrent frame sees all of it or none.
func (b *Batch) Commit() (*Applied, error) {
	t := b.tree
	t.mu.Lock()
	defer t.mu.Unlock()
	applied, err := t.apply(b)
	if err != nil {
		return nil, err
	}
	t.RequestFrame()
	return applied, nil
}

// Applied maps the Refs of a committed batch to node ids.
type Applied struct {
	ids     []layout.ID // by insert index - 1
	Removed []layout.ID // every node removed by the batch, in pre-order per Remove
}

// ID returns the node id r resolved to. Refs to existing nodes return their
// own id.
func (a *Applied) ID(r Ref) layout.ID {
	if r.pending == 0 {
		return r.id
	}
	if r.pending > len(a.ids) {
		return layout.NoID
	}
	return a.ids[r.pending-1]
}

// shadow replays a batch's structural effects without touching the store.
type shadow struct {
	store    *layout.Store
	parents  map[Ref]Ref
	removed  map[Ref]bool
	inserted int
	hasRoot  bool
}

func (sh *shadow) parentOf(r Ref) (Ref, error) {
	if p, ok := sh.parents[r]; ok {
		return p, nil
	}
	if r.pending > 0 {
		return Ref{}, fmt.Errorf("%w: %v", ErrForwardRef, r)
	}
	p, err := sh.store.Parent(r.id)
	if err != nil {
		return Ref{}, err
	}
	return Node(p), nil
}

// live checks that r addresses a node that exists at this point of the batch.
func (sh *shadow) live(r Ref) error {
	if r.pending > sh.inserted {
		return fmt.Errorf("%w: %v", ErrForwardRef, r)
	}
	for cur := r; !cur.IsZero(); {
		if sh.removed[cur] {
			return fmt.Errorf("%w: %v removed earlier in the batch", layout.ErrNotFound, r)
		}
		p, err := sh.parentOf(cur)
		if err != nil {
			return err
		}
		cur = p
	}
	return nil
}

func (sh *shadow) check(o op) error {
	if o.kind != opInsert && o.target.IsZero() {
		return fmt.Errorf("%w: empty target", layout.ErrNotFound)
	}
	if o.kind == opMove && o.parent.IsZero() {
		return fmt.Errorf("%w: empty move parent", layout.ErrNotFound)
	}
	switch o.kind {
	case opInsert:
		if o.parent.IsZero() {
			if sh.hasRoot {
				return assert.Invariant(layout.ErrRootExists, "ggui: batch dropped", "op", o.kind)
			}
			sh.hasRoot = true
		} else if err := sh.live(o.parent); err != nil {
			return err
		}
		sh.inserted++
		sh.parents[o.target] = o.parent
	case opRemove:
		if err := sh.live(o.target); err != nil {
			return err
		}
		p, err := sh.parentOf(o.target)
		if err != nil {
			return err
		}
		if p.IsZero() {
			sh.hasRoot = false
		}
		sh.removed[o.target] = true
	case opStyle, opContent:
		return sh.live(o.target)
	case opMove:
		if err := sh.live(o.target); err != nil {
			return err
		}
		if err := sh.live(o.parent); err != nil {
			return err
		}
		p, err := sh.parentOf(o.target)
		if err != nil {
			return err
		}
		if p.IsZero() {
			return assert.Invariant(fmt.Errorf("%w: root cannot be moved", layout.ErrCycle),
				"ggui: batch dropped", "op", o.kind)
		}
		for a := o.parent; !a.IsZero(); {
			if a == o.target {
				return assert.Invariant(fmt.Errorf("%w: %v under %v", layout.ErrCycle, o.target, o.parent),
					"ggui: batch dropped", "op", o.kind)
			}
			if a, err = sh.parentOf(a); err != nil {
				return err
			}
		}
		sh.parents[o.target] = o.parent
	}
	return nil
}

// apply validates b against the store and then applies it. The caller
// holds t.mu.
func (t *Tree) apply(b *Batch) (*Applied, error) {
	if b.tree != t {
		return nil, errors.New("ggui: batch belongs to another tree")
	}
	sh := &shadow{
		store:   t.store,
		parents: make(map[Ref]Ref),
		removed: make(map[Ref]bool),
		hasRoot: !t.store.Root().IsZero(),
	}
	for i, o := range b.ops {
		if err := sh.check(o); err != nil {
			return nil, fmt.Errorf("ggui: batch op %d (%s): %w", i, o.kind, err)
		}
	}

	a := &Applied{ids: make([]layout.ID, 0, b.inserts)}
	for i, o := range b.ops {
		if err := t.applyOp(a, o); err != nil {
			// Validation admitted the batch, so the store disagreeing is a bug.
			return a, fmt.Errorf("ggui: batch op %d (%s) failed after validation: %w", i, o.kind, err)
		}
	}
	return a, nil
}

func (t *Tree) applyOp(a *Applied, o op) error {
	switch o.kind {
	case opInsert:
		id, err := t.store.InsertAt(a.ID(o.parent), o.index, o.style, o.content)
		if err != nil {
			return err
		}
		a.ids = append(a.ids, id)
	case opRemove:
		removed, err := t.store.Remove(a.ID(o.target))
		if err != nil {
			return err
		}
		a.Removed = append(a.Removed, removed...)
		t.removed = append(t.removed, removed...)
		t.measure.Discard(removed...)
	case opStyle:
		return t.store.UpdateStyle(a.ID(o.target), o.style)
	case opContent:
		return t.store.UpdateContent(a.ID(o.target), o.content)
	case opMove:
		return t.store.Move(a.ID(o.target), a.ID(o.parent), o.index)
	}
	return nil
}
