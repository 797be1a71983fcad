package scenefile

import (
	"slices"

	"github.com/gogpu/ggui"
	"github.com/gogpu/ggui/layout"
)

// Diff counts the operations one Apply issued.
type Diff struct {
	Inserted int
	Updated  int
	Moved    int
	Removed  int // nodes removed, including descendants
}

// Reconciler keeps a tree in sync with successive versions of a scene.
// Nodes are matched by key: a kept key keeps its node id, so its cached
// raster survives unless its style or content changed.
type Reconciler struct {
	tree *ggui.Tree

	ids      map[string]layout.ID
	nodes    map[string]*Node
	parent   map[string]string
	children map[string][]string
	root     string
}

// NewReconciler creates a reconciler for an empty tree.
func NewReconciler(t *ggui.Tree) *Reconciler {
	r := &Reconciler{tree: t}
	r.reset()
	return r
}

func (r *Reconciler) reset() {
	r.ids = make(map[string]layout.ID)
	r.nodes = make(map[string]*Node)
	r.parent = make(map[string]string)
	r.children = make(map[string][]string)
	r.root = ""
}

// ID returns the node id of key after the last Apply.
func (r *Reconciler) ID(key string) (layout.ID, bool) {
	id, ok := r.ids[key]
	return id, ok
}

// Apply commits one batch that turns the tree into s.
func (r *Reconciler) Apply(s *Scene) (Diff, error) {
	var d Diff
	b := r.tree.Batch()

	known := r.ids
	if s.Root == nil || (r.root != "" && r.root != s.Root.Key) {
		if r.root != "" {
			b.Remove(ggui.Node(r.ids[r.root]))
		}
		known = nil
	}

	refs := make(map[string]ggui.Ref)
	wanted := make(map[string]struct{})
	sim := make(map[string][]string, len(r.children))
	simParent := make(map[string]string, len(r.parent))
	if known != nil {
		for k, v := range r.children {
			sim[k] = slices.Clone(v)
		}
		for k, v := range r.parent {
			simParent[k] = v
		}
	}

	s.Walk(func(n, parent *Node, index int) {
		wanted[n.Key] = struct{}{}
		id, kept := known[n.Key]
		if parent == nil {
			if kept {
				refs[n.Key] = ggui.Node(id)
				r.update(b, n, &d)
			} else {
				refs[n.Key] = b.Insert(ggui.NoParent, n.style, n.content)
				d.Inserted++
			}
			return
		}

		pref := refs[parent.Key]
		if !kept {
			refs[n.Key] = b.InsertAt(pref, index, n.style, n.content)
			sim[parent.Key] = slices.Insert(sim[parent.Key], min(index, len(sim[parent.Key])), n.Key)
			simParent[n.Key] = parent.Key
			d.Inserted++
			return
		}

		ref := ggui.Node(id)
		refs[n.Key] = ref
		siblings := sim[parent.Key]
		if simParent[n.Key] != parent.Key || index >= len(siblings) || siblings[index] != n.Key {
			b.Move(ref, pref, index)
			old := simParent[n.Key]
			sim[old] = slices.DeleteFunc(sim[old], func(k string) bool { return k == n.Key })
			sim[parent.Key] = slices.Insert(sim[parent.Key], min(index, len(sim[parent.Key])), n.Key)
			simParent[n.Key] = parent.Key
			d.Moved++
		}
		r.update(b, n, &d)
	})

	// Remove the topmost dropped nodes only; their subtrees go with them.
	if known != nil {
		var gone []string
		for key := range known {
			if _, ok := wanted[key]; ok {
				continue
			}
			if _, kept := wanted[r.parent[key]]; !kept {
				continue
			}
			gone = append(gone, key)
		}
		slices.Sort(gone)
		for _, key := range gone {
			b.Remove(ggui.Node(known[key]))
		}
	}

	applied, err := b.Commit()
	if err != nil {
		return Diff{}, err
	}
	d.Removed = len(applied.Removed)
	r.record(s, refs, applied)
	return d, nil
}

func (r *Reconciler) update(b *ggui.Batch, n *Node, d *Diff) {
	old := r.nodes[n.Key]
	id := r.ids[n.Key]
	changed := false
	if old.style != n.style {
		b.UpdateStyle(ggui.Node(id), n.style)
		changed = true
	}
	if !old.content.Equal(n.content) {
		b.UpdateContent(ggui.Node(id), n.content)
		changed = true
	}
	if changed {
		d.Updated++
	}
}

func (r *Reconciler) record(s *Scene, refs map[string]ggui.Ref, applied *ggui.Applied) {
	r.reset()
	s.Walk(func(n, parent *Node, _ int) {
		r.ids[n.Key] = applied.ID(refs[n.Key])
		r.nodes[n.Key] = n
		if parent == nil {
			r.root = n.Key
			return
		}
		r.parent[n.Key] = parent.Key
		r.children[parent.Key] = append(r.children[parent.Key], n.Key)
	})
}
