package compositor

import (
	"github.com/gogpu/ggui/layout"
	"github.com/gogpu/ggui/rendercache"
)

// Item is one node's paint input, copied out of the tree.
type Item struct {
	ID          layout.ID
	Bounds      layout.Rect // absolute border box, logical pixels
	Content     layout.Rect // absolute content box, logical pixels
	Visual      layout.Visual
	Body        layout.Content
	Fingerprint uint64
	Diagnostic  bool
	Depth       int

	// End is the index one past the item's last descendant, so
	// Items[i+1:End] is the item's subtree.
	End int
}

// DisplayList is a frame-local snapshot of everything the compositor needs.
type DisplayList struct {
	Items    []Item
	Viewport layout.Size

	// Seq orders lists built for the same compositor. Zero means the list
	// is not sequenced. Epoch is the cache's eviction epoch when the list
	// was built.
	Seq   uint64
	Epoch uint64
}

// Tree is the read access Build needs. *layout.Store satisfies it.
type Tree interface {
	Root() layout.ID
	Walk(id layout.ID, fn func(id layout.ID, depth int) bool) error
	Geometry(id layout.ID) (layout.Geometry, error)
	Style(id layout.ID) (layout.Style, error)
	Content(id layout.ID) (layout.Content, error)
	ContentDigest(id layout.ID) (uint64, error)
	Diagnostic(id layout.ID) (*layout.MeasureError, bool)
}

// Build snapshots t in paint order.
func Build(t Tree, viewport layout.Size) (*DisplayList, error) {
	list := &DisplayList{Viewport: viewport}
	root := t.Root()
	if root.IsZero() {
		return list, nil
	}

	var (
		open []int
		err  error
	)
	walkErr := t.Walk(root, func(id layout.ID, depth int) bool {
		for len(open) > 0 && list.Items[open[len(open)-1]].Depth >= depth {
			list.Items[open[len(open)-1]].End = len(list.Items)
			open = open[:len(open)-1]
		}
		var (
			g  layout.Geometry
			st layout.Style
			c  layout.Content
			cd uint64
		)
		if g, err = t.Geometry(id); err != nil {
			return false
		}
		if st, err = t.Style(id); err != nil {
			return false
		}
		if c, err = t.Content(id); err != nil {
			return false
		}
		if cd, err = t.ContentDigest(id); err != nil {
			return false
		}
		_, diag := t.Diagnostic(id)
		open = append(open, len(list.Items))
		list.Items = append(list.Items, Item{
			ID:          id,
			Bounds:      g.Abs,
			Content:     g.Content,
			Visual:      st.Visual,
			Body:        c,
			Fingerprint: rendercache.Fingerprint(st, cd, g.Generation),
			Diagnostic:  diag,
			Depth:       depth,
		})
		return true
	})
	if walkErr != nil {
		return nil, walkErr
	}
	if err != nil {
		return nil, err
	}
	for _, i := range open {
		list.Items[i].End = len(list.Items)
	}
	return list, nil
}

// Len returns the number of items.
func (l *DisplayList) Len() int { return len(l.Items) }
