// Package layout implements the retained layout core: an arena-backed node
// store, a dirty tracker that computes the minimal re-layout closure, and a
// two-pass engine that resolves node geometry for that closure.
//
// Nodes are addressed by [ID], an arena index paired with a generation tag.
// Removing a node frees its slot and bumps the slot generation, so any id
// held across the removal fails with [ErrNotFound] instead of silently
// addressing a reused slot.
//
// A frame goes through three steps:
//
//	store.UpdateContent(label, layout.Text("Hello", font)) // marks dirty
//	closure := tracker.DrainClosure(store)
//	result := engine.Resolve(closure)
//
// Geometry returned by [Store.Geometry] reflects the last resolve and may be
// stale while dirty entries are pending.
//
// Sizes are float64 logical pixels. Grow and shrink shares are snapped to
// whole pixels with the largest-remainder method; leftover pixels go to the
// largest fractional remainders, ties to the lower child index.
package layout
