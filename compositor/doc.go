// Package compositor paints a laid-out tree onto a drawing surface, reusing
// cached rasters wherever the render cache still vouches for them.
//
// A frame starts from a DisplayList, a snapshot of the tree's geometry,
// styles and content taken after layout. Because the list owns its data,
// layout for the next frame may proceed while the current list is painted.
//
// PaintFrame clears the surface and walks the list in paint order (parents
// before children, children in index order). For each item it either blits
// the cached region, redraws the node and stores the fresh pixels, or, for
// regions revalidated after a small move, blends the old region over the
// fresh drawing until the fade completes. Clip and transform state is
// scoped per node and always restored.
//
// A node is redrawn inside a transparent layer, so its region holds only
// its own pixels and composites over whatever lies beneath it. Redrawing an
// ancestor therefore leaves the regions of its descendants valid.
package compositor
