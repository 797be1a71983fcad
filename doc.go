// Package ggui is a retained layout tree with incremental repaint.
//
// # Overview
//
// A Tree holds styled nodes arranged by a flexbox-like engine (package
// layout). Mutations are grouped into batches; each frame resolves only the
// dirty closure of the nodes that changed and paints a display list through
// a render cache, so unchanged subtrees are blitted instead of redrawn.
//
// # Quick Start
//
//	tree, err := ggui.New(ggui.WithViewport(400, 300))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	b := tree.Batch()
//	root := b.Insert(ggui.NoParent, layout.DefaultStyle(), layout.Content{})
//	b.Insert(root, layout.DefaultStyle(), layout.Text("hello", layout.Font{Size: 16}))
//	if _, err := b.Commit(); err != nil {
//		log.Fatal(err)
//	}
//
//	w, h := tree.DeviceSize()
//	surface, _ := raster.New(w, h)
//	stats, err := tree.Frame(ctx, surface)
//
// # Architecture
//
// The module is organized into:
//   - ggui: Tree, Batch, Config, frame loop
//   - layout: node store, dirty tracking, flex resolution
//   - measure: text shaping and image header measurement
//   - rendercache: per-node cached regions with LRU eviction
//   - compositor: display list, damage tracking, paint
//   - backend/raster: software Surface on top of gogpu/gg
//   - recording: Surface that records draw commands for tests
//   - present: hands painted frames to a gpucontext texture
//   - metrics: Prometheus collector over Tree.Stats
//
// # Concurrency
//
// Tree methods are safe for concurrent use. Batches may be submitted from
// any goroutine; they are applied at the start of the next frame. Layout
// and paint take separate locks, so committing the next batch does not
// wait for a frame that is still painting.
//
// # Logging
//
// ggui is silent by default. SetLogger installs a *slog.Logger shared by
// every sub-package.
package ggui
