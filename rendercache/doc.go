// Package rendercache keeps rasterized node regions between frames.
//
// Entries are keyed by node identity and validated by a content fingerprint
// (see Fingerprint) plus the absolute bounds the region was drawn for. A
// lookup answers one of three ways:
//
//   - Hit: fingerprint and bounds unchanged; blit the cached region.
//   - Revalidated: fingerprint and size unchanged, but the node moved within
//     the tolerance (scrolling, for example). The entry stays usable; with
//     fading enabled the compositor blends old and fresh pixels while the
//     entry's fade progress climbs from 0 to 1.
//   - Miss: draw fresh content and Store it.
//
// Memory is bounded by a byte budget with least-recently-used eviction, and
// regions larger than the single-entry limit are never cached.
//
// A Cache belongs to one tree and is discarded with it.
package rendercache
