package rendercache

import (
	"math"

	"github.com/gogpu/ggui/layout"
)

const (
	fnvOffset = 14695981039346656037
	fnvPrime  = 1099511628211
)

type fnv64 uint64

func (h *fnv64) u64(v uint64) {
	for range 8 {
		*h ^= fnv64(v & 0xff)
		*h *= fnvPrime
		v >>= 8
	}
}

func (h *fnv64) f64(v float64) { h.u64(math.Float64bits(v)) }

func (h *fnv64) edges(e layout.Edges) {
	h.f64(e.Top)
	h.f64(e.Right)
	h.f64(e.Bottom)
	h.f64(e.Left)
}

// Fingerprint hashes everything that affects a node's own raster: its
// style, its content digest (layout.Content.Digest, kept by the store) and
// the generation of its geometry. It does not touch content bytes, so its
// cost is constant per node.
func Fingerprint(st layout.Style, contentDigest, generation uint64) uint64 {
	h := fnv64(fnvOffset)

	h.u64(uint64(st.Width.Mode))
	h.f64(st.Width.Amount)
	h.u64(uint64(st.Height.Mode))
	h.f64(st.Height.Amount)
	h.edges(st.Padding)
	h.edges(st.Margin)
	h.u64(uint64(st.Direction))
	h.u64(uint64(st.Align))
	h.u64(uint64(st.Justify))
	h.f64(st.Gap)

	v := st.Visual
	for _, col := range [...][4]uint8{
		{v.Background.R, v.Background.G, v.Background.B, v.Background.A},
		{v.Foreground.R, v.Foreground.G, v.Foreground.B, v.Foreground.A},
		{v.BorderColor.R, v.BorderColor.G, v.BorderColor.B, v.BorderColor.A},
	} {
		h.u64(uint64(col[0]) | uint64(col[1])<<8 | uint64(col[2])<<16 | uint64(col[3])<<24)
	}
	h.f64(v.BorderWidth)
	h.f64(v.CornerRadius)

	h.u64(contentDigest)
	h.u64(generation)
	return uint64(h)
}
