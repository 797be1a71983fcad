package compositor

import (
	"image"
	"math/bits"
	"sync/atomic"
)

// DefaultTileSize is the damage tile edge in device pixels.
const DefaultTileSize = 64

// Damage tracks which surface tiles changed in a frame using an atomic
// bitmap, one bit per tile. Safe for concurrent use, so a presenter may read
// it while the next frame is being prepared.
type Damage struct {
	words  []atomic.Uint64
	tilesX int
	tilesY int
	tile   int
}

// NewDamage creates a tracker for a width x height surface. A non-positive
// tile size selects DefaultTileSize.
func NewDamage(width, height, tile int) *Damage {
	if tile <= 0 {
		tile = DefaultTileSize
	}
	tx := max((width+tile-1)/tile, 1)
	ty := max((height+tile-1)/tile, 1)
	return &Damage{
		words:  make([]atomic.Uint64, (tx*ty+63)/64),
		tilesX: tx,
		tilesY: ty,
		tile:   tile,
	}
}

func (d *Damage) mark(tx, ty int) {
	if tx < 0 || tx >= d.tilesX || ty < 0 || ty >= d.tilesY {
		return
	}
	idx := ty*d.tilesX + tx
	d.words[idx/64].Or(1 << (idx & 63))
}

// MarkRect marks every tile intersecting r.
func (d *Damage) MarkRect(r image.Rectangle) {
	if r.Empty() {
		return
	}
	tx1, ty1 := r.Min.X/d.tile, r.Min.Y/d.tile
	tx2, ty2 := (r.Max.X-1)/d.tile, (r.Max.Y-1)/d.tile
	tx1, ty1 = max(tx1, 0), max(ty1, 0)
	tx2, ty2 = min(tx2, d.tilesX-1), min(ty2, d.tilesY-1)
	for ty := ty1; ty <= ty2; ty++ {
		for tx := tx1; tx <= tx2; tx++ {
			d.mark(tx, ty)
		}
	}
}

// MarkAll marks every tile.
func (d *Damage) MarkAll() {
	total := d.tilesX * d.tilesY
	full := total / 64
	for i := range full {
		d.words[i].Store(^uint64(0))
	}
	if rem := total % 64; rem > 0 {
		d.words[full].Store(uint64(1)<<rem - 1)
	}
}

// IsDirty reports whether tile (tx, ty) is marked.
func (d *Damage) IsDirty(tx, ty int) bool {
	if tx < 0 || tx >= d.tilesX || ty < 0 || ty >= d.tilesY {
		return false
	}
	idx := ty*d.tilesX + tx
	return d.words[idx/64].Load()&(1<<(idx&63)) != 0
}

// Count returns the number of marked tiles.
func (d *Damage) Count() int {
	n := 0
	for i := range d.words {
		n += bits.OnesCount64(d.words[i].Load())
	}
	return n
}

// TakeRects clears the bitmap and returns the marked tiles as pixel
// rectangles, merging horizontal runs of tiles on each row.
func (d *Damage) TakeRects() []image.Rectangle {
	var out []image.Rectangle
	snapshot := make([]uint64, len(d.words))
	for i := range d.words {
		snapshot[i] = d.words[i].Swap(0)
	}
	dirty := func(tx, ty int) bool {
		idx := ty*d.tilesX + tx
		return snapshot[idx/64]&(1<<(idx&63)) != 0
	}
	for ty := range d.tilesY {
		for tx := 0; tx < d.tilesX; tx++ {
			if !dirty(tx, ty) {
				continue
			}
			start := tx
			for tx+1 < d.tilesX && dirty(tx+1, ty) {
				tx++
			}
			out = append(out, image.Rect(start*d.tile, ty*d.tile, (tx+1)*d.tile, (ty+1)*d.tile))
		}
	}
	return out
}
