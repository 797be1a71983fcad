package layout

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"

	"golang.org/x/text/unicode/norm"
)

// ContentKind discriminates the Content variant.
type ContentKind uint8

const (
	ContentNone  ContentKind = iota // Container without intrinsic content
	ContentText                     // Text measured by a text-metrics service
	ContentImage                    // Encoded image with an intrinsic size
)

// String returns the kind name.
func (k ContentKind) String() string {
	switch k {
	case ContentNone:
		return "none"
	case ContentText:
		return "text"
	case ContentImage:
		return "image"
	default:
		return fmt.Sprintf("ContentKind(%d)", k)
	}
}

// Font selects a face for text content.
type Font struct {
	Family string
	Size   float64
}

// ImageSource is an encoded image. Key identifies the asset; Data holds the
// encoded bytes (PNG, JPEG, GIF, BMP, TIFF or WebP).
type ImageSource struct {
	Key  string
	Data []byte
}

// Content is a closed tagged variant over the leaf content kinds. Only the
// fields belonging to Kind are meaningful.
type Content struct {
	Kind  ContentKind
	Text  string
	Font  Font
	Image ImageSource
}

// NoContent is the content of containers.
var NoContent = Content{}

// Text returns text content.
func Text(s string, f Font) Content {
	return Content{Kind: ContentText, Text: s, Font: f}
}

// Image returns image content.
func Image(key string, data []byte) Content {
	return Content{Kind: ContentImage, Image: ImageSource{Key: key, Data: data}}
}

// IsLeaf reports whether the content has an intrinsic size.
func (c Content) IsLeaf() bool { return c.Kind != ContentNone }

// Equal reports whether c and o describe the same content.
func (c Content) Equal(o Content) bool {
	if c.Kind != o.Kind {
		return false
	}
	switch c.Kind {
	case ContentText:
		return c.Text == o.Text && c.Font == o.Font
	case ContentImage:
		return c.Image.Key == o.Image.Key && bytes.Equal(c.Image.Data, o.Image.Data)
	default:
		return true
	}
}

// Digest hashes the content. Text is hashed in NFC so canonically
// equivalent strings share a digest. Image data is hashed in full, so the
// store computes the digest once when content is set.
func (c Content) Digest() uint64 {
	h := fnv.New64a()
	var buf [8]byte
	u64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	str := func(s string) {
		u64(uint64(len(s)))
		h.Write([]byte(s))
	}
	u64(uint64(c.Kind))
	switch c.Kind {
	case ContentText:
		str(norm.NFC.String(c.Text))
		str(c.Font.Family)
		u64(math.Float64bits(c.Font.Size))
	case ContentImage:
		str(c.Image.Key)
		u64(uint64(len(c.Image.Data)))
		h.Write(c.Image.Data)
	}
	return h.Sum64()
}
