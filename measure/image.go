package measure

import (
	"bytes"
	"fmt"
	"image"

	// Decoders for the formats accepted as image content.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/gogpu/ggui/layout"
)

// ImageMetrics reports the intrinsic pixel size of an encoded image.
type ImageMetrics interface {
	IntrinsicSize(src layout.ImageSource) (w, h float64, err error)
}

// HeaderDecoder implements ImageMetrics by reading only the image header
// through image.DecodeConfig. PNG, JPEG, GIF, BMP, TIFF and WebP are
// recognized.
type HeaderDecoder struct{}

// IntrinsicSize implements ImageMetrics.
func (HeaderDecoder) IntrinsicSize(src layout.ImageSource) (w, h float64, err error) {
	if len(src.Data) == 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrEmptyImage, src.Key)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(src.Data))
	if err != nil {
		return 0, 0, fmt.Errorf("measure: image %q: %w", src.Key, err)
	}
	return float64(cfg.Width), float64(cfg.Height), nil
}
