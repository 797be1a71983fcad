package measure

import "errors"

var (
	// ErrUnknownFamily is returned when a font family is not registered.
	ErrUnknownFamily = errors.New("measure: unknown font family")

	// ErrInvalidFontSize is returned for negative or non-finite font sizes.
	ErrInvalidFontSize = errors.New("measure: invalid font size")

	// ErrEmptyImage is returned for image content without data.
	ErrEmptyImage = errors.New("measure: empty image data")

	// ErrUnsupportedContent is returned for content kinds without an intrinsic size.
	ErrUnsupportedContent = errors.New("measure: unsupported content kind")
)
