package recording

import (
	"image"
	"image/color"

	"github.com/gogpu/ggui/compositor"
	"github.com/gogpu/ggui/layout"
)

// CommandType identifies the type of a command.
type CommandType uint8

const (
	CmdClear         CommandType = iota // Clear the whole surface
	CmdDrawRect                         // Fill and/or stroke a rectangle
	CmdDrawPath                         // Fill and/or stroke a path
	CmdDrawText                         // Draw text
	CmdDrawImage                        // Draw an encoded image
	CmdClipPush                         // Push a clip rectangle
	CmdClipPop                          // Pop a clip rectangle
	CmdTransformPush                    // Push a transform
	CmdTransformPop                     // Pop a transform
	CmdBlit                             // Blit a captured region
	CmdLayerPush                        // Start a transparent layer
	CmdLayerPop                         // Composite the layer and keep its pixels
)

var commandTypeNames = [...]string{
	CmdClear:         "Clear",
	CmdDrawRect:      "DrawRect",
	CmdDrawPath:      "DrawPath",
	CmdDrawText:      "DrawText",
	CmdDrawImage:     "DrawImage",
	CmdClipPush:      "ClipPush",
	CmdClipPop:       "ClipPop",
	CmdTransformPush: "TransformPush",
	CmdTransformPop:  "TransformPop",
	CmdBlit:          "Blit",
	CmdLayerPush:     "LayerPush",
	CmdLayerPop:      "LayerPop",
}

// String returns the string representation of a CommandType.
func (c CommandType) String() string {
	if int(c) < len(commandTypeNames) {
		return commandTypeNames[c]
	}
	return "Unknown"
}

// IsDraw reports whether the command produces pixels for a node. Clears
// and blits only move existing pixels and do not count.
func (c CommandType) IsDraw() bool {
	switch c {
	case CmdDrawRect, CmdDrawPath, CmdDrawText, CmdDrawImage:
		return true
	default:
		return false
	}
}

// Command is the interface implemented by all command types.
type Command interface {
	Type() CommandType
}

// ClearCommand fills the surface with a color.
type ClearCommand struct {
	Color color.RGBA
}

// Type implements Command.
func (ClearCommand) Type() CommandType { return CmdClear }

// RectCommand draws a rectangle in user space.
type RectCommand struct {
	Rect   layout.Rect
	Paint  compositor.Paint
	Device layout.Rect // Rect mapped through the current transform
}

// Type implements Command.
func (RectCommand) Type() CommandType { return CmdDrawRect }

// PathCommand draws a path.
type PathCommand struct {
	Path  compositor.Path
	Paint compositor.Paint
}

// Type implements Command.
func (PathCommand) Type() CommandType { return CmdDrawPath }

// TextCommand draws a string.
type TextCommand struct {
	Text     string
	Font     layout.Font
	At       layout.Point
	MaxWidth float64
	Color    color.RGBA
}

// Type implements Command.
func (TextCommand) Type() CommandType { return CmdDrawText }

// ImageCommand draws an encoded image into Dst.
type ImageCommand struct {
	Key string
	Dst layout.Rect
}

// Type implements Command.
func (ImageCommand) Type() CommandType { return CmdDrawImage }

// ClipPushCommand restricts drawing to Rect.
type ClipPushCommand struct {
	Rect layout.Rect
}

// Type implements Command.
func (ClipPushCommand) Type() CommandType { return CmdClipPush }

// ClipPopCommand restores the previous clip.
type ClipPopCommand struct{}

// Type implements Command.
func (ClipPopCommand) Type() CommandType { return CmdClipPop }

// TransformPushCommand composes a transform onto the current one.
type TransformPushCommand struct {
	Transform compositor.Transform
}

// Type implements Command.
func (TransformPushCommand) Type() CommandType { return CmdTransformPush }

// TransformPopCommand restores the previous transform.
type TransformPopCommand struct{}

// Type implements Command.
func (TransformPopCommand) Type() CommandType { return CmdTransformPop }

// BlitCommand draws a captured region.
type BlitCommand struct {
	Region  uint64
	At      image.Point
	Opacity float64
}

// Type implements Command.
func (BlitCommand) Type() CommandType { return CmdBlit }

// LayerPushCommand starts a layer over Rect.
type LayerPushCommand struct {
	Rect image.Rectangle
}

// Type implements Command.
func (LayerPushCommand) Type() CommandType { return CmdLayerPush }

// LayerPopCommand ends the layer over Rect; its pixels become Region.
type LayerPopCommand struct {
	Rect   image.Rectangle
	Region uint64
}

// Type implements Command.
func (LayerPopCommand) Type() CommandType { return CmdLayerPop }
