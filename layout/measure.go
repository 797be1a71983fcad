package layout

// Measurer reports the intrinsic size of leaf content.
//
// maxWidth bounds the width available to wrapping content; it is +Inf when
// the node's width is not fixed. Implementations may block: the engine calls
// Measure synchronously during its bottom-up pass.
type Measurer interface {
	Measure(id ID, c Content, maxWidth float64) (Size, error)
}

// MeasureFunc adapts an ordinary function to the Measurer interface.
type MeasureFunc func(id ID, c Content, maxWidth float64) (Size, error)

// Measure calls f(id, c, maxWidth).
func (f MeasureFunc) Measure(id ID, c Content, maxWidth float64) (Size, error) {
	return f(id, c, maxWidth)
}

// MeasureRequest describes one leaf measurement a layout pass will perform.
type MeasureRequest struct {
	ID       ID
	Content  Content
	MaxWidth float64
}
