package layout

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an ID does not address a live node,
	// typically because the node was removed and its slot reclaimed.
	ErrNotFound = errors.New("layout: node not found")

	// ErrRootExists is returned when inserting a second parentless node.
	ErrRootExists = errors.New("layout: root already exists")

	// ErrCycle is returned when a move would make a node its own ancestor.
	ErrCycle = errors.New("layout: move would create a cycle")

	// ErrInvalidDimension is returned by ParseDimension.
	ErrInvalidDimension = errors.New("layout: invalid dimension")

	// ErrNoMeasurer is reported when a leaf is laid out without a Measurer.
	ErrNoMeasurer = errors.New("layout: no measurer configured")
)

// MeasureError reports that a leaf's content could not be measured.
// The engine recovers by using a zero size and flagging the node.
type MeasureError struct {
	ID  ID
	Err error
}

func (e *MeasureError) Error() string {
	return fmt.Sprintf("layout: measure %v: %v", e.ID, e.Err)
}

func (e *MeasureError) Unwrap() error { return e.Err }

// notFound wraps ErrNotFound with the offending id.
func notFound(id ID) error {
	return fmt.Errorf("%w: %v", ErrNotFound, id)
}
