package layout

import (
	"fmt"
	"log/slog"
)

// ID identifies a node: an arena index plus the slot generation at the time
// the node was inserted. Slot generations start at 1, so the zero ID never
// addresses a node.
type ID struct {
	Index uint32
	Gen   uint32
}

// NoID is the zero ID. It is used as the parent of the root.
var NoID ID

// IsZero reports whether id is NoID.
func (id ID) IsZero() bool { return id == NoID }

// String formats the id as "index:gen".
func (id ID) String() string {
	if id.IsZero() {
		return "none"
	}
	return fmt.Sprintf("%d:%d", id.Index, id.Gen)
}

// LogValue implements slog.LogValuer.
func (id ID) LogValue() slog.Value {
	return slog.StringValue(id.String())
}
