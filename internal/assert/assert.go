// Package assert provides invariant checks that are fatal in debug builds.
//
// Build with -tags ggdebug to turn violations into panics. Release builds
// log the violation and let the caller drop the offending mutation.
package assert

import (
	"fmt"

	"github.com/gogpu/ggui/internal/logging"
)

// Invariant reports a structural invariant violation. It panics when
// Enabled is true and logs at error level otherwise. It returns err so
// callers can write `return assert.Invariant(err, ...)`.
func Invariant(err error, msg string, args ...any) error {
	logging.L().Error(msg, append(args, "err", err)...)
	if Enabled {
		panic(fmt.Sprintf("ggui: invariant violated: %s: %v", msg, err))
	}
	return err
}
