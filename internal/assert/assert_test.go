//go:build !ggdebug

package assert

import (
	"errors"
	"testing"
)

func TestInvariantReleaseReturnsError(t *testing.T) {
	want := errors.New("cycle")
	got := Invariant(want, "move dropped", "node", 3)
	if !errors.Is(got, want) {
		t.Errorf("Invariant() = %v, want %v", got, want)
	}
}
