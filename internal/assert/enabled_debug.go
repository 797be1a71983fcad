//go:build ggdebug

package assert

// Enabled is true in ggdebug builds.
const Enabled = true
