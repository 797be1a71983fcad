package compositor

import (
	"fmt"
	"sort"
	"sync"
)

// SurfaceFactory creates a surface of the given device size.
type SurfaceFactory func(width, height int) (Surface, error)

var (
	registryMu sync.RWMutex
	backends   = make(map[string]SurfaceFactory)
)

// Register makes a drawing backend available by name. It is typically
// called from init() in the backend package, following the database/sql
// driver pattern:
//
//	func init() {
//	    compositor.Register("raster", func(w, h int) (compositor.Surface, error) {
//	        return raster.New(w, h), nil
//	    })
//	}
//
// Register panics if factory is nil or name is already registered.
func Register(name string, factory SurfaceFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if factory == nil {
		panic("compositor: Register factory is nil")
	}
	if _, dup := backends[name]; dup {
		panic("compositor: Register called twice for " + name)
	}
	backends[name] = factory
}

// NewSurface creates a surface from the backend registered as name.
func NewSurface(name string, width, height int) (Surface, error) {
	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("compositor: unknown backend %q (forgotten import?)", name)
	}
	return factory(width, height)
}

// Backends returns the registered backend names, sorted.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
