package measure

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/go-text/typesetting/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// DefaultFamily is the family used when a Font names none.
const DefaultFamily = "Go"

// DefaultFontSize is used when a Font has a zero size.
const DefaultFontSize = 14.0

// Fonts maps family names to parsed fonts.
//
// A parsed font.Font is read-only and safe for concurrent use; faces are
// created per call since font.Face is not. The raw data is kept so drawing
// backends can build their own faces from the same bytes.
type Fonts struct {
	mu       sync.RWMutex
	families map[string]*family
}

type family struct {
	font *font.Font
	data []byte
}

// NewFonts returns a registry holding the Go font families
// ("Go", "Go Bold" and "Go Mono").
func NewFonts() *Fonts {
	f := &Fonts{families: make(map[string]*family)}
	for name, data := range map[string][]byte{
		DefaultFamily: goregular.TTF,
		"Go Bold":     gobold.TTF,
		"Go Mono":     gomono.TTF,
	} {
		if err := f.Register(name, data); err != nil {
			panic(fmt.Sprintf("measure: embedded font %q: %v", name, err))
		}
	}
	return f
}

// Register parses TTF or OTF data and stores it under name, replacing any
// previous family with the same name.
func (f *Fonts) Register(name string, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("measure: register %q: empty font data", name)
	}
	face, err := font.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("measure: register %q: %w", name, err)
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	f.mu.Lock()
	f.families[name] = &family{font: face.Font, data: buf}
	f.mu.Unlock()
	return nil
}

// Data returns the font bytes registered for name. An empty name selects
// DefaultFamily.
func (f *Fonts) Data(name string) ([]byte, error) {
	fam, err := f.lookup(name)
	if err != nil {
		return nil, err
	}
	return fam.data, nil
}

// Families returns the registered family names, sorted.
func (f *Fonts) Families() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.families))
	for name := range f.families {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (f *Fonts) lookup(name string) (*family, error) {
	if name == "" {
		name = DefaultFamily
	}
	f.mu.RLock()
	fam, ok := f.families[name]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFamily, name)
	}
	return fam, nil
}
