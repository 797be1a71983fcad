package measure

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/norm"

	"github.com/gogpu/ggui/layout"
)

// TextMetrics measures text for layout.
//
// maxWidth is the wrapping width; +Inf disables wrapping.
type TextMetrics interface {
	Measure(text string, f layout.Font, maxWidth float64) (w, h float64, err error)
}

// Line is one wrapped line of text.
type Line struct {
	Text  string
	Width float64
}

// TextLayout is the result of wrapping a string.
type TextLayout struct {
	Lines []Line

	// Ascent, Descent and Gap are the font's line bounds at the shaped
	// size. Descent is positive.
	Ascent  float64
	Descent float64
	Gap     float64

	// Width is the widest line; Height is the line count times LineHeight.
	Width  float64
	Height float64
}

// LineHeight returns the distance between consecutive baselines.
func (l TextLayout) LineHeight() float64 {
	return l.Ascent + l.Descent + l.Gap
}

// Shaper implements TextMetrics with go-text/typesetting's HarfBuzz shaper.
//
// Text is NFC-normalized, split at hard line breaks, and each paragraph is
// wrapped greedily at whitespace. Runs of whitespace collapse to one space.
// A word wider than maxWidth overflows on its own line rather than being
// broken.
//
// Shaper is safe for concurrent use. HarfbuzzShaper instances are pooled
// since they carry mutable buffers.
type Shaper struct {
	fonts *Fonts
	pool  sync.Pool
}

// NewShaper creates a Shaper over fonts. A nil registry selects NewFonts().
func NewShaper(fonts *Fonts) *Shaper {
	if fonts == nil {
		fonts = NewFonts()
	}
	return &Shaper{
		fonts: fonts,
		pool: sync.Pool{
			New: func() any { return &shaping.HarfbuzzShaper{} },
		},
	}
}

// Fonts returns the registry used for family lookup.
func (s *Shaper) Fonts() *Fonts { return s.fonts }

// Measure implements TextMetrics. Sizes are rounded up to whole pixels.
func (s *Shaper) Measure(text string, f layout.Font, maxWidth float64) (w, h float64, err error) {
	tl, err := s.Layout(text, f, maxWidth)
	if err != nil {
		return 0, 0, err
	}
	return math.Ceil(tl.Width), math.Ceil(tl.Height), nil
}

// Layout wraps text at maxWidth and returns the lines with their widths.
// Drawing backends use it so painted lines break where measurement did.
func (s *Shaper) Layout(text string, f layout.Font, maxWidth float64) (TextLayout, error) {
	size, err := fontSize(f.Size)
	if err != nil {
		return TextLayout{}, err
	}
	fam, err := s.fonts.lookup(f.Family)
	if err != nil {
		return TextLayout{}, err
	}

	r := &run{
		shaper: s,
		face:   font.NewFace(fam.font),
		size:   fixed.Int26_6(size * 64),
		widths: make(map[string]float64),
	}

	space := r.shape([]rune{' '})
	tl := TextLayout{
		Ascent:  fixedToFloat(space.LineBounds.Ascent),
		Descent: -fixedToFloat(space.LineBounds.Descent),
		Gap:     fixedToFloat(space.LineBounds.Gap),
	}
	spaceW := fixedToFloat(space.Advance)

	text = norm.NFC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	for _, para := range strings.Split(text, "\n") {
		tl.Lines = r.wrap(tl.Lines, strings.Fields(para), spaceW, maxWidth)
	}
	for _, ln := range tl.Lines {
		tl.Width = math.Max(tl.Width, ln.Width)
	}
	tl.Height = float64(len(tl.Lines)) * tl.LineHeight()
	return tl, nil
}

// run holds per-call shaping state. font.Face is not safe for concurrent
// use, so each call gets its own.
type run struct {
	shaper *Shaper
	face   *font.Face
	size   fixed.Int26_6
	widths map[string]float64
}

func (r *run) wrap(lines []Line, words []string, spaceW, maxWidth float64) []Line {
	if len(words) == 0 {
		return append(lines, Line{})
	}
	var b strings.Builder
	width := 0.0
	for _, word := range words {
		ww := r.width(word)
		if b.Len() > 0 && width+spaceW+ww > maxWidth {
			lines = append(lines, Line{Text: b.String(), Width: width})
			b.Reset()
			width = 0
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
			width += spaceW
		}
		b.WriteString(word)
		width += ww
	}
	return append(lines, Line{Text: b.String(), Width: width})
}

func (r *run) width(word string) float64 {
	if w, ok := r.widths[word]; ok {
		return w
	}
	w := fixedToFloat(r.shape([]rune(word)).Advance)
	r.widths[word] = w
	return w
}

func (r *run) shape(runes []rune) shaping.Output {
	input := shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      r.face,
		Size:      r.size,
		Script:    detectScript(runes),
		Language:  language.NewLanguage("en"),
	}
	hb := r.shaper.pool.Get().(*shaping.HarfbuzzShaper)
	out := hb.Shape(input)
	r.shaper.pool.Put(hb)
	return out
}

func fontSize(size float64) (float64, error) {
	switch {
	case size == 0:
		return DefaultFontSize, nil
	case size < 0 || math.IsNaN(size) || math.IsInf(size, 0):
		return 0, fmt.Errorf("%w: %v", ErrInvalidFontSize, size)
	}
	return size, nil
}

// detectScript returns the script of the first non-space rune.
func detectScript(runes []rune) language.Script {
	for _, r := range runes {
		if r == ' ' || r == '\t' {
			continue
		}
		return language.LookupScript(r)
	}
	return language.Latin
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64.0
}
