package report

import (
	"fmt"
	"image/color"
	"sort"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/MeKo-Tech/omrscan/internal/marks"
)

// Palette holds the colours of the diagnostic drawings.
type Palette struct {
	Decoded       color.RGBA
	Failed        color.RGBA
	Marker        color.RGBA
	OK            color.RGBA
	TooBig        color.RGBA
	TooSmall      color.RGBA
	Unfilled      color.RGBA
	UnfilledLabel color.RGBA
	Ignored       color.RGBA
	Fallback      color.RGBA
	FallbackLabel color.RGBA
	Bubble        color.RGBA
	Banner        color.RGBA
	// Candidate and Blank outline sampled bubbles in debug renderings.
	Candidate color.RGBA
	Blank     color.RGBA
}

// DefaultPalette returns the colours of the legacy reports.
func DefaultPalette() Palette {
	return Palette{
		Decoded:       rgb(0, 255, 0),
		Failed:        rgb(255, 0, 0),
		Marker:        rgb(0, 15, 255),
		OK:            rgb(0, 255, 0),
		TooBig:        rgb(255, 0, 0),
		TooSmall:      rgb(255, 140, 0),
		Unfilled:      rgb(35, 35, 255),
		UnfilledLabel: rgb(255, 0, 0),
		Ignored:       rgb(255, 255, 0),
		Fallback:      rgb(0, 255, 0),
		FallbackLabel: rgb(255, 192, 203),
		Bubble:        rgb(255, 0, 0),
		Banner:        rgb(0, 0, 240),
		Candidate:     rgb(0, 206, 0),
		Blank:         rgb(0, 150, 255),
	}
}

func rgb(r, g, b uint8) color.RGBA { return color.RGBA{R: r, G: g, B: b, A: 255} }

func (p *Palette) slots() map[string]*color.RGBA {
	return map[string]*color.RGBA{
		"decoded":        &p.Decoded,
		"failed":         &p.Failed,
		"marker":         &p.Marker,
		"ok":             &p.OK,
		"too-big":        &p.TooBig,
		"too-small":      &p.TooSmall,
		"unfilled":       &p.Unfilled,
		"unfilled-label": &p.UnfilledLabel,
		"ignored":        &p.Ignored,
		"fallback":       &p.Fallback,
		"fallback-label": &p.FallbackLabel,
		"bubble":         &p.Bubble,
		"banner":         &p.Banner,
		"candidate":      &p.Candidate,
		"blank":          &p.Blank,
	}
}

// PaletteKeys lists the names accepted by WithOverrides.
func PaletteKeys() []string {
	var p Palette
	keys := make([]string, 0, 15)
	for k := range p.slots() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WithOverrides returns a copy of p with the named colours replaced by hex
// values such as "#ff8800".
func (p Palette) WithOverrides(overrides map[string]string) (Palette, error) {
	slots := p.slots()
	for name, hex := range overrides {
		slot, ok := slots[strings.ToLower(name)]
		if !ok {
			return p, fmt.Errorf("unknown palette colour %q", name)
		}
		c, err := colorful.Hex(hex)
		if err != nil {
			return p, fmt.Errorf("palette colour %q: %w", name, err)
		}
		r, g, b := c.RGB255()
		*slot = rgb(r, g, b)
	}
	return p, nil
}

// Class returns the colour a blob or candidate of class c is circled with.
func (p Palette) Class(c marks.Class) color.RGBA {
	switch c {
	case marks.ClassOK:
		return p.OK
	case marks.ClassTooBig:
		return p.TooBig
	case marks.ClassTooSmall:
		return p.TooSmall
	case marks.ClassUnfilled:
		return p.Unfilled
	case marks.ClassIgnored:
		return p.Ignored
	default:
		return p.Fallback
	}
}

// Hex formats c as "#rrggbb".
func Hex(c color.RGBA) string {
	cf, _ := colorful.MakeColor(c)
	return cf.Hex()
}
