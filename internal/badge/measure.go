// v0
// internal/badge/measure.go
package badge

import (
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// measureFontSize is the pixel size the badge text is laid out at.
const measureFontSize = 10

// measurer computes text advances in tenths of a pixel. Printable ASCII is
// served from a table built once; other runes go through the face, which is
// not safe for concurrent use.
type measurer struct {
	ascii    [128]int
	fallback int

	mu   sync.Mutex
	face font.Face
}

var (
	measureOnce sync.Once
	shared      *measurer
)

func defaultMeasurer() *measurer {
	measureOnce.Do(func() {
		m, err := newMeasurer(gobold.TTF)
		if err != nil {
			// The font is compiled into the binary; failure here is a build defect.
			panic("badge: load measurement font: " + err.Error())
		}
		shared = m
	})
	return shared
}

func newMeasurer(ttf []byte) (*measurer, error) {
	parsed, err := opentype.Parse(ttf)
	if err != nil {
		return nil, err
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    measureFontSize,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, err
	}

	m := &measurer{face: face}
	for r := rune(32); r < 127; r++ {
		adv, ok := face.GlyphAdvance(r)
		if !ok {
			continue
		}
		m.ascii[r] = toTenths(adv)
	}
	m.fallback = m.ascii['?']
	return m, nil
}

// width returns the advance of s in tenths of a pixel.
func (m *measurer) width(s string) int {
	total := 0
	var slow []rune
	for _, r := range s {
		if r >= 32 && r < 127 {
			total += m.ascii[r]
			continue
		}
		slow = append(slow, r)
	}
	if len(slow) == 0 {
		return total
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range slow {
		adv, ok := m.face.GlyphAdvance(r)
		if !ok {
			total += m.fallback
			continue
		}
		total += toTenths(adv)
	}
	return total
}

func toTenths(v fixed.Int26_6) int {
	return (int(v)*10 + 32) >> 6
}
