// v0
// internal/badge/svg.go
package badge

import (
	"bytes"
	"encoding/xml"
	"strconv"
	"strings"
	"unicode/utf8"
)

// layout holds the geometry of a style. Lengths ending in Tenths are in
// tenths of a pixel because the text is drawn with transform="scale(.1)".
type layout struct {
	height         int
	padding        int
	baselineTenths int
	spacingTenths  int
	upper          bool
	boldMessage    bool
}

var layouts = map[Style]layout{
	StyleForTheBadge: {height: 28, padding: 12, baselineTenths: 175, spacingTenths: 12, upper: true, boldMessage: true},
	StyleFlat:        {height: 20, padding: 6, baselineTenths: 140},
}

func layoutFor(style Style) layout {
	if l, ok := layouts[style]; ok {
		return l
	}
	return layouts[StyleForTheBadge]
}

type section struct {
	text         string
	textTenths   int
	widthPx      int
	centerTenths int
}

func (l layout) section(text string, offsetPx int) section {
	if l.upper {
		text = strings.ToUpper(text)
	}
	textTenths := defaultMeasurer().width(text)
	if n := utf8.RuneCountInString(text); n > 1 {
		textTenths += l.spacingTenths * (n - 1)
	}
	widthPx := (textTenths+9)/10 + 2*l.padding
	return section{
		text:         text,
		textTenths:   textTenths,
		widthPx:      widthPx,
		centerTenths: offsetPx*10 + widthPx*5,
	}
}

func (l layout) render(spec Spec) []byte {
	label := l.section(spec.Label, 0)
	message := l.section(spec.Message, label.widthPx)
	total := label.widthPx + message.widthPx
	height := strconv.Itoa(l.height)
	title := spec.Label + ": " + spec.Message

	var b bytes.Buffer
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="`)
	b.WriteString(strconv.Itoa(total))
	b.WriteString(`" height="`)
	b.WriteString(height)
	b.WriteString(`" role="img" aria-label="`)
	escape(&b, title)
	b.WriteString(`"><title>`)
	escape(&b, title)
	b.WriteString(`</title><g shape-rendering="crispEdges"><rect width="`)
	b.WriteString(strconv.Itoa(label.widthPx))
	b.WriteString(`" height="`)
	b.WriteString(height)
	b.WriteString(`" fill="`)
	escape(&b, string(spec.LabelColor))
	b.WriteString(`"/><rect x="`)
	b.WriteString(strconv.Itoa(label.widthPx))
	b.WriteString(`" width="`)
	b.WriteString(strconv.Itoa(message.widthPx))
	b.WriteString(`" height="`)
	b.WriteString(height)
	b.WriteString(`" fill="`)
	escape(&b, string(spec.Color))
	b.WriteString(`"/></g><g fill="#fff" text-anchor="middle" font-family="Verdana,Geneva,DejaVu Sans,sans-serif" text-rendering="geometricPrecision" font-size="100">`)
	l.text(&b, label, false)
	l.text(&b, message, l.boldMessage)
	b.WriteString(`</g></svg>`)
	return b.Bytes()
}

func (l layout) text(b *bytes.Buffer, s section, bold bool) {
	b.WriteString(`<text transform="scale(.1)" x="`)
	b.WriteString(strconv.Itoa(s.centerTenths))
	b.WriteString(`" y="`)
	b.WriteString(strconv.Itoa(l.baselineTenths))
	b.WriteString(`" textLength="`)
	b.WriteString(strconv.Itoa(s.textTenths))
	b.WriteString(`" fill="#fff"`)
	if bold {
		b.WriteString(` font-weight="bold"`)
	}
	b.WriteString(`>`)
	escape(b, s.text)
	b.WriteString(`</text>`)
}

func escape(b *bytes.Buffer, s string) {
	// EscapeText only fails when the writer fails; bytes.Buffer never does.
	_ = xml.EscapeText(b, []byte(s))
}
