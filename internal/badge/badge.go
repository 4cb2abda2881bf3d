// v0
// internal/badge/badge.go
package badge

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jacobtread/Committers/internal/rank"
)

// Color is a CSS hex color such as "#3faf44".
type Color string

// Style selects the badge geometry.
type Style string

const (
	// StyleForTheBadge renders tall, upper-cased badges.
	StyleForTheBadge Style = "for-the-badge"
	// StyleFlat renders the compact 20px badge.
	StyleFlat Style = "flat"
)

const (
	// ContentType is the media type of every rendered document.
	ContentType = "image/svg+xml"

	// DefaultLabel is the left-hand text used when none is configured.
	DefaultLabel = "NZ Committers Rank"
	// NotRankedMessage is shown for identifiers absent from the leaderboard.
	NotRankedMessage = "Not ranked"

	ColorSuccess Color = "#3faf44"
	ColorFailure Color = "#da3333"
	ColorLabel   Color = "#555"
)

// ErrInvariantViolation classifies programmer errors detected while rendering.
var ErrInvariantViolation = errors.New("badge invariant violation")

// InvariantViolation reports a structurally invalid render input.
type InvariantViolation struct {
	Field  string
	Reason string
}

func (e *InvariantViolation) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("badge %s: %s", e.Field, e.Reason)
}

// Is lets errors.Is match any InvariantViolation against ErrInvariantViolation.
func (e *InvariantViolation) Is(target error) bool {
	return target == ErrInvariantViolation
}

// Spec is the complete description of a badge. Every field is required.
type Spec struct {
	Label      string
	Message    string
	Color      Color
	LabelColor Color
	Style      Style
}

// Document is a serialized badge ready to be written to a response or file.
type Document struct {
	ContentType string
	Body        []byte
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ParseStyle validates a textual style name.
func ParseStyle(raw string) (Style, error) {
	switch Style(strings.ToLower(strings.TrimSpace(raw))) {
	case StyleForTheBadge:
		return StyleForTheBadge, nil
	case StyleFlat:
		return StyleFlat, nil
	default:
		return "", &InvariantViolation{Field: "style", Reason: fmt.Sprintf("unsupported style %q", raw)}
	}
}

// SpecFor maps a lookup result to the badge spec in the given style. Only the
// message and primary color depend on the result.
func SpecFor(label string, style Style, result rank.Result) (Spec, error) {
	spec := Spec{
		Label:      label,
		Message:    NotRankedMessage,
		Color:      ColorFailure,
		LabelColor: ColorLabel,
		Style:      style,
	}
	if position, ok := result.Rank(); ok {
		if position <= 0 {
			return Spec{}, &InvariantViolation{Field: "rank", Reason: fmt.Sprintf("rank %d must be >= 1", position)}
		}
		spec.Message = "#" + strconv.Itoa(position)
		spec.Color = ColorSuccess
	}
	return spec, nil
}

// Render produces the for-the-badge document for a lookup result.
func Render(label string, result rank.Result) (Document, error) {
	spec, err := SpecFor(label, StyleForTheBadge, result)
	if err != nil {
		return Document{}, err
	}
	return RenderSpec(spec)
}

// RenderSpec serializes a spec to SVG. Identical specs always produce
// byte-identical documents.
func RenderSpec(spec Spec) (Document, error) {
	if err := validate(spec); err != nil {
		return Document{}, err
	}
	return Document{ContentType: ContentType, Body: layoutFor(spec.Style).render(spec)}, nil
}

func validate(spec Spec) error {
	if strings.TrimSpace(spec.Label) == "" {
		return &InvariantViolation{Field: "label", Reason: "must not be empty"}
	}
	if strings.TrimSpace(spec.Message) == "" {
		return &InvariantViolation{Field: "message", Reason: "must not be empty"}
	}
	if !hexColor.MatchString(string(spec.Color)) {
		return &InvariantViolation{Field: "color", Reason: fmt.Sprintf("%q is not a hex color", spec.Color)}
	}
	if !hexColor.MatchString(string(spec.LabelColor)) {
		return &InvariantViolation{Field: "labelColor", Reason: fmt.Sprintf("%q is not a hex color", spec.LabelColor)}
	}
	if _, err := ParseStyle(string(spec.Style)); err != nil {
		return err
	}
	return nil
}

// Renderer binds a label and style so handlers only supply lookup results.
type Renderer struct {
	label string
	style Style
}

// NewRenderer validates the label and style once at wiring time.
func NewRenderer(label string, style Style) (*Renderer, error) {
	if strings.TrimSpace(label) == "" {
		return nil, &InvariantViolation{Field: "label", Reason: "must not be empty"}
	}
	parsed, err := ParseStyle(string(style))
	if err != nil {
		return nil, err
	}
	return &Renderer{label: label, style: parsed}, nil
}

// Render renders the badge for a lookup result.
func (r *Renderer) Render(result rank.Result) (Document, error) {
	spec, err := SpecFor(r.label, r.style, result)
	if err != nil {
		return Document{}, err
	}
	return RenderSpec(spec)
}

// Default renders the fallback "not ranked" badge.
func (r *Renderer) Default() (Document, error) {
	return r.Render(rank.NotFound())
}

// Label returns the configured label.
func (r *Renderer) Label() string {
	return r.label
}

// Style returns the configured style.
func (r *Renderer) Style() Style {
	return r.style
}
