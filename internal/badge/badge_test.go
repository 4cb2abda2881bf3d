// v0
// internal/badge/badge_test.go
package badge

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacobtread/Committers/internal/rank"
)

func requireWellFormed(t *testing.T, body []byte) {
	t.Helper()
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return
		}
		require.NoError(t, err, "document is not well-formed XML: %s", body)
	}
}

func TestRenderFound(t *testing.T) {
	for _, position := range []int{1, 2, 42, 100, 12345} {
		doc, err := Render(DefaultLabel, rank.Found(position))
		require.NoError(t, err)

		assert.Equal(t, ContentType, doc.ContentType)
		assert.Contains(t, string(doc.Body), "#"+strconv.Itoa(position))
		assert.Contains(t, string(doc.Body), string(ColorSuccess))
		assert.Contains(t, string(doc.Body), string(ColorLabel))
		assert.NotContains(t, string(doc.Body), NotRankedMessage)
		requireWellFormed(t, doc.Body)
	}
}

func TestRenderNotFound(t *testing.T) {
	doc, err := Render(DefaultLabel, rank.NotFound())
	require.NoError(t, err)

	assert.Equal(t, ContentType, doc.ContentType)
	assert.Contains(t, string(doc.Body), NotRankedMessage)
	assert.Contains(t, string(doc.Body), string(ColorFailure))
	assert.NotContains(t, string(doc.Body), string(ColorSuccess))
	requireWellFormed(t, doc.Body)
}

func TestRenderIsDeterministic(t *testing.T) {
	first, err := Render(DefaultLabel, rank.Found(7))
	require.NoError(t, err)
	second, err := Render(DefaultLabel, rank.Found(7))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(first.Body, second.Body))

	var wg sync.WaitGroup
	results := make([][]byte, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc, err := Render("Ränk ✓", rank.Found(7))
			if err != nil {
				t.Errorf("render: %v", err)
				return
			}
			results[i] = doc.Body
		}(i)
	}
	wg.Wait()
	for i := 1; i < len(results); i++ {
		assert.Equal(t, results[0], results[i])
	}
}

func TestRenderRejectsInvalidRank(t *testing.T) {
	for _, position := range []int{0, -1, -100} {
		doc, err := Render(DefaultLabel, rank.Found(position))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvariantViolation))
		assert.Empty(t, doc.Body)

		var violation *InvariantViolation
		require.True(t, errors.As(err, &violation))
		assert.Equal(t, "rank", violation.Field)
	}
}

func TestSpecForKeepsLabelColorAndStyleConstant(t *testing.T) {
	found, err := SpecFor("label", StyleForTheBadge, rank.Found(3))
	require.NoError(t, err)
	missing, err := SpecFor("label", StyleForTheBadge, rank.NotFound())
	require.NoError(t, err)

	assert.Equal(t, Spec{Label: "label", Message: "#3", Color: ColorSuccess, LabelColor: ColorLabel, Style: StyleForTheBadge}, found)
	assert.Equal(t, Spec{Label: "label", Message: NotRankedMessage, Color: ColorFailure, LabelColor: ColorLabel, Style: StyleForTheBadge}, missing)
}

func TestRenderSpecValidation(t *testing.T) {
	valid := Spec{Label: "l", Message: "m", Color: ColorSuccess, LabelColor: ColorLabel, Style: StyleFlat}

	cases := []struct {
		name   string
		mutate func(*Spec)
		field  string
	}{
		{name: "empty label", mutate: func(s *Spec) { s.Label = " " }, field: "label"},
		{name: "empty message", mutate: func(s *Spec) { s.Message = "" }, field: "message"},
		{name: "bad color", mutate: func(s *Spec) { s.Color = "green" }, field: "color"},
		{name: "bad label color", mutate: func(s *Spec) { s.LabelColor = "#55" }, field: "labelColor"},
		{name: "unknown style", mutate: func(s *Spec) { s.Style = "plastic" }, field: "style"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			spec := valid
			tc.mutate(&spec)
			_, err := RenderSpec(spec)
			var violation *InvariantViolation
			require.True(t, errors.As(err, &violation), "expected InvariantViolation, got %v", err)
			assert.Equal(t, tc.field, violation.Field)
		})
	}

	doc, err := RenderSpec(valid)
	require.NoError(t, err)
	assert.Contains(t, string(doc.Body), `height="20"`)
}

func TestRenderEscapesMarkup(t *testing.T) {
	doc, err := RenderSpec(Spec{
		Label:      `<script>"x"&`,
		Message:    "#1",
		Color:      ColorSuccess,
		LabelColor: ColorLabel,
		Style:      StyleFlat,
	})
	require.NoError(t, err)
	assert.NotContains(t, string(doc.Body), "<script>")
	assert.Contains(t, string(doc.Body), "&lt;script&gt;")
	requireWellFormed(t, doc.Body)
}

func TestForTheBadgeUppercasesDrawnText(t *testing.T) {
	doc, err := Render("Committers", rank.NotFound())
	require.NoError(t, err)
	body := string(doc.Body)
	assert.Contains(t, body, ">COMMITTERS</text>")
	assert.Contains(t, body, ">NOT RANKED</text>")
	assert.Contains(t, body, "<title>Committers: Not ranked</title>")
	assert.Contains(t, body, `height="28"`)
}

func TestWiderMessageWidensBadge(t *testing.T) {
	short := layoutFor(StyleForTheBadge).section("#1", 0)
	long := layoutFor(StyleForTheBadge).section("#1000", 0)
	assert.Greater(t, long.widthPx, short.widthPx)
	assert.Greater(t, short.textTenths, 0)
}

func TestRendererBindsLabelAndStyle(t *testing.T) {
	r, err := NewRenderer("My Rank", StyleFlat)
	require.NoError(t, err)
	assert.Equal(t, "My Rank", r.Label())
	assert.Equal(t, StyleFlat, r.Style())

	doc, err := r.Render(rank.Found(1))
	require.NoError(t, err)
	assert.Contains(t, string(doc.Body), ">My Rank</text>")

	fallback, err := r.Default()
	require.NoError(t, err)
	again, err := r.Render(rank.NotFound())
	require.NoError(t, err)
	assert.Equal(t, fallback, again)

	_, err = NewRenderer("", StyleFlat)
	assert.ErrorIs(t, err, ErrInvariantViolation)
	_, err = NewRenderer("x", "round")
	assert.ErrorIs(t, err, ErrInvariantViolation)
}

func TestParseStyle(t *testing.T) {
	style, err := ParseStyle(" For-The-Badge ")
	require.NoError(t, err)
	assert.Equal(t, StyleForTheBadge, style)

	style, err = ParseStyle("flat")
	require.NoError(t, err)
	assert.Equal(t, StyleFlat, style)
}
