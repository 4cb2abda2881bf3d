// v0
// internal/http/badge.go
package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/jacobtread/Committers/internal/badge"
	"github.com/jacobtread/Committers/internal/metrics"
	"github.com/jacobtread/Committers/internal/rank"
)

// rankLookup is the read side of rank.Index used by the handlers.
type rankLookup interface {
	Lookup(identifier string) rank.Result
}

// badgeRenderer is satisfied by *badge.Renderer.
type badgeRenderer interface {
	Render(result rank.Result) (badge.Document, error)
	Default() (badge.Document, error)
}

// defaultBadgeHandler serves the not-ranked badge without a lookup.
func defaultBadgeHandler(logger *slog.Logger, renderer badgeRenderer, m *metrics.Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		doc, err := renderer.Default()
		if err != nil {
			renderFailed(w, logger, m, "default", err)
			return
		}
		m.IncLookup(metrics.OutcomeDefault)
		writeDocument(w, logger, doc)
	})
}

// rankBadgeHandler looks the identifier up and renders the result. Both
// ranked and unranked identifiers are answered with 200.
func rankBadgeHandler(logger *slog.Logger, index rankLookup, renderer badgeRenderer, m *metrics.Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identifier := mux.Vars(r)["identifier"]
		result := index.Lookup(identifier)
		doc, err := renderer.Render(result)
		if err != nil {
			renderFailed(w, logger, m, identifier, err)
			return
		}
		outcome := metrics.OutcomeUnranked
		if result.IsFound() {
			outcome = metrics.OutcomeRanked
		}
		m.IncLookup(outcome)
		logger.Debug("badge_rendered",
			slog.String("identifier", identifier),
			slog.String("result", result.String()),
		)
		writeDocument(w, logger, doc)
	})
}

func writeDocument(w http.ResponseWriter, logger *slog.Logger, doc badge.Document) {
	w.Header().Set("Content-Type", doc.ContentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Body); err != nil {
		logger.Error("write_response_failed", slog.Any("err", err))
	}
}

// renderFailed only triggers on a corrupted index or renderer, so it is
// logged at error level.
func renderFailed(w http.ResponseWriter, logger *slog.Logger, m *metrics.Metrics, identifier string, err error) {
	m.IncLookup(metrics.OutcomeError)
	logger.Error("badge_render_failed",
		slog.String("identifier", identifier),
		slog.Any("err", err),
	)
	writeText(w, http.StatusInternalServerError, "internal error")
}
