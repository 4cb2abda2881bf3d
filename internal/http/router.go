// v2
// internal/http/router.go
package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/jacobtread/Committers/internal/metrics"
)

// Route names double as metric labels.
const (
	routeBadgeDefault = "badge_default"
	routeBadge        = "badge"
	routeHealth       = "health"
	routeMetrics      = "metrics"
	routeUnmatched    = "unmatched"
)

// Options carries the collaborators required by the router.
type Options struct {
	Logger   *slog.Logger
	Health   *HealthState
	Index    rankLookup
	Renderer badgeRenderer
	Metrics  *metrics.Metrics
}

func (o Options) validate() error {
	switch {
	case o.Logger == nil:
		return errors.New("logger must not be nil")
	case o.Health == nil:
		return errors.New("health state must not be nil")
	case o.Index == nil:
		return errors.New("rank index must not be nil")
	case o.Renderer == nil:
		return errors.New("badge renderer must not be nil")
	}
	return nil
}

// NewRouter wires the badge, health and metrics routes. The literal
// /badge/default route is registered before the identifier route so it can
// never be shadowed by a user named "default". The /badges/<name>.svg
// aliases keep the paths used by statically generated sites working.
func NewRouter(opts Options) (*mux.Router, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger.With(slog.String("component", "http"))

	r := mux.NewRouter()
	def := defaultBadgeHandler(logger, opts.Renderer, opts.Metrics)
	lookup := rankBadgeHandler(logger, opts.Index, opts.Renderer, opts.Metrics)

	r.Handle("/badge/default", def).Methods(http.MethodGet).Name(routeBadgeDefault)
	r.Handle("/badge/{identifier}", lookup).Methods(http.MethodGet).Name(routeBadge)
	r.Handle("/badges/default.svg", def).Methods(http.MethodGet)
	r.Handle("/badges/404.svg", def).Methods(http.MethodGet)
	r.Handle("/badges/{identifier}.svg", lookup).Methods(http.MethodGet)

	r.Handle("/health", healthLiveHandler()).Methods(http.MethodGet).Name(routeHealth)
	r.Handle("/health/live", healthLiveHandler()).Methods(http.MethodGet)
	r.Handle("/health/ready", healthReadyHandler(opts.Health)).Methods(http.MethodGet)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics.Handler()).Methods(http.MethodGet).Name(routeMetrics)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeText(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Allow", http.MethodGet)
		writeText(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r, nil
}

// NewHandler returns the router decorated with request ids, access logging,
// metrics and panic recovery.
func NewHandler(opts Options) (http.Handler, error) {
	router, err := NewRouter(opts)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger.With(slog.String("component", "http"))

	var h http.Handler = router
	h = WrapWithLogging(logger, opts.Metrics, router, h)
	h = WithRequestID(h)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{logger: logger}),
		handlers.PrintRecoveryStack(false),
	)(h)
	return h, nil
}

func healthLiveHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeText(w, http.StatusOK, "OK")
	})
}

func healthReadyHandler(health *HealthState) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if !health.Ready() {
			writeText(w, http.StatusServiceUnavailable, "NOT_READY")
			return
		}
		writeText(w, http.StatusOK, "OK")
	})
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
