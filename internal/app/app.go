// v0
// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jacobtread/Committers/internal/badge"
	"github.com/jacobtread/Committers/internal/circuitbreaker"
	"github.com/jacobtread/Committers/internal/config"
	"github.com/jacobtread/Committers/internal/dataset"
	"github.com/jacobtread/Committers/internal/generate"
	httpserver "github.com/jacobtread/Committers/internal/http"
	"github.com/jacobtread/Committers/internal/metrics"
	"github.com/jacobtread/Committers/internal/rank"
)

// snapshotBreaker names the breaker guarding the Kafka snapshot feed.
const snapshotBreaker = "snapshot_feed"

// Application wires configuration, logging, the dataset loader and the
// badge renderer. Serve, Generate and PurgeBlacklist are the three entry
// points used by the CLI.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	logFile  *os.File
	metrics  *metrics.Metrics
	loader   dataset.Loader
	closers  []io.Closer
	renderer *badge.Renderer
	health   *httpserver.HealthState
}

// New validates the configuration, opens the log file and prepares the
// dataset loader selected by dataset_source.
func New(cfg config.Config) (*Application, error) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		return nil, errors.New("listen address cannot be empty")
	}
	logPath := filepath.Clean(cfg.LogFilePath)
	if logPath == "" || logPath == "." {
		return nil, errors.New("log file path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	lf, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	renderer, err := badge.NewRenderer(cfg.BadgeLabel, cfg.BadgeStyle)
	if err != nil {
		_ = lf.Close()
		return nil, fmt.Errorf("badge renderer init: %w", err)
	}

	a := &Application{
		cfg:      cfg,
		logger:   newLogger(lf),
		logFile:  lf,
		metrics:  metrics.New(),
		renderer: renderer,
		health:   httpserver.NewHealthState(),
	}
	if err := a.buildLoader(); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *Application) buildLoader() error {
	logger := a.logger.With(slog.String("component", "dataset"))

	var base dataset.Loader
	switch a.cfg.DatasetSource {
	case config.SourceKafka:
		breaker := circuitbreaker.New(snapshotBreaker, circuitbreaker.Config{
			MaxFailures:  a.cfg.BreakerMaxFailures,
			ResetTimeout: a.cfg.BreakerResetTimeout,
		}, logger, circuitbreaker.WithStateListener(func(name string, state circuitbreaker.State) {
			a.metrics.SetBreakerState(name, float64(state))
		}))
		src, err := dataset.NewKafkaSource(dataset.KafkaConfig{
			Brokers:     a.cfg.KafkaBrokers,
			Topic:       a.cfg.SnapshotTopic,
			PollTimeout: a.cfg.KafkaPollTimeout,
		}, breaker, logger)
		if err != nil {
			return fmt.Errorf("kafka snapshot source init: %w", err)
		}
		a.closers = append(a.closers, src)
		base = src
		logger.Info("dataset_source_configured",
			slog.String("source", config.SourceKafka),
			slog.String("topic", a.cfg.SnapshotTopic),
			slog.String("brokers", strings.Join(a.cfg.KafkaBrokers, ",")),
			slog.Duration("pollTimeout", a.cfg.KafkaPollTimeout),
		)
	case config.SourceFile, "":
		base = dataset.FileSource{Path: a.cfg.DatasetPath, Logger: logger}
		logger.Info("dataset_source_configured",
			slog.String("source", config.SourceFile),
			slog.String("path", a.cfg.DatasetPath),
		)
	default:
		return fmt.Errorf("unsupported dataset source %q", a.cfg.DatasetSource)
	}

	if a.cfg.BlacklistPath != "" {
		base = dataset.BlacklistFilter{Next: base, Path: a.cfg.BlacklistPath, Logger: logger}
	}
	a.loader = base
	return nil
}

// Logger exposes the configured slog logger.
func (a *Application) Logger() *slog.Logger {
	return a.logger
}

// LoadIndex fetches the snapshot and builds the rank index from it. A
// dataset with duplicate identifiers or malformed ranks is rejected.
func (a *Application) LoadIndex(ctx context.Context) (*rank.Index, error) {
	started := time.Now()
	snap, err := a.loader.Load(ctx)
	if err != nil {
		a.metrics.DatasetLoaded(a.cfg.DatasetSource, 0, err)
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	index, err := rank.Build(snap.Entities())
	if err != nil {
		a.metrics.DatasetLoaded(a.cfg.DatasetSource, 0, err)
		a.logger.Error("dataset_integrity_failed", slog.Any("err", err))
		return nil, fmt.Errorf("build rank index: %w", err)
	}
	a.metrics.DatasetLoaded(a.cfg.DatasetSource, index.Len(), nil)
	a.logger.Info("dataset_loaded",
		slog.String("source", a.cfg.DatasetSource),
		slog.String("title", snap.Title),
		slog.Int("entities", index.Len()),
		slog.String("duration", time.Since(started).String()),
	)
	return index, nil
}

// Serve loads the index, then serves badges until ctx is cancelled or the
// server fails. Readiness is raised once the listener is bound.
func (a *Application) Serve(ctx context.Context) error {
	index, err := a.LoadIndex(ctx)
	if err != nil {
		return err
	}
	handler, err := httpserver.NewHandler(httpserver.Options{
		Logger:   a.logger,
		Health:   a.health,
		Index:    index,
		Renderer: a.renderer,
		Metrics:  a.metrics,
	})
	if err != nil {
		return fmt.Errorf("http handler init: %w", err)
	}
	server := &http.Server{
		Addr:              a.cfg.ListenAddress,
		Handler:           handler,
		ReadTimeout:       a.cfg.HTTPReadTimeout,
		ReadHeaderTimeout: a.cfg.HTTPReadTimeout,
		WriteTimeout:      a.cfg.HTTPWriteTimeout,
		IdleTimeout:       a.cfg.HTTPWriteTimeout,
	}

	ln, err := net.Listen("tcp", a.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return a.serve(ctx, server, ln)
}

func (a *Application) serve(ctx context.Context, server *http.Server, ln net.Listener) error {
	httpCh := make(chan error, 1)
	go func() {
		a.health.SetReady(true)
		a.logger.Info("http_server_listen", slog.String("address", ln.Addr().String()))
		httpCh <- server.Serve(ln)
	}()

	select {
	case err := <-httpCh:
		a.health.SetReady(false)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http_server_error", slog.Any("err", err))
			return err
		}
		a.logger.Info("server_closed")
		return nil
	case <-ctx.Done():
		a.logger.Info("shutdown_signal")
		a.health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		var shutdownErr error
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("server_shutdown_failed", slog.Any("err", err))
			shutdownErr = fmt.Errorf("shutdown: %w", err)
		}
		if err := <-httpCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("server_shutdown_error", slog.Any("err", err))
			if shutdownErr == nil {
				shutdownErr = err
			}
		}
		if shutdownErr != nil {
			return shutdownErr
		}
		a.logger.Info("shutdown_complete")
		return nil
	}
}

// Generate pre-renders the top count badges into outDir. Zero values fall
// back to the configured eager_count and output_dir.
func (a *Application) Generate(ctx context.Context, outDir string, count int) (generate.Report, error) {
	if outDir == "" {
		outDir = a.cfg.OutputDir
	}
	if count <= 0 {
		count = a.cfg.EagerCount
	}
	index, err := a.LoadIndex(ctx)
	if err != nil {
		return generate.Report{}, err
	}
	gen, err := generate.New(index, a.renderer, generate.Options{
		OutDir:  outDir,
		Count:   count,
		Workers: a.cfg.GenerateWorkers,
		Logger:  a.logger,
		Metrics: a.metrics,
	})
	if err != nil {
		return generate.Report{}, err
	}
	return gen.Run(ctx)
}

// PurgeBlacklist rewrites the dataset file without blacklisted logins and
// returns how many users were removed. Only file datasets can be purged.
func (a *Application) PurgeBlacklist(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if a.cfg.DatasetSource != config.SourceFile {
		return 0, fmt.Errorf("blacklist purge requires a file dataset, got %q", a.cfg.DatasetSource)
	}
	snap, err := dataset.LoadFile(a.cfg.DatasetPath)
	if err != nil {
		return 0, fmt.Errorf("load dataset: %w", err)
	}
	blacklist, err := dataset.ReadBlacklist(a.cfg.BlacklistPath)
	if err != nil {
		return 0, err
	}
	purged := snap.PurgeBlacklisted(blacklist)
	if err := dataset.WriteFile(a.cfg.DatasetPath, purged); err != nil {
		return 0, err
	}
	removed := len(snap.Users) - len(purged.Users)
	a.logger.Info("dataset_blacklist_purged",
		slog.String("path", a.cfg.DatasetPath),
		slog.String("blacklist", a.cfg.BlacklistPath),
		slog.Int("removed", removed),
		slog.Int("remaining", len(purged.Users)),
	)
	return removed, nil
}

// Close releases the loader resources and the log file.
func (a *Application) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil {
			errs = append(errs, err)
		}
		a.logFile = nil
	}
	return errors.Join(errs...)
}
