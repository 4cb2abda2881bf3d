// v0
// internal/generate/generate.go
package generate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/jacobtread/Committers/internal/badge"
	"github.com/jacobtread/Committers/internal/metrics"
	"github.com/jacobtread/Committers/internal/rank"
)

const (
	// DefaultCount is the number of top ranks rendered ahead of time.
	DefaultCount   = 100
	defaultWorkers = 4
	fileExt        = ".svg"
)

// Names of the fallback documents written next to the ranked badges.
const (
	NotFoundFile = "404" + fileExt
	DefaultFile  = "default" + fileExt
)

// Options tunes a generation run.
type Options struct {
	OutDir  string
	Count   int
	Workers int
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Report summarises a run.
type Report struct {
	Written int
	// Skipped lists identifiers that could not be used as file names.
	Skipped []string
}

type topper interface {
	TopN(n int) []rank.Entity
}

type renderer interface {
	Render(result rank.Result) (badge.Document, error)
	Default() (badge.Document, error)
}

// Generator renders the top of the index to static SVG files.
type Generator struct {
	index    topper
	renderer renderer
	opts     Options
	log      *slog.Logger
}

// New validates the options and applies defaults.
func New(index topper, r renderer, opts Options) (*Generator, error) {
	if index == nil {
		return nil, errors.New("rank index must not be nil")
	}
	if r == nil {
		return nil, errors.New("badge renderer must not be nil")
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, errors.New("output directory must not be empty")
	}
	if opts.Count <= 0 {
		opts.Count = DefaultCount
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Generator{
		index:    index,
		renderer: r,
		opts:     opts,
		log:      log.With(slog.String("component", "generate")),
	}, nil
}

// Run writes <out>/<identifier>.svg for every entity in TopN(Count) plus the
// 404.svg and default.svg fallbacks. The first write error cancels the
// remaining work.
func (g *Generator) Run(ctx context.Context) (Report, error) {
	if err := os.MkdirAll(g.opts.OutDir, 0o755); err != nil {
		return Report{}, fmt.Errorf("create output dir: %w", err)
	}

	fallback, err := g.renderer.Default()
	if err != nil {
		return Report{}, fmt.Errorf("render fallback: %w", err)
	}
	for _, name := range []string{NotFoundFile, DefaultFile} {
		if err := g.write(name, fallback); err != nil {
			return Report{}, err
		}
	}

	var (
		written atomic.Int64
		skipped []string
	)
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(g.opts.Workers)

	for _, entity := range g.index.TopN(g.opts.Count) {
		if gctx.Err() != nil {
			break
		}
		if reason := unsafeName(entity.Identifier); reason != "" {
			g.log.Warn("generate_identifier_skipped",
				slog.String("identifier", entity.Identifier),
				slog.Int("rank", entity.Rank),
				slog.String("reason", reason),
			)
			g.opts.Metrics.IncGenerated("skipped")
			skipped = append(skipped, entity.Identifier)
			continue
		}
		entity := entity
		grp.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, err := g.renderer.Render(rank.Found(entity.Rank))
			if err != nil {
				return fmt.Errorf("render %s: %w", entity.Identifier, err)
			}
			if err := g.write(entity.Identifier+fileExt, doc); err != nil {
				return err
			}
			written.Add(1)
			g.opts.Metrics.IncGenerated("written")
			return nil
		})
	}

	err = grp.Wait()
	if err == nil {
		err = ctx.Err()
	}
	sort.Strings(skipped)
	report := Report{Written: int(written.Load()), Skipped: skipped}
	if err != nil {
		g.log.Error("generate_failed", slog.Int("written", report.Written), slog.Any("err", err))
		return report, err
	}
	g.log.Info("generate_completed",
		slog.String("out_dir", g.opts.OutDir),
		slog.Int("written", report.Written),
		slog.Int("skipped", len(report.Skipped)),
	)
	return report, nil
}

func (g *Generator) write(name string, doc badge.Document) error {
	path := filepath.Join(g.opts.OutDir, name)
	if err := os.WriteFile(path, doc.Body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// unsafeName returns why an identifier cannot be used as a file name, or ""
// when it can.
func unsafeName(id string) string {
	switch {
	case id == "":
		return "empty"
	case id == "." || id == "..":
		return "relative path"
	case strings.ContainsAny(id, `/\`+"\x00"):
		return "path separator"
	case id+fileExt == NotFoundFile || id+fileExt == DefaultFile:
		return "reserved name"
	}
	return ""
}
