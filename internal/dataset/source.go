// v0
// internal/dataset/source.go
package dataset

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Loader fetches the current leaderboard snapshot.
type Loader interface {
	Load(ctx context.Context) (Snapshot, error)
}

// FileSource loads the snapshot from a file on disk.
type FileSource struct {
	Path   string
	Logger *slog.Logger
}

// Load implements Loader.
func (f FileSource) Load(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	if strings.TrimSpace(f.Path) == "" {
		return Snapshot{}, errors.New("snapshot path must not be empty")
	}

	started := time.Now()
	snap, err := LoadFile(f.Path)
	if err != nil {
		return Snapshot{}, err
	}
	loggerOrDiscard(f.Logger).Info("dataset_file_loaded",
		slog.String("path", f.Path),
		slog.String("title", snap.Title),
		slog.Int("users", len(snap.Users)),
		slog.Time("generated_at", snap.GeneratedAt),
		slog.String("duration", time.Since(started).String()),
	)
	return snap, nil
}

// BlacklistFilter wraps a Loader and drops the logins listed in the
// blacklist file. The file is re-read on every Load so edits apply to the
// next reload.
type BlacklistFilter struct {
	Next   Loader
	Path   string
	Logger *slog.Logger
}

// Load implements Loader.
func (b BlacklistFilter) Load(ctx context.Context) (Snapshot, error) {
	if b.Next == nil {
		return Snapshot{}, errors.New("blacklist filter has no source")
	}
	snap, err := b.Next.Load(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	blacklist, err := ReadBlacklist(b.Path)
	if err != nil {
		return Snapshot{}, err
	}
	before := len(snap.Users)
	snap = snap.Exclude(blacklist)
	if removed := before - len(snap.Users); removed > 0 {
		loggerOrDiscard(b.Logger).Info("dataset_blacklist_applied",
			slog.String("path", b.Path),
			slog.Int("removed", removed),
		)
	}
	return snap, nil
}

func loggerOrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return l
}
