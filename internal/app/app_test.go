// v0
// internal/app/app_test.go
package app

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacobtread/Committers/internal/config"
	"github.com/jacobtread/Committers/internal/dataset"
	"github.com/jacobtread/Committers/internal/rank"
)

const snapshot = `{"title":"New Zealand","min_followers":10,"generated_at":"2024-05-02T15:04:05Z","users":[
	{"login":"alice","commits":10},
	{"login":"spam-bot","commits":900},
	{"login":"bob","commits":50}
]}`

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.ListenAddress = "127.0.0.1:0"
	cfg.LogFilePath = filepath.Join(dir, "logs", "badges.log")
	cfg.DatasetPath = filepath.Join(dir, "output.json")
	cfg.BlacklistPath = filepath.Join(dir, "blacklist.txt")
	cfg.OutputDir = filepath.Join(dir, "public", "badges")
	cfg.ShutdownTimeout = time.Second
	require.NoError(t, os.WriteFile(cfg.DatasetPath, []byte(snapshot), 0o644))
	require.NoError(t, os.WriteFile(cfg.BlacklistPath, []byte("spam-bot\n"), 0o644))
	return cfg
}

func newApp(t *testing.T, cfg config.Config) *Application {
	t.Helper()
	a, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestLoadIndexAppliesBlacklist(t *testing.T) {
	a := newApp(t, testConfig(t))

	index, err := a.LoadIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, index.Len())
	assert.Equal(t, rank.Found(1), index.Lookup("alice"))
	assert.Equal(t, rank.Found(2), index.Lookup("bob"))
	assert.Equal(t, rank.NotFound(), index.Lookup("spam-bot"))
}

func TestLoadIndexRejectsDuplicates(t *testing.T) {
	cfg := testConfig(t)
	dup := `{"users":[{"login":"alice"},{"login":"alice"}]}`
	require.NoError(t, os.WriteFile(cfg.DatasetPath, []byte(dup), 0o644))
	a := newApp(t, cfg)

	_, err := a.LoadIndex(context.Background())
	assert.ErrorIs(t, err, rank.ErrDataIntegrity)
}

func TestGenerateWritesBadges(t *testing.T) {
	cfg := testConfig(t)
	a := newApp(t, cfg)

	report, err := a.Generate(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Written)
	assert.FileExists(t, filepath.Join(cfg.OutputDir, "alice.svg"))
	assert.FileExists(t, filepath.Join(cfg.OutputDir, "404.svg"))
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "spam-bot.svg"))

	other := filepath.Join(t.TempDir(), "out")
	report, err = a.Generate(context.Background(), other, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Written)
	assert.NoFileExists(t, filepath.Join(other, "bob.svg"))
}

func TestPurgeBlacklistRewritesDataset(t *testing.T) {
	cfg := testConfig(t)
	a := newApp(t, cfg)

	removed, err := a.PurgeBlacklist(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	snap, err := dataset.LoadFile(cfg.DatasetPath)
	require.NoError(t, err)
	require.Len(t, snap.Users, 2)
	assert.Equal(t, "bob", snap.Users[0].Login, "purge re-sorts by commits")
	assert.Equal(t, "New Zealand", snap.Title)
}

func TestPurgeBlacklistRequiresFileSource(t *testing.T) {
	cfg := testConfig(t)
	cfg.DatasetSource = config.SourceKafka
	a := newApp(t, cfg)

	_, err := a.PurgeBlacklist(context.Background())
	assert.Error(t, err)
}

func TestServeHandlesRequestsAndShutsDown(t *testing.T) {
	a := newApp(t, testConfig(t))
	index, err := a.LoadIndex(context.Background())
	require.NoError(t, err)
	require.NotNil(t, index)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	server := &http.Server{Handler: handler}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.serve(ctx, server, ln) }()

	require.Eventually(t, a.health.Ready, time.Second, 10*time.Millisecond)
	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("serve did not stop after cancellation")
	}
	assert.False(t, a.health.Ready())
}

func TestServeFailsOnBrokenDataset(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.DatasetPath, []byte(`{"title":"x"}`), 0o644))
	a := newApp(t, cfg)

	err := a.Serve(context.Background())
	assert.True(t, errors.Is(err, dataset.ErrMalformedSnapshot))
}

func TestNewValidatesConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.ListenAddress = ""
	_, err := New(cfg)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.BadgeLabel = " "
	_, err = New(cfg)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.DatasetSource = "redis"
	_, err = New(cfg)
	assert.Error(t, err)
}
