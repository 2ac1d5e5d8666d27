package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nijaru/yt-digest/cache"
	"github.com/nijaru/yt-digest/config"
	"github.com/nijaru/yt-digest/logger"
	"github.com/nijaru/yt-digest/models"
	"github.com/nijaru/yt-digest/repository/sqlite"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Database: config.DatabaseConfig{
			Path:               filepath.Join(dir, "runs.db"),
			MaxConnections:     1,
			MaxIdleConnections: 1,
			ConnMaxLifetime:    time.Hour,
		},
		Ledger: config.LedgerConfig{
			HistoryPath:  filepath.Join(dir, "history.json"),
			CostsPath:    filepath.Join(dir, "costs.json"),
			HistoryLimit: 100,
			CostsLimit:   1000,
		},
		Cache: config.CacheConfig{Dir: filepath.Join(dir, "cache")},
	}
}

func execute(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(func() (*config.Config, error) { return cfg, nil })
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestHistoryList(t *testing.T) {
	cfg := testConfig(t)

	out, err := execute(t, cfg, "history", "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "History is empty") {
		t.Errorf("unexpected output %q", out)
	}

	l := openLedgers(cfg, logger.Discard(), nil)
	l.history.AddOrReplace(models.HistoryEntry{ID: "older", Title: "Older Video", Method: models.MethodCaptions})
	l.history.AddOrReplace(models.HistoryEntry{ID: "newer", Title: "Newer Video", Method: models.MethodWhisper})

	out, err = execute(t, cfg, "history", "list", "--limit", "1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Newer Video") || strings.Contains(out, "Older Video") {
		t.Errorf("expected only the newest entry, got:\n%s", out)
	}
}

func TestCostsSummary(t *testing.T) {
	cfg := testConfig(t)
	l := openLedgers(cfg, logger.Discard(), nil)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	l.costs.Append(models.NewCostEntry(at, "a", "A", models.MethodWhisper, "en", "gemini", 0.018, 0.002))

	out, err := execute(t, cfg, "costs", "summary")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"2024-05-01", "$0.0180", "$0.0200", "total"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCacheStatsAndPrune(t *testing.T) {
	cfg := testConfig(t)
	store, err := cache.NewStore(cfg.Cache.Dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put(cache.KindMetadata, "old", map[string]string{"a": "b"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(cache.KindMetadata, "fresh", map[string]string{"a": "b"}); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(store.Path(cache.KindMetadata, "old"), past, past); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, cfg, "cache", "stats")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Entries:   2") {
		t.Errorf("unexpected stats output:\n%s", out)
	}

	out, err = execute(t, cfg, "cache", "prune", "--older-than", "24h")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Removed 1 cache entries") {
		t.Errorf("unexpected prune output %q", out)
	}

	if _, err := execute(t, cfg, "cache", "prune", "--older-than", "0s"); err == nil {
		t.Errorf("expected an error for a non-positive age")
	}
}

func TestRunsList(t *testing.T) {
	cfg := testConfig(t)

	out, err := execute(t, cfg, "runs", "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No runs recorded") {
		t.Errorf("unexpected output %q", out)
	}

	db, err := openDB(cfg)
	if err != nil {
		t.Fatal(err)
	}
	repo := sqlite.NewRunRepository(db)
	run := &models.Run{VideoID: "dQw4w9WgXcQ", Source: "youtube", Method: "captions"}
	if err := repo.Start(context.Background(), run); err != nil {
		t.Fatal(err)
	}
	if err := repo.Finish(context.Background(), run.ID, models.RunFailed, "Upstream quota exceeded"); err != nil {
		t.Fatal(err)
	}
	db.Close()

	out, err = execute(t, cfg, "runs", "list", "--limit", "5")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"dQw4w9WgXcQ", "failed", "Upstream quota exceeded"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out, err = execute(t, cfg, "runs", "list", "--video", "dQw4w9WgXcQ")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Upstream quota exceeded") {
		t.Errorf("expected the latest run for the video:\n%s", out)
	}

	out, err = execute(t, cfg, "runs", "list", "--video", "missing")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No runs recorded for missing") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestConfigErrorStopsCommands(t *testing.T) {
	cmd := newRootCommand(func() (*config.Config, error) { return nil, os.ErrPermission })
	cmd.SetArgs([]string{"history", "list"})
	cmd.SetOut(&bytes.Buffer{})
	if err := cmd.Execute(); err != os.ErrPermission {
		t.Errorf("expected the config error, got %v", err)
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"1"}, {"2", "3"}}, []columnAlignment{alignLeft, alignRight})
	if !strings.Contains(out, "A") || !strings.Contains(out, "3") {
		t.Errorf("unexpected table:\n%s", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Errorf("expected no output without headers")
	}
}

func TestHumanBytesAndTruncate(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := humanBytes(tt.n); got != tt.want {
			t.Errorf("humanBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}

	if got := truncateText("short", 10); got != "short" {
		t.Errorf("truncateText kept = %q", got)
	}
	if got := truncateText("a long title here", 6); got != "a lon…" {
		t.Errorf("truncateText = %q", got)
	}
}
