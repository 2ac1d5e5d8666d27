package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nijaru/yt-digest/errors"
	"github.com/nijaru/yt-digest/models"
)

func setupTestDB(t *testing.T) *RunRepository {
	t.Helper()
	db, err := InitDB(filepath.Join(t.TempDir(), "runs.db"), DefaultDBConfig())
	if err != nil {
		t.Fatalf("InitDB() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRunRepository(db)
}

func TestStartAndFinish(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	run := &models.Run{VideoID: "dQw4w9WgXcQ", Source: "youtube", Method: "captions"}
	if err := repo.Start(ctx, run); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if run.ID == "" {
		t.Fatal("expected Start to assign an id")
	}

	if err := repo.Finish(ctx, run.ID, models.RunFailed, "quota exceeded"); err != nil {
		t.Fatalf("Finish() error: %v", err)
	}

	got, err := repo.Latest(ctx, "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Latest() error: %v", err)
	}
	if got.Status != models.RunFailed {
		t.Errorf("expected status failed, got %s", got.Status)
	}
	if got.Error != "quota exceeded" {
		t.Errorf("expected error message to be stored, got %q", got.Error)
	}
	if got.FinishedAt == nil {
		t.Error("expected finished time to be set")
	}
}

func TestFinishUnknownRun(t *testing.T) {
	repo := setupTestDB(t)

	err := repo.Finish(context.Background(), "missing", models.RunCompleted, "")
	if !errors.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestRecentOrder(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc"} {
		run := &models.Run{
			VideoID:   id,
			Source:    "youtube",
			Method:    "captions",
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Start(ctx, run); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := repo.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].VideoID != "ccccccccccc" || runs[1].VideoID != "bbbbbbbbbbb" {
		t.Errorf("expected newest first, got %s, %s", runs[0].VideoID, runs[1].VideoID)
	}
	if runs[0].Status != models.RunProcessing || runs[0].FinishedAt != nil {
		t.Errorf("expected unfinished run, got %+v", runs[0])
	}
}

func TestLatestMissing(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.Latest(context.Background(), "nothing")
	if !errors.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}
