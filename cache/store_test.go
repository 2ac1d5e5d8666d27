package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestKey(t *testing.T) {
	key := Key(KindMetadata, "dQw4w9WgXcQ")
	if len(key) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(key))
	}
	if key != Key(KindMetadata, "dQw4w9WgXcQ") {
		t.Errorf("key is not deterministic")
	}
	if key == Key(KindTranscript, "dQw4w9WgXcQ") {
		t.Errorf("different kinds must produce different keys")
	}
	if got := Key(KindMetadata, "abc"); got != "5934f7174d65dca40716e20ee71d13ca7c9365e7276f5d4a36d24488ae76a886" {
		t.Errorf("unexpected key for metadata:abc: %s", got)
	}
}

func TestKindTTL(t *testing.T) {
	tests := []struct {
		kind Kind
		ttl  time.Duration
	}{
		{KindMetadata, 24 * time.Hour},
		{KindTranscript, 7 * 24 * time.Hour},
		{KindAudio, time.Hour},
	}
	for _, tt := range tests {
		if got := tt.kind.TTL(); got != tt.ttl {
			t.Errorf("%s TTL = %s, want %s", tt.kind, got, tt.ttl)
		}
	}
}

func TestStoreGetPut(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	var out map[string]string
	if err := store.Get(KindMetadata, "v1", time.Hour, &out); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}

	if err := store.Put(KindMetadata, "v1", map[string]string{"title": "hello"}); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	path := store.Path(KindMetadata, "v1")
	if !strings.HasSuffix(path, Key(KindMetadata, "v1")+".json") {
		t.Errorf("unexpected cache path %s", path)
	}

	if err := store.Get(KindMetadata, "v1", time.Hour, &out); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if out["title"] != "hello" {
		t.Errorf("expected title hello, got %q", out["title"])
	}
}

func TestStoreExpiredEntryIsKept(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put(KindAudio, "v1", "path.mp3"); err != nil {
		t.Fatal(err)
	}

	old := time.Now().Add(-2 * time.Hour)
	path := store.Path(KindAudio, "v1")
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}

	var out string
	if err := store.Get(KindAudio, "v1", time.Hour, &out); !errors.Is(err, ErrCacheExpired) {
		t.Fatalf("expected ErrCacheExpired, got %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("stale entry should not be deleted: %v", err)
	}
}

func TestStorePruneAndStats(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{"a", "b", "c"} {
		if err := store.Put(KindMetadata, id, id); err != nil {
			t.Fatal(err)
		}
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(store.Path(KindMetadata, "a"), old, old); err != nil {
		t.Fatal(err)
	}
	// Unrelated files are ignored.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	stats, err := store.DiskStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Entries != 3 {
		t.Errorf("expected 3 entries, got %d", stats.Entries)
	}

	removed, err := store.Prune(24 * time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("expected 1 pruned entry, got %d", removed)
	}
	if _, err := os.Stat(store.Path(KindMetadata, "a")); !os.IsNotExist(err) {
		t.Errorf("expected pruned entry to be gone")
	}
}

func TestStoreDelete(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put(KindAudio, "abc", "/tmp/abc.mp3"); err != nil {
		t.Fatal(err)
	}

	if err := store.Delete(KindAudio, "abc"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	var path string
	if err := store.Get(KindAudio, "abc", time.Hour, &path); err != ErrCacheMiss {
		t.Errorf("expected miss after delete, got %v", err)
	}
	if err := store.Delete(KindAudio, "abc"); err != nil {
		t.Errorf("deleting a missing entry should succeed, got %v", err)
	}
}
