package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// fakeBucket is a path-style S3 endpoint backed by a map.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.TrimPrefix(r.URL.Path, "/")
	switch r.Method {
	case http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.objects[key] = data
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		data, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Write(data)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestClient(t *testing.T) (*SpacesClient, *fakeBucket) {
	t.Helper()
	bucket := &fakeBucket{objects: make(map[string][]byte)}
	srv := httptest.NewServer(bucket)
	t.Cleanup(srv.Close)

	client, err := NewSpacesClient(context.Background(), SpacesConfig{
		AccessKey: "test",
		SecretKey: "test",
		Region:    "us-east-1",
		Endpoint:  srv.URL,
		Bucket:    "ledgers",
		Prefix:    "yt-digest",
	})
	if err != nil {
		t.Fatalf("NewSpacesClient() error: %v", err)
	}
	return client, bucket
}

func TestBackupAndRestore(t *testing.T) {
	client, bucket := newTestClient(t)
	ctx := context.Background()

	if err := client.Backup(ctx, "history.json", []byte(`[]`)); err != nil {
		t.Fatalf("Backup() error: %v", err)
	}
	if _, ok := bucket.objects["ledgers/yt-digest/history.json"]; !ok {
		t.Fatalf("expected object under prefix, have %v", bucket.objects)
	}

	data, err := client.Restore(ctx, "history.json")
	if err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("unexpected restored data %q", data)
	}
}

func TestRestoreFile(t *testing.T) {
	client, bucket := newTestClient(t)
	bucket.objects["ledgers/yt-digest/costs.json"] = []byte(`[{"videoId":"a"}]`)

	dir := t.TempDir()
	local := filepath.Join(dir, "costs.json")

	restored, err := client.RestoreFile(context.Background(), local)
	if err != nil {
		t.Fatalf("RestoreFile() error: %v", err)
	}
	if !restored {
		t.Fatal("expected file to be restored")
	}
	data, _ := os.ReadFile(local)
	if string(data) != `[{"videoId":"a"}]` {
		t.Errorf("unexpected file content %q", data)
	}

	// An existing file is left alone.
	os.WriteFile(local, []byte("[]"), 0644)
	restored, err = client.RestoreFile(context.Background(), local)
	if err != nil || restored {
		t.Errorf("expected no restore over existing file, got %v, %v", restored, err)
	}
}

func TestRestoreFileMissingObject(t *testing.T) {
	client, _ := newTestClient(t)

	restored, err := client.RestoreFile(context.Background(), filepath.Join(t.TempDir(), "history.json"))
	if err != nil {
		t.Fatalf("expected missing backup to be ignored, got %v", err)
	}
	if restored {
		t.Error("expected nothing to be restored")
	}
}
