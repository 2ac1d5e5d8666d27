package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Mirror receives a copy of every successfully saved ledger file.
type Mirror interface {
	Backup(ctx context.Context, name string, data []byte) error
}

type Options struct {
	Path   string
	Limit  int
	Logger *logrus.Logger
	Mirror Mirror
}

// List is a JSON array on disk holding at most Limit items, newest first.
// Every mutation rewrites the whole file. Writers are serialised by a
// process-local mutex and an exclusive flock on <path>.lock; a write that
// cannot take the flock is skipped. Mirroring happens after both are released.
type List[T any] struct {
	path   string
	limit  int
	logger *logrus.Logger
	mirror Mirror

	mu   sync.Mutex
	lock *flock.Flock
	seq  uint64

	mirrorMu sync.Mutex
	mirrored uint64
}

func NewList[T any](opts Options) *List[T] {
	return &List[T]{
		path:   opts.Path,
		limit:  opts.Limit,
		logger: opts.Logger,
		mirror: opts.Mirror,
		lock:   flock.New(opts.Path + ".lock"),
	}
}

func (l *List[T]) Path() string {
	return l.path
}

func (l *List[T]) Limit() int {
	return l.limit
}

// Load returns the stored items. A missing, unreadable or corrupt file
// yields an empty list.
func (l *List[T]) Load() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read()
}

// Save replaces the stored items. Failures are logged, not returned.
func (l *List[T]) Save(items []T) {
	l.mu.Lock()
	_, seq, data := l.commit(func() []T { return items })
	l.mu.Unlock()

	l.backup(seq, data)
}

// Update applies fn to the current items and saves the result truncated to
// the limit. It returns the new items even when they could not be saved, so
// memory and disk may diverge until the next successful write.
func (l *List[T]) Update(fn func([]T) []T) []T {
	l.mu.Lock()
	items, seq, data := l.commit(func() []T { return fn(l.read()) })
	l.mu.Unlock()

	l.backup(seq, data)
	return items
}

func (l *List[T]) read() []T {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return []T{}
	}
	if err != nil {
		l.logger.WithError(err).WithField("path", l.path).Error("Failed to read ledger")
		return []T{}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []T{}
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		l.logger.WithError(err).WithField("path", l.path).Error("Failed to parse ledger, starting empty")
		return []T{}
	}
	if items == nil {
		items = []T{}
	}
	return items
}

// commit builds the new items under the file lock and writes them. It must
// be called with mu held. The returned bytes are nil when nothing was
// written.
func (l *List[T]) commit(build func() []T) ([]T, uint64, []byte) {
	locked := true
	if err := l.lock.Lock(); err != nil {
		l.logger.WithError(err).WithField("path", l.path).Error("Failed to lock ledger")
		locked = false
	} else {
		defer l.lock.Unlock()
	}

	items := truncate(build(), l.limit)
	if items == nil {
		items = []T{}
	}
	if !locked {
		return items, 0, nil
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		l.logger.WithError(err).WithField("path", l.path).Error("Failed to encode ledger")
		return items, 0, nil
	}

	if err := writeFile(l.path, data); err != nil {
		l.logger.WithError(err).WithField("path", l.path).Error("Failed to save ledger")
		return items, 0, nil
	}

	l.seq++
	return items, l.seq, data
}

// backup uploads a committed snapshot. Snapshots older than the last one
// mirrored are skipped.
func (l *List[T]) backup(seq uint64, data []byte) {
	if l.mirror == nil || data == nil {
		return
	}

	l.mirrorMu.Lock()
	defer l.mirrorMu.Unlock()
	if seq <= l.mirrored {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := l.mirror.Backup(ctx, filepath.Base(l.path), data); err != nil {
		l.logger.WithError(err).WithField("path", l.path).Warn("Failed to mirror ledger")
		return
	}
	l.mirrored = seq
}

func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "create ledger directory")
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return errors.Wrap(err, "create temp ledger file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "write ledger")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "close ledger")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "commit ledger")
	}
	return nil
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
