package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrCacheMiss    = errors.New("cache miss")
	ErrCacheExpired = errors.New("cache entry expired")
)

// Kind names a family of cached upstream responses.
type Kind string

const (
	KindMetadata   Kind = "metadata"
	KindTranscript Kind = "transcript"
	KindAudio      Kind = "audio"
)

// TTL is the freshness window for entries of this kind.
func (k Kind) TTL() time.Duration {
	switch k {
	case KindMetadata:
		return 24 * time.Hour
	case KindTranscript:
		return 7 * 24 * time.Hour
	case KindAudio:
		return time.Hour
	default:
		return time.Hour
	}
}

// Key returns hex(sha256("kind:id")).
func Key(kind Kind, id string) string {
	sum := sha256.Sum256([]byte(string(kind) + ":" + id))
	return hex.EncodeToString(sum[:])
}

// Store keeps one JSON file per entry. Freshness is judged by file mtime;
// stale files are left in place until Prune is called.
type Store struct {
	dir string
	now func() time.Time
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "create cache directory")
	}
	return &Store{dir: dir, now: time.Now}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) Path(kind Kind, id string) string {
	return filepath.Join(s.dir, Key(kind, id)+".json")
}

// Get decodes a fresh entry into v. It returns ErrCacheMiss when there is no
// file and ErrCacheExpired when the file is older than ttl.
func (s *Store) Get(kind Kind, id string, ttl time.Duration, v any) error {
	path := s.Path(kind, id)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrCacheMiss
	}
	if err != nil {
		return errors.Wrap(err, "stat cache entry")
	}

	if s.now().Sub(info.ModTime()) >= ttl {
		return ErrCacheExpired
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read cache entry")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrap(err, "decode cache entry")
	}
	return nil
}

// Put writes v through a temp file so readers never see a partial entry.
func (s *Store) Put(kind Kind, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encode cache entry")
	}

	tmp, err := os.CreateTemp(s.dir, ".entry-*")
	if err != nil {
		return errors.Wrap(err, "create temp cache file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "write cache entry")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "close cache entry")
	}
	if err := os.Rename(tmpName, s.Path(kind, id)); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "commit cache entry")
	}
	return nil
}

// Delete removes one entry. Used when a cached value points at something
// that no longer exists.
func (s *Store) Delete(kind Kind, id string) error {
	if err := os.Remove(s.Path(kind, id)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove cache entry")
	}
	return nil
}

type DiskStats struct {
	Entries int       `json:"entries"`
	Bytes   int64     `json:"bytes"`
	Oldest  time.Time `json:"oldest"`
	Newest  time.Time `json:"newest"`
}

func (s *Store) DiskStats() (DiskStats, error) {
	var stats DiskStats
	err := s.walk(func(path string, info os.FileInfo) error {
		stats.Entries++
		stats.Bytes += info.Size()
		mod := info.ModTime()
		if stats.Oldest.IsZero() || mod.Before(stats.Oldest) {
			stats.Oldest = mod
		}
		if mod.After(stats.Newest) {
			stats.Newest = mod
		}
		return nil
	})
	return stats, err
}

// Prune removes entries last written more than olderThan ago.
func (s *Store) Prune(olderThan time.Duration) (int, error) {
	cutoff := s.now().Add(-olderThan)
	removed := 0
	err := s.walk(func(path string, info os.FileInfo) error {
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "remove %s", filepath.Base(path))
		}
		removed++
		return nil
	})
	return removed, err
}

func (s *Store) walk(fn func(path string, info os.FileInfo) error) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return errors.Wrap(err, "read cache directory")
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if err := fn(filepath.Join(s.dir, entry.Name()), info); err != nil {
			return err
		}
	}
	return nil
}
