package cache

import (
	"context"
	"sync/atomic"
	"time"

	apperrors "github.com/nijaru/yt-digest/errors"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Fetcher puts a file cache and a throttle in front of upstream calls.
type Fetcher struct {
	store    *Store
	throttle *Throttle
	logger   *logrus.Logger

	hits     atomic.Int64
	misses   atomic.Int64
	failures atomic.Int64
}

func NewFetcher(store *Store, throttle *Throttle, logger *logrus.Logger) *Fetcher {
	return &Fetcher{
		store:    store,
		throttle: throttle,
		logger:   logger,
	}
}

func (f *Fetcher) Store() *Store {
	return f.store
}

type Stats struct {
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	Failures int64 `json:"failures"`
}

func (f *Fetcher) Stats() Stats {
	return Stats{
		Hits:     f.hits.Load(),
		Misses:   f.misses.Load(),
		Failures: f.failures.Load(),
	}
}

// FetchWithCache returns the cached value for (kind, id) when it is younger
// than ttl. Otherwise it waits for the throttle, calls fetch once and caches
// the result. Failed fetches are classified and never cached.
func FetchWithCache[T any](
	ctx context.Context,
	f *Fetcher,
	kind Kind,
	id string,
	ttl time.Duration,
	fetch func(context.Context) (T, error),
) (T, error) {
	const op = "cache.FetchWithCache"
	var zero T

	logger := f.logger.WithFields(logrus.Fields{
		"kind": kind,
		"id":   id,
	})

	var cached T
	err := f.store.Get(kind, id, ttl, &cached)
	switch {
	case err == nil:
		f.hits.Add(1)
		logger.Debug("Cache hit")
		return cached, nil
	case errors.Is(err, ErrCacheExpired):
		logger.Debug("Cache entry expired")
	case errors.Is(err, ErrCacheMiss):
		logger.Debug("Cache miss")
	default:
		logger.WithError(err).Warn("Unreadable cache entry, refetching")
	}
	f.misses.Add(1)

	if f.throttle != nil {
		if err := f.throttle.Wait(ctx); err != nil {
			return zero, apperrors.Internal(op, err, "Request cancelled while waiting for rate limit")
		}
	}

	value, err := fetch(ctx)
	if err != nil {
		f.failures.Add(1)
		classified := ClassifyError(op, err)
		logger.WithError(classified).Error("Upstream fetch failed")
		return zero, classified
	}

	if err := f.store.Put(kind, id, value); err != nil {
		logger.WithError(err).Warn("Failed to write cache entry")
	}

	return value, nil
}
