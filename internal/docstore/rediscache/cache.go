// Package rediscache wraps a docstore.Store with a Redis read-through cache
// for single-document reads.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/vbonduro/sitecheck/internal/docstore"
)

const (
	keyPrefix = "sitecheck:doc:"
	genPrefix = "sitecheck:gen:"
	// genTTL bounds how long a generation counter outlives its last write.
	genTTL = 24 * time.Hour
)

var errStaleFill = errors.New("document changed during read")

// Store caches Get results. Writes and deletes go to the inner store first and
// then drop the cached copy and bump the path's generation counter. A read only
// fills the cache if the generation it saw before reading the inner store is
// still current, so a write racing with a read cannot leave the old value
// cached. Redis failures are logged and never fail a call.
type Store struct {
	inner  docstore.Store
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func New(inner docstore.Store, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Store {
	return &Store{inner: inner, client: client, ttl: ttl, logger: logger}
}

func (s *Store) Get(ctx context.Context, path string) (*docstore.Snapshot, error) {
	key := keyPrefix + path

	raw, err := s.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var snap docstore.Snapshot
		if err := json.Unmarshal(raw, &snap); err == nil {
			return &snap, nil
		}
		s.logger.Warn("discarding corrupt cache entry", "path", path)
	case !errors.Is(err, redis.Nil):
		s.logger.Warn("cache read failed", "path", path, "error", err)
		return s.inner.Get(ctx, path)
	}

	gen, err := generation(ctx, s.client, path)
	if err != nil {
		s.logger.Warn("cache read failed", "path", path, "error", err)
		return s.inner.Get(ctx, path)
	}

	snap, err := s.inner.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	s.fill(ctx, path, gen, snap)
	return snap, nil
}

// fill caches snap unless path was written since gen was read.
func (s *Store) fill(ctx context.Context, path, gen string, snap *docstore.Snapshot) {
	encoded, err := json.Marshal(snap)
	if err != nil {
		s.logger.Warn("failed to encode cache entry", "path", path, "error", err)
		return
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := generation(ctx, tx, path)
		if err != nil {
			return err
		}
		if current != gen {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, keyPrefix+path, encoded, s.ttl)
			return nil
		})
		return err
	}, genPrefix+path)

	switch {
	case err == nil:
	case errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
		s.logger.Debug("skipping cache fill for concurrently written document", "path", path)
	default:
		s.logger.Warn("cache write failed", "path", path, "error", err)
	}
}

func (s *Store) Set(ctx context.Context, path string, data map[string]any, merge bool) error {
	if err := s.inner.Set(ctx, path, data, merge); err != nil {
		return err
	}
	s.invalidate(ctx, path)
	return nil
}

// Query is not cached.
func (s *Store) Query(ctx context.Context, collection string, q docstore.Query) ([]*docstore.Snapshot, error) {
	return s.inner.Query(ctx, collection, q)
}

func (s *Store) Delete(ctx context.Context, path string) error {
	if err := s.inner.Delete(ctx, path); err != nil {
		return err
	}
	s.invalidate(ctx, path)
	return nil
}

func (s *Store) invalidate(ctx context.Context, path string) {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keyPrefix+path)
		pipe.Incr(ctx, genPrefix+path)
		pipe.Expire(ctx, genPrefix+path, genTTL)
		return nil
	})
	if err != nil {
		s.logger.Warn("cache invalidation failed", "path", path, "error", err)
	}
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// generation returns the write counter of path, "" if it was never written.
func generation(ctx context.Context, c stringGetter, path string) (string, error) {
	gen, err := c.Get(ctx, genPrefix+path).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return gen, err
}
