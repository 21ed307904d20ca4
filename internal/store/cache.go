// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Lingesh-S/multi-agent-blog-generator/pkg/types"
)

// SearchCache is the search result cache backed by the search_cache table.
// It satisfies search.Cache.
type SearchCache struct {
	s *Store
}

// SearchCache returns the store's search result cache.
func (s *Store) SearchCache() *SearchCache { return &SearchCache{s: s} }

// Get returns the cached results for key. Expired entries are deleted and
// reported as a miss; database errors are logged and reported as a miss.
func (c *SearchCache) Get(ctx context.Context, key string) ([]types.Source, bool) {
	var (
		data    string
		created int64
	)
	err := c.s.db.QueryRowContext(ctx,
		`SELECT results, created_at FROM search_cache WHERE key = ?`, key,
	).Scan(&data, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		c.s.logger.Warn("cache read failed", zap.Error(err))
		return nil, false
	}

	if ttl := c.s.opts.CacheTTL; ttl > 0 && now().UnixNano()-created > ttl.Nanoseconds() {
		if _, err := c.s.db.ExecContext(ctx, `DELETE FROM search_cache WHERE key = ?`, key); err != nil {
			c.s.logger.Warn("cache expiry failed", zap.Error(err))
		}
		return nil, false
	}

	var results []types.Source
	if err := json.Unmarshal([]byte(data), &results); err != nil {
		c.s.logger.Warn("cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return results, true
}

// Put stores results under key and evicts the oldest entries beyond the
// configured maximum size.
func (c *SearchCache) Put(ctx context.Context, key string, results []types.Source) error {
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}
	if _, err := c.s.db.ExecContext(ctx,
		`INSERT INTO search_cache (key, results, created_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET results = excluded.results, created_at = excluded.created_at`,
		key, string(data), now().UnixNano(),
	); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}

	if max := c.s.opts.CacheMaxSize; max > 0 {
		if _, err := c.s.db.ExecContext(ctx,
			`DELETE FROM search_cache WHERE key IN (
				SELECT key FROM search_cache ORDER BY created_at DESC, rowid DESC LIMIT -1 OFFSET ?
			)`, max,
		); err != nil {
			return fmt.Errorf("evicting cache entries: %w", err)
		}
	}
	return nil
}

// Len returns the number of cached queries.
func (c *SearchCache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.s.db.QueryRowContext(ctx, `SELECT count(*) FROM search_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting cache entries: %w", err)
	}
	return n, nil
}

// Purge removes every cached query.
func (c *SearchCache) Purge(ctx context.Context) error {
	if _, err := c.s.db.ExecContext(ctx, `DELETE FROM search_cache`); err != nil {
		return fmt.Errorf("purging cache: %w", err)
	}
	return nil
}
