package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/goliatone/go-erp-bridge/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const activityCacheKeyPrefix = "erp-bridge::activity_page::v1"

type ActivityLog interface {
	core.ActivitySink
	core.ActivityReader
}

// CachedActivityStore wraps the sql-backed store with read-through caching
// for list pages. Writes bump a generation counter instead of enumerating
// cached filter keys, so stale pages simply become unreachable.
type CachedActivityStore struct {
	base       ActivityLog
	cache      repositorycache.CacheService
	generation atomic.Int64
}

func NewCachedActivityStore(base ActivityLog, cacheService repositorycache.CacheService) (*CachedActivityStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base activity store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: activity cache service is required")
	}
	return &CachedActivityStore{base: base, cache: cacheService}, nil
}

func (s *CachedActivityStore) Record(ctx context.Context, entry core.ActivityEntry) error {
	if s == nil || s.base == nil {
		return fmt.Errorf("sqlstore: cached activity store is not configured")
	}
	if err := s.base.Record(ctx, entry); err != nil {
		return err
	}
	s.generation.Add(1)
	return nil
}

func (s *CachedActivityStore) List(ctx context.Context, filter core.ActivityFilter) (core.ActivityPage, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.ActivityPage{}, fmt.Errorf("sqlstore: cached activity store is not configured")
	}
	cacheKey := s.cacheKey(filter)
	return repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.ActivityPage, error) {
		return s.base.List(ctx, filter)
	})
}

func (s *CachedActivityStore) cacheKey(filter core.ActivityFilter) string {
	segments := []string{
		fmt.Sprintf("g%d", s.generation.Load()),
		url.PathEscape(strings.TrimSpace(filter.Action)),
		url.PathEscape(strings.TrimSpace(filter.Status)),
		fmt.Sprintf("p%d", filter.Page),
		fmt.Sprintf("pp%d", filter.PerPage),
	}
	if filter.From != nil {
		segments = append(segments, fmt.Sprintf("f%d", filter.From.UTC().Unix()))
	}
	if filter.To != nil {
		segments = append(segments, fmt.Sprintf("t%d", filter.To.UTC().Unix()))
	}
	return strings.Join(append([]string{activityCacheKeyPrefix}, segments...), "::")
}

var (
	_ core.ActivitySink   = (*CachedActivityStore)(nil)
	_ core.ActivityReader = (*CachedActivityStore)(nil)
)
