package sqlstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-erp-bridge/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

type stubActivityLog struct {
	mu        sync.Mutex
	entries   []core.ActivityEntry
	listCalls int
}

func (s *stubActivityLog) Record(_ context.Context, entry core.ActivityEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubActivityLog) List(_ context.Context, _ core.ActivityFilter) (core.ActivityPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	return core.ActivityPage{
		Items: append([]core.ActivityEntry(nil), s.entries...),
		Total: len(s.entries),
	}, nil
}

func newTestActivityCacheService(t *testing.T) repositorycache.CacheService {
	t.Helper()
	config := repositorycache.DefaultConfig()
	config.TTL = time.Minute
	service, err := repositorycache.NewCacheService(config)
	if err != nil {
		t.Fatalf("new cache service: %v", err)
	}
	return service
}

func TestCachedActivityStore_List_MissFetchThenHit(t *testing.T) {
	base := &stubActivityLog{}
	store, err := NewCachedActivityStore(base, newTestActivityCacheService(t))
	if err != nil {
		t.Fatalf("new cached activity store: %v", err)
	}

	filter := core.ActivityFilter{Action: "get_models", Page: 1, PerPage: 10}
	if _, err := store.List(context.Background(), filter); err != nil {
		t.Fatalf("first list: %v", err)
	}
	if base.listCalls != 1 {
		t.Fatalf("expected first list to hit base store, got %d calls", base.listCalls)
	}

	if _, err := store.List(context.Background(), filter); err != nil {
		t.Fatalf("second list: %v", err)
	}
	if base.listCalls != 1 {
		t.Fatalf("expected second list to be a cache hit, base calls=%d", base.listCalls)
	}
}

func TestCachedActivityStore_Record_InvalidatesPages(t *testing.T) {
	base := &stubActivityLog{}
	store, err := NewCachedActivityStore(base, newTestActivityCacheService(t))
	if err != nil {
		t.Fatalf("new cached activity store: %v", err)
	}

	filter := core.ActivityFilter{Page: 1, PerPage: 10}
	if _, err := store.List(context.Background(), filter); err != nil {
		t.Fatalf("prime cache: %v", err)
	}

	if err := store.Record(context.Background(), core.ActivityEntry{
		Action: "test_connection",
		Status: core.ActivityStatusOK,
	}); err != nil {
		t.Fatalf("record through cached store: %v", err)
	}

	page, err := store.List(context.Background(), filter)
	if err != nil {
		t.Fatalf("list after record: %v", err)
	}
	if base.listCalls != 2 {
		t.Fatalf("expected record to invalidate cached pages, base calls=%d", base.listCalls)
	}
	if page.Total != 1 {
		t.Fatalf("expected the new entry to be visible, total=%d", page.Total)
	}
}

func TestCachedActivityStore_KeyVariesByFilter(t *testing.T) {
	base := &stubActivityLog{}
	store, err := NewCachedActivityStore(base, newTestActivityCacheService(t))
	if err != nil {
		t.Fatalf("new cached activity store: %v", err)
	}

	first := store.cacheKey(core.ActivityFilter{Action: "get_models", Page: 1, PerPage: 10})
	second := store.cacheKey(core.ActivityFilter{Action: "get_user_info", Page: 1, PerPage: 10})
	if first == second {
		t.Fatal("expected distinct cache keys for distinct filters")
	}
}
