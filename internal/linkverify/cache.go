package linkverify

import (
	"context"
	"sync"
	"time"
)

// CacheEntry represents a cached probe result for one external URL.
type CacheEntry struct {
	URL             string    `json:"url"`
	Status          int       `json:"status"`
	IsValid         bool      `json:"is_valid"`
	Error           string    `json:"error,omitempty"`
	Reason          Reason    `json:"reason,omitempty"`
	LastChecked     time.Time `json:"last_checked"`
	FailureCount    int       `json:"failure_count"`
	FirstFailedAt   time.Time `json:"first_failed_at,omitzero"`
	ConsecutiveFail bool      `json:"consecutive_fail"`
}

// cacheTTL decides how long entries stay valid.
type cacheTTL struct {
	success time.Duration
	failure time.Duration
}

func (t cacheTTL) valid(entry *CacheEntry, now time.Time) bool {
	if entry == nil {
		return false
	}
	ttl := t.failure
	if entry.IsValid {
		ttl = t.success
	}
	return now.Sub(entry.LastChecked) < ttl
}

// PageEntry records a page whose external references were all healthy the
// last time it was scanned. CheckedAt is the oldest check time among those
// references, so a page never stays trusted longer than its stalest link.
type PageEntry struct {
	Path        string    `json:"path"`
	Fingerprint string    `json:"fingerprint"`
	CheckedAt   time.Time `json:"checked_at"`
}

// skipPage reports whether a page with fingerprint can reuse entry instead of
// probing its external references again.
func (t cacheTTL) skipPage(entry *PageEntry, fingerprint string, now time.Time) bool {
	return entry != nil && entry.Fingerprint == fingerprint && now.Sub(entry.CheckedAt) < t.success
}

type cacheClient interface {
	GetCachedResult(ctx context.Context, url string) (*CacheEntry, error)
	SetCachedResult(ctx context.Context, entry *CacheEntry) error
	GetPageEntry(ctx context.Context, path string) (*PageEntry, error)
	SetPageEntry(ctx context.Context, entry *PageEntry) error
	PublishBrokenLink(ctx context.Context, event *BrokenLinkEvent) error
	Close() error
}

// memoryCache is the default cache. It lives for the process, so watch-mode
// rebuilds reuse probe results.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]*CacheEntry
	pages   map[string]PageEntry
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]*CacheEntry{}, pages: map[string]PageEntry{}}
}

func (m *memoryCache) GetCachedResult(_ context.Context, url string) (*CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[url]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (m *memoryCache) SetCachedResult(_ context.Context, entry *CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *entry
	m.entries[entry.URL] = &cp
	return nil
}

func (m *memoryCache) GetPageEntry(_ context.Context, path string) (*PageEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.pages[path]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *memoryCache) SetPageEntry(_ context.Context, entry *PageEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[entry.Path] = *entry
	return nil
}

func (m *memoryCache) PublishBrokenLink(context.Context, *BrokenLinkEvent) error { return nil }

func (m *memoryCache) Close() error { return nil }
