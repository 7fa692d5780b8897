package seswi

import (
	"context"
	"strings"
	"sync"
	"time"

	"seswi-go/internal/domain"
)

// DefaultTabInfoTTL is how long a tab lookup is reused.
const DefaultTabInfoTTL = 400 * time.Millisecond

// Domains reported for tabs that cannot hold a session.
const (
	BrowserPageDomain = "chrome://"
	UnknownDomain     = "unknown"
)

// TabInfo is the active tab with its registrable domain.
type TabInfo struct {
	Domain string `json:"domain"`
	URL    string `json:"url"`
	TabID  string `json:"tabId"`
}

// TabInfoCache coalesces bursts of active-tab lookups. Entries expire after
// the TTL and are never invalidated otherwise, so results may be stale.
type TabInfoCache struct {
	tabs       TabQuerier
	normalizer domain.Normalizer
	clock      Clock
	ttl        time.Duration

	mu     sync.Mutex
	last   *TabInfo
	lastAt time.Time
}

// NewTabInfoCache creates a cache. A non-positive ttl selects DefaultTabInfoTTL.
func NewTabInfoCache(tabs TabQuerier, normalizer domain.Normalizer, clock Clock, ttl time.Duration) *TabInfoCache {
	if ttl <= 0 {
		ttl = DefaultTabInfoTTL
	}
	return &TabInfoCache{tabs: tabs, normalizer: normalizer, clock: clock, ttl: ttl}
}

// Current returns the active tab, reusing a lookup younger than the TTL.
func (c *TabInfoCache) Current(ctx context.Context) (*TabInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if c.last != nil && now.Sub(c.lastAt) < c.ttl {
		info := *c.last
		return &info, nil
	}

	tab, err := c.tabs.ActiveTab(ctx)
	if err != nil {
		return nil, opError("getCurrentTabInfo", hostError("querying active tab", err))
	}
	if tab == nil || tab.URL == "" {
		return nil, opError("getCurrentTabInfo", kindError(ErrNotFound, "no active tab"))
	}

	info := &TabInfo{URL: tab.URL, TabID: tab.ID}
	switch {
	case strings.HasPrefix(tab.URL, "chrome://"), strings.HasPrefix(tab.URL, "chrome-extension://"):
		info.Domain = BrowserPageDomain
	default:
		d, err := c.normalizer.BaseDomain(tab.URL)
		if err != nil {
			d = UnknownDomain
		}
		info.Domain = d
	}

	c.last = info
	c.lastAt = now
	out := *info
	return &out, nil
}

// Reset drops the cached lookup.
func (c *TabInfoCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = nil
}
