package browser

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"seswi-go/internal/seswi"
)

const offlineTabID = "offline"

// OfflineBrowser serves a cookie store without a running browser. The active
// tab is whatever URL was last opened and web storage lives in memory for
// the lifetime of the process.
type OfflineBrowser struct {
	cookies seswi.CookieStore

	mu      sync.Mutex
	url     string
	storage map[seswi.StorageArea]map[string]string
	reloads int
}

var (
	_ seswi.TabQuerier  = (*OfflineBrowser)(nil)
	_ seswi.PageStorage = (*OfflineBrowser)(nil)
	_ seswi.TabReloader = (*OfflineBrowser)(nil)
)

func NewOfflineBrowser(cookies seswi.CookieStore) *OfflineBrowser {
	return &OfflineBrowser{
		cookies: cookies,
		storage: make(map[seswi.StorageArea]map[string]string),
	}
}

// Open makes url the active tab and drops the previous tab's storage.
func (b *OfflineBrowser) Open(url string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.url = url
	b.storage = make(map[seswi.StorageArea]map[string]string)
}

func (b *OfflineBrowser) Browser() seswi.Browser {
	return seswi.Browser{
		Tabs:     b,
		Cookies:  b.cookies,
		Storage:  b,
		Reloader: b,
	}
}

func (b *OfflineBrowser) ActiveTab(ctx context.Context) (*seswi.Tab, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.url == "" {
		return nil, nil
	}
	return &seswi.Tab{ID: offlineTabID, URL: b.url}, nil
}

func (b *OfflineBrowser) ReadStorage(ctx context.Context, tabID string, area seswi.StorageArea) (map[string]string, error) {
	if err := b.checkTab(tabID); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := maps.Clone(b.storage[area])
	if out == nil {
		out = map[string]string{}
	}
	return out, nil
}

func (b *OfflineBrowser) WriteStorage(ctx context.Context, tabID string, area seswi.StorageArea, data map[string]string) error {
	if err := b.checkTab(tabID); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.storage[area] = maps.Clone(data)
	return nil
}

func (b *OfflineBrowser) ClearStorage(ctx context.Context, tabID string, area seswi.StorageArea) error {
	return b.WriteStorage(ctx, tabID, area, nil)
}

// Reload only counts; there is no page to reload.
func (b *OfflineBrowser) Reload(ctx context.Context, tabID string) error {
	if err := b.checkTab(tabID); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reloads++
	return nil
}

// Reloads returns how many times the tab was reloaded.
func (b *OfflineBrowser) Reloads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reloads
}

func (b *OfflineBrowser) checkTab(tabID string) error {
	if tabID != offlineTabID {
		return fmt.Errorf("%w: tab %s", seswi.ErrNotFound, tabID)
	}
	return nil
}
