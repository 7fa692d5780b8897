package seswi

import (
	"context"
	"net/url"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"seswi-go/internal/domain"
)

const (
	historySearchLimit = 10000
	historyChunkSize   = 100
)

// CleanResult reports what CleanCurrentTab managed to clear. Every step after
// resolving the tab is best-effort.
type CleanResult struct {
	Domain         string `json:"domain"`
	CookiesRemoved int    `json:"cookiesRemoved"`
	HistoryDeleted int    `json:"historyDeleted"`
	HistorySkipped bool   `json:"historySkipped"`
	StorageCleared bool   `json:"storageCleared"`
	Reloaded       bool   `json:"reloaded"`
}

// DataCleaner wipes a site's cookies, history and web storage.
type DataCleaner struct {
	tabs    *TabInfoCache
	cookies *CookieSync
	browser Browser
	logger  Logger
}

// NewDataCleaner creates a DataCleaner.
func NewDataCleaner(tabs *TabInfoCache, cookies *CookieSync, browser Browser, logger Logger) *DataCleaner {
	return &DataCleaner{tabs: tabs, cookies: cookies, browser: browser, logger: logger}
}

// CleanCurrentTab clears the active tab's site data and reloads it.
func (c *DataCleaner) CleanCurrentTab(ctx context.Context) (*CleanResult, error) {
	info, err := c.tabs.Current(ctx)
	if err != nil {
		return nil, opError("cleanCurrentTabData", err)
	}
	if info.Domain == BrowserPageDomain || info.Domain == UnknownDomain {
		return nil, opError("cleanCurrentTabData", kindError(ErrInvalidInput, "tab %q has no site data", info.URL))
	}
	res := &CleanResult{Domain: info.Domain}

	if removed, err := c.cookies.RemoveForDomain(ctx, info.Domain); err != nil {
		c.logger.Warn("clearing cookies failed", "domain", info.Domain, "error", err)
	} else {
		res.CookiesRemoved = removed.Removed
	}

	if c.browser.History == nil {
		res.HistorySkipped = true
		c.logger.Debug("history unavailable, skipped history deletion")
	} else {
		res.HistoryDeleted = c.clearHistory(ctx, info.Domain)
	}

	localErr := c.browser.Storage.ClearStorage(ctx, info.TabID, AreaLocal)
	sessionErr := c.browser.Storage.ClearStorage(ctx, info.TabID, AreaSession)
	res.StorageCleared = localErr == nil && sessionErr == nil
	if !res.StorageCleared {
		c.logger.Warn("clearing storage failed", "local_error", localErr, "session_error", sessionErr)
	}

	if err := c.browser.Reloader.Reload(ctx, info.TabID); err != nil {
		c.logger.Warn("reloading tab failed", "tab", info.TabID, "error", err)
	} else {
		res.Reloaded = true
	}

	c.logger.Info("tab data cleared", "domain", info.Domain, "cookies", res.CookiesRemoved, "history", res.HistoryDeleted)
	return res, nil
}

// clearHistory deletes every history entry on base or its subdomains.
func (c *DataCleaner) clearHistory(ctx context.Context, base string) int {
	queries := []string{base, "https://" + base, "http://" + base, ""}
	found := make([][]HistoryItem, len(queries))

	var g errgroup.Group
	for i, text := range queries {
		g.Go(func() error {
			items, err := c.browser.History.Search(ctx, HistoryQuery{Text: text, MaxResults: historySearchLimit})
			if err != nil {
				c.logger.Debug("history search failed", "text", text, "error", err)
				return nil
			}
			found[i] = items
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]bool)
	var candidates []string
	for _, items := range found {
		for _, it := range items {
			if it.URL == "" || seen[it.URL] {
				continue
			}
			seen[it.URL] = true
			u, err := url.Parse(it.URL)
			if err != nil || !domain.IsHostOrSubdomain(u.Hostname(), base) {
				continue
			}
			candidates = append(candidates, it.URL)
		}
	}

	var deleted atomic.Int64
	for start := 0; start < len(candidates); start += historyChunkSize {
		end := min(start+historyChunkSize, len(candidates))
		var g errgroup.Group
		for _, u := range candidates[start:end] {
			g.Go(func() error {
				if c.browser.History.DeleteURL(ctx, u) == nil {
					deleted.Add(1)
				}
				return nil
			})
		}
		_ = g.Wait()
	}
	return int(deleted.Load())
}
