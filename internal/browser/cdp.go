// Package browser drives a running Chrome over the DevTools protocol so the
// session service can read and switch a real profile's site data.
package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"seswi-go/internal/seswi"
)

// CDPBrowser implements the tab, cookie, storage and reload primitives
// against a Chrome started with --remote-debugging-port. Chrome exposes no
// history API over DevTools, so history is not provided.
type CDPBrowser struct {
	logger seswi.Logger

	allocCtx      context.Context
	cancelAlloc   context.CancelFunc
	browserCtx    context.Context
	cancelBrowser context.CancelFunc

	mu   sync.Mutex
	tabs map[string]tabContext
}

type tabContext struct {
	ctx    context.Context
	cancel context.CancelFunc
}

var (
	_ seswi.TabQuerier  = (*CDPBrowser)(nil)
	_ seswi.CookieStore = (*CDPBrowser)(nil)
	_ seswi.PageStorage = (*CDPBrowser)(nil)
	_ seswi.TabReloader = (*CDPBrowser)(nil)
)

// NewCDPBrowser connects to the DevTools endpoint at url, for example
// ws://127.0.0.1:9222 or http://127.0.0.1:9222.
func NewCDPBrowser(url string, logger seswi.Logger) (*CDPBrowser, error) {
	if url == "" {
		return nil, fmt.Errorf("cdp browser requires cdp_url to be set")
	}
	allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(context.Background(), url)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	logger.Debug("connecting to chrome", "url", url)
	return &CDPBrowser{
		logger:        logger,
		allocCtx:      allocCtx,
		cancelAlloc:   cancelAlloc,
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
		tabs:          make(map[string]tabContext),
	}, nil
}

// Browser returns b as the primitives a session service needs.
func (b *CDPBrowser) Browser() seswi.Browser {
	return seswi.Browser{
		Tabs:     b,
		Cookies:  b,
		Storage:  b,
		Reloader: b,
	}
}

// Close detaches from every tab and drops the connection. The remote browser
// keeps running.
func (b *CDPBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, t := range b.tabs {
		t.cancel()
		delete(b.tabs, id)
	}
	b.cancelBrowser()
	b.cancelAlloc()
	return nil
}

// run executes actions in the tab's context, bounded by ctx.
func (b *CDPBrowser) run(ctx context.Context, tabID string, actions ...chromedp.Action) error {
	tabCtx, err := b.tab(ctx, tabID)
	if err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(tabCtx, actions...) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *CDPBrowser) tab(ctx context.Context, tabID string) (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if tabID == "" {
		return nil, fmt.Errorf("tab id required")
	}
	if t, ok := b.tabs[tabID]; ok && t.ctx.Err() == nil {
		return t.ctx, nil
	}
	tabCtx, cancel := chromedp.NewContext(b.browserCtx, chromedp.WithTargetID(target.ID(tabID)))
	b.tabs[tabID] = tabContext{ctx: tabCtx, cancel: cancel}
	return tabCtx, nil
}

func (b *CDPBrowser) ActiveTab(ctx context.Context) (*seswi.Tab, error) {
	targets, err := chromedp.Targets(b.browserCtx)
	if err != nil {
		return nil, fmt.Errorf("listing targets: %w", err)
	}
	return activeTab(targets), nil
}

// GetAll returns every cookie of the browser. DevTools addresses a single
// cookie store, so storeID is ignored.
func (b *CDPBrowser) GetAll(ctx context.Context, storeID string) ([]seswi.Cookie, error) {
	tab, err := b.ActiveTab(ctx)
	if err != nil {
		return nil, err
	}
	if tab == nil {
		return nil, fmt.Errorf("no page target to read cookies from")
	}

	var raw []*network.Cookie
	err = b.run(ctx, tab.ID, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		raw, err = storage.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("reading cookies: %w", err)
	}

	out := make([]seswi.Cookie, 0, len(raw))
	for _, c := range raw {
		out = append(out, fromCDPCookie(c))
	}
	return out, nil
}

func (b *CDPBrowser) Remove(ctx context.Context, ref seswi.CookieRef) error {
	return b.onAnyTab(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return network.DeleteCookies(ref.Name).WithURL(ref.URL).Do(ctx)
	}))
}

func (b *CDPBrowser) Set(ctx context.Context, details seswi.CookieDetails) error {
	return b.onAnyTab(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return setCookieParams(details).Do(ctx)
	}))
}

func (b *CDPBrowser) onAnyTab(ctx context.Context, action chromedp.Action) error {
	tab, err := b.ActiveTab(ctx)
	if err != nil {
		return err
	}
	if tab == nil {
		return fmt.Errorf("no page target available")
	}
	return b.run(ctx, tab.ID, action)
}

func (b *CDPBrowser) ReadStorage(ctx context.Context, tabID string, area seswi.StorageArea) (map[string]string, error) {
	js, err := readStorageScript(area)
	if err != nil {
		return nil, err
	}
	var out map[string]string
	if err := b.run(ctx, tabID, chromedp.Evaluate(js, &out)); err != nil {
		return nil, fmt.Errorf("reading %s: %w", area, err)
	}
	if out == nil {
		out = map[string]string{}
	}
	return out, nil
}

func (b *CDPBrowser) WriteStorage(ctx context.Context, tabID string, area seswi.StorageArea, data map[string]string) error {
	js, err := writeStorageScript(area, data)
	if err != nil {
		return err
	}
	var ok bool
	if err := b.run(ctx, tabID, chromedp.Evaluate(js, &ok)); err != nil {
		return fmt.Errorf("writing %s: %w", area, err)
	}
	return nil
}

func (b *CDPBrowser) ClearStorage(ctx context.Context, tabID string, area seswi.StorageArea) error {
	return b.WriteStorage(ctx, tabID, area, nil)
}

func (b *CDPBrowser) Reload(ctx context.Context, tabID string) error {
	if err := b.run(ctx, tabID, chromedp.Reload()); err != nil {
		return fmt.Errorf("reloading tab %s: %w", tabID, err)
	}
	return nil
}
