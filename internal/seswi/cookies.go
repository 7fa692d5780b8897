package seswi

import (
	"context"

	"golang.org/x/sync/errgroup"

	"seswi-go/internal/domain"
)

// DefaultChunkSize bounds the number of concurrent cookie API calls.
const DefaultChunkSize = 100

// CookieResult is the outcome of one cookie operation inside a bulk call.
type CookieResult struct {
	Cookie Cookie
	OK     bool
	Err    error
}

// RemoveResult reports a bulk removal. Removed counts successes only.
type RemoveResult struct {
	Removed int            `json:"removed"`
	Items   []CookieResult `json:"-"`
}

// RestoreCookiesResult reports a destructive cookie restore.
type RestoreCookiesResult struct {
	Restored int            `json:"restoredCount"`
	Total    int            `json:"totalCookies"`
	Removed  int            `json:"removedCount"`
	Items    []CookieResult `json:"-"`
}

// CookieSync enumerates, clears and restores the cookies of one site.
type CookieSync struct {
	store     CookieStore
	storeID   string
	chunkSize int
	logger    Logger
}

// NewCookieSync creates a CookieSync over the default cookie store.
func NewCookieSync(store CookieStore, logger Logger) *CookieSync {
	return &CookieSync{store: store, chunkSize: DefaultChunkSize, logger: logger}
}

// WithStoreID returns a copy of c bound to a specific cookie store.
func (c *CookieSync) WithStoreID(storeID string) *CookieSync {
	cp := *c
	cp.storeID = storeID
	return &cp
}

// GetForDomain returns every cookie whose domain ends with target.
func (c *CookieSync) GetForDomain(ctx context.Context, target string) ([]Cookie, error) {
	all, err := c.store.GetAll(ctx, c.storeID)
	if err != nil {
		return nil, opError("getCookiesForDomain", hostError("listing cookies", err))
	}
	matched := make([]Cookie, 0, len(all))
	for _, ck := range all {
		if domain.HasSuffixDomain(ck.Domain, target) {
			matched = append(matched, ck)
		}
	}
	return matched, nil
}

// RemoveForDomain deletes every cookie of target. Individual failures are
// recorded in the result and do not fail the call.
func (c *CookieSync) RemoveForDomain(ctx context.Context, target string) (*RemoveResult, error) {
	cookies, err := c.GetForDomain(ctx, target)
	if err != nil {
		return nil, opError("removeCookiesForDomain", err)
	}

	items := c.fanOut(ctx, cookies, func(ctx context.Context, ck Cookie) error {
		return c.store.Remove(ctx, CookieRef{URL: ck.URL(), Name: ck.Name, StoreID: ck.StoreID})
	})
	res := &RemoveResult{Removed: countOK(items), Items: items}
	c.logger.Debug("cookies removed", "domain", target, "removed", res.Removed, "matched", len(cookies))
	return res, nil
}

// Restore replaces the site's cookies with the session's. Existing cookies
// for the session domain are removed first.
func (c *CookieSync) Restore(ctx context.Context, s *Session) (*RestoreCookiesResult, error) {
	if len(s.Cookies) == 0 {
		return nil, opError("restoreCookies", kindError(ErrNoData, "session has no cookies"))
	}

	removed, err := c.RemoveForDomain(ctx, s.Domain)
	if err != nil {
		return nil, opError("restoreCookies", err)
	}

	items := c.fanOut(ctx, s.Cookies, func(ctx context.Context, ck Cookie) error {
		return c.store.Set(ctx, c.setDetails(ck))
	})
	res := &RestoreCookiesResult{
		Restored: countOK(items),
		Total:    len(s.Cookies),
		Removed:  removed.Removed,
		Items:    items,
	}
	c.logger.Info("cookies restored", "domain", s.Domain, "restored", res.Restored, "total", res.Total)
	return res, nil
}

// setDetails builds the set call for ck. Host-only cookies must not carry a
// domain and session cookies must not carry an expiry.
func (c *CookieSync) setDetails(ck Cookie) CookieDetails {
	d := CookieDetails{
		URL:            ck.URL(),
		Name:           ck.Name,
		Value:          ck.Value,
		Domain:         ck.Domain,
		Path:           ck.Path,
		Secure:         ck.Secure,
		HTTPOnly:       ck.HTTPOnly,
		SameSite:       ck.SameSite,
		ExpirationDate: ck.ExpirationDate,
		StoreID:        ck.StoreID,
	}
	if ck.HostOnly {
		d.Domain = ""
	}
	if ck.Session {
		d.ExpirationDate = nil
	}
	if d.StoreID == "" {
		d.StoreID = c.storeID
	}
	return d
}

// fanOut runs fn over cookies in chunks, waiting for each chunk to finish
// before starting the next. Started work is not cancelled.
func (c *CookieSync) fanOut(ctx context.Context, cookies []Cookie, fn func(context.Context, Cookie) error) []CookieResult {
	ctx = context.WithoutCancel(ctx)
	size := c.chunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}

	results := make([]CookieResult, len(cookies))
	for start := 0; start < len(cookies); start += size {
		end := min(start+size, len(cookies))
		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				err := fn(ctx, cookies[i])
				results[i] = CookieResult{Cookie: cookies[i], OK: err == nil, Err: err}
				return nil
			})
		}
		_ = g.Wait()
	}
	return results
}

func countOK(items []CookieResult) int {
	n := 0
	for _, it := range items {
		if it.OK {
			n++
		}
	}
	return n
}
