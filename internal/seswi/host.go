package seswi

import "context"

// Tab is the active browser tab.
type Tab struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// TabQuerier returns the active tab of the current window.
type TabQuerier interface {
	// ActiveTab returns nil, nil when there is no active tab.
	ActiveTab(ctx context.Context) (*Tab, error)
}

// TabReloader reloads a tab.
type TabReloader interface {
	Reload(ctx context.Context, tabID string) error
}

// StorageArea names one of the page's web storage areas.
type StorageArea string

const (
	AreaLocal   StorageArea = "localStorage"
	AreaSession StorageArea = "sessionStorage"
)

// PageStorage reads and writes web storage inside a tab's page context.
type PageStorage interface {
	ReadStorage(ctx context.Context, tabID string, area StorageArea) (map[string]string, error)
	// WriteStorage replaces the area's contents with data.
	WriteStorage(ctx context.Context, tabID string, area StorageArea, data map[string]string) error
	ClearStorage(ctx context.Context, tabID string, area StorageArea) error
}

// CookieRef addresses one cookie for removal.
type CookieRef struct {
	URL     string
	Name    string
	StoreID string
}

// CookieDetails is the argument of a cookie set call. Domain is empty for
// host-only cookies and ExpirationDate is nil for session cookies.
type CookieDetails struct {
	URL            string
	Name           string
	Value          string
	Domain         string
	Path           string
	Secure         bool
	HTTPOnly       bool
	SameSite       string
	ExpirationDate *float64
	StoreID        string
}

// CookieStore is the browser's cookie jar.
type CookieStore interface {
	// GetAll returns every cookie in storeID, or in the default store when
	// storeID is empty.
	GetAll(ctx context.Context, storeID string) ([]Cookie, error)
	Remove(ctx context.Context, ref CookieRef) error
	Set(ctx context.Context, details CookieDetails) error
}

// HistoryItem is one browsing history entry.
type HistoryItem struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// HistoryQuery mirrors the browser's history search parameters.
type HistoryQuery struct {
	Text       string
	MaxResults int
	StartTime  int64
}

// HistoryStore searches and deletes browsing history.
type HistoryStore interface {
	Search(ctx context.Context, q HistoryQuery) ([]HistoryItem, error)
	DeleteURL(ctx context.Context, url string) error
}

// Browser bundles the host primitives a Service drives. History may be nil
// when the host does not expose it.
type Browser struct {
	Tabs     TabQuerier
	Cookies  CookieStore
	Storage  PageStorage
	Reloader TabReloader
	History  HistoryStore
}
