package testutil

import (
	"context"
	"maps"
	"strings"
	"sync"

	"seswi-go/internal/cookiejar"
	"seswi-go/internal/seswi"
)

// FakeBrowser bundles in-memory host primitives.
type FakeBrowser struct {
	Tabs     *FakeTabs
	Jar      *cookiejar.MemoryJar
	Storage  *FakePageStorage
	Reloader *FakeReloader
	History  *FakeHistory
}

// NewFakeBrowser creates a browser whose active tab is tabURL.
func NewFakeBrowser(tabURL string, cookies ...seswi.Cookie) *FakeBrowser {
	return &FakeBrowser{
		Tabs:     &FakeTabs{Tab: &seswi.Tab{ID: "1", URL: tabURL}},
		Jar:      cookiejar.NewMemoryJar(cookies...),
		Storage:  NewFakePageStorage(),
		Reloader: &FakeReloader{},
		History:  &FakeHistory{},
	}
}

// Browser returns the fakes as a seswi.Browser.
func (b *FakeBrowser) Browser() seswi.Browser {
	return seswi.Browser{
		Tabs:     b.Tabs,
		Cookies:  b.Jar,
		Storage:  b.Storage,
		Reloader: b.Reloader,
		History:  b.History,
	}
}

// FakeTabs reports a configurable active tab and counts lookups.
type FakeTabs struct {
	mu    sync.Mutex
	Tab   *seswi.Tab
	Err   error
	calls int
}

func (f *FakeTabs) ActiveTab(ctx context.Context) (*seswi.Tab, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.Err != nil {
		return nil, f.Err
	}
	if f.Tab == nil {
		return nil, nil
	}
	tab := *f.Tab
	return &tab, nil
}

// SetURL points the active tab at url.
func (f *FakeTabs) SetURL(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Tab == nil {
		f.Tab = &seswi.Tab{ID: "1"}
	}
	f.Tab.URL = url
}

// Calls returns the number of ActiveTab lookups.
func (f *FakeTabs) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// FakePageStorage keeps web storage per tab and area.
type FakePageStorage struct {
	mu       sync.Mutex
	data     map[string]map[seswi.StorageArea]map[string]string
	ReadErr  error
	WriteErr error
}

func NewFakePageStorage() *FakePageStorage {
	return &FakePageStorage{data: make(map[string]map[seswi.StorageArea]map[string]string)}
}

// Put seeds an area of a tab.
func (s *FakePageStorage) Put(tabID string, area seswi.StorageArea, data map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.area(tabID)[area] = maps.Clone(data)
}

// Get returns a copy of an area of a tab.
func (s *FakePageStorage) Get(tabID string, area seswi.StorageArea) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.area(tabID)[area])
}

func (s *FakePageStorage) area(tabID string) map[seswi.StorageArea]map[string]string {
	if s.data[tabID] == nil {
		s.data[tabID] = make(map[seswi.StorageArea]map[string]string)
	}
	return s.data[tabID]
}

func (s *FakePageStorage) ReadStorage(ctx context.Context, tabID string, area seswi.StorageArea) (map[string]string, error) {
	if s.ReadErr != nil {
		return nil, s.ReadErr
	}
	got := s.Get(tabID, area)
	if got == nil {
		got = map[string]string{}
	}
	return got, nil
}

func (s *FakePageStorage) WriteStorage(ctx context.Context, tabID string, area seswi.StorageArea, data map[string]string) error {
	if s.WriteErr != nil {
		return s.WriteErr
	}
	s.Put(tabID, area, data)
	return nil
}

func (s *FakePageStorage) ClearStorage(ctx context.Context, tabID string, area seswi.StorageArea) error {
	if s.WriteErr != nil {
		return s.WriteErr
	}
	s.Put(tabID, area, map[string]string{})
	return nil
}

// FakeReloader records reloaded tab ids.
type FakeReloader struct {
	mu       sync.Mutex
	reloaded []string
	Err      error
}

func (r *FakeReloader) Reload(ctx context.Context, tabID string) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reloaded = append(r.reloaded, tabID)
	return nil
}

// Reloaded returns the reloaded tab ids in call order.
func (r *FakeReloader) Reloaded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.reloaded...)
}

// FakeHistory is a searchable list of visited URLs. Search matches by
// substring and an empty text matches everything.
type FakeHistory struct {
	mu        sync.Mutex
	items     []seswi.HistoryItem
	deleted   []string
	SearchErr error
}

// Visit adds urls to the history.
func (h *FakeHistory) Visit(urls ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, u := range urls {
		h.items = append(h.items, seswi.HistoryItem{URL: u})
	}
}

func (h *FakeHistory) Search(ctx context.Context, q seswi.HistoryQuery) ([]seswi.HistoryItem, error) {
	if h.SearchErr != nil {
		return nil, h.SearchErr
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	var out []seswi.HistoryItem
	for _, it := range h.items {
		if q.Text != "" && !strings.Contains(it.URL, q.Text) {
			continue
		}
		out = append(out, it)
		if q.MaxResults > 0 && len(out) == q.MaxResults {
			break
		}
	}
	return out, nil
}

func (h *FakeHistory) DeleteURL(ctx context.Context, url string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	kept := h.items[:0]
	for _, it := range h.items {
		if it.URL != url {
			kept = append(kept, it)
		}
	}
	h.items = kept
	h.deleted = append(h.deleted, url)
	return nil
}

// URLs returns the URLs still in history.
func (h *FakeHistory) URLs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.items))
	for i, it := range h.items {
		out[i] = it.URL
	}
	return out
}

// FlakyCookieStore wraps a store and fails Set or Remove for chosen cookie
// names.
type FlakyCookieStore struct {
	seswi.CookieStore
	FailSet    map[string]bool
	FailRemove map[string]bool
}

func (s *FlakyCookieStore) Set(ctx context.Context, d seswi.CookieDetails) error {
	if s.FailSet[d.Name] {
		return errFake
	}
	return s.CookieStore.Set(ctx, d)
}

func (s *FlakyCookieStore) Remove(ctx context.Context, ref seswi.CookieRef) error {
	if s.FailRemove[ref.Name] {
		return errFake
	}
	return s.CookieStore.Remove(ctx, ref)
}

type fakeError string

func (e fakeError) Error() string { return string(e) }

const errFake = fakeError("injected failure")
