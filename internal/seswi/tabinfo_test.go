package seswi_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"seswi-go/internal/domain"
	"seswi-go/internal/seswi"
	"seswi-go/internal/testutil"
)

func TestTabInfoCache_Current(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		wantDomain string
	}{
		{name: "site", url: "https://mail.google.com/u/0", wantDomain: "google.com"},
		{name: "two-level suffix", url: "https://shop.example.co.uk/", wantDomain: "example.co.uk"},
		{name: "browser page", url: "chrome://settings", wantDomain: seswi.BrowserPageDomain},
		{name: "extension page", url: "chrome-extension://abc/popup.html", wantDomain: seswi.BrowserPageDomain},
		{name: "localhost", url: "http://localhost:8080/", wantDomain: "localhost"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tabs := &testutil.FakeTabs{Tab: &seswi.Tab{ID: "3", URL: tt.url}}
			cache := seswi.NewTabInfoCache(tabs, domain.Heuristic{}, testutil.FixedClock(), 0)

			info, err := cache.Current(context.Background())
			if err != nil {
				t.Fatalf("Current() error = %v", err)
			}
			if info.Domain != tt.wantDomain {
				t.Errorf("Domain = %q, want %q", info.Domain, tt.wantDomain)
			}
			if info.TabID != "3" || info.URL != tt.url {
				t.Errorf("Current() = %+v", info)
			}
		})
	}
}

func TestTabInfoCache_TTL(t *testing.T) {
	ctx := context.Background()
	clock := testutil.FixedClock()
	tabs := &testutil.FakeTabs{Tab: &seswi.Tab{ID: "1", URL: "https://a.com/"}}
	cache := seswi.NewTabInfoCache(tabs, domain.Heuristic{}, clock, 400*time.Millisecond)

	if _, err := cache.Current(ctx); err != nil {
		t.Fatalf("Current() error = %v", err)
	}

	// Within the TTL the cached, now stale, answer is returned.
	tabs.SetURL("https://b.com/")
	clock.Advance(399 * time.Millisecond)
	info, err := cache.Current(ctx)
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if info.Domain != "a.com" || tabs.Calls() != 1 {
		t.Errorf("Current() = %q after %d lookups, want cached a.com after 1", info.Domain, tabs.Calls())
	}

	clock.Advance(time.Millisecond)
	info, err = cache.Current(ctx)
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if info.Domain != "b.com" || tabs.Calls() != 2 {
		t.Errorf("Current() = %q after %d lookups, want b.com after 2", info.Domain, tabs.Calls())
	}

	tabs.SetURL("https://c.com/")
	cache.Reset()
	info, _ = cache.Current(ctx)
	if info.Domain != "c.com" {
		t.Errorf("Current() after Reset = %q, want c.com", info.Domain)
	}
}

func TestTabInfoCache_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("no active tab", func(t *testing.T) {
		t.Parallel()
		cache := seswi.NewTabInfoCache(&testutil.FakeTabs{}, domain.Heuristic{}, testutil.FixedClock(), 0)
		_, err := cache.Current(ctx)
		if !errors.Is(err, seswi.ErrNotFound) {
			t.Fatalf("Current() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("query fails", func(t *testing.T) {
		t.Parallel()
		tabs := &testutil.FakeTabs{Err: errors.New("tabs API gone")}
		cache := seswi.NewTabInfoCache(tabs, domain.Heuristic{}, testutil.FixedClock(), 0)
		_, err := cache.Current(ctx)
		if !errors.Is(err, seswi.ErrHostAPI) {
			t.Fatalf("Current() error = %v, want ErrHostAPI", err)
		}
		if got := seswi.ErrorContext(err); got != "getCurrentTabInfo" {
			t.Errorf("ErrorContext() = %q, want %q", got, "getCurrentTabInfo")
		}
	})
}
