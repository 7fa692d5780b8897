package seswi_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"seswi-go/internal/domain"
	"seswi-go/internal/seswi"
	"seswi-go/internal/testutil"
)

func TestService_CleanCurrentTab(t *testing.T) {
	ctx := context.Background()

	t.Run("clears the site", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, "https://www.example.com/page",
			seswi.Cookie{Domain: ".example.com", Name: "a", Path: "/", Session: true},
			seswi.Cookie{Domain: "www.example.com", Name: "b", Path: "/", HostOnly: true, Session: true},
			seswi.Cookie{Domain: ".other.com", Name: "c", Path: "/", Session: true},
		)
		env.browser.History.Visit(
			"https://example.com/",
			"https://www.example.com/a",
			"http://sub.example.com/x",
			"https://other.com/?ref=example.com",
			"https://notexample.com/",
		)
		env.browser.Storage.Put("1", seswi.AreaLocal, map[string]string{"k": "v"})

		res, err := env.svc.CleanCurrentTab(ctx)
		if err != nil {
			t.Fatalf("CleanCurrentTab() error = %v", err)
		}
		if res.Domain != "example.com" || res.CookiesRemoved != 2 || res.HistoryDeleted != 3 {
			t.Errorf("CleanCurrentTab() = %+v, want 2 cookies and 3 history entries", res)
		}
		if !res.StorageCleared || !res.Reloaded || res.HistorySkipped {
			t.Errorf("CleanCurrentTab() = %+v", res)
		}

		remaining := env.browser.History.URLs()
		slices.Sort(remaining)
		want := []string{"https://notexample.com/", "https://other.com/?ref=example.com"}
		if !slices.Equal(remaining, want) {
			t.Errorf("history after clean = %v, want %v", remaining, want)
		}
		if env.browser.Jar.Len() != 1 {
			t.Errorf("jar has %d cookies, want 1", env.browser.Jar.Len())
		}
		if got := env.browser.Storage.Get("1", seswi.AreaLocal); len(got) != 0 {
			t.Errorf("localStorage = %v, want empty", got)
		}
	})

	t.Run("host without history", func(t *testing.T) {
		t.Parallel()
		fb := testutil.NewFakeBrowser("https://example.com/")
		b := fb.Browser()
		b.History = nil
		svc := seswi.NewService(testutil.NewTestDatabase(t), b, testutil.NewTestCipher(), domain.Heuristic{},
			seswi.NewNopLogger(), testutil.FixedClock(), seswi.ServiceOptions{})

		res, err := svc.CleanCurrentTab(ctx)
		if err != nil {
			t.Fatalf("CleanCurrentTab() error = %v", err)
		}
		if !res.HistorySkipped {
			t.Error("HistorySkipped = false, want true")
		}
	})

	t.Run("failures after the tab lookup are tolerated", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, "https://example.com/")
		env.browser.Storage.WriteErr = errors.New("page gone")
		env.browser.History.SearchErr = errors.New("history gone")
		env.browser.Reloader.Err = errors.New("tab gone")

		res, err := env.svc.CleanCurrentTab(ctx)
		if err != nil {
			t.Fatalf("CleanCurrentTab() error = %v", err)
		}
		if res.StorageCleared || res.Reloaded || res.HistoryDeleted != 0 {
			t.Errorf("CleanCurrentTab() = %+v", res)
		}
	})

	t.Run("browser pages are refused", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, "chrome://settings")
		_, err := env.svc.CleanCurrentTab(ctx)
		if !errors.Is(err, seswi.ErrInvalidInput) {
			t.Fatalf("CleanCurrentTab() error = %v, want ErrInvalidInput", err)
		}
		if got := seswi.ErrorContext(err); got != "cleanCurrentTabData" {
			t.Errorf("ErrorContext() = %q, want %q", got, "cleanCurrentTabData")
		}
	})
}
