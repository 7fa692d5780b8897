package seswi_test

import (
	"context"
	"errors"
	"testing"

	"seswi-go/internal/cookiejar"
	"seswi-go/internal/seswi"
	"seswi-go/internal/testutil"
)

func siteCookies() []seswi.Cookie {
	return []seswi.Cookie{
		{Domain: ".example.com", Name: "sid", Value: "old", Path: "/", Secure: true, Session: true},
		{Domain: "app.example.com", Name: "pref", Value: "dark", Path: "/", HostOnly: true, Session: true},
		{Domain: ".other.com", Name: "sid", Value: "keep", Path: "/", Session: true},
	}
}

func TestCookieSync_GetForDomain(t *testing.T) {
	t.Parallel()

	jar := cookiejar.NewMemoryJar(siteCookies()...)
	cs := seswi.NewCookieSync(jar, seswi.NewNopLogger())

	got, err := cs.GetForDomain(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("GetForDomain() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetForDomain() = %d cookies, want 2", len(got))
	}
	for _, ck := range got {
		if ck.Value == "keep" {
			t.Errorf("GetForDomain() returned cookie of another site: %+v", ck)
		}
	}
}

func TestCookieSync_RemoveForDomain(t *testing.T) {
	t.Parallel()

	jar := cookiejar.NewMemoryJar(siteCookies()...)
	flaky := &testutil.FlakyCookieStore{CookieStore: jar, FailRemove: map[string]bool{"pref": true}}
	cs := seswi.NewCookieSync(flaky, seswi.NewNopLogger())

	res, err := cs.RemoveForDomain(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("RemoveForDomain() error = %v", err)
	}
	if res.Removed != 1 {
		t.Errorf("Removed = %d, want 1", res.Removed)
	}
	if len(res.Items) != 2 {
		t.Fatalf("Items = %d, want 2", len(res.Items))
	}
	for _, it := range res.Items {
		if it.Cookie.Name == "pref" && (it.OK || it.Err == nil) {
			t.Errorf("item for failing cookie = %+v, want failure", it)
		}
	}
	if jar.Len() != 2 {
		t.Errorf("jar has %d cookies, want 2", jar.Len())
	}
}

func TestCookieSync_Restore(t *testing.T) {
	ctx := context.Background()
	exp := 1900000000.0

	session := testutil.NewSession("example.com", "work", 100)
	session.Cookies = []seswi.Cookie{
		{Domain: ".example.com", Name: "sid", Value: "new", Path: "/", Secure: true, Session: true},
		{Domain: "example.com", Name: "host", Value: "h", Path: "/a", HostOnly: true, ExpirationDate: &exp},
	}

	t.Run("replaces the site's cookies", func(t *testing.T) {
		t.Parallel()
		jar := cookiejar.NewMemoryJar(siteCookies()...)
		cs := seswi.NewCookieSync(jar, seswi.NewNopLogger())

		res, err := cs.Restore(ctx, session)
		if err != nil {
			t.Fatalf("Restore() error = %v", err)
		}
		if res.Restored != 2 || res.Total != 2 || res.Removed != 2 {
			t.Errorf("Restore() = %+v, want 2 restored, 2 total, 2 removed", res)
		}

		all, _ := jar.GetAll(ctx, "")
		if len(all) != 3 {
			t.Fatalf("jar has %d cookies, want 3", len(all))
		}
		byName := map[string]seswi.Cookie{}
		for _, ck := range all {
			if ck.Domain != ".other.com" {
				byName[ck.Name] = ck
			}
		}
		if byName["sid"].Value != "new" || byName["sid"].Domain != ".example.com" {
			t.Errorf("sid cookie = %+v", byName["sid"])
		}
		host := byName["host"]
		if !host.HostOnly || host.Domain != "example.com" || host.Path != "/a" {
			t.Errorf("host-only cookie = %+v", host)
		}
		if host.ExpirationDate == nil || *host.ExpirationDate != exp {
			t.Errorf("host-only cookie lost its expiry: %+v", host)
		}
		if _, ok := byName["pref"]; ok {
			t.Error("old subdomain cookie survived restore")
		}
	})

	t.Run("reports individual set failures", func(t *testing.T) {
		t.Parallel()
		jar := cookiejar.NewMemoryJar()
		flaky := &testutil.FlakyCookieStore{CookieStore: jar, FailSet: map[string]bool{"host": true}}
		cs := seswi.NewCookieSync(flaky, seswi.NewNopLogger())

		res, err := cs.Restore(ctx, session)
		if err != nil {
			t.Fatalf("Restore() error = %v", err)
		}
		if res.Restored != 1 || res.Total != 2 {
			t.Errorf("Restore() = %+v, want 1 of 2 restored", res)
		}
		if res.Items[1].OK || res.Items[1].Cookie.Name != "host" {
			t.Errorf("Items[1] = %+v, want failed host cookie", res.Items[1])
		}
	})

	t.Run("session without cookies", func(t *testing.T) {
		t.Parallel()
		cs := seswi.NewCookieSync(cookiejar.NewMemoryJar(), seswi.NewNopLogger())
		empty := testutil.NewSession("example.com", "x", 1)
		empty.Cookies = []seswi.Cookie{}

		_, err := cs.Restore(ctx, empty)
		if !errors.Is(err, seswi.ErrNoData) {
			t.Fatalf("Restore() error = %v, want ErrNoData", err)
		}
	})

	t.Run("binds the store id", func(t *testing.T) {
		t.Parallel()
		jar := cookiejar.NewMemoryJar()
		cs := seswi.NewCookieSync(jar, seswi.NewNopLogger()).WithStoreID("2")

		if _, err := cs.Restore(ctx, session); err != nil {
			t.Fatalf("Restore() error = %v", err)
		}
		all, _ := jar.GetAll(ctx, "")
		for _, ck := range all {
			if ck.StoreID != "2" {
				t.Errorf("cookie %s StoreID = %q, want %q", ck.Name, ck.StoreID, "2")
			}
		}
	})
}

type failingCookieStore struct{ seswi.CookieStore }

func (failingCookieStore) GetAll(context.Context, string) ([]seswi.Cookie, error) {
	return nil, errors.New("cookies API unavailable")
}

func TestCookieSync_ListFailure(t *testing.T) {
	t.Parallel()

	cs := seswi.NewCookieSync(failingCookieStore{}, seswi.NewNopLogger())
	_, err := cs.GetForDomain(context.Background(), "example.com")
	if !errors.Is(err, seswi.ErrHostAPI) {
		t.Fatalf("GetForDomain() error = %v, want ErrHostAPI", err)
	}
}
