// Package cookiejar provides cookie stores that stand in for a browser's
// cookie jar: an in-memory jar and a Netscape cookies.txt file.
package cookiejar

import (
	"fmt"
	"net/url"
	"strings"

	"seswi-go/internal/seswi"
)

// fromDetails builds the cookie a browser would store for a set call.
// An empty Domain makes a host-only cookie for the URL's host.
func fromDetails(d seswi.CookieDetails) (seswi.Cookie, error) {
	u, err := url.Parse(d.URL)
	if err != nil || u.Hostname() == "" {
		return seswi.Cookie{}, fmt.Errorf("invalid cookie url %q", d.URL)
	}
	if d.Name == "" {
		return seswi.Cookie{}, fmt.Errorf("cookie name required")
	}

	ck := seswi.Cookie{
		Name:           d.Name,
		Value:          d.Value,
		Path:           d.Path,
		Secure:         d.Secure,
		HTTPOnly:       d.HTTPOnly,
		SameSite:       d.SameSite,
		ExpirationDate: d.ExpirationDate,
		Session:        d.ExpirationDate == nil,
		StoreID:        d.StoreID,
	}
	if ck.Path == "" {
		ck.Path = "/"
	}
	if d.Domain == "" {
		ck.Domain = strings.ToLower(u.Hostname())
		ck.HostOnly = true
	} else {
		ck.Domain = "." + strings.TrimPrefix(strings.ToLower(d.Domain), ".")
	}
	return ck, nil
}

func sameCookie(a, b seswi.Cookie) bool {
	return a.Domain == b.Domain && a.Path == b.Path && a.Name == b.Name
}

// upsert replaces the cookie with ck's domain, path and name, or appends ck.
func upsert(list []seswi.Cookie, ck seswi.Cookie) []seswi.Cookie {
	for i := range list {
		if sameCookie(list[i], ck) {
			list[i] = ck
			return list
		}
	}
	return append(list, ck)
}

// removeRef drops the cookie ref addresses. The URL's host and path must
// match the cookie's exactly.
func removeRef(list []seswi.Cookie, ref seswi.CookieRef) ([]seswi.Cookie, bool, error) {
	u, err := url.Parse(ref.URL)
	if err != nil {
		return list, false, fmt.Errorf("invalid cookie url %q: %w", ref.URL, err)
	}
	host := strings.ToLower(u.Hostname())
	path := u.Path
	if path == "" {
		path = "/"
	}
	for i, ck := range list {
		if ck.Name == ref.Name && ck.Host() == host && ck.Path == path {
			return append(list[:i], list[i+1:]...), true, nil
		}
	}
	return list, false, nil
}
