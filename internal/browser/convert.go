package browser

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/target"

	"seswi-go/internal/seswi"
)

// Extension API spellings of the SameSite attribute.
const (
	sameSiteStrict      = "strict"
	sameSiteLax         = "lax"
	sameSiteNone        = "no_restriction"
	sameSiteUnspecified = "unspecified"
)

func sameSiteFromCDP(s network.CookieSameSite) string {
	switch s {
	case network.CookieSameSiteStrict:
		return sameSiteStrict
	case network.CookieSameSiteLax:
		return sameSiteLax
	case network.CookieSameSiteNone:
		return sameSiteNone
	default:
		return sameSiteUnspecified
	}
}

// sameSiteToCDP returns "" when the attribute should be left to the browser.
func sameSiteToCDP(s string) network.CookieSameSite {
	switch strings.ToLower(s) {
	case sameSiteStrict:
		return network.CookieSameSiteStrict
	case sameSiteLax:
		return network.CookieSameSiteLax
	case sameSiteNone, "none":
		return network.CookieSameSiteNone
	default:
		return ""
	}
}

// fromCDPCookie converts a DevTools cookie. Host-only cookies are the ones
// whose domain carries no leading dot.
func fromCDPCookie(c *network.Cookie) seswi.Cookie {
	ck := seswi.Cookie{
		Domain:   c.Domain,
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Secure:   c.Secure,
		HTTPOnly: c.HTTPOnly,
		SameSite: sameSiteFromCDP(c.SameSite),
		Session:  c.Session,
		HostOnly: !strings.HasPrefix(c.Domain, "."),
	}
	if !c.Session {
		exp := c.Expires
		ck.ExpirationDate = &exp
	}
	return ck
}

// setCookieParams builds the DevTools call for a cookie set. An empty domain
// yields a host-only cookie.
func setCookieParams(d seswi.CookieDetails) *network.SetCookieParams {
	p := network.SetCookie(d.Name, d.Value).
		WithURL(d.URL).
		WithSecure(d.Secure).
		WithHTTPOnly(d.HTTPOnly)
	if d.Domain != "" {
		p = p.WithDomain(d.Domain)
	}
	if d.Path != "" {
		p = p.WithPath(d.Path)
	}
	if ss := sameSiteToCDP(d.SameSite); ss != "" {
		p = p.WithSameSite(ss)
	}
	if d.ExpirationDate != nil {
		sec, frac := math.Modf(*d.ExpirationDate)
		t := cdp.TimeSinceEpoch(time.Unix(int64(sec), int64(math.Round(frac*1e9))))
		p = p.WithExpires(&t)
	}
	return p
}

// activeTab picks the page target a user is looking at. DevTools lists
// targets most recently focused first.
func activeTab(targets []*target.Info) *seswi.Tab {
	for _, t := range targets {
		if t.Type != "page" || strings.HasPrefix(t.URL, "devtools://") {
			continue
		}
		return &seswi.Tab{ID: string(t.TargetID), URL: t.URL}
	}
	return nil
}

const readStorageJS = `(() => {
  const area = window[%s];
  const out = {};
  for (let i = 0; i < area.length; i++) {
    const k = area.key(i);
    out[k] = area.getItem(k);
  }
  return out;
})()`

const writeStorageJS = `((name, data) => {
  const area = window[name];
  area.clear();
  for (const [k, v] of Object.entries(data)) {
    area.setItem(k, v);
  }
  return true;
})(%s, %s)`

func readStorageScript(area seswi.StorageArea) (string, error) {
	name, err := json.Marshal(string(area))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(readStorageJS, name), nil
}

// writeStorageScript embeds data as a JSON literal so values are never
// interpreted as code.
func writeStorageScript(area seswi.StorageArea, data map[string]string) (string, error) {
	if data == nil {
		data = map[string]string{}
	}
	name, err := json.Marshal(string(area))
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encoding storage: %w", err)
	}
	return fmt.Sprintf(writeStorageJS, name, payload), nil
}
