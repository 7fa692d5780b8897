package browser

import (
	"fmt"

	"seswi-go/internal/config"
	"seswi-go/internal/cookiejar"
	"seswi-go/internal/seswi"
)

// Backend is a configured browser. Offline is set for the backends that
// have no real tabs and need a URL opened before site operations.
type Backend struct {
	seswi.Browser
	Offline *OfflineBrowser
	close   func() error
}

// Close releases the browser connection, if any.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// NewBackendFromConfig creates a Backend based on the browser config type.
func NewBackendFromConfig(cfg config.BrowserConfig, clock seswi.Clock, logger seswi.Logger) (*Backend, error) {
	switch cfg.Type {
	case "memory":
		off := NewOfflineBrowser(cookiejar.NewMemoryJar())
		return &Backend{Browser: off.Browser(), Offline: off}, nil
	case "netscape":
		if cfg.CookieFile == "" {
			return nil, fmt.Errorf("netscape browser requires cookie_file to be set")
		}
		off := NewOfflineBrowser(cookiejar.NewFileJar(cfg.CookieFile, clock, logger))
		return &Backend{Browser: off.Browser(), Offline: off}, nil
	case "cdp":
		b, err := NewCDPBrowser(cfg.CDPURL, logger)
		if err != nil {
			return nil, err
		}
		return &Backend{Browser: b.Browser(), close: b.Close}, nil
	default:
		return nil, fmt.Errorf("unknown browser type: %s", cfg.Type)
	}
}
