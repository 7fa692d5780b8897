package browser

import (
	"path/filepath"
	"testing"

	"seswi-go/internal/config"
	"seswi-go/internal/seswi"
)

func TestNewBackendFromConfig(t *testing.T) {
	clock := seswi.RealClock{}
	logger := seswi.NewNopLogger()

	tests := []struct {
		name        string
		cfg         config.BrowserConfig
		wantErr     bool
		wantOffline bool
	}{
		{name: "memory", cfg: config.BrowserConfig{Type: "memory"}, wantOffline: true},
		{name: "netscape", cfg: config.BrowserConfig{Type: "netscape", CookieFile: filepath.Join(t.TempDir(), "cookies.txt")}, wantOffline: true},
		{name: "netscape without file", cfg: config.BrowserConfig{Type: "netscape"}, wantErr: true},
		{name: "cdp without url", cfg: config.BrowserConfig{Type: "cdp"}, wantErr: true},
		{name: "unknown", cfg: config.BrowserConfig{Type: "lynx"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBackendFromConfig(tt.cfg, clock, logger)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewBackendFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			defer b.Close()
			if (b.Offline != nil) != tt.wantOffline {
				t.Errorf("Offline = %v, wantOffline %v", b.Offline, tt.wantOffline)
			}
			if b.Tabs == nil || b.Cookies == nil || b.Storage == nil || b.Reloader == nil {
				t.Errorf("backend is missing primitives: %+v", b.Browser)
			}
		})
	}
}
