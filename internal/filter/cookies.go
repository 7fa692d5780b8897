// Package filter decides which cookies are left out of captured sessions.
package filter

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"strings"
)

// IgnoreFileName is the optional per-install pattern file read next to the
// configuration.
const IgnoreFileName = ".cookieignore"

// cookiePattern is a parsed ignore pattern. A leading '!' re-includes names
// that an earlier pattern ignored.
type cookiePattern struct {
	pattern string
	negate  bool
}

// CookieMatcher checks cookie names against a set of glob patterns.
// Later patterns take precedence over earlier ones.
type CookieMatcher struct {
	patterns []cookiePattern
}

// NewCookieMatcher creates a CookieMatcher from raw pattern strings.
// Blank lines and lines starting with '#' are skipped.
func NewCookieMatcher(rawPatterns []string) *CookieMatcher {
	var patterns []cookiePattern
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		p := cookiePattern{pattern: raw}
		if strings.HasPrefix(raw, "!") {
			p.pattern = strings.TrimPrefix(raw, "!")
			p.negate = true
		}
		if p.pattern == "" {
			continue
		}
		patterns = append(patterns, p)
	}
	return &CookieMatcher{patterns: patterns}
}

// ShouldIgnore reports whether a cookie called name is excluded from capture.
func (m *CookieMatcher) ShouldIgnore(name string) bool {
	ignored := false
	for _, p := range m.patterns {
		matched, err := path.Match(p.pattern, name)
		if err != nil {
			// Bad pattern; skip rather than crash.
			continue
		}
		if matched {
			ignored = !p.negate
		}
	}
	return ignored
}

// Len returns the number of active patterns.
func (m *CookieMatcher) Len() int {
	return len(m.patterns)
}

// ParseIgnoreFile reads a pattern file and returns the raw pattern strings.
// Returns nil and no error if the file does not exist.
func ParseIgnoreFile(filePath string) ([]string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}
