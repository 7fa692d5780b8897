// Package domain derives registrable domains from URLs and hostnames.
// The registrable domain is the key every saved session is grouped and
// matched by.
package domain

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// ErrEmptyInput is returned when there is no URL or hostname to normalize.
var ErrEmptyInput = errors.New("invalid URL")

var ipv4Pattern = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}$`)

// twoLevelSuffixes are the public suffixes that take a third label.
// This is an approximation of the public suffix list, not the list itself.
var twoLevelSuffixes = map[string]bool{
	"co.uk":  true,
	"ac.uk":  true,
	"gov.uk": true,
	"com.au": true,
	"net.au": true,
	"co.id":  true,
}

// Hostname extracts the hostname from a URL or returns the input unchanged
// when it does not look like a URL. IPv6 brackets are removed.
func Hostname(input string) string {
	hostname := input
	if strings.Contains(input, "://") {
		if u, err := url.Parse(input); err == nil {
			hostname = strings.ToLower(u.Hostname())
		}
	}
	hostname = strings.TrimPrefix(hostname, "[")
	hostname = strings.TrimSuffix(hostname, "]")
	return hostname
}

// GetBaseDomain returns the registrable domain for a URL or hostname using
// the built-in suffix heuristic.
func GetBaseDomain(input string) (string, error) {
	if input == "" {
		return "", ErrEmptyInput
	}
	hostname := Hostname(input)
	if isLiteralHost(hostname) {
		return hostname, nil
	}

	labels := splitLabels(hostname)
	if len(labels) <= 2 {
		return hostname, nil
	}

	n := len(labels)
	tail2 := labels[n-2] + "." + labels[n-1]
	if twoLevelSuffixes[tail2] {
		return labels[n-3] + "." + tail2, nil
	}
	return tail2, nil
}

// IsDomainMatch reports whether a session saved for sessionDomain applies to
// currentDomain. The relation is asymmetric: a session for example.com
// matches app.example.com, never the reverse.
func IsDomainMatch(sessionDomain, currentDomain string) bool {
	if sessionDomain == "" || currentDomain == "" {
		return false
	}
	sd := normalizeMatch(sessionDomain)
	cd := normalizeMatch(currentDomain)
	return cd == sd || strings.HasSuffix(cd, "."+sd)
}

// HasSuffixDomain reports whether a cookie domain, with its leading dot
// stripped, ends with target. It is broader than IsDomainMatch and is used to
// sweep every cookie belonging to a site.
func HasSuffixDomain(cookieDomain, target string) bool {
	return strings.HasSuffix(strings.TrimPrefix(cookieDomain, "."), target)
}

// IsHostOrSubdomain reports whether host equals base or is a subdomain of it.
func IsHostOrSubdomain(host, base string) bool {
	return host == base || strings.HasSuffix(host, "."+base)
}

func normalizeMatch(d string) string {
	return strings.ToLower(strings.TrimPrefix(d, "."))
}

func isLiteralHost(hostname string) bool {
	return hostname == "localhost" || ipv4Pattern.MatchString(hostname)
}

func splitLabels(hostname string) []string {
	var labels []string
	for _, l := range strings.Split(hostname, ".") {
		if l != "" {
			labels = append(labels, l)
		}
	}
	return labels
}
