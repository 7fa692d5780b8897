package domain

import (
	"regexp"
	"strings"
)

var complexAuthDomains = map[string]bool{
	// Google
	"google.com":            true,
	"gmail.com":             true,
	"googleapis.com":        true,
	"gstatic.com":           true,
	"googleusercontent.com": true,
	"google.co.id":          true,
	"google.co.uk":          true,
	"google.co.jp":          true,
	"google.co.in":          true,
	"youtube.com":           true,
	"youtube-nocookie.com":  true,
	"youtu.be":              true,
	"ytimg.com":             true,
	// Microsoft
	"microsoft.com":       true,
	"outlook.com":         true,
	"office.com":          true,
	"live.com":            true,
	"microsoftonline.com": true,
	"sharepoint.com":      true,
	"azure.com":           true,
	"msn.com":             true,
}

var complexAuthKeywords = regexp.MustCompile(`(?i)google|gmail|googleapis|gstatic|googleusercontent|youtube|youtu\.be|ytimg|microsoft|office|outlook|live|msn|sharepoint|microsoftonline|azure`)

// IsSensitiveAuthDomain reports whether domain belongs to an identity
// provider whose multi-account login tends to break session restore.
// It only drives a warning.
func IsSensitiveAuthDomain(d string) bool {
	if d == "" {
		return false
	}
	d = strings.ToLower(d)
	base, err := GetBaseDomain(d)
	if err != nil {
		base = d
	}
	if complexAuthDomains[base] {
		return true
	}
	return complexAuthKeywords.MatchString(d) || complexAuthKeywords.MatchString(base)
}

// SensitiveDomainWarning is the message shown before saving or restoring a
// session on a sensitive domain.
func SensitiveDomainWarning(d string) string {
	if d == "" {
		d = "This domain"
	}
	return d + " is using a complex auth system, saving or restoring sessions may not work properly if you log-in with multiple accounts. PLEASE PROCEED WITH CAUTIONS!"
}
