package domain

import (
	"fmt"

	"golang.org/x/net/publicsuffix"
)

// Normalizer derives the registrable domain used as the session key.
type Normalizer interface {
	BaseDomain(input string) (string, error)
}

// Heuristic is the default Normalizer. It uses the small built-in suffix
// table so that keys stay compatible with existing saved sessions.
type Heuristic struct{}

func (Heuristic) BaseDomain(input string) (string, error) {
	return GetBaseDomain(input)
}

// PublicSuffix resolves registrable domains against the full public suffix
// list. Switching to it changes which sessions count as the same site.
type PublicSuffix struct{}

func (PublicSuffix) BaseDomain(input string) (string, error) {
	if input == "" {
		return "", ErrEmptyInput
	}
	hostname := Hostname(input)
	if isLiteralHost(hostname) || len(splitLabels(hostname)) <= 1 {
		return hostname, nil
	}
	base, err := publicsuffix.EffectiveTLDPlusOne(hostname)
	if err != nil {
		// Hostnames that are themselves a public suffix have no eTLD+1.
		return GetBaseDomain(hostname)
	}
	return base, nil
}

// NewNormalizer returns the Normalizer for a configured mode.
func NewNormalizer(mode string) (Normalizer, error) {
	switch mode {
	case "heuristic", "":
		return Heuristic{}, nil
	case "full":
		return PublicSuffix{}, nil
	default:
		return nil, fmt.Errorf("unknown public suffix mode: %q", mode)
	}
}
