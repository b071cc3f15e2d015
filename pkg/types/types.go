package types

import (
	"fmt"

	"golang.org/x/exp/slices"
)

type Privacy string

const (
	PrivacyPublic   Privacy = "public"
	PrivacyPrivate  Privacy = "private"
	PrivacyUnlisted Privacy = "unlisted"
)

var privacies = []Privacy{PrivacyPublic, PrivacyPrivate, PrivacyUnlisted}

// ParsePrivacy validates a privacy string from a flag or metadata document.
func ParsePrivacy(s string) (Privacy, error) {
	p := Privacy(s)
	if !slices.Contains(privacies, p) {
		return "", fmt.Errorf("invalid privacy setting: %s (supported: public, private, unlisted)", s)
	}
	return p, nil
}

// SupportedPrivacies returns the accepted privacy values.
func SupportedPrivacies() []string {
	out := make([]string, 0, len(privacies))
	for _, p := range privacies {
		out = append(out, string(p))
	}
	return out
}
