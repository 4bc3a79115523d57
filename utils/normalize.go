package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeUsername lowercases, trims and strips accent marks so usernames
// compare the same regardless of how the client composed them.
func NormalizeUsername(username string) string {
	t := norm.NFD.String(strings.TrimSpace(username))
	var b strings.Builder
	for _, r := range t {
		if unicode.Is(unicode.Mn, r) {
			continue // remove accent marks
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
