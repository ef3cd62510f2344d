package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripAccents decomposes s (NFKD) and drops combining marks, so "Amélie"
// becomes "Amelie" and ligatures such as "ﬁ" become "fi".
func StripAccents(s string) string {
	if isASCII(s) {
		return s
	}
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

var compactReplacer = strings.NewReplacer(" ", "", "-", "", "'", "", ":", "")

// Compact removes spaces, hyphens, apostrophes and colons and lowercases the
// result, turning "Jean-Pierre Jeunet" into "jeanpierrejeunet".
func Compact(s string) string {
	return strings.ToLower(compactReplacer.Replace(s))
}
