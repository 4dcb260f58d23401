package common

import "strings"

// HasAny returns true if s contains any of the substrings.
func HasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// StripSpaces removes all whitespace from s.
func StripSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// FirstRunes returns at most n leading runes of s.
func FirstRunes(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}
