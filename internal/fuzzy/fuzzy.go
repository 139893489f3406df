// Package fuzzy holds the one text matcher shared by every search box.
//
// Match is an ordered subsequence test, not an edit distance: every needle
// rune must appear in the haystack at or after the previous match. Dropped
// or extra characters are tolerated, reordered ones are not.
package fuzzy

import (
	"strings"
	"unicode"
)

// Normalize lower-cases s and removes all whitespace.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Contains reports whether the normalized needle is a substring of the
// normalized haystack.
func Contains(haystack, needle string) bool {
	return strings.Contains(Normalize(haystack), Normalize(needle))
}

// Match reports whether the normalized needle is an ordered subsequence of
// the normalized haystack. An empty needle matches everything.
func Match(haystack, needle string) bool {
	return subsequence([]rune(Normalize(haystack)), []rune(Normalize(needle)))
}

func subsequence(haystack, needle []rune) bool {
	cursor := 0
	for _, r := range needle {
		for cursor < len(haystack) && haystack[cursor] != r {
			cursor++
		}
		if cursor == len(haystack) {
			return false
		}
		cursor++
	}
	return true
}
