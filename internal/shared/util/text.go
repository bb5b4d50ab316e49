package util

import "unicode/utf8"

// CutUTF8 returns the longest prefix of s that fits in n bytes without
// splitting a rune.
func CutUTF8(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
