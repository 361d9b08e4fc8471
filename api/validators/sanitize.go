package validators

import (
	"strings"
	"unicode"
)

// SanitizeString trims input, drops control characters, collapses runs of
// whitespace and truncates to maxLen runes. maxLen <= 0 disables truncation.
func SanitizeString(input string, maxLen int) string {
	var b strings.Builder
	space := false
	for _, r := range strings.TrimSpace(input) {
		switch {
		case unicode.IsSpace(r):
			space = true
			continue
		case unicode.IsControl(r):
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(r)
	}

	out := b.String()
	if maxLen > 0 {
		if runes := []rune(out); len(runes) > maxLen {
			out = strings.TrimSpace(string(runes[:maxLen]))
		}
	}
	return out
}
