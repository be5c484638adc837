package validators

import "strings"

// SanitizeString trims whitespace and truncates to maxLen runes. Rune-based
// so accented quiz answers are never cut mid-character.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 {
		runes := []rune(trimmed)
		if len(runes) > maxLen {
			return string(runes[:maxLen])
		}
	}
	return trimmed
}
