package security

import (
	"strings"
	"unicode"
)

// SanitizeText removes control characters from free-form text and trims it.
func SanitizeText(text string) string {
	var result strings.Builder
	for _, r := range text {
		if r >= 32 && r != 127 {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

// SanitizeLabel cleans a short label such as a pair, setup or exit reason:
// control characters are dropped and runs of whitespace collapse to one space.
func SanitizeLabel(label string) string {
	return strings.Join(strings.FieldsFunc(SanitizeText(label), unicode.IsSpace), " ")
}

// MaskPath shortens a filesystem path under the home directory for logs.
func MaskPath(path, home string) string {
	if home != "" {
		if rest, ok := strings.CutPrefix(path, home); ok {
			return "~" + rest
		}
	}
	return path
}
