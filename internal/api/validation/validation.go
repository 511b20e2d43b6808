package validation

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxNameLength matches the size of the name columns.
const MaxNameLength = 255

// SanitizeString removes control characters except newlines and tabs
func SanitizeString(s string) string {
	// Remove null bytes
	s = strings.ReplaceAll(s, "\x00", "")

	var result strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}

	return result.String()
}

// TruncateString truncates a string to maxLen runes
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen])
}

// CleanName sanitizes a single-line label such as a plan or person name.
func CleanName(s string) string {
	s = strings.Join(strings.Fields(SanitizeString(s)), " ")
	return TruncateString(s, MaxNameLength)
}

// CleanNotes sanitizes free text and trims surrounding whitespace.
func CleanNotes(s string) string {
	return strings.TrimSpace(SanitizeString(s))
}

// CleanNotesPtr is CleanNotes for optional fields. nil stays nil.
func CleanNotesPtr(s *string) *string {
	if s == nil {
		return nil
	}
	cleaned := CleanNotes(*s)
	return &cleaned
}
