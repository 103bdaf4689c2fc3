package textutil

import (
	"strings"
	"unicode"
)

// SanitizeToken converts a string to a filesystem-safe token. ASCII letters,
// digits, hyphens, and dots are kept with their case intact, since video ids are
// case sensitive. Everything else becomes an underscore and runs of underscores
// collapse. Returns "unknown" for empty input.
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	var b strings.Builder
	lastUnderscore := false
	for _, r := range value {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			lastUnderscore = false
		case r == '-' || r == '.':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "_-.")
	if out == "" {
		return "unknown"
	}
	return out
}

// JoinKey sanitizes each part and joins them with underscores.
func JoinKey(parts ...string) string {
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		tokens = append(tokens, SanitizeToken(part))
	}
	return strings.Join(tokens, "_")
}
