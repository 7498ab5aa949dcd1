package venue

import "strings"

// Normalize converts full-width ASCII variants (digits, letters, punctuation)
// to their half-width equivalents and trims surrounding whitespace. It is a
// total function: any input, including the empty string, yields a usable
// string.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder

	b.Grow(len(s))

	for _, r := range s {
		switch {
		case r >= '！' && r <= '～': // U+FF01..U+FF5E
			r -= 0xFEE0
		case r == '　': // ideographic space
			r = ' '
		}

		b.WriteRune(r)
	}

	return strings.TrimSpace(b.String())
}

// NormalizeCell normalizes one tabular cell: full-width folding, trimming and
// stripping of leading/trailing quote runs left behind by spreadsheet exports.
func NormalizeCell(s string) string {
	return strings.Trim(Normalize(s), "'\"`")
}
