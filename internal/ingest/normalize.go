package ingest

import "strings"

// DefaultOrderPrefix is the order-id prefix the photobooth checkout stamps
// on every gateway order.
const DefaultOrderPrefix = "FRM-"

// NormalizeEmail lower-cases and trims an email field.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeOrderID folds an order-id field into its canonical form: leading
// descriptive labels ("Order ID: ...") are stripped, and if the known order
// prefix appears anywhere in the string the result is sliced from that point
// with the prefix upper-cased. Normalization is idempotent.
func NormalizeOrderID(s, prefix string) string {
	s = strings.TrimSpace(s)
	if prefix != "" {
		if i := indexFold(s, prefix); i >= 0 {
			s = s[i:]
			return strings.ToUpper(s[:len(prefix)]) + s[len(prefix):]
		}
	}
	// No prefix token present. Drop leading "Order ID:"-style labels until
	// none remain, which keeps the function idempotent.
	for {
		i := strings.IndexByte(s, ':')
		if i < 0 || !isLabel(s[:i]) {
			return s
		}
		s = strings.TrimSpace(s[i+1:])
	}
}

// isLabel reports whether a field prefix looks like a descriptive label
// (letters and spaces only) rather than part of an identifier.
func isLabel(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c == ' ' || c == '.' || c == '#':
		default:
			return false
		}
	}
	return true
}

// indexFold is a case-insensitive strings.Index.
func indexFold(s, substr string) int {
	return strings.Index(strings.ToLower(s), strings.ToLower(substr))
}
