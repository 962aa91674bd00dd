package utils

import "strings"

// NormalizeSymbol trims and upper-cases a ticker symbol.
// Rules, cart entries and quotes are all keyed by the normalized form.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ValidSymbol reports whether s is a plausible exchange ticker:
// 1-20 characters of A-Z, 0-9, '&', '-' or '.' after normalization.
func ValidSymbol(s string) bool {
	s = NormalizeSymbol(s)
	if s == "" || len(s) > 20 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '&', r == '-', r == '.':
		default:
			return false
		}
	}
	return true
}
