// Package numeral normalizes numeric user input before it reaches business
// logic. Marketplace users type amounts with non-Latin digit forms and
// locale separators; everything is folded to a plain ASCII decimal here so
// the services only ever see float64.
package numeral

import (
	"strconv"
	"strings"
	"unicode"
)

// digit ranges that show up in real listings: Arabic-Indic, Extended
// Arabic-Indic (Persian), Devanagari and Bengali
var digitBases = []rune{
	0x0660, // ٠
	0x06F0, // ۰
	0x0966, // ०
	0x09E6, // ০
}

// NormalizeDigits maps known Unicode digit forms in s to their ASCII
// equivalents. Unknown characters are left as-is.
func NormalizeDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		b.WriteRune(normalizeRune(r))
	}
	return b.String()
}

func normalizeRune(r rune) rune {
	if r >= '0' && r <= '9' {
		return r
	}
	if !unicode.IsDigit(r) {
		// Arabic decimal and thousands separators
		switch r {
		case 0x066B: // ٫
			return '.'
		case 0x066C: // ٬
			return ','
		}
		return r
	}
	for _, base := range digitBases {
		if r >= base && r <= base+9 {
			return '0' + (r - base)
		}
	}
	return r
}

// ParseAmount parses a user-supplied amount string into a finite, positive
// float64. Thousands separators are stripped; Unicode digits are normalized
// first. Returns ok=false for anything that does not parse to a positive
// finite number.
func ParseAmount(s string) (float64, bool) {
	normalized := NormalizeDigits(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, ",", "")
	if normalized == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, false
	}
	return v, IsValidAmount(v)
}

// IsValidAmount reports whether v is a finite, positive number
func IsValidAmount(v float64) bool {
	if v <= 0 {
		return false
	}
	// NaN fails v <= 0 and v > 0 alike; +Inf fails the upper bound
	if v != v || v > 1e15 {
		return false
	}
	return true
}
