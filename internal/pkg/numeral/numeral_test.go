package numeral

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDigits(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"ascii_untouched", "12500", "12500"},
		{"arabic_indic", "١٢٥٠٠", "12500"},
		{"persian", "۱۲۵۰۰", "12500"},
		{"devanagari", "१२५००", "12500"},
		{"bengali", "১২৫০০", "12500"},
		{"mixed", "1٢3٤5", "12345"},
		{"arabic_decimal_separator", "١٢٫٥", "12.5"},
		{"arabic_thousands_separator", "١٬٢٥٠", "1,250"},
		{"non_digits_untouched", "abc", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDigits(tt.input))
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
		ok    bool
	}{
		{"plain", "12500", 12500, true},
		{"decimal", "125.50", 125.5, true},
		{"thousands_separator", "12,500", 12500, true},
		{"whitespace", "  12500  ", 12500, true},
		{"arabic_indic", "١٢٥٠٠", 12500, true},
		{"arabic_with_separators", "١٬٢٥٠٫٥", 1250.5, true},
		{"empty", "", 0, false},
		{"zero", "0", 0, false},
		{"negative", "-100", 0, false},
		{"garbage", "abc", 0, false},
		{"too_large", "2e15", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseAmount(tt.input)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestIsValidAmount(t *testing.T) {
	assert.True(t, IsValidAmount(0.01))
	assert.True(t, IsValidAmount(1e15))
	assert.False(t, IsValidAmount(0))
	assert.False(t, IsValidAmount(-1))
	assert.False(t, IsValidAmount(math.NaN()))
	assert.False(t, IsValidAmount(math.Inf(1)))
	assert.False(t, IsValidAmount(1e15+1e10))
}
