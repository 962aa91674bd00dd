package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "already normalized", input: "TCS", expected: "TCS"},
		{name: "lower case", input: "infy", expected: "INFY"},
		{name: "surrounding whitespace", input: "  sbin \t", expected: "SBIN"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeSymbol(tt.input))
		})
	}
}

func TestValidSymbol(t *testing.T) {
	assert.True(t, ValidSymbol("RELIANCE"))
	assert.True(t, ValidSymbol("m&m"))
	assert.True(t, ValidSymbol("BRK.B"))
	assert.False(t, ValidSymbol(""))
	assert.False(t, ValidSymbol("   "))
	assert.False(t, ValidSymbol("TCS; DROP"))
	assert.False(t, ValidSymbol("ABCDEFGHIJKLMNOPQRSTUVWXYZ"))
}
