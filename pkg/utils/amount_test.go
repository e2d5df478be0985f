package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatMsats(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0.00000000 BTC"},
		{999, "0.00000000 BTC"},
		{1000, "0.00000001 BTC"},
		{123456789, "0.00123456 BTC"},
		{MsatsPerBTC, "1.00000000 BTC"},
		{21_000_000 * MsatsPerBTC, "21000000.00000000 BTC"},
		{-150_000_000_000, "-1.50000000 BTC"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatMsats(tt.input))
		})
	}
}

func TestFormatSats(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0 sat"},
		{999_000, "999 sat"},
		{1_000_000, "1,000 sat"},
		{1_234_567_000, "1,234,567 sat"},
		{-12_345_000, "-12,345 sat"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatSats(tt.input))
		})
	}
}
