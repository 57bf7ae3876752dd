package ticker

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// go test -v --run TestPriceFormatter
func TestPriceFormatter(t *testing.T) {
	format := NewPriceFormatter("USDT")

	tests := []struct {
		in   string
		want string
	}{
		{"30.12", "30.12 USDT"},
		{"123.40", "123.40 USDT"},
		{"0.1", "0.10 USDT"},
		{"1234.5", "1,234.50 USDT"},
		{"1234567.891", "1,234,567.89 USDT"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, format(decimal.RequireFromString(tt.in)), tt.in)
	}
}

// go test -v --run TestPriceFormatterNoUnit
func TestPriceFormatterNoUnit(t *testing.T) {
	assert.Equal(t, "7.00", NewPriceFormatter("")(decimal.NewFromInt(7)))
}
