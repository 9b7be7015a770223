package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decs(vals ...float64) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(vals))
	for _, v := range vals {
		out = append(out, decimal.NewFromFloat(v))
	}
	return out
}

func TestAveragePrice(t *testing.T) {
	tests := []struct {
		name string
		asks []decimal.Decimal
		bids []decimal.Decimal
		want float64
	}{
		{"asks and bids", decs(1, 2, 3, 4), decs(1, 2, 3, 4, 5), 25.0 / 9.0},
		{"asks only", decs(10, 20), nil, 15},
		{"bids only", nil, decs(7), 7},
		{"fractional prices", decs(64000.10, 64000.30), decs(63999.90, 63999.70), 64000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AveragePrice(tt.asks, tt.bids)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got.InexactFloat64(), 1e-9)
		})
	}
}

func TestAveragePriceEmptyBook(t *testing.T) {
	_, err := AveragePrice(nil, []decimal.Decimal{})
	assert.ErrorIs(t, err, ErrEmptyOrderBook)
}

func TestSymbolNormalization(t *testing.T) {
	s, err := NewSymbol("  btcUsdc ")
	require.NoError(t, err)
	assert.Equal(t, Symbol("BTCUSDC"), s)
	assert.Equal(t, "btcusdc@depth", s.DepthStream())

	_, err = NewSymbol("   ")
	assert.ErrorIs(t, err, ErrInvalidSymbol)

	got := NormalizeSymbols([]string{"ethusdt", "", "ETHUSDT", "btcusdc"})
	assert.Equal(t, []Symbol{"ETHUSDT", "BTCUSDC"}, got)
}
