package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawFrame is one text payload as received from the market-data socket.
type RawFrame string

// AggregationResult is computed fresh for every query.
type AggregationResult struct {
	Symbol       Symbol
	AveragePrice decimal.Decimal
	Levels       int // asks + bids that went into the average
	ComputedAt   time.Time
}

// AveragePrice returns (sum(asks) + sum(bids)) / (len(asks) + len(bids)).
// An empty book is reported as ErrEmptyOrderBook rather than divided.
func AveragePrice(asks, bids []decimal.Decimal) (decimal.Decimal, error) {
	n := len(asks) + len(bids)
	if n == 0 {
		return decimal.Zero, ErrEmptyOrderBook
	}
	sum := decimal.Zero
	for _, p := range asks {
		sum = sum.Add(p)
	}
	for _, p := range bids {
		sum = sum.Add(p)
	}
	return sum.Div(decimal.NewFromInt(int64(n))), nil
}
