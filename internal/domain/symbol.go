package domain

import (
	"fmt"
	"strings"
)

// Symbol is a normalized trading pair, e.g. "BTCUSDC".
type Symbol string

// depthSuffix 是 diff depth 流名后缀（1000ms 更新频率）
const depthSuffix = "@depth"

// NewSymbol trims and upper-cases raw. Empty input is rejected.
func NewSymbol(raw string) (Symbol, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, raw)
	}
	return Symbol(s), nil
}

func (s Symbol) String() string { return string(s) }

// Lower is the form the exchange uses in stream names.
func (s Symbol) Lower() string { return strings.ToLower(string(s)) }

// DepthStream returns "<symbol>@depth". Subscription and frame matching both go
// through here so the two sides always agree on case.
func (s Symbol) DepthStream() string { return s.Lower() + depthSuffix }

// NormalizeSymbols drops blanks and duplicates, keeping first-seen order.
func NormalizeSymbols(in []string) []Symbol {
	out := make([]Symbol, 0, len(in))
	seen := map[Symbol]struct{}{}
	for _, raw := range in {
		s, err := NewSymbol(raw)
		if err != nil {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
