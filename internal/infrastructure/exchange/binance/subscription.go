package binance

import (
	"fmt"

	"obavg/internal/domain"
)

const (
	ExchangeName = "binance"

	// DefaultMaxStreams Binance 单连接最多 1024 个流
	DefaultMaxStreams = 1024
)

// SubscribeRequest {"method":"SUBSCRIBE","params":["btcusdc@depth"],"id":1}
type SubscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     uint64   `json:"id"`
}

// BuildSubscribeRequest 构造订阅请求。symbols 去重后为空返回 ErrSubscription，
// 数量达到 maxStreams 返回 ErrTooManySymbols（上限本身也拒绝）
func BuildSubscribeRequest(symbols []domain.Symbol, maxStreams int, id uint64) (SubscribeRequest, error) {
	streams := make([]string, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		st := sym.DepthStream()
		if sym == "" {
			continue
		}
		if _, ok := seen[st]; ok {
			continue
		}
		seen[st] = struct{}{}
		streams = append(streams, st)
	}
	if len(streams) == 0 {
		return SubscribeRequest{}, fmt.Errorf("%w: no symbols", domain.ErrSubscription)
	}
	if maxStreams > 0 && len(streams) >= maxStreams {
		return SubscribeRequest{}, fmt.Errorf("%w: %d streams, limit %d", domain.ErrTooManySymbols, len(streams), maxStreams)
	}
	return SubscribeRequest{Method: "SUBSCRIBE", Params: streams, ID: id}, nil
}
