package orderbook

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"obavg/internal/domain"
)

// Kind tags what a raw frame turned out to be.
type Kind int

const (
	KindUnrecognized Kind = iota
	KindConnectionAck
	KindDepthUpdate
)

func (k Kind) String() string {
	switch k {
	case KindConnectionAck:
		return "connection_ack"
	case KindDepthUpdate:
		return "depth_update"
	default:
		return "unrecognized"
	}
}

// Frame is a parsed market stream frame. Stream, Asks and Bids are only set
// for KindDepthUpdate; quantities are dropped.
type Frame struct {
	Kind   Kind
	Stream string
	Asks   []decimal.Decimal
	Bids   []decimal.Decimal
}

// combined stream payload: {"stream":"btcusdc@depth","data":{...}}
// encoding/json 对 key 大小写不敏感，"e"/"E" 和 "u"/"U" 必须都声明
type depthData struct {
	EventType     string      `json:"e"`
	EventTime     int64       `json:"E"`
	Symbol        string      `json:"s"`
	FirstUpdateID int64       `json:"U"`
	FinalUpdateID int64       `json:"u"`
	Bids          *[][]string `json:"b"`
	Asks          *[][]string `json:"a"`
}

// ParseFrame classifies raw. Anything that is not a JSON object, or a depth
// update without both level lists or whose price levels do not parse, is
// reported as domain.ErrParse. Present but empty lists are a valid update.
func ParseFrame(raw domain.RawFrame) (Frame, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &top); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}

	streamRaw, hasStream := top["stream"]
	if !hasStream {
		// subscribe ack: {"result":null,"id":1}
		if res, ok := top["result"]; ok && string(res) == "null" {
			return Frame{Kind: KindConnectionAck}, nil
		}
		return Frame{Kind: KindUnrecognized}, nil
	}

	var stream string
	if err := json.Unmarshal(streamRaw, &stream); err != nil {
		return Frame{}, fmt.Errorf("%w: stream: %v", domain.ErrParse, err)
	}
	if !strings.Contains(stream, "@depth") {
		return Frame{Kind: KindUnrecognized, Stream: stream}, nil
	}

	var data depthData
	if err := json.Unmarshal(top["data"], &data); err != nil {
		return Frame{}, fmt.Errorf("%w: data: %v", domain.ErrParse, err)
	}
	if data.Asks == nil || data.Bids == nil {
		return Frame{}, fmt.Errorf("%w: data: missing asks or bids", domain.ErrParse)
	}
	asks, err := levelPrices(*data.Asks)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: asks: %v", domain.ErrParse, err)
	}
	bids, err := levelPrices(*data.Bids)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: bids: %v", domain.ErrParse, err)
	}
	return Frame{Kind: KindDepthUpdate, Stream: stream, Asks: asks, Bids: bids}, nil
}

// levelPrices keeps the price of each [price, qty] pair.
func levelPrices(levels [][]string) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, 0, len(levels))
	for i, lv := range levels {
		if len(lv) == 0 {
			return nil, fmt.Errorf("level %d is empty", i)
		}
		p, err := decimal.NewFromString(lv[0])
		if err != nil {
			return nil, fmt.Errorf("level %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}
