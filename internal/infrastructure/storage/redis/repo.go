package redis

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"obavg/internal/application/port"
	"obavg/internal/domain"

	"github.com/redis/go-redis/v9"
)

type Repo struct {
	rdb          *redis.Client
	prefix       string
	ttl          time.Duration
	keyLatest    string // prefix + ":latest"
	resultStream string
	resultChan   string
}

// LatestResult is the JSON stored per symbol and published to subscribers.
type LatestResult struct {
	QueryID      string `json:"query_id"`
	Symbol       string `json:"symbol"`
	AveragePrice string `json:"average_price"`
	Levels       int    `json:"levels"`
	Ts           int64  `json:"ts_ms"`
}

func New(rdb *redis.Client, prefix string, ttl time.Duration, resultStream, resultChan string) *Repo {
	if strings.TrimSpace(resultStream) == "" {
		resultStream = prefix + ":results"
	}
	if strings.TrimSpace(resultChan) == "" {
		resultChan = prefix + ":results:pub"
	}
	return &Repo{
		rdb:          rdb,
		prefix:       prefix,
		ttl:          ttl,
		keyLatest:    prefix + ":latest",
		resultStream: resultStream,
		resultChan:   resultChan,
	}
}

func (r *Repo) SaveResult(ctx context.Context, queryID string, res domain.AggregationResult) error {
	lr := LatestResult{
		QueryID:      queryID,
		Symbol:       res.Symbol.String(),
		AveragePrice: res.AveragePrice.String(),
		Levels:       res.Levels,
		Ts:           res.ComputedAt.UnixMilli(),
	}
	b, err := json.Marshal(lr)
	if err != nil {
		return err
	}

	// Hash: field = "BTCUSDC" -> json; Stream: XADD; PubSub: PUBLISH
	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, r.keyLatest, lr.Symbol, string(b))
	if r.ttl > 0 {
		pipe.Expire(ctx, r.keyLatest, r.ttl)
	}
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: r.resultStream,
		Values: map[string]any{
			"query_id":      lr.QueryID,
			"symbol":        lr.Symbol,
			"average_price": lr.AveragePrice,
			"levels":        lr.Levels,
			"ts_ms":         lr.Ts,
		},
	})
	pipe.Publish(ctx, r.resultChan, string(b))
	_, err = pipe.Exec(ctx)
	return err
}

// Close is a no-op: the client is owned and closed by the container.
func (r *Repo) Close() error { return nil }

var _ port.ResultRepository = (*Repo)(nil)
