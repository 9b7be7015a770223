package postgres

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"

	"obavg/internal/application/port"
	"obavg/internal/domain"
)

type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS average_prices (
  id BIGSERIAL PRIMARY KEY,
  query_id TEXT NOT NULL UNIQUE,
  symbol TEXT NOT NULL,
  average_price NUMERIC NOT NULL,
  levels INTEGER NOT NULL,
  ts_ms BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_average_prices_symbol_ts ON average_prices(symbol, ts_ms);
`)
	return err
}

func (r *Repo) SaveResult(ctx context.Context, queryID string, res domain.AggregationResult) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO average_prices(query_id, symbol, average_price, levels, ts_ms) VALUES($1, $2, $3, $4, $5)`,
		queryID, res.Symbol.String(), res.AveragePrice.String(), res.Levels, res.ComputedAt.UnixMilli())
	return err
}

var _ port.ResultRepository = (*Repo)(nil)
