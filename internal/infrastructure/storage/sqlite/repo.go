package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"obavg/internal/application/port"
	"obavg/internal/domain"
)

type Repo struct {
	db *sql.DB
}

// ResultRow is one journaled average.
type ResultRow struct {
	QueryID      string
	Symbol       string
	AveragePrice decimal.Decimal
	Levels       int
	TsMs         int64
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

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
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  query_id TEXT NOT NULL UNIQUE,
  symbol TEXT NOT NULL,
  average_price TEXT NOT NULL,
  levels INTEGER NOT NULL,
  ts_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_average_prices_symbol ON average_prices(symbol);
CREATE INDEX IF NOT EXISTS idx_average_prices_ts ON average_prices(ts_ms);
`)
	return err
}

// SaveResult stores the price as decimal text so nothing is lost to REAL.
func (r *Repo) SaveResult(ctx context.Context, queryID string, res domain.AggregationResult) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO average_prices(query_id, symbol, average_price, levels, ts_ms)
		VALUES(?, ?, ?, ?, ?)
	`, queryID, res.Symbol.String(), res.AveragePrice.String(), res.Levels, res.ComputedAt.UnixMilli())
	return err
}

// ListBySymbol returns the newest results first.
func (r *Repo) ListBySymbol(ctx context.Context, symbol string, limit int) ([]ResultRow, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT query_id, symbol, average_price, levels, ts_ms
		FROM average_prices WHERE symbol=? ORDER BY ts_ms DESC, id DESC LIMIT ?
	`, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ResultRow
	for rows.Next() {
		var row ResultRow
		var avg string
		if err := rows.Scan(&row.QueryID, &row.Symbol, &avg, &row.Levels, &row.TsMs); err != nil {
			return nil, err
		}
		if row.AveragePrice, err = decimal.NewFromString(avg); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

var _ port.ResultRepository = (*Repo)(nil)
