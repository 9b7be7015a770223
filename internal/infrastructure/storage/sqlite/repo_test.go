package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"obavg/internal/domain"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	repo, err := New(filepath.Join(t.TempDir(), "nested", "results.db"))
	if err != nil {
		t.Fatalf("failed to create repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepoSaveResult(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	res := domain.AggregationResult{
		Symbol:       "BTCUSDC",
		AveragePrice: decimal.RequireFromString("64123.4567891234567891"),
		Levels:       9,
		ComputedAt:   time.UnixMilli(1700000000000),
	}
	if err := repo.SaveResult(ctx, "q-1", res); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}

	rows, err := repo.ListBySymbol(ctx, "BTCUSDC", 10)
	if err != nil {
		t.Fatalf("ListBySymbol failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if !rows[0].AveragePrice.Equal(res.AveragePrice) {
		t.Errorf("expected price %s, got %s", res.AveragePrice, rows[0].AveragePrice)
	}
	if rows[0].Levels != 9 || rows[0].TsMs != 1700000000000 || rows[0].QueryID != "q-1" {
		t.Errorf("unexpected row %+v", rows[0])
	}
}

func TestSQLiteRepoDuplicateQueryID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	res := domain.AggregationResult{Symbol: "BTCUSDC", AveragePrice: decimal.NewFromInt(1), ComputedAt: time.Now()}

	if err := repo.SaveResult(ctx, "dup", res); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}
	if err := repo.SaveResult(ctx, "dup", res); err == nil {
		t.Errorf("expected unique constraint error on duplicate query id")
	}
}

func TestSQLiteRepoListOrdering(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		res := domain.AggregationResult{
			Symbol:       "ETHUSDT",
			AveragePrice: decimal.NewFromInt(int64(3000 + i)),
			Levels:       2,
			ComputedAt:   time.UnixMilli(int64(1000 + i)),
		}
		if err := repo.SaveResult(ctx, id, res); err != nil {
			t.Fatalf("SaveResult failed: %v", err)
		}
	}

	rows, err := repo.ListBySymbol(ctx, "ETHUSDT", 2)
	if err != nil {
		t.Fatalf("ListBySymbol failed: %v", err)
	}
	if len(rows) != 2 || rows[0].QueryID != "c" || rows[1].QueryID != "b" {
		t.Errorf("expected newest first [c b], got %+v", rows)
	}

	other, err := repo.ListBySymbol(ctx, "BTCUSDC", 0)
	if err != nil {
		t.Fatalf("ListBySymbol failed: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected no rows for BTCUSDC, got %d", len(other))
	}
}
