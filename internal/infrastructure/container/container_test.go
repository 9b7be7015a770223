package container

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"obavg/internal/domain"
	"obavg/internal/infrastructure/config"
	"obavg/internal/infrastructure/storage/composite"
)

func TestContainerWithSQLite(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Enabled = true
	cfg.Storage.SQLite.Enabled = true
	cfg.Storage.SQLite.Path = filepath.Join(t.TempDir(), "container.db")

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create container: %v", err)
	}
	defer c.Close()

	if c.SQLiteRepo() == nil {
		t.Fatalf("expected SQLiteRepo, got nil")
	}

	repo := c.ResultRepository()
	if _, ok := repo.(*composite.Repo); !ok {
		t.Fatalf("expected composite repo, got %T", repo)
	}

	ctx := context.Background()
	res := domain.AggregationResult{Symbol: "BTCUSDC", AveragePrice: decimal.NewFromInt(42), Levels: 2, ComputedAt: time.Now()}
	if err := repo.SaveResult(ctx, "q-1", res); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}

	rows, err := c.SQLiteRepo().ListBySymbol(ctx, "BTCUSDC", 10)
	if err != nil {
		t.Fatalf("ListBySymbol failed: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("expected 1 journaled result, got %d", len(rows))
	}
}

func TestContainerWithoutStorage(t *testing.T) {
	c, err := New(&config.Config{})
	if err != nil {
		t.Fatalf("failed to create container: %v", err)
	}
	if err := c.ResultRepository().SaveResult(context.Background(), "q", domain.AggregationResult{}); err != nil {
		t.Errorf("noop repo returned error: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}
