package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"tradepilot/internal/domain/model"
)

// 需要真实数据库：TRADEPILOT_TEST_POSTGRES_DSN=postgres://...
func TestPostgresRepoRoundTrip(t *testing.T) {
	dsn := os.Getenv("TRADEPILOT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TRADEPILOT_TEST_POSTGRES_DSN not set")
	}
	repo, err := New(dsn)
	if err != nil {
		t.Fatalf("failed to create repo: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()
	ts := time.Now().UnixMilli()
	if err := repo.UpsertLatestPrice(ctx, model.Quote{Symbol: "TEST", Price: 1.5, Ts: ts}); err != nil {
		t.Fatalf("UpsertLatestPrice failed: %v", err)
	}
	if err := repo.InsertSnapshot(ctx, ts, `{}`); err != nil {
		t.Fatalf("InsertSnapshot failed: %v", err)
	}

	var price float64
	if err := repo.db.QueryRowContext(ctx, `SELECT price FROM latest_prices WHERE symbol=$1`, "TEST").Scan(&price); err != nil {
		t.Fatalf("query: %v", err)
	}
	if price != 1.5 {
		t.Errorf("expected 1.5, got %v", price)
	}
}
