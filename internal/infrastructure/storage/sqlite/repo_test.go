package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tradepilot/internal/domain/model"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	repo, err := New(filepath.Join(t.TempDir(), "data", "journal.db"))
	if err != nil {
		t.Fatalf("failed to create repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepoUpsertPrice(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.UpsertLatestPrice(ctx, model.Quote{Symbol: "WETH", Price: 3000, Ts: 1}); err != nil {
		t.Fatalf("UpsertLatestPrice failed: %v", err)
	}
	if err := repo.UpsertLatestPrice(ctx, model.Quote{Symbol: "WETH", Price: 3100, Volume: 12, Ts: 2}); err != nil {
		t.Fatalf("UpsertLatestPrice failed: %v", err)
	}

	q, err := repo.LatestPrice(ctx, "WETH")
	if err != nil {
		t.Fatalf("LatestPrice failed: %v", err)
	}
	if q.Price != 3100 || q.Volume != 12 || q.Ts != 2 {
		t.Errorf("expected latest quote 3100/12/2, got %+v", q)
	}
}

func TestSQLiteRepoInsertDecision(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	decisions := []model.Decision{
		{ID: "d1", Symbol: "WETH", Price: 3000, Reason: model.ReasonBelowThreshold, Ts: 1},
		{ID: "d2", Symbol: "WETH", Price: 3010, Reason: model.ReasonBelowThreshold, Ts: 2},
		{ID: "d3", Symbol: "WETH", Price: 3020, Target: 0.5, Executed: true, Ts: 3,
			Signal: model.Signal{Verdict: model.VerdictBuy, Regime: model.RegimeTrending}},
	}
	for _, d := range decisions {
		if err := repo.InsertDecision(ctx, d); err != nil {
			t.Fatalf("InsertDecision failed: %v", err)
		}
	}

	counts, err := repo.CountDecisions(ctx, "WETH")
	if err != nil {
		t.Fatalf("CountDecisions failed: %v", err)
	}
	if counts[model.ReasonBelowThreshold] != 2 || counts[model.ReasonNone] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
}

func TestSQLiteRepoInsertTrade(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	o := model.Order{ID: "o1", Symbol: "WETH", Side: model.SideBuy, Quantity: decimal.NewFromInt(2), CreatedAt: time.UnixMilli(5)}
	f := model.Fill{OrderID: "o1", Success: true, Quantity: decimal.NewFromInt(2), Price: decimal.RequireFromString("3000.25"), Fee: decimal.RequireFromString("1.5")}
	if err := repo.InsertTrade(ctx, o, f); err != nil {
		t.Fatalf("InsertTrade failed: %v", err)
	}

	var price string
	var ts int64
	if err := repo.GetDB().QueryRowContext(ctx, `SELECT price, ts_ms FROM trades WHERE order_id=?`, "o1").Scan(&price, &ts); err != nil {
		t.Fatalf("query trade: %v", err)
	}
	if price != "3000.25" || ts != 5 {
		t.Errorf("expected price=3000.25 ts=5, got %s %d", price, ts)
	}
}

func TestSQLiteRepoClosedPositions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, pnl := range []float64{20, -5} {
		rec := model.PositionRecord{
			Symbol: "WETH", Quantity: 1, EntryPrice: 100, ExitPrice: 100 + pnl, PnL: pnl,
			OpenedAt: base, ClosedAt: base.Add(time.Duration(i+1) * time.Hour), Status: model.PositionClosed,
		}
		if err := repo.InsertClosedPosition(ctx, rec); err != nil {
			t.Fatalf("InsertClosedPosition failed: %v", err)
		}
	}

	recs, err := repo.ListClosedPositions(ctx, 10)
	if err != nil {
		t.Fatalf("ListClosedPositions failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].PnL != -5 || recs[0].Status != model.PositionClosed {
		t.Errorf("expected newest record first, got %+v", recs[0])
	}
	if !recs[1].ClosedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("closed_at not preserved: %v", recs[1].ClosedAt)
	}
}

func TestSQLiteRepoInsertSnapshot(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	payload := `{"cash":1000,"holdings":{}}`
	if err := repo.InsertSnapshot(ctx, 1234567890, payload); err != nil {
		t.Fatalf("InsertSnapshot failed: %v", err)
	}
	var got string
	if err := repo.GetDB().QueryRowContext(ctx, `SELECT payload FROM snapshots`).Scan(&got); err != nil {
		t.Fatalf("query snapshot: %v", err)
	}
	if got != payload {
		t.Errorf("expected %s, got %s", payload, got)
	}
}
