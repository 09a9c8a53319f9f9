package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"tradepilot/internal/application/port"
	"tradepilot/internal/domain/model"
)

func newTestRepo(t *testing.T) (*Repo, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return New(rdb, "tp", time.Minute, "", ""), mr, rdb
}

func TestRedisRepoUpsertLatestPrice(t *testing.T) {
	repo, mr, _ := newTestRepo(t)
	ctx := context.Background()

	if err := repo.UpsertLatestPrice(ctx, model.Quote{Symbol: "WETH", Price: 3000, Ts: 7}); err != nil {
		t.Fatalf("UpsertLatestPrice failed: %v", err)
	}
	if err := repo.UpsertLatestPrice(ctx, model.Quote{Symbol: "BAD", Price: 0}); err != nil {
		t.Fatalf("zero price should be ignored: %v", err)
	}

	q, err := repo.LatestPrice(ctx, "WETH")
	if err != nil {
		t.Fatalf("LatestPrice failed: %v", err)
	}
	if q.Price != 3000 || q.Ts != 7 {
		t.Errorf("unexpected quote %+v", q)
	}
	if mr.HGet("tp:latest", "BAD") != "" {
		t.Error("zero price must not be stored")
	}
	if mr.TTL("tp:latest") != time.Minute {
		t.Errorf("expected ttl 1m, got %v", mr.TTL("tp:latest"))
	}
}

func TestRedisRepoInsertDecision(t *testing.T) {
	repo, _, rdb := newTestRepo(t)
	ctx := context.Background()

	sub := rdb.Subscribe(ctx, "tp:decisions:pub")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	wait := model.Decision{ID: "d1", Symbol: "WETH", Reason: model.ReasonBelowThreshold, Ts: 1}
	buy := model.Decision{ID: "d2", Symbol: "WETH", Target: 0.5, Ts: 2}
	for _, d := range []model.Decision{wait, buy} {
		if err := repo.InsertDecision(ctx, d); err != nil {
			t.Fatalf("InsertDecision failed: %v", err)
		}
	}

	entries, err := rdb.XRange(ctx, "tp:decisions", "-", "+").Result()
	if err != nil {
		t.Fatalf("XRange: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 stream entries, got %d", len(entries))
	}
	if entries[0].Values["reason"] != string(model.ReasonBelowThreshold) {
		t.Errorf("unexpected first entry %v", entries[0].Values)
	}

	select {
	case msg := <-sub.Channel():
		var got model.Decision
		if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.ID != "d2" {
			t.Errorf("expected only actionable decision published, got %s", got.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("no decision published")
	}
}

func TestRedisRepoTradesAndClosed(t *testing.T) {
	repo, mr, rdb := newTestRepo(t)
	ctx := context.Background()

	o := model.Order{ID: "o1", Symbol: "WETH", Side: model.SideSell}
	f := model.Fill{Success: true, Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(120)}
	if err := repo.InsertTrade(ctx, o, f); err != nil {
		t.Fatalf("InsertTrade failed: %v", err)
	}
	n, err := rdb.XLen(ctx, "tp:trades").Result()
	if err != nil || n != 1 {
		t.Fatalf("expected 1 trade, got %d (%v)", n, err)
	}

	for i := 0; i < 3; i++ {
		if err := repo.InsertClosedPosition(ctx, model.PositionRecord{Symbol: "WETH", PnL: float64(i)}); err != nil {
			t.Fatalf("InsertClosedPosition failed: %v", err)
		}
	}
	list, err := mr.List("tp:closed")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 {
		t.Errorf("expected 3 closed records, got %d", len(list))
	}
}

func TestRedisRepoSnapshotAndPublish(t *testing.T) {
	repo, mr, rdb := newTestRepo(t)
	ctx := context.Background()

	if err := repo.InsertSnapshot(ctx, 1, `{"a":1}`); err != nil {
		t.Fatalf("InsertSnapshot failed: %v", err)
	}
	if err := repo.InsertSnapshot(ctx, 2, `{"a":2}`); err != nil {
		t.Fatalf("InsertSnapshot failed: %v", err)
	}
	got, err := mr.Get("tp:snapshot")
	if err != nil || got != `{"a":2}` {
		t.Errorf("expected latest snapshot, got %q (%v)", got, err)
	}

	sub := rdb.Subscribe(ctx, "tp:events")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := repo.Publish(ctx, port.Event{Type: port.EventExit, Symbol: "WETH", Ts: 3}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	select {
	case msg := <-sub.Channel():
		var ev port.Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if ev.Type != port.EventExit || ev.Symbol != "WETH" {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}
