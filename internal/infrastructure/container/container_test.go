package container

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"tradepilot/internal/application/container"
	"tradepilot/internal/infrastructure/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.App.Capital = 10000
	cfg.App.StatePath = filepath.Join(dir, "state.json")
	cfg.Symbols.List = []string{"WETH"}
	cfg.Feed.Kind = "sim"
	cfg.Feed.Seed = 9
	cfg.Feed.Retries = 1
	cfg.Feed.RetryBaseMs = 1
	cfg.Execution.Kind = "paper"
	cfg.Execution.RatePerSec = 100
	cfg.Execution.Burst = 10
	cfg.Storage.SQLite.Path = filepath.Join(dir, "journal.db")
	return cfg
}

func TestContainerWithSQLite(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Enabled = true
	cfg.Storage.SQLite.Enabled = true

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create container: %v", err)
	}
	defer c.Close()

	if c.SQLiteRepo() == nil {
		t.Errorf("expected SQLiteRepo, got nil")
	}
	if c.RedisRepo() != nil {
		t.Errorf("redis should be disabled")
	}
	if c.Feed() == nil || c.Executor() == nil || c.StateStore() == nil {
		t.Fatal("feed, executor and state store must always be built")
	}
	if c.Telemetry() != nil {
		t.Errorf("telemetry disabled by default")
	}
}

func TestContainerWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Storage.Enabled = true
	cfg.Storage.Redis.Enabled = true
	cfg.Storage.Redis.Addr = mr.Addr()
	cfg.Storage.Redis.Prefix = "tp"
	cfg.Telemetry.Enabled = true

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create container: %v", err)
	}
	defer c.Close()

	if c.RedisClient() == nil || c.RedisRepo() == nil {
		t.Fatal("expected redis wiring")
	}
	if c.Telemetry() == nil {
		t.Fatal("expected telemetry hub")
	}

	svc := c.App().Agent(container.AgentOptions{
		Feed:    c.Feed(),
		Sink:    discard{},
		Symbols: cfg.Symbols.List,
	})
	svc.Cycle(context.Background(), time.Now())

	if mr.HGet("tp:latest", "WETH") == "" {
		t.Error("expected latest price in redis")
	}
}

func TestContainerRedisUnreachable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Enabled = true
	cfg.Storage.Redis.Enabled = true
	cfg.Storage.Redis.Addr = "127.0.0.1:1"

	if _, err := New(cfg); err == nil {
		t.Fatal("expected redis ping failure")
	}
}

func TestContainerUnknownFeed(t *testing.T) {
	cfg := testConfig(t)
	cfg.Feed.Kind = "binance"
	if _, err := New(cfg); err == nil {
		t.Fatal("expected unknown feed error")
	}
}

type discard struct{}

func (discard) WriteLive(string) error                { return nil }
func (discard) WriteSnapshot(time.Time, string) error { return nil }
func (discard) WriteEvent(time.Time, string) error    { return nil }
func (discard) NewLine() error                        { return nil }
