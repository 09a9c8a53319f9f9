package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	_ "github.com/jackc/pgx/v5/stdlib"

	"tradepilot/internal/application/port"
	"tradepilot/internal/domain/model"
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
CREATE TABLE IF NOT EXISTS latest_prices (
  symbol TEXT PRIMARY KEY,
  price DOUBLE PRECISION NOT NULL,
  volume DOUBLE PRECISION NOT NULL,
  ts_ms BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS decisions (
  id TEXT PRIMARY KEY,
  ts_ms BIGINT NOT NULL,
  symbol TEXT NOT NULL,
  verdict TEXT NOT NULL,
  reason TEXT NOT NULL,
  target DOUBLE PRECISION NOT NULL,
  payload JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decisions_ts ON decisions(ts_ms);

CREATE TABLE IF NOT EXISTS trades (
  order_id TEXT PRIMARY KEY,
  ts_ms BIGINT NOT NULL,
  symbol TEXT NOT NULL,
  side TEXT NOT NULL,
  quantity NUMERIC NOT NULL,
  price NUMERIC NOT NULL,
  fee NUMERIC NOT NULL,
  success BOOLEAN NOT NULL,
  error TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_ts ON trades(ts_ms);

CREATE TABLE IF NOT EXISTS closed_positions (
  id BIGSERIAL PRIMARY KEY,
  symbol TEXT NOT NULL,
  quantity DOUBLE PRECISION NOT NULL,
  entry_price DOUBLE PRECISION NOT NULL,
  exit_price DOUBLE PRECISION NOT NULL,
  risk_amount DOUBLE PRECISION NOT NULL,
  pnl DOUBLE PRECISION NOT NULL,
  opened_ms BIGINT NOT NULL,
  closed_ms BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
  id BIGSERIAL PRIMARY KEY,
  ts_ms BIGINT NOT NULL,
  payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON snapshots(ts_ms);
`)
	return err
}

func (r *Repo) UpsertLatestPrice(ctx context.Context, q model.Quote) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO latest_prices(symbol, price, volume, ts_ms) VALUES($1, $2, $3, $4)
		ON CONFLICT(symbol) DO UPDATE SET price=EXCLUDED.price, volume=EXCLUDED.volume, ts_ms=EXCLUDED.ts_ms
	`, q.Symbol, q.Price, q.Volume, q.Ts)
	return err
}

func (r *Repo) InsertDecision(ctx context.Context, d model.Decision) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO decisions(id, ts_ms, symbol, verdict, reason, target, payload) VALUES($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT(id) DO NOTHING
	`, d.ID, d.Ts, d.Symbol, string(d.Signal.Verdict), string(d.Reason), d.Target, string(payload))
	return err
}

func (r *Repo) InsertTrade(ctx context.Context, o model.Order, f model.Fill) error {
	ts := f.FilledAt.UnixMilli()
	if f.FilledAt.IsZero() {
		ts = o.CreatedAt.UnixMilli()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO trades(order_id, ts_ms, symbol, side, quantity, price, fee, success, error)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT(order_id) DO NOTHING
	`, o.ID, ts, o.Symbol, string(o.Side), f.Quantity.String(), f.Price.String(), f.Fee.String(), f.Success, f.Error)
	return err
}

func (r *Repo) InsertClosedPosition(ctx context.Context, rec model.PositionRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO closed_positions(symbol, quantity, entry_price, exit_price, risk_amount, pnl, opened_ms, closed_ms)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8)
	`, rec.Symbol, rec.Quantity, rec.EntryPrice, rec.ExitPrice, rec.RiskAmount, rec.PnL, rec.OpenedAt.UnixMilli(), rec.ClosedAt.UnixMilli())
	return err
}

func (r *Repo) InsertSnapshot(ctx context.Context, ts int64, payload string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO snapshots(ts_ms, payload) VALUES($1, $2)`, ts, payload)
	return err
}

var _ port.Repository = (*Repo)(nil)
