package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"tradepilot/internal/application/port"
	"tradepilot/internal/domain/model"
)

type Repo struct {
	db *sql.DB
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

func (r *Repo) GetDB() *sql.DB {
	return r.db
}

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS latest_prices (
  symbol TEXT PRIMARY KEY,
  price REAL NOT NULL,
  volume REAL NOT NULL,
  ts_ms INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS decisions (
  id TEXT PRIMARY KEY,
  ts_ms INTEGER NOT NULL,
  symbol TEXT NOT NULL,
  verdict TEXT NOT NULL,
  regime TEXT NOT NULL,
  price REAL NOT NULL,
  target REAL NOT NULL,
  reason TEXT NOT NULL,
  executed INTEGER NOT NULL,
  payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decisions_ts ON decisions(ts_ms);
CREATE INDEX IF NOT EXISTS idx_decisions_symbol ON decisions(symbol);

CREATE TABLE IF NOT EXISTS trades (
  order_id TEXT PRIMARY KEY,
  ts_ms INTEGER NOT NULL,
  symbol TEXT NOT NULL,
  side TEXT NOT NULL,
  quantity TEXT NOT NULL,
  price TEXT NOT NULL,
  fee TEXT NOT NULL,
  success INTEGER NOT NULL,
  error TEXT NOT NULL,
  reason TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_ts ON trades(ts_ms);
CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);

CREATE TABLE IF NOT EXISTS closed_positions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  symbol TEXT NOT NULL,
  quantity REAL NOT NULL,
  entry_price REAL NOT NULL,
  exit_price REAL NOT NULL,
  risk_amount REAL NOT NULL,
  pnl REAL NOT NULL,
  opened_ms INTEGER NOT NULL,
  closed_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_closed_symbol ON closed_positions(symbol);

CREATE TABLE IF NOT EXISTS snapshots (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  ts_ms INTEGER NOT NULL,
  payload TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON snapshots(ts_ms);
`)
	return err
}

func (r *Repo) UpsertLatestPrice(ctx context.Context, q model.Quote) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO latest_prices(symbol, price, volume, ts_ms)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
		price=excluded.price, volume=excluded.volume, ts_ms=excluded.ts_ms
	`, q.Symbol, q.Price, q.Volume, q.Ts)
	return err
}

// LatestPrice 读取最新报价
func (r *Repo) LatestPrice(ctx context.Context, symbol string) (q model.Quote, err error) {
	q.Symbol = symbol
	err = r.db.QueryRowContext(ctx, `SELECT price, volume, ts_ms FROM latest_prices WHERE symbol=?`, symbol).
		Scan(&q.Price, &q.Volume, &q.Ts)
	return
}

func (r *Repo) InsertDecision(ctx context.Context, d model.Decision) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO decisions(id, ts_ms, symbol, verdict, regime, price, target, reason, executed, payload)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, d.ID, d.Ts, d.Symbol, string(d.Signal.Verdict), string(d.Signal.Regime), d.Price, d.Target, string(d.Reason), d.Executed, string(payload))
	return err
}

// CountDecisions 按原因统计决策数量
func (r *Repo) CountDecisions(ctx context.Context, symbol string) (map[model.Reason]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT reason, COUNT(*) FROM decisions WHERE symbol=? GROUP BY reason`, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[model.Reason]int)
	for rows.Next() {
		var reason string
		var n int
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, err
		}
		out[model.Reason(reason)] = n
	}
	return out, rows.Err()
}

func (r *Repo) InsertTrade(ctx context.Context, o model.Order, f model.Fill) error {
	ts := f.FilledAt.UnixMilli()
	if f.FilledAt.IsZero() {
		ts = o.CreatedAt.UnixMilli()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO trades(order_id, ts_ms, symbol, side, quantity, price, fee, success, error, reason)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.ID, ts, o.Symbol, string(o.Side), f.Quantity.String(), f.Price.String(), f.Fee.String(), f.Success, f.Error, o.Reason)
	return err
}

func (r *Repo) InsertClosedPosition(ctx context.Context, rec model.PositionRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO closed_positions(symbol, quantity, entry_price, exit_price, risk_amount, pnl, opened_ms, closed_ms)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.Symbol, rec.Quantity, rec.EntryPrice, rec.ExitPrice, rec.RiskAmount, rec.PnL, rec.OpenedAt.UnixMilli(), rec.ClosedAt.UnixMilli())
	return err
}

// ListClosedPositions 按平仓时间倒序返回
func (r *Repo) ListClosedPositions(ctx context.Context, limit int) ([]model.PositionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT symbol, quantity, entry_price, exit_price, risk_amount, pnl, opened_ms, closed_ms
		FROM closed_positions ORDER BY closed_ms DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PositionRecord
	for rows.Next() {
		var rec model.PositionRecord
		var opened, closed int64
		if err := rows.Scan(&rec.Symbol, &rec.Quantity, &rec.EntryPrice, &rec.ExitPrice, &rec.RiskAmount, &rec.PnL, &opened, &closed); err != nil {
			return nil, err
		}
		rec.Status = model.PositionClosed
		rec.OpenedAt = time.UnixMilli(opened).UTC()
		rec.ClosedAt = time.UnixMilli(closed).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *Repo) InsertSnapshot(ctx context.Context, ts int64, payload string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO snapshots(ts_ms, payload, created_at) VALUES(?, ?, ?)`, ts, payload, ts)
	return err
}

var _ port.Repository = (*Repo)(nil)
