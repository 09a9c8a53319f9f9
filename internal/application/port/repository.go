package port

import (
	"context"

	"tradepilot/internal/domain/model"
)

// Repository 运行日志（journal）。写失败不影响交易决策
type Repository interface {
	// Price operations
	UpsertLatestPrice(ctx context.Context, q model.Quote) error

	// Decision / trade operations
	InsertDecision(ctx context.Context, d model.Decision) error
	InsertTrade(ctx context.Context, o model.Order, f model.Fill) error
	InsertClosedPosition(ctx context.Context, rec model.PositionRecord) error

	// Snapshot operations
	InsertSnapshot(ctx context.Context, ts int64, payload string) error

	// Connection management
	Close() error
}
