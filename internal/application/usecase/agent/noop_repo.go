package agent

import (
	"context"

	"tradepilot/internal/application/port"
	"tradepilot/internal/domain/model"
)

type noopRepo struct{}

// NewNoopRepo 未配置任何存储时使用
func NewNoopRepo() port.Repository { return &noopRepo{} }

func (n *noopRepo) UpsertLatestPrice(ctx context.Context, q model.Quote) error { return nil }
func (n *noopRepo) InsertDecision(ctx context.Context, d model.Decision) error { return nil }
func (n *noopRepo) InsertTrade(ctx context.Context, o model.Order, f model.Fill) error {
	return nil
}
func (n *noopRepo) InsertClosedPosition(ctx context.Context, rec model.PositionRecord) error {
	return nil
}
func (n *noopRepo) InsertSnapshot(ctx context.Context, ts int64, payload string) error {
	return nil
}
func (n *noopRepo) Close() error { return nil }
