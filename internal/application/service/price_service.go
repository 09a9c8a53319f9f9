package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"tradepilot/internal/application/port"
	"tradepilot/internal/domain/market"
	"tradepilot/internal/domain/model"
)

// PriceService 将报价写入标的状态，并记录最新价
type PriceService struct {
	registry *market.Registry
	repo     port.Repository
}

func NewPriceService(registry *market.Registry, repo port.Repository) *PriceService {
	return &PriceService{registry: registry, repo: repo}
}

// UpdatePrice 无效报价不修改状态，返回 ErrPriceUnavailable
func (s *PriceService) UpdatePrice(ctx context.Context, q model.Quote) error {
	st := s.registry.Ensure(q.Symbol)
	if !st.Update(q.Price, q.Volume) {
		return fmt.Errorf("%w: %s invalid price %v", port.ErrPriceUnavailable, q.Symbol, q.Price)
	}
	if err := s.repo.UpsertLatestPrice(ctx, q); err != nil {
		log.Warn().Err(err).Str("symbol", q.Symbol).Msg("persist latest price failed")
	}
	return nil
}

// Snapshot 标的当前快照
func (s *PriceService) Snapshot(symbol string) (market.Snapshot, bool) {
	st, ok := s.registry.Get(symbol)
	if !ok {
		return market.Snapshot{}, false
	}
	return st.Snapshot(), true
}
