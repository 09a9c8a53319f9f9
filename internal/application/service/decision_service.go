package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"tradepilot/internal/domain/market"
	"tradepilot/internal/domain/model"
	dsvc "tradepilot/internal/domain/service"
)

// DecisionService 快照 → 信号 → 节流 → 仓位 → 决策
type DecisionService struct {
	registry *market.Registry
	gen      *dsvc.SignalGenerator
	sizer    *dsvc.PositionSizer
	risk     *dsvc.RiskManager
	guard    *dsvc.TradeGuard
	costs    *dsvc.CostEstimator
}

func NewDecisionService(
	registry *market.Registry,
	risk *dsvc.RiskManager,
	guard *dsvc.TradeGuard,
	costs *dsvc.CostEstimator,
) *DecisionService {
	return &DecisionService{
		registry: registry,
		gen:      dsvc.NewSignalGenerator(),
		sizer:    dsvc.NewPositionSizer(risk),
		risk:     risk,
		guard:    guard,
		costs:    costs,
	}
}

// Decide 对一个标的给出决策。买入目标为正，卖出为负（平掉现有持仓）
func (s *DecisionService) Decide(symbol string, capital float64, now time.Time) model.Decision {
	d := model.Decision{
		ID:     uuid.NewString(),
		Symbol: symbol,
		Ts:     now.UnixMilli(),
	}

	st, ok := s.registry.Get(symbol)
	if !ok {
		d.Reason = model.ReasonInsufficientData
		d.Signal = model.Signal{Symbol: symbol, Verdict: model.VerdictWait, Regime: model.RegimeChoppy}
		return d
	}
	snap := st.Snapshot()
	d.Price = snap.LastPrice

	sig := s.gen.Generate(snap)
	d.Signal = sig
	if !sig.Actionable() {
		d.Reason = sig.Reason
		return d
	}

	open, hasOpen := s.risk.OpenPosition(symbol)

	if sig.Verdict.IsSell() {
		if !hasOpen || open.Quantity <= 0 {
			d.Reason = model.ReasonNoPosition
			return d
		}
		d.Target = -open.Quantity
		d.Note = fmt.Sprintf("%s signal, closing %.6f", sig.Verdict, open.Quantity)
		return d
	}

	if hasOpen {
		d.Reason = model.ReasonPositionOpen
		return d
	}
	if ok, reason, msg := s.guard.Allow(symbol, snap.Params.Cooldown(), now); !ok {
		d.Reason = reason
		d.Note = msg
		return d
	}

	sz := s.sizer.Calculate(sig, snap, capital)
	d.Sizing = &sz
	d.Stops = sz.Stops
	if sz.Size <= 0 {
		d.Reason = sz.Reason
		return d
	}
	d.Target = sz.Size

	if s.costs != nil && d.Price > 0 {
		cost := s.costs.Estimate(sz.Size * d.Price)
		expected := s.costs.ExpectedReturn(sz.Stops.ProfitDist/d.Price, snap.Volatility())
		if !s.costs.HasSufficientEdge(expected, cost) {
			d.Note = fmt.Sprintf("thin edge: expected %.2f%% vs cost %.2f%%", expected*100, cost.TotalPct*100)
		}
	}
	return d
}
