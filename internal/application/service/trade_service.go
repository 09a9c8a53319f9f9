package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"tradepilot/internal/application/port"
	"tradepilot/internal/domain/model"
	dsvc "tradepilot/internal/domain/service"
)

// TradeDeps TradeService 依赖
type TradeDeps struct {
	Executor   port.OrderExecutor
	Store      port.StateStore
	Risk       *dsvc.RiskManager
	Guard      *dsvc.TradeGuard
	Exits      *dsvc.ExitMonitor
	Journal    *JournalService
	QuoteAsset string  // 计价资产，如 USDC
	Capital    float64 // 初始可用资金
	DryRun     bool
}

// TradeService 执行决策并维护持仓簿、风控记录与状态文件
type TradeService struct {
	mu   sync.Mutex
	deps TradeDeps

	book     model.Book
	realized decimal.Decimal
	now      func() time.Time
}

func NewTradeService(deps TradeDeps) *TradeService {
	if deps.QuoteAsset == "" {
		deps.QuoteAsset = "USDC"
	}
	return &TradeService{deps: deps, book: model.NewBook(), now: time.Now}
}

// SetClock 测试中替换时钟
func (s *TradeService) SetClock(now func() time.Time) { s.now = now }

// Restore 从状态文件加载持仓，并为每个持仓恢复一条 open 记录
func (s *TradeService) Restore(ctx context.Context) error {
	if s.deps.Store == nil {
		return nil
	}
	book, err := s.deps.Store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.book = book

	var recs []model.PositionRecord
	for sym, h := range book {
		if !h.Qty.IsPositive() {
			continue
		}
		recs = append(recs, model.PositionRecord{
			Symbol:     sym,
			EntryPrice: h.AvgCost().InexactFloat64(),
			Quantity:   h.Qty.InexactFloat64(),
			OpenedAt:   s.now(),
			Status:     model.PositionOpen,
		})
	}
	s.deps.Risk.Restore(recs)
	log.Info().Int("positions", len(recs)).Msg("state restored")
	return nil
}

// Book 持仓簿副本
func (s *TradeService) Book() model.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.Clone()
}

// Cash 可用资金 = 初始资金 + 已实现盈亏 - 持仓成本，不低于 0
func (s *TradeService) Cash() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cash().InexactFloat64()
}

func (s *TradeService) cash() decimal.Decimal {
	c := decimal.NewFromFloat(s.deps.Capital).Add(s.realized)
	for _, h := range s.book {
		c = c.Sub(h.Cost)
	}
	return decimal.Max(c, decimal.Zero)
}

// Apply 执行一条决策。dry run 时只标注原因，不触碰持仓簿与风控
func (s *TradeService) Apply(ctx context.Context, d *model.Decision) error {
	if !d.Actionable() {
		return nil
	}
	if s.deps.DryRun {
		d.Reason = model.ReasonDryRun
		log.Info().Str("symbol", d.Symbol).Float64("target", d.Target).Str("verdict", string(d.Signal.Verdict)).Msg("dry run, not executed")
		return nil
	}
	if d.Target > 0 {
		return s.Open(ctx, d)
	}
	_, err := s.Close(ctx, d.Symbol, d.Price, string(d.Signal.Verdict))
	if err != nil {
		d.Reason = model.ReasonExecutionFailed
		if errors.Is(err, dsvc.ErrPositionNotFound) {
			d.Reason = model.ReasonNoPosition
		}
		return err
	}
	d.Executed = true
	return nil
}

// Open 买入并登记风险
func (s *TradeService) Open(ctx context.Context, d *model.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	order := model.Order{
		ID:        uuid.NewString(),
		Symbol:    d.Symbol,
		Side:      model.SideBuy,
		FromAsset: s.deps.QuoteAsset,
		ToAsset:   d.Symbol,
		Quantity:  decimal.NewFromFloat(d.Target),
		Price:     decimal.NewFromFloat(d.Price),
		Reason:    string(d.Signal.Verdict),
		CreatedAt: now,
	}
	fill, err := s.execute(ctx, order)
	if err != nil {
		d.Reason = model.ReasonExecutionFailed
		return err
	}

	eff := fill.Price
	if fill.Quantity.IsPositive() {
		eff = eff.Add(fill.Fee.Div(fill.Quantity))
	}
	s.book.ApplyFill(d.Symbol, model.SideBuy, fill.Quantity, eff)

	var risk float64
	if d.Sizing != nil {
		risk = d.Sizing.Risk
	}
	if err := s.deps.Risk.AddPosition(d.Symbol, risk, eff.InexactFloat64(), fill.Quantity.InexactFloat64()); err != nil {
		log.Warn().Err(err).Str("symbol", d.Symbol).Msg("risk record not added")
	}
	s.deps.Guard.Record(d.Symbol, now)
	d.Executed = true

	log.Info().
		Str("symbol", d.Symbol).
		Str("qty", fill.Quantity.String()).
		Str("price", fill.Price.String()).
		Float64("risk", risk).
		Msg("position opened")
	s.persist(ctx)
	return nil
}

// Close 分块卖出全部持仓；全部成交后平掉风控记录并返回平仓记录
func (s *TradeService) Close(ctx context.Context, symbol string, price float64, reason string) (model.PositionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.book.Get(symbol)
	if !h.Qty.IsPositive() {
		return model.PositionRecord{}, fmt.Errorf("%w: %s", dsvc.ErrPositionNotFound, symbol)
	}
	px := decimal.NewFromFloat(price)
	avg := h.AvgCost()
	equity := decimal.NewFromFloat(s.deps.Capital).Add(s.realized)

	pnl := decimal.Zero
	for _, qty := range s.deps.Exits.SellChunks(h.Qty, px, equity) {
		order := model.Order{
			ID:        uuid.NewString(),
			Symbol:    symbol,
			Side:      model.SideSell,
			FromAsset: symbol,
			ToAsset:   s.deps.QuoteAsset,
			Quantity:  qty,
			Price:     px,
			Reason:    reason,
			CreatedAt: s.now(),
		}
		fill, err := s.execute(ctx, order)
		if err != nil {
			s.realized = s.realized.Add(pnl)
			s.persist(ctx)
			return model.PositionRecord{}, err
		}
		leg := fill.Price.Sub(avg).Mul(fill.Quantity).Sub(fill.Fee)
		pnl = pnl.Add(leg)
		s.book.ApplyFill(symbol, model.SideSell, fill.Quantity, fill.Price)
	}
	s.realized = s.realized.Add(pnl)
	s.persist(ctx)

	if s.book.Get(symbol).Qty.IsPositive() {
		return model.PositionRecord{}, nil
	}
	rec, err := s.deps.Risk.ClosePosition(symbol, price, pnl.InexactFloat64())
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("no risk record to close")
		return model.PositionRecord{Symbol: symbol, ExitPrice: price, PnL: pnl.InexactFloat64(), Status: model.PositionClosed}, nil
	}
	s.deps.Journal.Closed(ctx, rec)
	log.Info().Str("symbol", symbol).Str("reason", reason).Str("pnl", pnl.StringFixed(2)).Msg("position closed")
	return rec, nil
}

// CheckExits 更新追踪高点，触发止盈/止损/追踪止损时平仓
func (s *TradeService) CheckExits(ctx context.Context, symbol string, price float64) (model.ExitSignal, bool, error) {
	px := decimal.NewFromFloat(price)

	s.mu.Lock()
	s.book.Mark(symbol, px)
	if !s.deps.Exits.Enabled() {
		s.mu.Unlock()
		return model.ExitSignal{}, false, nil
	}
	sig, hit := s.deps.Exits.Check(s.book, symbol, px)
	s.mu.Unlock()

	if !hit {
		return model.ExitSignal{}, false, nil
	}
	s.deps.Journal.Exit(ctx, sig, s.now())
	if s.deps.DryRun {
		log.Info().Str("symbol", symbol).Str("reason", string(sig.Reason)).Msg("dry run, exit not executed")
		return sig, true, nil
	}
	_, err := s.Close(ctx, symbol, price, string(sig.Reason))
	return sig, true, err
}

// Persist 保存持仓簿（追踪高点每周期可能变化）
func (s *TradeService) Persist(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persist(ctx)
}

func (s *TradeService) persist(ctx context.Context) {
	if s.deps.Store == nil {
		return
	}
	if err := s.deps.Store.Save(ctx, s.book.Clone()); err != nil {
		log.Error().Err(err).Msg("save state failed")
	}
}

// execute 调用执行器并记录成交；失败统一包装为 ErrExecutionFailed。调用方持有锁
func (s *TradeService) execute(ctx context.Context, order model.Order) (model.Fill, error) {
	fill, err := s.deps.Executor.Execute(ctx, order)
	if err == nil && !fill.Success {
		err = errors.New(fill.Error)
	}
	if err != nil {
		if !errors.Is(err, port.ErrExecutionFailed) {
			err = fmt.Errorf("%w: %s %s %s: %v", port.ErrExecutionFailed, order.Side, order.Quantity, order.Symbol, err)
		}
		log.Error().Err(err).Str("symbol", order.Symbol).Str("order_id", order.ID).Msg("order failed")
		return fill, err
	}
	s.deps.Journal.Trade(ctx, order, fill)
	return fill, nil
}
