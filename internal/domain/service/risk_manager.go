package service

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"tradepilot/internal/domain/model"
)

var (
	ErrPositionExists   = errors.New("position already open")
	ErrPositionNotFound = errors.New("position not found")
	ErrInvalidRisk      = errors.New("invalid risk")
)

// 没有平仓记录时 Kelly 使用的先验
const (
	priorWinRate = 0.55
	priorAvgWin  = 0.03
	priorAvgLoss = 0.02
)

// RiskManager 风险管理器：组合热度、动态止损、持仓准入
type RiskManager struct {
	mu sync.RWMutex

	// 热度限制（占可用资金比例）
	MaxPortfolioHeat float64 // 组合总风险上限
	MaxPositionRisk  float64 // 单笔风险上限
	MaxValidateRisk  float64 // ValidateRisk 的单笔上限
	MaxKellyFraction float64 // Kelly 仓位上限

	heat    float64
	open    map[string]*model.PositionRecord // symbol -> open record
	closed  []model.PositionRecord
	metrics model.RiskMetrics

	now func() time.Time
}

// NewRiskManager 创建风险管理器
func NewRiskManager() *RiskManager {
	rm := &RiskManager{
		MaxPortfolioHeat: 0.15,
		MaxPositionRisk:  0.05,
		MaxValidateRisk:  0.10,
		MaxKellyFraction: 0.25,
		open:             make(map[string]*model.PositionRecord),
		now:              time.Now,
	}
	rm.resetMetrics()
	return rm
}

// SetClock 测试中替换时钟
func (rm *RiskManager) SetClock(now func() time.Time) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.now = now
}

// SetLimits 设置限制参数，非正数保持原值
func (rm *RiskManager) SetLimits(maxHeat, maxPositionRisk float64) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if maxHeat > 0 {
		rm.MaxPortfolioHeat = maxHeat
	}
	if maxPositionRisk > 0 {
		rm.MaxPositionRisk = maxPositionRisk
	}
}

// CanTakePosition 检查是否可以承担新增风险，不修改状态
func (rm *RiskManager) CanTakePosition(requiredRisk, capital float64, symbol string) model.HeatCheck {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	hc := model.HeatCheck{
		Approved:     true,
		CurrentHeat:  rm.heat,
		MaxHeat:      rm.MaxPortfolioHeat * capital,
		MaxPerTrade:  rm.MaxPositionRisk * capital,
		RequiredRisk: requiredRisk,
	}
	switch {
	case capital <= 0:
		hc.Approved = false
		hc.Reason = "no available capital"
	case rm.heat+requiredRisk > hc.MaxHeat:
		hc.Approved = false
		hc.Reason = fmt.Sprintf("%s: heat %.2f + %.2f exceeds max %.2f", symbol, rm.heat, requiredRisk, hc.MaxHeat)
	case requiredRisk > hc.MaxPerTrade:
		hc.Approved = false
		hc.Reason = fmt.Sprintf("%s: risk %.2f exceeds per-position max %.2f", symbol, requiredRisk, hc.MaxPerTrade)
	}
	return hc
}

// AddPosition 登记新持仓并增加热度。同一标的只能有一条 open 记录
func (rm *RiskManager) AddPosition(symbol string, risk, entryPrice, qty float64) error {
	if risk < 0 || math.IsNaN(risk) || math.IsInf(risk, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidRisk, risk)
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if _, ok := rm.open[symbol]; ok {
		return fmt.Errorf("%w: %s", ErrPositionExists, symbol)
	}
	rm.heat += risk
	rm.open[symbol] = &model.PositionRecord{
		Symbol:     symbol,
		RiskAmount: risk,
		EntryPrice: entryPrice,
		Quantity:   qty,
		OpenedAt:   rm.now(),
		Status:     model.PositionOpen,
	}
	rm.metrics.TotalRisk = rm.heat
	return nil
}

// ClosePosition 平仓：释放热度并重算滚动指标
func (rm *RiskManager) ClosePosition(symbol string, exitPrice, pnl float64) (model.PositionRecord, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rec, ok := rm.open[symbol]
	if !ok {
		return model.PositionRecord{}, fmt.Errorf("%w: %s", ErrPositionNotFound, symbol)
	}
	delete(rm.open, symbol)

	rm.heat = math.Max(0, rm.heat-rec.RiskAmount)
	rec.Status = model.PositionClosed
	rec.ExitPrice = exitPrice
	rec.PnL = pnl
	rec.ClosedAt = rm.now()
	rm.closed = append(rm.closed, *rec)

	rm.recomputeMetrics()
	return *rec, nil
}

// recomputeMetrics 从全部平仓记录重算，调用方持有锁
func (rm *RiskManager) recomputeMetrics() {
	rm.metrics.TotalRisk = rm.heat
	if len(rm.closed) == 0 {
		return
	}

	var wins, losses int
	var sumWin, sumLoss, equity, peak, maxDD float64
	for _, p := range rm.closed {
		switch {
		case p.PnL > 0:
			wins++
			sumWin += p.PnL
		case p.PnL < 0:
			losses++
			sumLoss += -p.PnL
		}
		equity += p.PnL
		if equity > peak {
			peak = equity
		}
		if dd := peak - equity; dd > maxDD {
			maxDD = dd
		}
	}

	n := len(rm.closed)
	m := &rm.metrics
	m.WinRate = float64(wins) / float64(n)
	m.AvgWin, m.AvgLoss = 0, 0
	if wins > 0 {
		m.AvgWin = sumWin / float64(wins)
	}
	if losses > 0 {
		m.AvgLoss = sumLoss / float64(losses)
	}
	m.TotalTrades = n
	m.WinningTrades = wins
	m.LosingTrades = losses
	m.TotalPnL = equity
	m.MaxDrawdown = maxDD
	m.CurrentDrawdown = peak - equity
}

func (rm *RiskManager) resetMetrics() {
	rm.metrics = model.RiskMetrics{
		WinRate: priorWinRate,
		AvgWin:  priorAvgWin,
		AvgLoss: priorAvgLoss,
	}
}

// KellyFraction Kelly 比例 × 状态乘数 × 置信度乘数，限制在 [0, MaxKellyFraction]
func (rm *RiskManager) KellyFraction(regime model.Regime, confidence float64) (fraction, regimeMult, confMult float64) {
	rm.mu.RLock()
	m := rm.metrics
	limit := rm.MaxKellyFraction
	rm.mu.RUnlock()

	regimeMult = lookup(kellyRegimeMultiplier, regime, 0.5)
	confMult = clamp(confidence, 0.5, 1.5)
	if m.AvgWin <= 0 {
		return 0, regimeMult, confMult
	}
	// f* = (p·b − q)/b with b = avgWin/avgLoss
	raw := (m.WinRate*m.AvgWin - (1-m.WinRate)*m.AvgLoss) / m.AvgWin
	fraction = clamp(raw*regimeMult*confMult, 0, limit)
	return fraction, regimeMult, confMult
}

// VolatilityFraction 基础 20%，按状态与波动率比调整，限制在 [5%, 40%]
func (rm *RiskManager) VolatilityFraction(atr, price, baseline float64, regime model.Regime) (fraction, ratio float64, ok bool) {
	if atr <= 0 || price <= 0 {
		return 0, 0, false
	}
	if baseline <= 0 {
		baseline = 0.02
	}
	ratio = (atr / price) / baseline

	size := 0.2
	switch regime {
	case model.RegimeVolatile:
		size *= 0.5
	case model.RegimeTrending:
		size *= 1.2
	}
	switch {
	case ratio > 1.5:
		size *= 0.7
	case ratio < 0.7:
		size *= 1.3
	}
	return clamp(size, 0.05, 0.4), ratio, true
}

// CalculateDynamicStopLoss ATR × 状态乘数 × 强度调整。ATR 或价格缺失时返回零值
func (rm *RiskManager) CalculateDynamicStopLoss(atr, price float64, regime model.Regime, strength float64) model.StopLevels {
	if atr <= 0 || price <= 0 || math.IsNaN(atr) {
		return model.StopLevels{}
	}
	mult, ok := stopMultipliers[regime]
	if !ok {
		mult = stopMultipliers[model.RegimeChoppy]
	}
	adj := 1 + (strength-0.5)*0.5

	stop := atr * mult.Stop * adj
	profit := atr * mult.Profit * adj
	trail := atr * mult.Trail * adj
	return model.StopLevels{
		StopLoss:      price - stop,
		TakeProfit:    price + profit,
		TrailingStop:  price - trail,
		StopDistance:  stop,
		ProfitDist:    profit,
		TrailDistance: trail,
	}
}

// Heat 当前组合热度（USD）
func (rm *RiskManager) Heat() float64 {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.heat
}

// HeatStatus 热度占预算百分比：>40 MEDIUM，>60 HIGH，>80 CRITICAL
func (rm *RiskManager) HeatStatus(capital float64) model.HeatStatus {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.heatStatus(capital)
}

func (rm *RiskManager) heatStatus(capital float64) model.HeatStatus {
	budget := rm.MaxPortfolioHeat * capital
	hs := model.HeatStatus{Level: model.HeatLow, Current: rm.heat, Max: budget, Available: math.Max(0, budget-rm.heat)}
	if budget > 0 {
		hs.Percent = rm.heat / budget * 100
	} else if rm.heat > 0 {
		hs.Percent = 100
	}
	switch {
	case hs.Percent > 80:
		hs.Level = model.HeatCritical
	case hs.Percent > 60:
		hs.Level = model.HeatHigh
	case hs.Percent > 40:
		hs.Level = model.HeatMedium
	}
	return hs
}

// Metrics 滚动风险指标
func (rm *RiskManager) Metrics() model.RiskMetrics {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.metrics
}

// Report 风控报告
func (rm *RiskManager) Report(capital float64) model.RiskReport {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return model.RiskReport{
		Heat:            rm.heatStatus(capital),
		Metrics:         rm.metrics,
		OpenPositions:   len(rm.open),
		ClosedPositions: len(rm.closed),
	}
}

// OpenPosition 查询 open 记录
func (rm *RiskManager) OpenPosition(symbol string) (model.PositionRecord, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	rec, ok := rm.open[symbol]
	if !ok {
		return model.PositionRecord{}, false
	}
	return *rec, true
}

// OpenPositions 按标的排序
func (rm *RiskManager) OpenPositions() []model.PositionRecord {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	out := make([]model.PositionRecord, 0, len(rm.open))
	for _, rec := range rm.open {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// ClosedPositions 按平仓顺序
func (rm *RiskManager) ClosedPositions() []model.PositionRecord {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	out := make([]model.PositionRecord, len(rm.closed))
	copy(out, rm.closed)
	return out
}

// ValidateRisk 验证单笔风险：必须为正、不超过资金 10%、不突破热度上限
func (rm *RiskManager) ValidateRisk(risk, capital float64) error {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	var errs []error
	if risk <= 0 {
		errs = append(errs, fmt.Errorf("%w: risk must be positive", ErrInvalidRisk))
	}
	if risk > capital*rm.MaxValidateRisk {
		errs = append(errs, fmt.Errorf("%w: risk exceeds %.0f%% of available capital", ErrInvalidRisk, rm.MaxValidateRisk*100))
	}
	if rm.heat+risk > rm.MaxPortfolioHeat*capital {
		errs = append(errs, fmt.Errorf("%w: risk would exceed maximum portfolio heat", ErrInvalidRisk))
	}
	return errors.Join(errs...)
}

// Reset 清空热度与全部记录
func (rm *RiskManager) Reset() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.heat = 0
	rm.open = make(map[string]*model.PositionRecord)
	rm.closed = nil
	rm.resetMetrics()
}

// Restore 重启后按已有持仓恢复 open 记录
func (rm *RiskManager) Restore(records []model.PositionRecord) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	for _, r := range records {
		if r.Status != model.PositionOpen {
			continue
		}
		if _, ok := rm.open[r.Symbol]; ok {
			continue
		}
		rec := r
		rm.open[r.Symbol] = &rec
		rm.heat += r.RiskAmount
	}
	rm.metrics.TotalRisk = rm.heat
}
