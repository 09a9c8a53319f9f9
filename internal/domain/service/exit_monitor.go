package service

import (
	"github.com/shopspring/decimal"

	"tradepilot/internal/domain/model"
)

var bpsDenominator = decimal.NewFromInt(10000)

// ExitMonitor 基于平均成本与追踪高点的止盈/止损/追踪止损
type ExitMonitor struct {
	TPBps            float64 // 0 表示关闭
	SLBps            float64
	TrailBps         float64
	UseTrailing      bool
	MaxChunkFraction float64 // 单笔卖出占权益上限，默认 0.25
}

func NewExitMonitor(tpBps, slBps, trailBps float64, useTrailing bool) *ExitMonitor {
	return &ExitMonitor{TPBps: tpBps, SLBps: slBps, TrailBps: trailBps, UseTrailing: useTrailing, MaxChunkFraction: 0.25}
}

// Enabled 是否配置了任何退出条件
func (m *ExitMonitor) Enabled() bool {
	return m.TPBps > 0 || m.SLBps > 0 || (m.UseTrailing && m.TrailBps > 0)
}

// Check 检查是否触发退出，优先级 TP > SL > TRAIL
func (m *ExitMonitor) Check(book model.Book, symbol string, price decimal.Decimal) (model.ExitSignal, bool) {
	h := book.Get(symbol)
	if !h.Qty.IsPositive() || !price.IsPositive() {
		return model.ExitSignal{}, false
	}
	avg := h.AvgCost()
	one := decimal.NewFromInt(1)

	hitTP := m.TPBps > 0 && price.GreaterThanOrEqual(avg.Mul(one.Add(bps(m.TPBps))))
	hitSL := m.SLBps > 0 && price.LessThanOrEqual(avg.Mul(one.Sub(bps(m.SLBps))))
	hitTrail := m.UseTrailing && m.TrailBps > 0 && h.TrailingHigh.IsPositive() &&
		price.LessThanOrEqual(h.TrailingHigh.Mul(one.Sub(bps(m.TrailBps))))

	var reason model.Reason
	switch {
	case hitTP:
		reason = model.ReasonTakeProfit
	case hitSL:
		reason = model.ReasonStopLoss
	case hitTrail:
		reason = model.ReasonTrailingStop
	default:
		return model.ExitSignal{}, false
	}
	return model.ExitSignal{
		Symbol:       symbol,
		Reason:       reason,
		AvgEntry:     avg,
		Price:        price,
		Qty:          h.Qty,
		TrailingHigh: h.TrailingHigh,
	}, true
}

// SellChunks 按权益上限拆分卖出数量；权益未知时一次卖出
func (m *ExitMonitor) SellChunks(qty, price, equity decimal.Decimal) []decimal.Decimal {
	if !qty.IsPositive() {
		return nil
	}
	frac := m.MaxChunkFraction
	if frac <= 0 {
		frac = 0.25
	}
	limit := equity.Mul(decimal.NewFromFloat(frac))
	if !limit.IsPositive() || !price.IsPositive() {
		return []decimal.Decimal{qty}
	}
	total := qty.Mul(price)
	chunks := total.Div(limit).Ceil().IntPart()
	if chunks < 1 {
		chunks = 1
	}
	per := qty.Div(decimal.NewFromInt(chunks))
	out := make([]decimal.Decimal, 0, chunks)
	remaining := qty
	for i := int64(0); i < chunks; i++ {
		c := per
		if i == chunks-1 {
			c = remaining
		}
		out = append(out, c)
		remaining = remaining.Sub(c)
	}
	return out
}

func bps(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Div(bpsDenominator)
}
