package model

import "github.com/shopspring/decimal"

// ========== Position Book ==========

// Holding 持仓成本与追踪高点（止盈止损使用）
type Holding struct {
	Qty          decimal.Decimal `json:"qty"`
	Cost         decimal.Decimal `json:"cost"`
	TrailingHigh decimal.Decimal `json:"trailingHigh"`
}

// AvgCost 平均成本，无持仓时为 0
func (h Holding) AvgCost() decimal.Decimal {
	if !h.Qty.IsPositive() {
		return decimal.Zero
	}
	return h.Cost.Div(h.Qty)
}

// Book 扁平的持仓状态 {symbol: {qty, cost, trailingHigh}}
type Book map[string]Holding

func NewBook() Book { return make(Book) }

// Get 获取持仓，不存在时返回零值
func (b Book) Get(symbol string) Holding {
	return b[symbol]
}

// ApplyFill 按成交更新平均成本与追踪高点
func (b Book) ApplyFill(symbol string, side Side, qty, price decimal.Decimal) {
	h := b[symbol]
	switch side {
	case SideBuy:
		h.Cost = h.Cost.Add(qty.Mul(price))
		h.Qty = h.Qty.Add(qty)
		if price.GreaterThan(h.TrailingHigh) {
			h.TrailingHigh = price
		}
	case SideSell:
		sellQty := decimal.Min(qty, h.Qty)
		h.Cost = h.Cost.Sub(h.AvgCost().Mul(sellQty))
		h.Qty = h.Qty.Sub(sellQty)
		// 清仓后重新开仓从新的高点开始追踪
		if !h.Qty.IsPositive() {
			h.Qty = decimal.Zero
			h.Cost = decimal.Zero
			h.TrailingHigh = decimal.Zero
		}
	}
	b[symbol] = h
}

// Mark 价格创新高时抬高追踪高点
func (b Book) Mark(symbol string, price decimal.Decimal) {
	h, ok := b[symbol]
	if !ok || !h.Qty.IsPositive() {
		return
	}
	if price.GreaterThan(h.TrailingHigh) {
		h.TrailingHigh = price
		b[symbol] = h
	}
}

// Clone 深拷贝，用于保存
func (b Book) Clone() Book {
	out := make(Book, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}
