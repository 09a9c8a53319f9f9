package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side 买卖方向
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Order 一条交易指令（一条腿）
type Order struct {
	ID        string          `json:"id"`
	Symbol    string          `json:"symbol"`
	Side      Side            `json:"side"`
	FromAsset string          `json:"from_asset"`
	ToAsset   string          `json:"to_asset"`
	Quantity  decimal.Decimal `json:"quantity"` // 标的数量
	Price     decimal.Decimal `json:"price"`    // 下单时参考价
	Reason    string          `json:"reason"`
	CreatedAt time.Time       `json:"created_at"`
}

// Fill 执行结果
type Fill struct {
	OrderID  string          `json:"order_id"`
	Success  bool            `json:"success"`
	Error    string          `json:"error,omitempty"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"` // 成交均价（含滑点）
	Fee      decimal.Decimal `json:"fee"`   // USD
	FilledAt time.Time       `json:"filled_at"`
}

// Decision 一个标的在一个周期内的最终决策
type Decision struct {
	ID       string     `json:"id"`
	Symbol   string     `json:"symbol"`
	Price    float64    `json:"price"`
	Target   float64    `json:"target"` // 带方向的数量，买入为正，卖出为负
	Signal   Signal     `json:"signal"`
	Sizing   *Sizing    `json:"sizing,omitempty"`
	Stops    StopLevels `json:"stops"`
	Reason   Reason     `json:"reason,omitempty"`
	Note     string     `json:"note,omitempty"`
	Ts       int64      `json:"ts_ms"`
	Executed bool       `json:"executed"`
}

// Actionable 是否需要下单
func (d Decision) Actionable() bool { return d.Target != 0 }

// ExitSignal 止盈止损触发
type ExitSignal struct {
	Symbol       string          `json:"symbol"`
	Reason       Reason          `json:"reason"`
	AvgEntry     decimal.Decimal `json:"avg_entry"`
	Price        decimal.Decimal `json:"price"`
	Qty          decimal.Decimal `json:"qty"`
	TrailingHigh decimal.Decimal `json:"trailing_high"`
}
