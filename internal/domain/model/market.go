package model

// ========== Market Models ==========

// Regime 市场状态
type Regime string

const (
	RegimeTrending  Regime = "trending"
	RegimeWeakTrend Regime = "weak_trend"
	RegimeSideways  Regime = "sideways"
	RegimeChoppy    Regime = "choppy"
	RegimeVolatile  Regime = "volatile"
)

// Regimes 按从强趋势到高波动排序
var Regimes = []Regime{RegimeTrending, RegimeWeakTrend, RegimeSideways, RegimeChoppy, RegimeVolatile}

func (r Regime) Valid() bool {
	switch r {
	case RegimeTrending, RegimeWeakTrend, RegimeSideways, RegimeChoppy, RegimeVolatile:
		return true
	}
	return false
}

// Verdict 信号结论
type Verdict string

const (
	VerdictWait       Verdict = "wait"
	VerdictBuy        Verdict = "buy"
	VerdictSell       Verdict = "sell"
	VerdictStrongBuy  Verdict = "strong_buy"
	VerdictStrongSell Verdict = "strong_sell"
)

// IsBuy 是否为买入方向
func (v Verdict) IsBuy() bool { return v == VerdictBuy || v == VerdictStrongBuy }

// IsSell 是否为卖出方向
func (v Verdict) IsSell() bool { return v == VerdictSell || v == VerdictStrongSell }

// Quote 单次报价
type Quote struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"` // 0 表示无成交量数据
	Ts     int64   `json:"ts_ms"`
}
