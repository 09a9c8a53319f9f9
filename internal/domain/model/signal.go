package model

// ========== Signal Models ==========

// SubSignal 单个指标给出的方向与强度
type SubSignal struct {
	Direction float64 `json:"direction"` // [-1, 1]，正数看多
	Strength  float64 `json:"strength"`  // [0, 1]
	Label     string  `json:"label"`     // 例如 near_upper, accelerating_bullish
	Value     float64 `json:"value"`     // 指标原始值（RSI、成交量比等）
}

// Breakdown 各子信号明细
type Breakdown struct {
	Trend     SubSignal `json:"trend"`
	RSI       SubSignal `json:"rsi"`
	Bollinger SubSignal `json:"bollinger"`
	MACD      SubSignal `json:"macd"`
	Volume    SubSignal `json:"volume"`
	ADX       float64   `json:"adx"`
}

// Weights 不同市场状态下的权重
type Weights struct {
	Trend         float64 `json:"trend"`
	Momentum      float64 `json:"momentum"`
	MeanReversion float64 `json:"mean_reversion"`
	Volume        float64 `json:"volume"`
}

// Signal 一次决策周期产生的信号，生成后不再修改
type Signal struct {
	Symbol     string    `json:"symbol"`
	Verdict    Verdict   `json:"verdict"`
	Strength   float64   `json:"strength"`
	Confidence float64   `json:"confidence"`
	Regime     Regime    `json:"regime"`
	Bullish    float64   `json:"bullish"`
	Bearish    float64   `json:"bearish"`
	Breakdown  Breakdown `json:"breakdown"`
	Weights    Weights   `json:"weights"`
	Reason     Reason    `json:"reason,omitempty"`
	Reasons    []string  `json:"reasons"`
}

// Actionable 是否可以交易
func (s Signal) Actionable() bool { return s.Verdict != VerdictWait }
