package service

import "math"

// Cost 交易成本估计
type Cost struct {
	Spread   float64 `json:"spread"`
	Fees     float64 `json:"fees"`
	Total    float64 `json:"total"`
	TotalPct float64 `json:"total_pct"`
}

// CostEstimator 点差 + 手续费估计
type CostEstimator struct {
	Spread  float64 // 默认 0.1%
	Fees    float64 // 默认 0.2%
	MinEdge float64 // 覆盖成本后的最低优势 0.5%
}

func NewCostEstimator(spread, fees float64) *CostEstimator {
	ce := &CostEstimator{Spread: 0.001, Fees: 0.002, MinEdge: 0.005}
	if spread > 0 {
		ce.Spread = spread
	}
	if fees > 0 {
		ce.Fees = fees
	}
	return ce
}

// Estimate 估算某笔交易金额的成本
func (c *CostEstimator) Estimate(tradeValue float64) Cost {
	sc := tradeValue * c.Spread
	fc := tradeValue * c.Fees
	out := Cost{Spread: sc, Fees: fc, Total: sc + fc}
	if tradeValue > 0 {
		out.TotalPct = out.Total / tradeValue
	}
	return out
}

// ExpectedReturn 按漂移捕获一半、高波动打折估算预期收益
func (c *CostEstimator) ExpectedReturn(drift, volatility float64) float64 {
	return math.Abs(drift) * 0.5 * math.Max(0, 1-volatility*2)
}

// HasSufficientEdge 预期收益是否覆盖成本与最低优势
func (c *CostEstimator) HasSufficientEdge(expected float64, cost Cost) bool {
	return expected > cost.TotalPct+c.MinEdge
}
