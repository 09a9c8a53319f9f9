package service

import "tradepilot/internal/domain/model"

// 各市场状态下的参数表，顺序为 trending → volatile

var signalWeights = map[model.Regime]model.Weights{
	model.RegimeTrending:  {Trend: 3.0, Momentum: 2.0, MeanReversion: 1.0, Volume: 1.5},
	model.RegimeWeakTrend: {Trend: 2.0, Momentum: 2.5, MeanReversion: 1.5, Volume: 2.0},
	model.RegimeSideways:  {Trend: 1.0, Momentum: 1.5, MeanReversion: 3.0, Volume: 2.5},
	model.RegimeChoppy:    {Trend: 0.5, Momentum: 1.0, MeanReversion: 2.0, Volume: 3.0},
	model.RegimeVolatile:  {Trend: 0.0, Momentum: 0.5, MeanReversion: 1.5, Volume: 3.0},
}

// Thresholds 信号阈值
type Thresholds struct {
	Min    float64
	Strong float64
}

var signalThresholds = map[model.Regime]Thresholds{
	model.RegimeTrending:  {Min: 0.3, Strong: 0.6},
	model.RegimeWeakTrend: {Min: 0.4, Strong: 0.7},
	model.RegimeSideways:  {Min: 0.5, Strong: 0.8},
	model.RegimeChoppy:    {Min: 0.6, Strong: 0.9},
	model.RegimeVolatile:  {Min: 0.7, Strong: 0.95},
}

// Kelly 仓位的市场状态乘数
var kellyRegimeMultiplier = map[model.Regime]float64{
	model.RegimeTrending:  1.0,
	model.RegimeWeakTrend: 0.8,
	model.RegimeSideways:  0.6,
	model.RegimeChoppy:    0.3,
	model.RegimeVolatile:  0.2,
}

// 风控约束最后一步的市场状态降级
var sizingRegimeMultiplier = map[model.Regime]float64{
	model.RegimeTrending:  1.0,
	model.RegimeWeakTrend: 0.9,
	model.RegimeSideways:  0.8,
	model.RegimeChoppy:    0.6,
	model.RegimeVolatile:  0.4,
}

type blend struct {
	Kelly      float64
	Volatility float64
}

var hybridWeights = map[model.Regime]blend{
	model.RegimeTrending:  {Kelly: 0.7, Volatility: 0.3},
	model.RegimeWeakTrend: {Kelly: 0.6, Volatility: 0.4},
	model.RegimeSideways:  {Kelly: 0.4, Volatility: 0.6},
	model.RegimeChoppy:    {Kelly: 0.3, Volatility: 0.7},
	model.RegimeVolatile:  {Kelly: 0.2, Volatility: 0.8},
}

type stopMultiplier struct {
	Stop   float64
	Profit float64
	Trail  float64
}

var stopMultipliers = map[model.Regime]stopMultiplier{
	model.RegimeTrending:  {Stop: 2.0, Profit: 4.0, Trail: 1.5},
	model.RegimeWeakTrend: {Stop: 2.5, Profit: 3.5, Trail: 2.0},
	model.RegimeSideways:  {Stop: 1.8, Profit: 2.5, Trail: 1.2},
	model.RegimeChoppy:    {Stop: 1.5, Profit: 2.0, Trail: 1.0},
	model.RegimeVolatile:  {Stop: 3.0, Profit: 5.0, Trail: 2.5},
}

// WeightsFor 未知状态按 choppy 处理
func WeightsFor(r model.Regime) model.Weights {
	if w, ok := signalWeights[r]; ok {
		return w
	}
	return signalWeights[model.RegimeChoppy]
}

// ThresholdsFor 未知状态按 choppy 处理
func ThresholdsFor(r model.Regime) Thresholds {
	if t, ok := signalThresholds[r]; ok {
		return t
	}
	return signalThresholds[model.RegimeChoppy]
}

func lookup(m map[model.Regime]float64, r model.Regime, fallback float64) float64 {
	if v, ok := m[r]; ok {
		return v
	}
	return fallback
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
