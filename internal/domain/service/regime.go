package service

import (
	"math"

	"tradepilot/internal/domain/model"
)

// RegimeReading 市场状态判定及其输入
type RegimeReading struct {
	Regime     model.Regime `json:"regime"`
	Volatility float64      `json:"volatility"` // ATR / price
	Deviation  float64      `json:"deviation"`  // |price - ref| / ref
}

func usable(v float64) bool { return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0) }

// ClassifyRegime 按顺序匹配，第一条命中即返回。ADX/ATR 缺失或为 0 时返回 choppy
func ClassifyRegime(adx, atr, price, referencePrice float64) RegimeReading {
	rd := RegimeReading{Regime: model.RegimeChoppy}
	if !usable(adx) || !usable(atr) || !usable(price) {
		return rd
	}
	rd.Volatility = atr / price
	if usable(referencePrice) {
		rd.Deviation = math.Abs(price-referencePrice) / referencePrice
	}

	switch {
	case rd.Volatility > 0.05 && adx < 20:
		rd.Regime = model.RegimeVolatile
	case adx > 30:
		rd.Regime = model.RegimeTrending
	case adx > 20:
		rd.Regime = model.RegimeWeakTrend
	case adx > 15:
		rd.Regime = model.RegimeSideways
	default:
		rd.Regime = model.RegimeChoppy
	}
	return rd
}

// DetectRegime 只返回状态
func DetectRegime(adx, atr, price, referencePrice float64) model.Regime {
	return ClassifyRegime(adx, atr, price, referencePrice).Regime
}
