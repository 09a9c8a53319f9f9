package service

import (
	"fmt"
	"math"

	"tradepilot/internal/domain/market"
	"tradepilot/internal/domain/model"
)

const (
	regimeLookback      = 10    // 参考价窗口（含最新价）的 tick 数
	divergenceWindow    = 5     // RSI 背离使用最近 5 个值
	divergenceStrength  = 0.8   // 背离时的最低强度
	nearBandFraction    = 0.2   // 距离上下轨 20% 以内视为接近
	bandBreakScale      = 0.1   // 突破强度按带宽 10% 归一
	volumeBoost         = 1.5   // 放量时布林信号增强倍数
	volumeConfirmRatio  = 2.0   // 放量确认方向的最低倍数
	accumulationMove    = 0.001 // |涨跌幅| < 0.1% 视为吸筹
	macdScale           = 0.001 // MACD 强度按价格的 0.1% 归一
	histogramStrength   = 0.7   // 柱状图加速时的最低强度
	trendStrengthFactor = 10.0
)

// SignalGenerator 组合趋势、RSI、布林、MACD、成交量信号。无状态，不修改输入
type SignalGenerator struct{}

func NewSignalGenerator() *SignalGenerator { return &SignalGenerator{} }

// Generate 对一个标的的快照生成信号
func (g *SignalGenerator) Generate(snap market.Snapshot) model.Signal {
	ind := snap.Indicators
	if !snap.HasPrice || !ind.HasEMA {
		return model.Signal{
			Symbol:  snap.Symbol,
			Verdict: model.VerdictWait,
			Regime:  model.RegimeChoppy,
			Reason:  model.ReasonInsufficientData,
			Reasons: []string{"insufficient data"},
		}
	}

	price := snap.LastPrice
	prev := snap.PriceBack(1)
	p := snap.Params

	var adx, atr float64
	if ind.HasADX {
		adx = ind.ADX
	}
	if ind.HasATR {
		atr = ind.ATR
	}
	reading := ClassifyRegime(adx, atr, price, snap.PriceBack(regimeLookback-1))
	regime := reading.Regime
	w := WeightsFor(regime)

	avgVol, hasVol := snap.AvgVolume(p.VolumePeriod)
	volRatio := 1.0
	if hasVol && avgVol > 0 && snap.LastVolume > 0 {
		volRatio = snap.LastVolume / avgVol
	}

	bd := model.Breakdown{
		Trend:     analyzeTrend(ind.EMAFast, ind.EMASlow, ind.EMATrend),
		RSI:       analyzeRSI(ind, p, price, prev, snap.RSIHistory),
		Bollinger: analyzeBollinger(ind, price, volRatio, p.VolumeThreshold),
		MACD:      analyzeMACD(ind, price),
		Volume:    analyzeVolume(hasVol, volRatio, price, prev, p.VolumeThreshold),
		ADX:       adx,
	}

	var bull, bear, total float64
	add := func(s model.SubSignal, weight float64) {
		switch {
		case s.Direction > 0:
			bull += weight * s.Strength
		case s.Direction < 0:
			bear += weight * s.Strength
		}
		total += weight
	}
	add(bd.Trend, w.Trend)
	add(bd.RSI, w.MeanReversion)
	add(bd.Bollinger, w.MeanReversion)
	add(bd.MACD, w.Momentum)
	add(bd.Volume, w.Volume)
	if total > 0 {
		bull /= total
		bear /= total
	}

	sig := model.Signal{
		Symbol:    snap.Symbol,
		Verdict:   model.VerdictWait,
		Regime:    regime,
		Bullish:   bull,
		Bearish:   bear,
		Breakdown: bd,
		Weights:   w,
	}

	th := ThresholdsFor(regime)
	switch {
	case bull > th.Min && bull > bear:
		sig.Verdict = model.VerdictBuy
		if bull > th.Strong {
			sig.Verdict = model.VerdictStrongBuy
		}
		sig.Strength = bull
		sig.Confidence = math.Min(1, bull/th.Strong)
		sig.Reasons = append(sig.Reasons, fmt.Sprintf("bullish score %.1f%%", bull*100))
	case bear > th.Min && bear > bull:
		sig.Verdict = model.VerdictSell
		if bear > th.Strong {
			sig.Verdict = model.VerdictStrongSell
		}
		sig.Strength = bear
		sig.Confidence = math.Min(1, bear/th.Strong)
		sig.Reasons = append(sig.Reasons, fmt.Sprintf("bearish score %.1f%%", bear*100))
	default:
		sig.Reason = model.ReasonBelowThreshold
		sig.Reasons = append(sig.Reasons, fmt.Sprintf("insufficient signal strength (bull %.1f%%, bear %.1f%%, min %.1f%%)",
			bull*100, bear*100, th.Min*100))
	}

	switch regime {
	case model.RegimeChoppy:
		sig.Reasons = append(sig.Reasons, "choppy market, waiting for clearer signals")
	case model.RegimeVolatile:
		sig.Reasons = append(sig.Reasons, "high volatility, conservative approach")
	}
	if reading.Deviation > 0 {
		sig.Reasons = append(sig.Reasons, fmt.Sprintf("deviation %.2f%% over %d ticks", reading.Deviation*100, regimeLookback))
	}
	return sig
}

// analyzeTrend fast>slow>trend 看多，反之看空
func analyzeTrend(fast, slow, trend float64) model.SubSignal {
	s := model.SubSignal{Label: "mixed"}
	if slow <= 0 || trend <= 0 {
		return s
	}
	spread := math.Abs(fast-slow)/slow + math.Abs(slow-trend)/trend
	strength := math.Min(1, spread*trendStrengthFactor)
	switch {
	case fast > slow && slow > trend:
		s.Direction, s.Strength, s.Label = 1, strength, "bullish"
	case fast < slow && slow < trend:
		s.Direction, s.Strength, s.Label = -1, strength, "bearish"
	}
	s.Value = spread
	return s
}

func analyzeRSI(ind market.Indicators, p model.TokenParams, price, prev float64, hist []float64) model.SubSignal {
	if !ind.HasRSI {
		return model.SubSignal{Label: "n/a"}
	}
	r := ind.RSI
	s := model.SubSignal{Value: r, Label: "neutral"}
	switch {
	case r < p.RSIOversold:
		s.Direction, s.Strength, s.Label = 1, (p.RSIOversold-r)/p.RSIOversold, "oversold"
	case r > p.RSIOverbought:
		s.Direction, s.Strength, s.Label = -1, (r-p.RSIOverbought)/(100-p.RSIOverbought), "overbought"
	}

	if len(hist) >= divergenceWindow {
		recent := hist[len(hist)-divergenceWindow:]
		first, last := recent[0], recent[divergenceWindow-1]
		switch {
		case price < prev && last > first:
			s.Direction = math.Max(s.Direction, 1)
			s.Strength = math.Max(s.Strength, divergenceStrength)
			s.Label = "bullish_divergence"
		case price > prev && last < first:
			s.Direction = math.Min(s.Direction, -1)
			s.Strength = math.Max(s.Strength, divergenceStrength)
			s.Label = "bearish_divergence"
		}
	}
	s.Strength = clamp(s.Strength, 0, 1)
	return s
}

func analyzeBollinger(ind market.Indicators, price, volRatio, volThreshold float64) model.SubSignal {
	if !ind.HasBands {
		return model.SubSignal{Label: "n/a"}
	}
	b := ind.Bands
	width := b.Width()
	if width <= 0 {
		return model.SubSignal{Label: "flat"}
	}
	pos := (price - b.Lower) / width
	s := model.SubSignal{Value: pos, Label: "middle"}
	switch {
	case price < b.Lower:
		s.Direction, s.Strength, s.Label = 1, math.Min(1, (b.Lower-price)/(width*bandBreakScale)), "below_lower"
	case price > b.Upper:
		s.Direction, s.Strength, s.Label = -1, math.Min(1, (price-b.Upper)/(width*bandBreakScale)), "above_upper"
	case pos < nearBandFraction:
		s.Direction, s.Strength, s.Label = 0.5, 0.5, "near_lower"
	case pos > 1-nearBandFraction:
		s.Direction, s.Strength, s.Label = -0.5, 0.5, "near_upper"
	}
	if volRatio > volThreshold {
		s.Strength = math.Min(1, s.Strength*volumeBoost)
	}
	return s
}

func analyzeMACD(ind market.Indicators, price float64) model.SubSignal {
	if !ind.HasMACD || price <= 0 {
		return model.SubSignal{Label: "n/a"}
	}
	m := ind.MACD
	s := model.SubSignal{Value: m.Histogram, Label: "neutral"}
	strength := math.Min(1, math.Abs(m.Line)/(macdScale*price))
	switch {
	case m.Line > 0 && m.Line > m.Signal:
		s.Direction, s.Strength, s.Label = 1, strength, "bullish"
	case m.Line < 0 && m.Line < m.Signal:
		s.Direction, s.Strength, s.Label = -1, strength, "bearish"
	}
	switch {
	case m.Histogram > m.PrevHistogram && m.Histogram > 0:
		s.Direction = math.Max(s.Direction, 0.5)
		s.Strength = math.Max(s.Strength, histogramStrength)
		s.Label = "accelerating_bullish"
	case m.Histogram < m.PrevHistogram && m.Histogram < 0:
		s.Direction = math.Min(s.Direction, -0.5)
		s.Strength = math.Max(s.Strength, histogramStrength)
		s.Label = "accelerating_bearish"
	}
	return s
}

func analyzeVolume(hasVol bool, ratio, price, prev, threshold float64) model.SubSignal {
	s := model.SubSignal{Value: ratio, Label: "normal"}
	if !hasVol || prev <= 0 {
		s.Label = "n/a"
		return s
	}
	s.Strength = clamp((ratio-1)/2, 0, 1)
	if ratio <= threshold {
		return s
	}
	s.Label = "high"
	change := (price - prev) / prev
	switch {
	case change > 0 && ratio > volumeConfirmRatio:
		s.Direction, s.Label = 1, "confirm_up"
	case change < 0 && ratio > volumeConfirmRatio:
		s.Direction, s.Label = -1, "confirm_down"
	case math.Abs(change) < accumulationMove:
		s.Direction, s.Label = 0.5, "accumulation"
	}
	return s
}
