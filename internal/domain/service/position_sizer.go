package service

import (
	"fmt"
	"math"

	"tradepilot/internal/domain/market"
	"tradepilot/internal/domain/model"
)

const lowConfidence = 0.7

// SizingInput 基础仓位计算的输入
type SizingInput struct {
	Signal  model.Signal
	Snap    market.Snapshot
	Capital float64
}

// Sizer 基础仓位策略，返回占资金的比例
type Sizer interface {
	Method() model.SizingMethod
	Fraction(in SizingInput) (float64, model.SizingDetail)
}

type kellySizer struct{ rm *RiskManager }

func (k kellySizer) Method() model.SizingMethod { return model.SizingKelly }

func (k kellySizer) Fraction(in SizingInput) (float64, model.SizingDetail) {
	f, _, _ := k.rm.KellyFraction(in.Signal.Regime, in.Signal.Confidence)
	return f, model.SizingDetail{KellyFraction: f}
}

type volatilitySizer struct{ rm *RiskManager }

func (v volatilitySizer) Method() model.SizingMethod { return model.SizingVolatility }

func (v volatilitySizer) Fraction(in SizingInput) (float64, model.SizingDetail) {
	ind := in.Snap.Indicators
	if !ind.HasATR {
		return 0, model.SizingDetail{}
	}
	f, ratio, ok := v.rm.VolatilityFraction(ind.ATR, in.Snap.LastPrice, in.Snap.Params.TurbulenceStd, in.Signal.Regime)
	if !ok {
		return 0, model.SizingDetail{}
	}
	return f, model.SizingDetail{VolatilityFraction: f, VolatilityRatio: ratio}
}

type fixedSizer struct{}

func (fixedSizer) Method() model.SizingMethod { return model.SizingFixed }

func (fixedSizer) Fraction(in SizingInput) (float64, model.SizingDetail) {
	frac := in.Snap.Params.FixedFraction
	if frac <= 0 {
		frac = 0.2
	}
	return frac * (0.5 + 0.5*in.Signal.Confidence), model.SizingDetail{}
}

type hybridSizer struct {
	kelly      kellySizer
	volatility volatilitySizer
}

func (h hybridSizer) Method() model.SizingMethod { return model.SizingHybrid }

func (h hybridSizer) Fraction(in SizingInput) (float64, model.SizingDetail) {
	w, ok := hybridWeights[in.Signal.Regime]
	if !ok {
		w = hybridWeights[model.RegimeSideways]
	}
	kf, _ := h.kelly.Fraction(in)
	vf, vd := h.volatility.Fraction(in)
	return kf*w.Kelly + vf*w.Volatility, model.SizingDetail{
		KellyFraction:      kf,
		VolatilityFraction: vf,
		VolatilityRatio:    vd.VolatilityRatio,
		KellyWeight:        w.Kelly,
		VolatilityWeight:   w.Volatility,
	}
}

// PositionSizer 将信号转换为目标数量，并依次应用风控约束
type PositionSizer struct {
	rm     *RiskManager
	sizers map[model.SizingMethod]Sizer
}

// NewPositionSizer 注册四种仓位策略
func NewPositionSizer(rm *RiskManager) *PositionSizer {
	k := kellySizer{rm: rm}
	v := volatilitySizer{rm: rm}
	ps := &PositionSizer{rm: rm, sizers: make(map[model.SizingMethod]Sizer)}
	for _, s := range []Sizer{k, v, fixedSizer{}, hybridSizer{kelly: k, volatility: v}} {
		ps.Register(s)
	}
	return ps
}

// Register 替换或新增策略
func (ps *PositionSizer) Register(s Sizer) {
	ps.sizers[s.Method()] = s
}

func (ps *PositionSizer) sizerFor(m model.SizingMethod) Sizer {
	if s, ok := ps.sizers[m]; ok {
		return s
	}
	return ps.sizers[model.SizingFixed]
}

// Calculate 计算仓位
func (ps *PositionSizer) Calculate(sig model.Signal, snap market.Snapshot, capital float64) model.Sizing {
	if !sig.Actionable() {
		return model.Sizing{Method: "none", Reason: model.ReasonNoSignal}
	}
	price := snap.LastPrice
	if !snap.HasPrice || price <= 0 || capital <= 0 {
		return model.Sizing{Method: "none", Reason: model.ReasonInsufficientData}
	}

	p := snap.Params
	sizer := ps.sizerFor(p.PositionSizing)
	in := SizingInput{Signal: sig, Snap: snap, Capital: capital}
	frac, detail := sizer.Fraction(in)

	out := model.Sizing{
		Method:   sizer.Method().String(),
		Fraction: frac,
		BaseSize: capital * frac / price,
		Detail:   detail,
	}

	var atr float64
	if snap.Indicators.HasATR {
		atr = snap.Indicators.ATR
	}
	out.Stops = ps.rm.CalculateDynamicStopLoss(atr, price, sig.Regime, sig.Strength)
	rpu := out.Stops.StopDistance
	if rpu <= 0 {
		out.Reason = model.ReasonNoStopDistance
		out.Adjustments = append(out.Adjustments, "no stop distance available, cannot size risk")
		return out
	}

	size := out.BaseSize
	note := func(format string, args ...any) {
		out.Adjustments = append(out.Adjustments, fmt.Sprintf(format, args...))
	}

	// 1. 最小手数
	minLot := p.MinLotUSD / price
	if size < minLot {
		note("increased from %.6f to minimum lot %.6f", size, minLot)
		size = minLot
	}

	// 2. 最大手数
	maxLot := p.MaxLotUSD / price
	if size > maxLot {
		note("reduced from %.6f to maximum lot %.6f", size, maxLot)
		size = maxLot
	}

	// 3. 单笔风险上限
	maxRisk := p.MaxRiskPerTrade
	if maxRisk <= 0 {
		maxRisk = 0.02
	}
	maxByRisk := maxRisk * capital / rpu
	if size > maxByRisk {
		note("reduced from %.6f to risk limit %.6f", size, maxByRisk)
		size = maxByRisk
	}

	// 4. 组合热度
	out.Heat = ps.rm.CanTakePosition(size*rpu, capital, sig.Symbol)
	if !out.Heat.Approved {
		budget := math.Min(out.Heat.MaxHeat-out.Heat.CurrentHeat, out.Heat.MaxPerTrade)
		limit := math.Max(0, budget/rpu)
		note("reduced due to portfolio heat: %s", out.Heat.Reason)
		size = math.Min(size, limit)
	}

	// 5. 低置信度降级
	if sig.Confidence < lowConfidence {
		m := 0.5 + 0.5*sig.Confidence
		note("reduced by %.1f%% due to low confidence", (1-m)*100)
		size *= m
	}

	// 6. 市场状态降级
	if m := lookup(sizingRegimeMultiplier, sig.Regime, 0.7); m < 1 {
		note("reduced by %.1f%% due to %s market", (1-m)*100, sig.Regime)
		size *= m
	}

	if size < minLot || size <= 0 {
		out.Reason = model.ReasonTooSmall
		if !out.Heat.Approved {
			out.Reason = model.ReasonHeatLimit
		}
		note("position too small after risk adjustments")
		size = 0
	}

	out.Size = size
	out.Risk = size * rpu
	return out
}
