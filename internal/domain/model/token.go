package model

import "time"

// TokenParams 单个标的的策略参数，未覆盖的字段使用全局默认值
type TokenParams struct {
	EMAFast         int          `toml:"ema_fast" yaml:"ema_fast" json:"ema_fast"`
	EMASlow         int          `toml:"ema_slow" yaml:"ema_slow" json:"ema_slow"`
	EMATrend        int          `toml:"ema_trend" yaml:"ema_trend" json:"ema_trend"`
	ATRPeriod       int          `toml:"atr_period" yaml:"atr_period" json:"atr_period"`
	ADXPeriod       int          `toml:"adx_period" yaml:"adx_period" json:"adx_period"`
	RSIPeriod       int          `toml:"rsi_period" yaml:"rsi_period" json:"rsi_period"`
	RSIOverbought   float64      `toml:"rsi_overbought" yaml:"rsi_overbought" json:"rsi_overbought"`
	RSIOversold     float64      `toml:"rsi_oversold" yaml:"rsi_oversold" json:"rsi_oversold"`
	BollingerPeriod int          `toml:"bollinger_period" yaml:"bollinger_period" json:"bollinger_period"`
	BollingerStdDev float64      `toml:"bollinger_stddev" yaml:"bollinger_stddev" json:"bollinger_stddev"`
	MACDFast        int          `toml:"macd_fast" yaml:"macd_fast" json:"macd_fast"`
	MACDSlow        int          `toml:"macd_slow" yaml:"macd_slow" json:"macd_slow"`
	MACDSignal      int          `toml:"macd_signal" yaml:"macd_signal" json:"macd_signal"`
	VolumePeriod    int          `toml:"volume_period" yaml:"volume_period" json:"volume_period"`
	VolumeThreshold float64      `toml:"volume_threshold" yaml:"volume_threshold" json:"volume_threshold"`
	MaxRiskPerTrade float64      `toml:"max_risk_per_trade" yaml:"max_risk_per_trade" json:"max_risk_per_trade"`
	TurbulenceStd   float64      `toml:"turbulence_std" yaml:"turbulence_std" json:"turbulence_std"`
	MinLotUSD       float64      `toml:"min_lot_usd" yaml:"min_lot_usd" json:"min_lot_usd"`
	MaxLotUSD       float64      `toml:"max_lot_usd" yaml:"max_lot_usd" json:"max_lot_usd"`
	PositionSizing  SizingMethod `toml:"position_sizing" yaml:"position_sizing" json:"position_sizing"`
	FixedFraction   float64      `toml:"fixed_position_size" yaml:"fixed_position_size" json:"fixed_position_size"`
	CooldownSec     *int         `toml:"cooldown_sec" yaml:"cooldown_sec" json:"cooldown_sec"`
}

// DefaultTokenParams 默认参数
func DefaultTokenParams() TokenParams {
	return TokenParams{
		EMAFast:         8,
		EMASlow:         21,
		EMATrend:        50,
		ATRPeriod:       14,
		ADXPeriod:       14,
		RSIPeriod:       14,
		RSIOverbought:   70,
		RSIOversold:     30,
		BollingerPeriod: 20,
		BollingerStdDev: 2.0,
		MACDFast:        12,
		MACDSlow:        26,
		MACDSignal:      9,
		VolumePeriod:    20,
		VolumeThreshold: 1.5,
		MaxRiskPerTrade: 0.02,
		TurbulenceStd:   0.02,
		MinLotUSD:       100,
		MaxLotUSD:       1000,
		PositionSizing:  SizingHybrid,
		FixedFraction:   0.2,
		CooldownSec:     intPtr(30),
	}
}

// Merge 用 o 中的非零字段覆盖 p
func (p TokenParams) Merge(o TokenParams) TokenParams {
	mi := func(dst *int, v int) {
		if v > 0 {
			*dst = v
		}
	}
	mf := func(dst *float64, v float64) {
		if v > 0 {
			*dst = v
		}
	}
	mi(&p.EMAFast, o.EMAFast)
	mi(&p.EMASlow, o.EMASlow)
	mi(&p.EMATrend, o.EMATrend)
	mi(&p.ATRPeriod, o.ATRPeriod)
	mi(&p.ADXPeriod, o.ADXPeriod)
	mi(&p.RSIPeriod, o.RSIPeriod)
	mf(&p.RSIOverbought, o.RSIOverbought)
	mf(&p.RSIOversold, o.RSIOversold)
	mi(&p.BollingerPeriod, o.BollingerPeriod)
	mf(&p.BollingerStdDev, o.BollingerStdDev)
	mi(&p.MACDFast, o.MACDFast)
	mi(&p.MACDSlow, o.MACDSlow)
	mi(&p.MACDSignal, o.MACDSignal)
	mi(&p.VolumePeriod, o.VolumePeriod)
	mf(&p.VolumeThreshold, o.VolumeThreshold)
	mf(&p.MaxRiskPerTrade, o.MaxRiskPerTrade)
	mf(&p.TurbulenceStd, o.TurbulenceStd)
	mf(&p.MinLotUSD, o.MinLotUSD)
	mf(&p.MaxLotUSD, o.MaxLotUSD)
	if o.PositionSizing != SizingUnset {
		p.PositionSizing = o.PositionSizing
	}
	mf(&p.FixedFraction, o.FixedFraction)
	// 冷却时间允许显式设为 0
	if o.CooldownSec != nil {
		v := *o.CooldownSec
		p.CooldownSec = &v
	}
	return p
}

// Cooldown 同一标的两次交易的最小间隔，未设置或非正数时不限制
func (p TokenParams) Cooldown() time.Duration {
	if p.CooldownSec == nil || *p.CooldownSec <= 0 {
		return 0
	}
	return time.Duration(*p.CooldownSec) * time.Second
}

func intPtr(v int) *int { return &v }
