package model

import (
	"fmt"
	"strings"
)

// SizingMethod 仓位计算方法
type SizingMethod int

const (
	SizingUnset SizingMethod = iota // 未配置，合并时不覆盖
	SizingFixed
	SizingKelly
	SizingVolatility
	SizingHybrid
)

func (m SizingMethod) String() string {
	switch m {
	case SizingKelly:
		return "kelly"
	case SizingVolatility:
		return "volatility"
	case SizingHybrid:
		return "hybrid"
	case SizingFixed:
		return "fixed"
	default:
		return ""
	}
}

// ParseSizingMethod 解析配置中的方法名
func ParseSizingMethod(s string) (SizingMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fixed":
		return SizingFixed, nil
	case "kelly":
		return SizingKelly, nil
	case "volatility":
		return SizingVolatility, nil
	case "hybrid":
		return SizingHybrid, nil
	case "":
		return SizingUnset, nil
	}
	return SizingUnset, fmt.Errorf("unknown sizing method %q", s)
}

func (m SizingMethod) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *SizingMethod) UnmarshalText(b []byte) error {
	v, err := ParseSizingMethod(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Sizing 仓位计算结果
type Sizing struct {
	Size        float64      `json:"size"` // 单位数量
	Risk        float64      `json:"risk"` // USD
	Method      string       `json:"method"`
	BaseSize    float64      `json:"base_size"`
	Fraction    float64      `json:"fraction"` // 基础仓位占资金比例
	Stops       StopLevels   `json:"stops"`
	Reason      Reason       `json:"reason,omitempty"`
	Adjustments []string     `json:"adjustments"`
	Heat        HeatCheck    `json:"heat"`
	Detail      SizingDetail `json:"detail"`
}

// SizingDetail 各方法的中间值
type SizingDetail struct {
	KellyFraction      float64 `json:"kelly_fraction,omitempty"`
	VolatilityFraction float64 `json:"volatility_fraction,omitempty"`
	VolatilityRatio    float64 `json:"volatility_ratio,omitempty"`
	KellyWeight        float64 `json:"kelly_weight,omitempty"`
	VolatilityWeight   float64 `json:"volatility_weight,omitempty"`
}
