package model

import "time"

// ========== Risk Models ==========

// PositionStatus 持仓状态
type PositionStatus string

const (
	PositionOpen   PositionStatus = "open"
	PositionClosed PositionStatus = "closed"
)

// PositionRecord 风控持仓记录
type PositionRecord struct {
	Symbol     string         `json:"symbol"`
	RiskAmount float64        `json:"risk_amount"` // USD
	EntryPrice float64        `json:"entry_price"`
	Quantity   float64        `json:"quantity"`
	OpenedAt   time.Time      `json:"opened_at"`
	Status     PositionStatus `json:"status"`
	ExitPrice  float64        `json:"exit_price,omitempty"`
	PnL        float64        `json:"pnl,omitempty"`
	ClosedAt   time.Time      `json:"closed_at,omitempty"`
}

// RiskMetrics 滚动风险指标（Kelly 输入）
type RiskMetrics struct {
	WinRate         float64 `json:"win_rate"`
	AvgWin          float64 `json:"avg_win"`
	AvgLoss         float64 `json:"avg_loss"` // 正数
	TotalRisk       float64 `json:"total_risk"`
	MaxDrawdown     float64 `json:"max_drawdown"`
	CurrentDrawdown float64 `json:"current_drawdown"`
	TotalTrades     int     `json:"total_trades"`
	WinningTrades   int     `json:"winning_trades"`
	LosingTrades    int     `json:"losing_trades"`
	TotalPnL        float64 `json:"total_pnl"`
}

// HeatLevel 组合热度等级
type HeatLevel string

const (
	HeatLow      HeatLevel = "LOW"
	HeatMedium   HeatLevel = "MEDIUM"
	HeatHigh     HeatLevel = "HIGH"
	HeatCritical HeatLevel = "CRITICAL"
)

// HeatStatus 当前热度
type HeatStatus struct {
	Level     HeatLevel `json:"level"`
	Percent   float64   `json:"percent"` // 占热度预算的百分比
	Current   float64   `json:"current"`
	Max       float64   `json:"max"`
	Available float64   `json:"available"`
}

// HeatCheck CanTakePosition 的结果
type HeatCheck struct {
	Approved     bool    `json:"approved"`
	Reason       string  `json:"reason,omitempty"`
	CurrentHeat  float64 `json:"current_heat"`
	MaxHeat      float64 `json:"max_heat"`
	MaxPerTrade  float64 `json:"max_per_trade"`
	RequiredRisk float64 `json:"required_risk"`
}

// StopLevels 动态止损止盈
type StopLevels struct {
	StopLoss      float64 `json:"stop_loss"`
	TakeProfit    float64 `json:"take_profit"`
	TrailingStop  float64 `json:"trailing_stop"`
	StopDistance  float64 `json:"stop_distance"`
	ProfitDist    float64 `json:"profit_distance"`
	TrailDistance float64 `json:"trail_distance"`
}

// RiskReport 风控报告
type RiskReport struct {
	Heat            HeatStatus  `json:"heat"`
	Metrics         RiskMetrics `json:"metrics"`
	OpenPositions   int         `json:"open_positions"`
	ClosedPositions int         `json:"closed_positions"`
}
